// internal/lobby/lobby.go
package lobby

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/coordinator"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Coordinator is the subset of the coordinator a table needs.
type Coordinator interface {
	Ensure(ctx context.Context, gameID string, players []models.ParticipantID) (bool, error)
	Status(ctx context.Context, gameID string, participant models.ParticipantID) (*coordinator.StatusView, error)
	Act(ctx context.Context, gameID string, participant models.ParticipantID, action models.GameAction) (*coordinator.ActResult, error)
	Wait(ctx context.Context, gameID string, participant models.ParticipantID, timeout time.Duration) (*coordinator.WaitResult, error)
}

// Table is one game started from the lobby: a human seat plus bot seats.
type Table struct {
	GameID    string                 `json:"gameId"`
	Human     models.ParticipantID   `json:"human"`
	Players   []models.ParticipantID `json:"players"`
	Bots      []models.ParticipantID `json:"bots"`
	CreatedAt time.Time              `json:"createdAt"`

	cancel context.CancelFunc
	group  *errgroup.Group
}

// stop cancels the bots and waits for them to return.
func (t *Table) stop() error {
	t.cancel()
	err := t.group.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Bot plays one seat by always choosing the first legal card.
type Bot struct {
	coord  Coordinator
	gameID string
	seat   models.ParticipantID
	delay  time.Duration
	wait   time.Duration
	rng    *rand.Rand
	log    logrus.FieldLogger
}

// Run loops wait → choose → act until the game ends or ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	for {
		res, err := b.coord.Wait(ctx, b.gameID, b.seat, b.wait)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		if res.Winner != nil {
			b.log.WithField("winner", *res.Winner).Debug("game over, bot leaving")
			return nil
		}
		if res.TimedOut || res.CurrentTurn != b.seat {
			continue
		}

		if b.delay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(b.delay):
			}
		}
		if err := b.move(ctx); err != nil {
			return err
		}
	}
}

// move makes one move. A move that lost a race (stale view, contended lock) is
// dropped; the next wait re-reads the table.
func (b *Bot) move(ctx context.Context) error {
	view, err := b.coord.Status(ctx, b.gameID, b.seat)
	if err != nil {
		return err
	}
	if !view.YourTurn() {
		return nil
	}

	action := ChooseMove(view, b.rng)
	res, err := b.coord.Act(ctx, b.gameID, b.seat, action)
	switch {
	case err == nil:
		b.log.WithField("action", action.String()).Debug(res.Message)
		return nil
	case game.IsRejection(err), errors.Is(err, cache.ErrBusy):
		b.log.WithError(err).Debug("bot move dropped")
		return nil
	default:
		return err
	}
}

// ChooseMove picks the first playable card in hand order, naming a random color
// for wilds, and draws when nothing is playable.
func ChooseMove(view *coordinator.StatusView, r *rand.Rand) models.GameAction {
	for _, c := range view.Hand {
		if !game.CanPlay(c, view.TopCard, view.ActiveColor) {
			continue
		}
		action := models.GameAction{Kind: models.ActionPlay, Card: c}
		if c.IsWild() {
			action.ChosenColor = models.Colors[r.Intn(len(models.Colors))]
		}
		return action
	}
	return models.DrawAction()
}
