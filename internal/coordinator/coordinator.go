// Package coordinator composes the record store, the game lock, the change
// notifier and the rule engine into the three operations a seat can perform:
// status, act and wait. Nothing is kept in memory between calls; every
// operation re-reads the shared record.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

// commitTimeout bounds the signal and history writes that follow a save.
const commitTimeout = 2 * time.Second

// Locker serializes mutations of one game.
type Locker interface {
	WithLock(ctx context.Context, gameID string, fn func(ctx context.Context) error) error
}

// Notifier carries change signals between processes.
type Notifier interface {
	Publish(ctx context.Context, gameID string, sig cache.Signal) error
	Subscribe(ctx context.Context, gameID string) (*cache.Subscription, error)
}

// History receives every committed action. It may be nil.
type History interface {
	Push(ctx context.Context, record cache.GameActionRecord) error
}

// Options configures how games are created.
type Options struct {
	// Players seats a lazily created game. Defaults to A and B.
	Players []models.ParticipantID
	Rules   game.HouseRules
}

// Coordinator is safe for concurrent use; all shared state lives in the store.
type Coordinator struct {
	store    cache.RecordStore
	locker   Locker
	notifier Notifier
	history  History
	opts     Options
	log      logrus.FieldLogger
	newRand  func() *rand.Rand
}

// New wires a coordinator. history may be nil.
func New(store cache.RecordStore, locker Locker, notifier Notifier, history History, opts Options, log logrus.FieldLogger) *Coordinator {
	if len(opts.Players) == 0 {
		opts.Players = game.DefaultPlayers(2)
	}
	if opts.Rules.HandSize == 0 {
		opts.Rules.HandSize = game.DefaultHouseRules().HandSize
	}
	return &Coordinator{
		store:    store,
		locker:   locker,
		notifier: notifier,
		history:  history,
		opts:     opts,
		log:      log,
		newRand:  func() *rand.Rand { return game.NewRand(0) },
	}
}

// ActResult is returned for a committed play or draw.
type ActResult struct {
	Message    string
	LastAction string
	Drawn      *models.Card
	Won        bool
	Status     *StatusView
}

// WaitResult reports why Wait returned. TimedOut is a normal outcome, not an error:
// nothing relevant changed before the deadline and the caller should wait again.
type WaitResult struct {
	LastAction  string
	Winner      *models.ParticipantID
	CurrentTurn models.ParticipantID
	TimedOut    bool
}

// Ensure creates the game with the given seating if it does not exist yet.
// It reports whether this call created it.
func (c *Coordinator) Ensure(ctx context.Context, gameID string, players []models.ParticipantID) (bool, error) {
	if len(players) == 0 {
		players = c.opts.Players
	}
	created := false
	err := c.locker.WithLock(ctx, gameID, func(ctx context.Context) error {
		exists, err := c.store.Exists(ctx, gameID)
		if err != nil || exists {
			return err
		}
		if _, err := c.create(ctx, gameID, players); err != nil {
			return err
		}
		created = true
		return nil
	})
	return created, err
}

// Status returns the table as seen from participant. It never takes the lock.
func (c *Coordinator) Status(ctx context.Context, gameID string, participant models.ParticipantID) (*StatusView, error) {
	rec, err := c.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	return NewStatusView(gameID, rec, participant)
}

// Act applies a play or draw under the game lock. An unknown game is created
// first with the configured seating. The save, the change signal and the
// history entry all happen before the lock is released, so history order is
// commit order. Rule rejections come back as
// *game.RejectionError and leave the record untouched.
func (c *Coordinator) Act(ctx context.Context, gameID string, participant models.ParticipantID, action models.GameAction) (*ActResult, error) {
	logger := c.log.WithFields(logrus.Fields{
		"game_id":     gameID,
		"participant": participant,
		"action":      action.String(),
	})

	var result *ActResult
	err := c.locker.WithLock(ctx, gameID, func(ctx context.Context) error {
		rec, err := c.store.Load(ctx, gameID)
		if errors.Is(err, cache.ErrNotFound) {
			rec, err = c.create(ctx, gameID, c.opts.Players)
		}
		if err != nil {
			return err
		}

		outcome, err := game.Resolve(rec, participant, action, c.newRand())
		if err != nil {
			return err
		}
		if err := c.store.Save(ctx, gameID, outcome.Record); err != nil {
			return err
		}
		commitCtx, cancel := afterCommit(ctx)
		defer cancel()
		c.commitSignal(commitCtx, gameID)
		c.recordOutcome(commitCtx, gameID, participant, action, outcome)

		view, err := NewStatusView(gameID, outcome.Record, participant)
		if err != nil {
			return err
		}
		result = &ActResult{
			Message:    outcome.Message,
			LastAction: outcome.Record.LastAction,
			Drawn:      outcome.Drawn,
			Won:        outcome.Won,
			Status:     view,
		}
		return nil
	})
	if err != nil {
		switch {
		case game.IsRejection(err):
			logger.WithError(err).Debug("action rejected")
		case errors.Is(err, game.ErrCorruptState):
			logger.WithError(err).Error("refusing to mutate corrupt game record")
		default:
			logger.WithError(err).Warn("action failed")
		}
		return nil, err
	}

	logger.WithField("last_action", result.LastAction).Info("action committed")
	return result, nil
}

// Wait blocks until it is participant's turn or the game is over, or until
// timeout passes (timeout <= 0 waits until ctx ends). The subscription is
// confirmed before the record is first read, so a commit that lands between
// the read and the block still wakes the caller.
func (c *Coordinator) Wait(ctx context.Context, gameID string, participant models.ParticipantID, timeout time.Duration) (*WaitResult, error) {
	sub, err := c.notifier.Subscribe(ctx, gameID)
	if err != nil {
		return nil, err
	}
	defer sub.Close()

	rec, err := c.store.Load(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if _, err := rec.SeatIndex(participant); err != nil {
		return nil, &game.RejectionError{Kind: game.ErrUnknownParticipant, Reason: fmt.Sprintf("%v in game %s", err, gameID)}
	}
	if res, ok := readyFor(rec, participant); ok {
		return res, nil
	}

	waitCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	for {
		if _, err := sub.Next(waitCtx); err != nil {
			if ctx.Err() == nil && errors.Is(err, context.DeadlineExceeded) {
				return &WaitResult{
					LastAction:  rec.LastAction,
					Winner:      rec.Winner,
					CurrentTurn: rec.CurrentTurn,
					TimedOut:    true,
				}, nil
			}
			return nil, err
		}

		rec, err = c.store.Load(ctx, gameID)
		if err != nil {
			return nil, err
		}
		if res, ok := readyFor(rec, participant); ok {
			return res, nil
		}
	}
}

func readyFor(rec *models.GameRecord, participant models.ParticipantID) (*WaitResult, bool) {
	if !rec.IsOver() && rec.CurrentTurn != participant {
		return nil, false
	}
	return &WaitResult{
		LastAction:  rec.LastAction,
		Winner:      rec.Winner,
		CurrentTurn: rec.CurrentTurn,
	}, true
}

// create deals a new game, saves it and announces it. The caller holds the lock.
// The creation stays committed even if the action that triggered it is rejected.
func (c *Coordinator) create(ctx context.Context, gameID string, players []models.ParticipantID) (*models.GameRecord, error) {
	rec, err := game.NewGame(players, c.opts.Rules)
	if err != nil {
		return nil, fmt.Errorf("create game %s: %w", gameID, err)
	}
	if err := c.store.Save(ctx, gameID, rec); err != nil {
		return nil, err
	}
	c.log.WithFields(logrus.Fields{
		"game_id": gameID,
		"players": len(players),
	}).Info("created game")

	commitCtx, cancel := afterCommit(ctx)
	defer cancel()
	c.commitSignal(commitCtx, gameID)
	start, _ := rec.TopCard()
	c.pushHistory(commitCtx, gameID, "", cache.HistoryGameStart, map[string]interface{}{
		"players":     rec.PlayerOrder,
		"start_card":  start.String(),
		"last_action": rec.LastAction,
	})
	return rec, nil
}

// afterCommit detaches the writes that follow a save from the caller's
// cancellation. Once a record is saved its signal must go out.
func afterCommit(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), commitTimeout)
}

// commitSignal publishes after a save and before the lock is released. A lost
// signal is logged rather than failing an already committed mutation; waiters
// recover on their next call.
func (c *Coordinator) commitSignal(ctx context.Context, gameID string) {
	if err := c.notifier.Publish(ctx, gameID, cache.SignalUpdate); err != nil {
		c.log.WithField("game_id", gameID).WithError(err).Error("failed to publish change signal")
	}
}

func (c *Coordinator) recordOutcome(ctx context.Context, gameID string, actor models.ParticipantID, action models.GameAction, out *game.Outcome) {
	payload := map[string]interface{}{"last_action": out.Record.LastAction}
	actionType := cache.HistoryDraw
	if action.Kind == models.ActionPlay {
		actionType = cache.HistoryPlay
		payload["card"] = action.Card.String()
		if action.ChosenColor != models.ColorNone {
			payload["chosen_color"] = string(action.ChosenColor)
		}
	}
	if out.Penalty > 0 {
		payload["victim"] = string(out.Victim)
		payload["penalty"] = out.Penalty
	}
	if out.Reshuffled {
		payload["reshuffled"] = true
	}
	c.pushHistory(ctx, gameID, actor, actionType, payload)

	if out.Won {
		c.pushHistory(ctx, gameID, actor, cache.HistoryGameEnd, map[string]interface{}{"winner": string(actor)})
	}
}

func (c *Coordinator) pushHistory(ctx context.Context, gameID string, actor models.ParticipantID, actionType string, payload map[string]interface{}) {
	if c.history == nil {
		return
	}
	rec := cache.GameActionRecord{
		GameID:        gameID,
		Actor:         string(actor),
		ActionType:    actionType,
		ActionPayload: payload,
	}
	if err := c.history.Push(ctx, rec); err != nil {
		c.log.WithField("game_id", gameID).WithError(err).Warn("failed to queue action for historian")
	}
}
