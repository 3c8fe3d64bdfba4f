// internal/lobby/lobby_manager.go

package lobby

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultMoveDelay paces bot moves so a human can follow the table.
	DefaultMoveDelay = 800 * time.Millisecond
	// DefaultBotWait bounds each bot wait call before it re-checks the table.
	DefaultBotWait = 120 * time.Second
)

// Deleter removes a game's shared state.
type Deleter interface {
	Delete(ctx context.Context, gameID string) error
}

// Manager starts lobby games and owns their bot seats.
type Manager struct {
	coord   Coordinator
	deleter Deleter
	tables  *TableStore
	log     logrus.FieldLogger

	MoveDelay time.Duration
	BotWait   time.Duration
	// Seed fixes bot color choices; 0 seeds from the clock.
	Seed int64
}

// NewManager creates a lobby manager. deleter may be nil, in which case ending
// a game only stops its bots.
func NewManager(coord Coordinator, deleter Deleter, log logrus.FieldLogger) *Manager {
	return &Manager{
		coord:     coord,
		deleter:   deleter,
		tables:    NewTableStore(log),
		log:       log,
		MoveDelay: DefaultMoveDelay,
		BotWait:   DefaultBotWait,
	}
}

// NewGameID returns a short random game identifier.
func NewGameID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// NewGame creates a game for numPlayers seats. Seat A is left for the human;
// every other seat gets a bot that runs until the game ends or EndGame is called.
func (m *Manager) NewGame(ctx context.Context, numPlayers int) (*Table, error) {
	if numPlayers < game.MinPlayers || numPlayers > game.MaxPlayers {
		return nil, fmt.Errorf("number of players must be between %d and %d, got %d", game.MinPlayers, game.MaxPlayers, numPlayers)
	}
	players := game.DefaultPlayers(numPlayers)
	gameID := NewGameID()

	if _, err := m.coord.Ensure(ctx, gameID, players); err != nil {
		return nil, fmt.Errorf("create lobby game: %w", err)
	}

	botCtx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(botCtx)
	t := &Table{
		GameID:    gameID,
		Human:     players[0],
		Players:   players,
		Bots:      players[1:],
		CreatedAt: time.Now(),
		cancel:    cancel,
		group:     g,
	}
	for i, seat := range t.Bots {
		bot := &Bot{
			coord:  m.coord,
			gameID: gameID,
			seat:   seat,
			delay:  m.MoveDelay,
			wait:   m.BotWait,
			rng:    game.NewRand(m.botSeed(i)),
			log:    m.log.WithFields(logrus.Fields{"game_id": gameID, "participant": seat, "bot": true}),
		}
		g.Go(func() error { return bot.Run(gctx) })
	}
	m.tables.Add(t)

	m.log.WithFields(logrus.Fields{
		"game_id": gameID,
		"players": numPlayers,
	}).Info("lobby game started")
	return t, nil
}

func (m *Manager) botSeed(i int) int64 {
	if m.Seed == 0 {
		return 0
	}
	return m.Seed + int64(i)
}

// EndGame stops the bots of gameID and deletes the game's keys.
func (m *Manager) EndGame(ctx context.Context, gameID string) error {
	t, ok := m.tables.Delete(gameID)
	if ok {
		if err := t.stop(); err != nil {
			m.log.WithField("game_id", gameID).WithError(err).Warn("bot exited with error")
		}
	}
	if m.deleter != nil {
		if err := m.deleter.Delete(ctx, gameID); err != nil {
			return err
		}
	}
	m.log.WithField("game_id", gameID).Info("lobby game ended")
	return nil
}

// Table returns the tracked table for gameID.
func (m *Manager) Table(gameID string) (*Table, bool) {
	return m.tables.Get(gameID)
}

// Tables lists running tables.
func (m *Manager) Tables() []*Table {
	return m.tables.List()
}

// Close stops every table's bots without deleting game state.
func (m *Manager) Close() {
	for _, t := range m.tables.List() {
		if _, ok := m.tables.Delete(t.GameID); ok {
			_ = t.stop()
		}
	}
}
