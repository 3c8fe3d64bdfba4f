// internal/handlers/api_server.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/coordinator"
	"github.com/jason-s-yu/uno/internal/lobby"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

// MaxWait caps the timeout a client may request from the wait endpoint.
const MaxWait = 120 * time.Second

// GameService is the coordinator surface the HTTP API calls into.
type GameService interface {
	Status(ctx context.Context, gameID string, participant models.ParticipantID) (*coordinator.StatusView, error)
	Act(ctx context.Context, gameID string, participant models.ParticipantID, action models.GameAction) (*coordinator.ActResult, error)
	Wait(ctx context.Context, gameID string, participant models.ParticipantID, timeout time.Duration) (*coordinator.WaitResult, error)
}

// Subscriber delivers change signals for the live stream.
type Subscriber interface {
	Subscribe(ctx context.Context, gameID string) (*cache.Subscription, error)
}

// LobbyService starts and ends bot tables.
type LobbyService interface {
	NewGame(ctx context.Context, numPlayers int) (*lobby.Table, error)
	EndGame(ctx context.Context, gameID string) error
	Tables() []*lobby.Table
}

// APIServer holds the services behind the HTTP routes.
type APIServer struct {
	Games  GameService
	Events Subscriber
	Lobby  LobbyService
	Logger logrus.FieldLogger
}

// NewAPIServer wires the API. lobby may be nil to disable the lobby routes.
func NewAPIServer(games GameService, events Subscriber, lobby LobbyService, logger logrus.FieldLogger) *APIServer {
	return &APIServer{
		Games:  games,
		Events: events,
		Lobby:  lobby,
		Logger: logger,
	}
}

// Routes returns the full handler tree wrapped in request logging.
func (s *APIServer) Routes() http.Handler {
	mux := http.NewServeMux()

	// game endpoints
	mux.HandleFunc("GET /games/{id}", s.StatusHandler)
	mux.HandleFunc("POST /games/{id}/play", s.PlayHandler)
	mux.HandleFunc("POST /games/{id}/draw", s.DrawHandler)
	mux.HandleFunc("GET /games/{id}/wait", s.WaitHandler)

	// live stream
	mux.HandleFunc("GET /games/{id}/ws", s.GameWSHandler)

	// lobby endpoints
	if s.Lobby != nil {
		mux.HandleFunc("POST /lobby/new-game", s.NewGameHandler)
		mux.HandleFunc("POST /lobby/end-game", s.EndGameHandler)
		mux.HandleFunc("GET /lobby/games", s.ListGamesHandler)
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.LogMiddleware(s.Logger)(mux)
}
