// internal/handlers/lobby.go
package handlers

import (
	"encoding/json"
	"net/http"
)

// NewGameRequest is the body of POST /lobby/new-game.
type NewGameRequest struct {
	Players int `json:"players"`
}

// EndGameRequest is the body of POST /lobby/end-game.
type EndGameRequest struct {
	GameID string `json:"gameId"`
}

// NewGameHandler starts a table with bots in every seat but A.
func (s *APIServer) NewGameHandler(w http.ResponseWriter, r *http.Request) {
	req := NewGameRequest{Players: 2}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "invalid request body")
			return
		}
	}

	table, err := s.Lobby.NewGame(r.Context(), req.Players)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, table)
}

// EndGameHandler stops a table's bots and clears the game.
func (s *APIServer) EndGameHandler(w http.ResponseWriter, r *http.Request) {
	var req EndGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.GameID == "" {
		badRequest(w, "gameId is required")
		return
	}
	if err := s.Lobby.EndGame(r.Context(), req.GameID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListGamesHandler lists the tables this process runs bots for.
func (s *APIServer) ListGamesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Lobby.Tables())
}
