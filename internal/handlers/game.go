// internal/handlers/game.go
package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/jason-s-yu/uno/internal/coordinator"
	"github.com/jason-s-yu/uno/internal/mcptools"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/jason-s-yu/uno/internal/render"
)

// PlayRequest is the body of POST /games/{id}/play.
type PlayRequest struct {
	Player      string `json:"player,omitempty"`
	Card        string `json:"card"`
	ChosenColor string `json:"chosen_color,omitempty"`
}

// ActResponse is returned for a committed play or draw.
type ActResponse struct {
	Message    string                  `json:"message"`
	LastAction string                  `json:"lastAction"`
	Drawn      *models.Card            `json:"drawn,omitempty"`
	Won        bool                    `json:"won"`
	Status     *coordinator.StatusView `json:"status"`
}

func newActResponse(res *coordinator.ActResult) ActResponse {
	return ActResponse{
		Message:    res.Message,
		LastAction: res.LastAction,
		Drawn:      res.Drawn,
		Won:        res.Won,
		Status:     res.Status,
	}
}

// StatusHandler serves GET /games/{id}?player=A. With format=text the reply is
// the same plain-text table the MCP status tool returns.
func (s *APIServer) StatusHandler(w http.ResponseWriter, r *http.Request) {
	player, ok := participantParam(r)
	if !ok {
		badRequest(w, "missing player query parameter")
		return
	}
	view, err := s.Games.Status(r.Context(), r.PathValue("id"), player)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, render.Status(view))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// PlayHandler serves POST /games/{id}/play.
func (s *APIServer) PlayHandler(w http.ResponseWriter, r *http.Request) {
	var req PlayRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "invalid request body")
		return
	}
	player, ok := participantParam(r)
	if !ok {
		player = models.ParticipantID(req.Player)
	}
	if player == "" {
		badRequest(w, "missing player")
		return
	}

	action, err := models.ParsePlay(req.Card, req.ChosenColor)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := s.Games.Act(r.Context(), r.PathValue("id"), player, action)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newActResponse(res))
}

// DrawHandler serves POST /games/{id}/draw?player=A.
func (s *APIServer) DrawHandler(w http.ResponseWriter, r *http.Request) {
	player, ok := participantParam(r)
	if !ok {
		badRequest(w, "missing player query parameter")
		return
	}
	res, err := s.Games.Act(r.Context(), r.PathValue("id"), player, models.DrawAction())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newActResponse(res))
}

// WaitHandler serves GET /games/{id}/wait?player=A&timeout=30. A timeout is a
// normal 200 reply with timedOut set.
func (s *APIServer) WaitHandler(w http.ResponseWriter, r *http.Request) {
	player, ok := participantParam(r)
	if !ok {
		badRequest(w, "missing player query parameter")
		return
	}
	timeout, err := timeoutParam(r, mcptools.DefaultWaitTimeout, MaxWait)
	if err != nil {
		badRequest(w, err.Error())
		return
	}
	res, err := s.Games.Wait(r.Context(), r.PathValue("id"), player, timeout)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"lastAction":  res.LastAction,
		"winner":      res.Winner,
		"currentTurn": res.CurrentTurn,
		"timedOut":    res.TimedOut,
	})
}
