package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
)

// errorResponse is the JSON body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusForError maps a coordinator error to an HTTP status and a short code.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, cache.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, cache.ErrBusy):
		return http.StatusServiceUnavailable, "busy"
	case errors.Is(err, game.ErrCorruptState):
		return http.StatusInternalServerError, "corrupt_state"
	case errors.Is(err, game.ErrNotYourTurn):
		return http.StatusConflict, "not_your_turn"
	case errors.Is(err, game.ErrGameOver):
		return http.StatusConflict, "game_over"
	case errors.Is(err, game.ErrUnknownParticipant):
		return http.StatusBadRequest, "unknown_participant"
	case game.IsRejection(err):
		return http.StatusBadRequest, "illegal_move"
	}
	return http.StatusInternalServerError, "internal"
}

func (s *APIServer) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusForError(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	if status >= http.StatusInternalServerError {
		s.Logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}

// participantParam reads the acting seat from the "player" query parameter.
func participantParam(r *http.Request) (models.ParticipantID, bool) {
	p := r.URL.Query().Get("player")
	return models.ParticipantID(p), p != ""
}

// timeoutParam parses a "timeout" query value in seconds, capped at max.
func timeoutParam(r *http.Request, def, max time.Duration) (time.Duration, error) {
	raw := r.URL.Query().Get("timeout")
	if raw == "" {
		return def, nil
	}
	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs <= 0 {
		return 0, errors.New("timeout must be a positive number of seconds")
	}
	d := time.Duration(secs * float64(time.Second))
	if d > max {
		d = max
	}
	return d, nil
}
