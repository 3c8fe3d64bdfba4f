// internal/handlers/game_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/uno/internal/cache"
	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/middleware"
	"github.com/jason-s-yu/uno/internal/models"
	"github.com/sirupsen/logrus"
)

// GameSubprotocol must be offered by stream clients.
const GameSubprotocol = "game"

const wsWriteTimeout = 3 * time.Second

// GameMessage is an action sent by a stream client.
type GameMessage struct {
	// Type is "play", "draw" or "status".
	Type        string `json:"type"`
	Card        string `json:"card,omitempty"`
	ChosenColor string `json:"chosen_color,omitempty"`
}

// GameEvent is pushed to stream clients. Status events follow every committed
// change to the game; result and error events answer the client's own actions.
type GameEvent struct {
	Type    string      `json:"type"`
	Status  interface{} `json:"status,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// GameWSHandler upgrades GET /games/{id}/ws?player=A to a WebSocket. It pushes
// the player's status on connect and after every change signal, and accepts
// play and draw messages from the client.
func (s *APIServer) GameWSHandler(w http.ResponseWriter, r *http.Request) {
	gameID := r.PathValue("id")
	player, ok := participantParam(r)
	if !ok {
		badRequest(w, "missing player query parameter")
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{GameSubprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.Logger.WithError(err).WithField("game_id", gameID).Warn("WebSocket accept error")
		return
	}
	defer c.Close(websocket.StatusInternalError, "Internal server error during handler exit.")

	logger := s.Logger.WithFields(logrus.Fields{
		"game_id":     gameID,
		"participant": player,
		"request_id":  middleware.RequestID(r.Context()),
	})
	if c.Subprotocol() != GameSubprotocol {
		logger.Warnf("client connected with invalid subprotocol %q", c.Subprotocol())
		c.Close(BadSubprotocolError, "Client must use the 'game' subprotocol.")
		return
	}

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// Subscribe before the first status read so no change can fall between them.
	sub, err := s.Events.Subscribe(ctx, gameID)
	if err != nil {
		logger.WithError(err).Error("failed to subscribe to game changes")
		c.Close(StreamFailedError, "Could not subscribe to game changes.")
		return
	}
	defer sub.Close()

	if err := s.pushStatus(ctx, c, gameID, player); err != nil {
		switch {
		case errors.Is(err, cache.ErrNotFound):
			c.Close(GameNotFoundError, "Game not found.")
		case errors.Is(err, game.ErrUnknownParticipant):
			c.Close(UnknownParticipantError, "You are not seated in this game.")
		default:
			logger.WithError(err).Warn("initial status push failed")
		}
		return
	}
	middleware.LogWebSocketConnect(logger, r.RemoteAddr, r.URL.Path)

	go func() {
		defer cancel()
		s.readGameMessages(ctx, c, gameID, player, logger)
	}()

	for {
		if _, err := sub.Next(ctx); err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.WithError(err).Warn("change subscription ended")
			c.Close(StreamFailedError, "Change stream ended.")
			return
		}
		if err := s.pushStatus(ctx, c, gameID, player); err != nil {
			if ctx.Err() == nil {
				logger.WithError(err).Warn("status push failed")
			}
			break
		}
	}

	middleware.LogWebSocketDisconnect(logger, r.RemoteAddr, r.URL.Path, nil)
	c.Close(websocket.StatusNormalClosure, "")
}

// pushStatus reads the player's current view and writes it as a status event.
func (s *APIServer) pushStatus(ctx context.Context, c *websocket.Conn, gameID string, player models.ParticipantID) error {
	view, err := s.Games.Status(ctx, gameID, player)
	if err != nil {
		return err
	}
	return writeEvent(ctx, c, GameEvent{Type: "status", Status: view})
}

// readGameMessages reads client actions until the connection closes or ctx ends.
func (s *APIServer) readGameMessages(ctx context.Context, c *websocket.Conn, gameID string, player models.ParticipantID, logger logrus.FieldLogger) {
	for {
		msgType, data, err := c.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway || ctx.Err() != nil {
				logger.Debug("WebSocket read loop closed")
			} else {
				logger.WithError(err).Warn("error reading from WebSocket")
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var msg GameMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			writeEvent(ctx, c, GameEvent{Type: "error", Error: "Invalid JSON format."})
			continue
		}

		var action models.GameAction
		switch msg.Type {
		case "status":
			if err := s.pushStatus(ctx, c, gameID, player); err != nil {
				writeEvent(ctx, c, GameEvent{Type: "error", Error: err.Error()})
			}
			continue
		case "draw":
			action = models.DrawAction()
		case "play":
			action, err = models.ParsePlay(msg.Card, msg.ChosenColor)
			if err != nil {
				writeEvent(ctx, c, GameEvent{Type: "error", Error: err.Error()})
				continue
			}
		default:
			writeEvent(ctx, c, GameEvent{Type: "error", Error: "unknown message type " + msg.Type})
			continue
		}

		res, err := s.Games.Act(ctx, gameID, player, action)
		if err != nil {
			writeEvent(ctx, c, GameEvent{Type: "error", Error: err.Error()})
			continue
		}
		writeEvent(ctx, c, GameEvent{Type: "result", Message: res.Message})
	}
}

func writeEvent(ctx context.Context, c *websocket.Conn, ev GameEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	wctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return c.Write(wctx, websocket.MessageText, data)
}
