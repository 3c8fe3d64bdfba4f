package coordinator

import (
	"fmt"

	"github.com/jason-s-yu/uno/internal/game"
	"github.com/jason-s-yu/uno/internal/models"
)

// SeatView is what a participant may know about another seat.
type SeatView struct {
	ID        models.ParticipantID `json:"id"`
	CardCount int                  `json:"cardCount"`
}

// StatusView is the table from one participant's point of view. Other hands
// are reduced to counts.
type StatusView struct {
	GameID      string                `json:"gameId"`
	Viewer      models.ParticipantID  `json:"viewer"`
	Hand        []models.Card         `json:"hand"`
	Playable    []models.Card         `json:"playable"`
	TopCard     models.Card           `json:"topCard"`
	ActiveColor models.Color          `json:"activeColor"`
	DrawCount   int                   `json:"drawCount"`
	Others      []SeatView            `json:"others"`
	PlayerCount int                   `json:"playerCount"`
	Direction   models.Direction      `json:"direction"`
	CurrentTurn models.ParticipantID  `json:"currentTurn"`
	Winner      *models.ParticipantID `json:"winner,omitempty"`
	LastAction  string                `json:"lastAction"`
}

// NewStatusView projects rec for viewer. Others are listed in seating order
// starting after the viewer.
func NewStatusView(gameID string, rec *models.GameRecord, viewer models.ParticipantID) (*StatusView, error) {
	seat, err := rec.SeatIndex(viewer)
	if err != nil {
		return nil, &game.RejectionError{Kind: game.ErrUnknownParticipant, Reason: fmt.Sprintf("%v in game %s", err, gameID)}
	}
	top, ok := rec.TopCard()
	if !ok {
		return nil, fmt.Errorf("%w: game %s has an empty discard pile", game.ErrCorruptState, gameID)
	}

	hand := append([]models.Card(nil), rec.Hands[viewer]...)
	view := &StatusView{
		GameID:      gameID,
		Viewer:      viewer,
		Hand:        hand,
		TopCard:     top,
		ActiveColor: rec.ActiveColor,
		DrawCount:   len(rec.DrawPile),
		PlayerCount: len(rec.PlayerOrder),
		Direction:   rec.Direction,
		CurrentTurn: rec.CurrentTurn,
		Winner:      rec.Winner,
		LastAction:  rec.LastAction,
	}
	if !rec.IsOver() && rec.CurrentTurn == viewer {
		view.Playable = game.PlayableCards(rec, hand)
	}
	n := len(rec.PlayerOrder)
	for i := 1; i < n; i++ {
		id := rec.PlayerOrder[(seat+i)%n]
		view.Others = append(view.Others, SeatView{ID: id, CardCount: len(rec.Hands[id])})
	}
	return view, nil
}

// YourTurn reports whether the viewer should act now.
func (v *StatusView) YourTurn() bool {
	return v.Winner == nil && v.CurrentTurn == v.Viewer
}
