// internal/models/record.go
package models

import "fmt"

// ParticipantID identifies one seat in a game. It is supplied by the caller and trusted.
type ParticipantID string

// Direction is the rotation of play around PlayerOrder.
type Direction int

const (
	Clockwise        Direction = 1
	CounterClockwise Direction = -1
)

// Sign returns +1 or -1. An unset direction counts as clockwise.
func (d Direction) Sign() int {
	if d == CounterClockwise {
		return -1
	}
	return 1
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == CounterClockwise {
		return Clockwise
	}
	return CounterClockwise
}

func (d Direction) String() string {
	if d == CounterClockwise {
		return "Counter-clockwise"
	}
	return "Clockwise"
}

// GameRecord is the whole persisted state of one game. It is the only thing
// shared between processes; every operation loads it fresh.
type GameRecord struct {
	DrawPile    []Card                   `json:"draw_pile"`
	DiscardPile []Card                   `json:"discard_pile"`
	Hands       map[ParticipantID][]Card `json:"hands"`
	CurrentTurn ParticipantID            `json:"current_turn"`
	ActiveColor Color                    `json:"current_color"`
	LastAction  string                   `json:"last_action"`
	Winner      *ParticipantID           `json:"winner"`
	PlayerOrder []ParticipantID          `json:"player_order,omitempty"`
	Direction   Direction                `json:"direction,omitempty"`
}

// TopCard returns the active card of the discard pile.
func (r *GameRecord) TopCard() (Card, bool) {
	if len(r.DiscardPile) == 0 {
		return Card{}, false
	}
	return r.DiscardPile[len(r.DiscardPile)-1], true
}

// IsOver reports whether a winner has been recorded.
func (r *GameRecord) IsOver() bool {
	return r.Winner != nil
}

// CardCount returns the number of cards across both piles and all hands.
func (r *GameRecord) CardCount() int {
	n := len(r.DrawPile) + len(r.DiscardPile)
	for _, h := range r.Hands {
		n += len(h)
	}
	return n
}

// SeatIndex returns the position of p in PlayerOrder.
func (r *GameRecord) SeatIndex(p ParticipantID) (int, error) {
	for i, id := range r.PlayerOrder {
		if id == p {
			return i, nil
		}
	}
	return -1, fmt.Errorf("participant %q is not seated", p)
}

// Clone returns a deep copy so the rule engine never mutates a loaded record in place.
func (r *GameRecord) Clone() *GameRecord {
	out := &GameRecord{
		DrawPile:    append([]Card(nil), r.DrawPile...),
		DiscardPile: append([]Card(nil), r.DiscardPile...),
		Hands:       make(map[ParticipantID][]Card, len(r.Hands)),
		CurrentTurn: r.CurrentTurn,
		ActiveColor: r.ActiveColor,
		LastAction:  r.LastAction,
		PlayerOrder: append([]ParticipantID(nil), r.PlayerOrder...),
		Direction:   r.Direction,
	}
	for p, h := range r.Hands {
		out.Hands[p] = append([]Card(nil), h...)
	}
	if r.Winner != nil {
		w := *r.Winner
		out.Winner = &w
	}
	return out
}
