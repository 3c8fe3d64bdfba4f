package game

import "github.com/jason-s-yu/uno/internal/models"

// MinPlayers and MaxPlayers bound the number of seats at a table.
const (
	MinPlayers = 2
	MaxPlayers = 4
)

// LegacyPlayerOrder is the seating assumed for records written before
// multi-player support existed.
var LegacyPlayerOrder = []models.ParticipantID{"A", "B"}

// Upgrade brings a record written by older tooling up to the current schema:
// a missing player order becomes the two-seat default and a missing direction
// becomes clockwise. It reports whether anything changed; a second call on the
// same record is a no-op.
func Upgrade(rec *models.GameRecord) bool {
	changed := false
	if len(rec.PlayerOrder) == 0 {
		rec.PlayerOrder = append([]models.ParticipantID(nil), LegacyPlayerOrder...)
		changed = true
	}
	if rec.Direction != models.Clockwise && rec.Direction != models.CounterClockwise {
		rec.Direction = models.Clockwise
		changed = true
	}
	return changed
}

// Validate checks every invariant a committed record must satisfy. Any failure
// wraps ErrCorruptState.
func Validate(rec *models.GameRecord) error {
	if rec == nil {
		return corrupt("nil record")
	}
	if err := validateSeating(rec.PlayerOrder); err != nil {
		return corrupt("%v", err)
	}
	if len(rec.Hands) != len(rec.PlayerOrder) {
		return corrupt("%d hands for %d seats", len(rec.Hands), len(rec.PlayerOrder))
	}
	for _, p := range rec.PlayerOrder {
		if _, ok := rec.Hands[p]; !ok {
			return corrupt("no hand for seated participant %q", p)
		}
	}
	if n := rec.CardCount(); n != DeckSize {
		return corrupt("card count is %d, want %d", n, DeckSize)
	}
	if len(rec.DiscardPile) == 0 {
		return corrupt("discard pile is empty")
	}
	if !rec.ActiveColor.IsConcrete() {
		return corrupt("active color %q is not a playable color", rec.ActiveColor)
	}
	if _, err := rec.SeatIndex(rec.CurrentTurn); err != nil {
		return corrupt("current turn: %v", err)
	}
	if rec.Winner != nil {
		hand, ok := rec.Hands[*rec.Winner]
		if !ok {
			return corrupt("winner %q is not seated", *rec.Winner)
		}
		if len(hand) != 0 {
			return corrupt("winner %q still holds %d cards", *rec.Winner, len(hand))
		}
	} else {
		for p, h := range rec.Hands {
			if len(h) == 0 {
				return corrupt("participant %q has an empty hand but no winner is set", p)
			}
		}
	}
	return nil
}

func validateSeating(order []models.ParticipantID) error {
	if len(order) < MinPlayers || len(order) > MaxPlayers {
		return reject(ErrInvalidSeating, "a game needs %d-%d players, got %d", MinPlayers, MaxPlayers, len(order))
	}
	seen := make(map[models.ParticipantID]bool, len(order))
	for _, p := range order {
		if p == "" {
			return reject(ErrInvalidSeating, "empty participant id")
		}
		if seen[p] {
			return reject(ErrInvalidSeating, "participant %q is seated twice", p)
		}
		seen[p] = true
	}
	return nil
}

// DefaultPlayers returns the seat ids "A".."D" for n players.
func DefaultPlayers(n int) []models.ParticipantID {
	all := []models.ParticipantID{"A", "B", "C", "D"}
	if n < 0 {
		n = 0
	}
	if n > len(all) {
		n = len(all)
	}
	return append([]models.ParticipantID(nil), all[:n]...)
}
