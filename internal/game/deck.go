// internal/game/deck.go
package game

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/jason-s-yu/uno/internal/models"
)

// DeckSize is the number of cards in a standard deck; every record holds exactly this many.
const DeckSize = 108

// NewDeck builds the canonical unshuffled deck: per color one 0, two each of 1-9,
// Skip, Reverse and Draw Two; then four Wild and four Wild Draw Four.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, DeckSize)
	for _, color := range models.Colors {
		deck = append(deck, models.Card{Color: color, Rank: models.RankZero})
		for n := 1; n <= 9; n++ {
			r := models.NumberRank(n)
			deck = append(deck, models.Card{Color: color, Rank: r}, models.Card{Color: color, Rank: r})
		}
		for _, r := range []models.Rank{models.RankSkip, models.RankReverse, models.RankDrawTwo} {
			deck = append(deck, models.Card{Color: color, Rank: r}, models.Card{Color: color, Rank: r})
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck, models.Card{Rank: models.RankWild}, models.Card{Rank: models.RankWildDrawFour})
	}
	return deck
}

// NewRand returns a time-seeded source, or a deterministic one when seed != 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// Shuffle permutes cards in place.
func Shuffle(cards []models.Card, r *rand.Rand) {
	r.Shuffle(len(cards), func(i, j int) {
		cards[i], cards[j] = cards[j], cards[i]
	})
}

// ShuffledDeck returns a fresh deck shuffled with seed (0 = time-seeded).
func ShuffledDeck(seed int64) []models.Card {
	deck := NewDeck()
	Shuffle(deck, NewRand(seed))
	return deck
}

// Deal hands perPlayer cards to each participant from the front of pile and returns
// what is left. The pile is not modified.
func Deal(pile []models.Card, perPlayer int, participants []models.ParticipantID) (map[models.ParticipantID][]models.Card, []models.Card, error) {
	need := perPlayer * len(participants)
	if perPlayer < 0 || need > len(pile) {
		return nil, nil, fmt.Errorf("cannot deal %d cards to %d players from a pile of %d", perPlayer, len(participants), len(pile))
	}
	hands := make(map[models.ParticipantID][]models.Card, len(participants))
	offset := 0
	for _, p := range participants {
		hands[p] = append([]models.Card(nil), pile[offset:offset+perPlayer]...)
		offset += perPlayer
	}
	return hands, append([]models.Card(nil), pile[offset:]...), nil
}

// FlipStartCard removes the first non-wild card scanning down from the top of pile
// (the last element). The opening discard is never a wild because no color could be
// chosen for it.
func FlipStartCard(pile []models.Card) (models.Card, []models.Card, error) {
	for i := len(pile) - 1; i >= 0; i-- {
		c := pile[i]
		if c.IsWild() {
			continue
		}
		rest := make([]models.Card, 0, len(pile)-1)
		rest = append(rest, pile[:i]...)
		rest = append(rest, pile[i+1:]...)
		return c, rest, nil
	}
	return models.Card{}, nil, fmt.Errorf("no non-wild card in a pile of %d", len(pile))
}

// popTop removes and returns the top (last) card of the draw pile.
func popTop(pile []models.Card) (models.Card, []models.Card) {
	last := len(pile) - 1
	return pile[last], pile[:last]
}
