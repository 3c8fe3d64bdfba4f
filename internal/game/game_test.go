// internal/game/game_test.go
package game

import (
	"errors"
	"testing"

	"github.com/jason-s-yu/uno/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func card(t *testing.T, s string) models.Card {
	t.Helper()
	c, err := models.ParseCard(s)
	require.NoError(t, err)
	return c
}

func cards(t *testing.T, ss ...string) []models.Card {
	t.Helper()
	out := make([]models.Card, 0, len(ss))
	for _, s := range ss {
		out = append(out, card(t, s))
	}
	return out
}

// tableSetup describes a hand-built position; every card not placed goes to the draw pile.
type tableSetup struct {
	order   []models.ParticipantID
	hands   map[models.ParticipantID][]string
	discard []string
	color   models.Color
	turn    models.ParticipantID
	dir     models.Direction
}

// buildRecord lays out a position while keeping the 108-card total intact.
func buildRecord(t *testing.T, setup tableSetup) *models.GameRecord {
	t.Helper()
	pool := NewDeck()
	take := func(s string) models.Card {
		c := card(t, s)
		for i, p := range pool {
			if p == c {
				pool = append(pool[:i], pool[i+1:]...)
				return c
			}
		}
		t.Fatalf("card %q not available in deck", s)
		return c
	}

	rec := &models.GameRecord{
		Hands:       make(map[models.ParticipantID][]models.Card),
		PlayerOrder: setup.order,
		Direction:   setup.dir,
		CurrentTurn: setup.turn,
		ActiveColor: setup.color,
		LastAction:  "Game started",
	}
	if rec.Direction == 0 {
		rec.Direction = models.Clockwise
	}
	for _, p := range setup.order {
		for _, s := range setup.hands[p] {
			rec.Hands[p] = append(rec.Hands[p], take(s))
		}
	}
	for _, s := range setup.discard {
		rec.DiscardPile = append(rec.DiscardPile, take(s))
	}
	rec.DrawPile = pool
	require.NoError(t, Validate(rec))
	return rec
}

func play(t *testing.T, s string, color models.Color) models.GameAction {
	t.Helper()
	return models.GameAction{Kind: models.ActionPlay, Card: card(t, s), ChosenColor: color}
}

func threeSeats() []models.ParticipantID { return DefaultPlayers(3) }

func TestNewDeckComposition(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, DeckSize)

	counts := map[models.Card]int{}
	for _, c := range deck {
		counts[c]++
	}
	for _, color := range models.Colors {
		assert.Equal(t, 1, counts[models.Card{Color: color, Rank: models.RankZero}], "one zero per color")
		for n := 1; n <= 9; n++ {
			assert.Equal(t, 2, counts[models.Card{Color: color, Rank: models.NumberRank(n)}])
		}
		for _, r := range []models.Rank{models.RankSkip, models.RankReverse, models.RankDrawTwo} {
			assert.Equal(t, 2, counts[models.Card{Color: color, Rank: r}])
		}
	}
	assert.Equal(t, 4, counts[models.Card{Rank: models.RankWild}])
	assert.Equal(t, 4, counts[models.Card{Rank: models.RankWildDrawFour}])
}

func TestShuffledDeckIsDeterministicForSeed(t *testing.T) {
	assert.Equal(t, ShuffledDeck(42), ShuffledDeck(42))
	assert.NotEqual(t, ShuffledDeck(42), ShuffledDeck(43))
}

func TestDeal(t *testing.T) {
	pile := NewDeck()
	hands, rest, err := Deal(pile, 7, DefaultPlayers(4))
	require.NoError(t, err)
	assert.Len(t, rest, DeckSize-28)
	for _, p := range DefaultPlayers(4) {
		assert.Len(t, hands[p], 7)
	}
	assert.Len(t, pile, DeckSize, "input pile must not be modified")

	_, _, err = Deal(pile[:10], 7, DefaultPlayers(2))
	assert.Error(t, err)
}

func TestFlipStartCardSkipsWilds(t *testing.T) {
	pile := cards(t, "Red 3", "Blue 7", "Wild Draw Four", "Wild")
	start, rest, err := FlipStartCard(pile)
	require.NoError(t, err)
	assert.Equal(t, card(t, "Blue 7"), start)
	assert.Equal(t, cards(t, "Red 3", "Wild Draw Four", "Wild"), rest)

	_, _, err = FlipStartCard(cards(t, "Wild", "Wild Draw Four"))
	assert.Error(t, err)
}

func TestNewGameHoldsInvariants(t *testing.T) {
	for players := MinPlayers; players <= MaxPlayers; players++ {
		for seed := int64(1); seed <= 60; seed++ {
			rec, err := NewGame(DefaultPlayers(players), HouseRules{HandSize: 7, Seed: seed})
			require.NoError(t, err)
			require.NoError(t, Validate(rec))

			top, _ := rec.TopCard()
			assert.False(t, top.IsWild(), "opening discard must not be wild")
			assert.Equal(t, top.Color, rec.ActiveColor)
			assert.Nil(t, rec.Winner)

			switch top.Rank {
			case models.RankSkip:
				assert.Equal(t, models.ParticipantID("B"), rec.CurrentTurn)
			case models.RankDrawTwo:
				assert.Len(t, rec.Hands["A"], 9)
				assert.Equal(t, models.ParticipantID("B"), rec.CurrentTurn)
			case models.RankReverse:
				if players == 2 {
					assert.Equal(t, models.ParticipantID("B"), rec.CurrentTurn)
				} else {
					assert.Equal(t, models.CounterClockwise, rec.Direction)
					assert.Equal(t, rec.PlayerOrder[players-1], rec.CurrentTurn)
				}
			default:
				assert.Equal(t, models.ParticipantID("A"), rec.CurrentTurn)
			}
		}
	}
}

func TestNewGameRejectsBadSeating(t *testing.T) {
	_, err := NewGame(DefaultPlayers(1), DefaultHouseRules())
	assert.ErrorIs(t, err, ErrInvalidSeating)
	_, err = NewGame([]models.ParticipantID{"A", "A"}, DefaultHouseRules())
	assert.ErrorIs(t, err, ErrInvalidSeating)
	_, err = NewGame(DefaultPlayers(5), DefaultHouseRules())
	assert.ErrorIs(t, err, ErrInvalidSeating)
}

func TestNextPlayerWrapsBothWays(t *testing.T) {
	rec := &models.GameRecord{PlayerOrder: DefaultPlayers(4), Direction: models.Clockwise}
	next, err := NextPlayer(rec, "D", 1)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantID("A"), next)

	rec.Direction = models.CounterClockwise
	next, err = NextPlayer(rec, "A", 1)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantID("D"), next)

	next, err = NextPlayer(rec, "A", 2)
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantID("C"), next)

	_, err = NextPlayer(rec, "Z", 1)
	assert.Error(t, err)
}

// TestThreePlayerSkipThenReverse follows A Skip (B skipped, C to move) then C Reverse.
func TestThreePlayerSkipThenReverse(t *testing.T) {
	rec := buildRecord(t, tableSetup{
		order: threeSeats(),
		hands: map[models.ParticipantID][]string{
			"A": {"Red Skip", "Blue 1"},
			"B": {"Green 4", "Green 5"},
			"C": {"Red Reverse", "Yellow 9"},
		},
		discard: []string{"Red 5"},
		color:   models.ColorRed,
		turn:    "A",
	})

	out, err := Resolve(rec, "A", play(t, "Red Skip", ""), NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, models.ParticipantID("C"), out.Record.CurrentTurn)
	assert.Equal(t, models.Clockwise, out.Record.Direction)
	assert.Contains(t, out.Message, "Player B is skipped")

	out, err = Resolve(out.Record, "C", play(t, "Red Reverse", ""), NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, models.CounterClockwise, out.Record.Direction)
	assert.Equal(t, models.ParticipantID("B"), out.Record.CurrentTurn)
	assert.Equal(t, DeckSize, out.Record.CardCount())
}

func TestFourPlayerDrawTwo(t *testing.T) {
	rec := buildRecord(t, tableSetup{
		order: DefaultPlayers(4),
		hands: map[models.ParticipantID][]string{
			"A": {"Blue Draw Two", "Red 1"},
			"B": {"Green 4"},
			"C": {"Green 6"},
			"D": {"Green 7"},
		},
		discard: []string{"Blue 3"},
		color:   models.ColorBlue,
		turn:    "A",
	})

	out, err := Resolve(rec, "A", play(t, "Blue Draw Two", ""), NewRand(1))
	require.NoError(t, err)
	assert.Len(t, out.Record.Hands["B"], 3)
	assert.Equal(t, models.ParticipantID("C"), out.Record.CurrentTurn)
	assert.Equal(t, models.ParticipantID("B"), out.Victim)
	assert.Equal(t, 2, out.Penalty)
	assert.Equal(t, DeckSize, out.Record.CardCount())
}

func TestTwoPlayerActionCardsReturnTurnToActor(t *testing.T) {
	tests := []struct {
		name      string
		card      string
		color     models.Color
		bHandSize int
	}{
		{"skip", "Red Skip", "", 1},
		{"reverse", "Red Reverse", "", 1},
		{"draw two", "Red Draw Two", "", 3},
		{"wild draw four", "Wild Draw Four", models.ColorGreen, 5},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := buildRecord(t, tableSetup{
				order: DefaultPlayers(2),
				hands: map[models.ParticipantID][]string{
					"A": {tc.card, "Yellow 2"},
					"B": {"Green 1"},
				},
				discard: []string{"Red 8"},
				color:   models.ColorRed,
				turn:    "A",
			})
			out, err := Resolve(rec, "A", play(t, tc.card, tc.color), NewRand(1))
			require.NoError(t, err)
			assert.Equal(t, models.ParticipantID("A"), out.Record.CurrentTurn)
			assert.Equal(t, models.Clockwise, out.Record.Direction, "two-player reverse must not flip direction")
			assert.Len(t, out.Record.Hands["B"], tc.bHandSize)
		})
	}
}

func TestThreePlayerWildDrawFour(t *testing.T) {
	rec := buildRecord(t, tableSetup{
		order: threeSeats(),
		hands: map[models.ParticipantID][]string{
			"A": {"Wild Draw Four", "Yellow 2"},
			"B": {"Green 1"},
			"C": {"Green 2"},
		},
		discard: []string{"Red 8"},
		color:   models.ColorRed,
		turn:    "A",
		dir:     models.CounterClockwise,
	})
	out, err := Resolve(rec, "A", play(t, "Wild Draw Four", models.ColorBlue), NewRand(1))
	require.NoError(t, err)
	assert.Len(t, out.Record.Hands["C"], 5, "counter-clockwise victim is C")
	assert.Equal(t, models.ParticipantID("B"), out.Record.CurrentTurn)
	assert.Equal(t, models.ColorBlue, out.Record.ActiveColor)
	assert.Equal(t, "Player A played Wild Draw Four (chose Blue)", out.Record.LastAction)
}

func TestWildSetsActiveColor(t *testing.T) {
	rec := buildRecord(t, tableSetup{
		order: threeSeats(),
		hands: map[models.ParticipantID][]string{
			"A": {"Wild", "Yellow 2"},
			"B": {"Green 1"},
			"C": {"Green 2"},
		},
		discard: []string{"Red 8"},
		color:   models.ColorRed,
		turn:    "A",
	})
	out, err := Resolve(rec, "A", play(t, "Wild", models.ColorYellow), NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, models.ColorYellow, out.Record.ActiveColor)
	assert.Equal(t, models.ParticipantID("B"), out.Record.CurrentTurn)
	top, _ := out.Record.TopCard()
	assert.Equal(t, models.ColorNone, top.Color, "the wild itself stays colorless")
}

func TestRejectionsInOrder(t *testing.T) {
	base := tableSetup{
		order: DefaultPlayers(2),
		hands: map[models.ParticipantID][]string{
			"A": {"Wild", "Blue 2", "Green 8"},
			"B": {"Green 1"},
		},
		discard: []string{"Red 8"},
		color:   models.ColorRed,
		turn:    "A",
	}

	tests := []struct {
		name   string
		actor  models.ParticipantID
		action models.GameAction
		kind   error
	}{
		{"not your turn", "B", play(t, "Green 1", ""), ErrNotYourTurn},
		{"not in hand", "A", play(t, "Red 3", ""), ErrInvalidCard},
		{"no match", "A", play(t, "Blue 2", ""), ErrIllegalPlay},
		{"wild without color", "A", play(t, "Wild", ""), ErrMissingColorChoice},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := buildRecord(t, base)
			before := rec.Clone()
			_, err := Resolve(rec, tc.actor, tc.action, NewRand(1))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.kind)
			assert.True(t, IsRejection(err))
			assert.Equal(t, before, rec, "rejected action must not touch the record")
		})
	}

	// Matching by rank works across colors.
	rec := buildRecord(t, base)
	out, err := Resolve(rec, "A", play(t, "Green 8", ""), NewRand(1))
	require.NoError(t, err)
	assert.Equal(t, models.ColorGreen, out.Record.ActiveColor)
}

func TestWinEndsGame(t *testing.T) {
	rec := buildRecord(t, tableSetup{
		order: threeSeats(),
		hands: map[models.ParticipantID][]string{
			"A": {"Red Draw Two"},
			"B": {"Green 1"},
			"C": {"Green 2"},
		},
		discard: []string{"Red 8"},
		color:   models.ColorRed,
		turn:    "A",
	})
	out, err := Resolve(rec, "A", play(t, "Red Draw Two", ""), NewRand(1))
	require.NoError(t, err)
	require.NotNil(t, out.Record.Winner)
	assert.Equal(t, models.ParticipantID("A"), *out.Record.Winner)
	assert.True(t, out.Won)
	assert.Equal(t, models.ParticipantID("A"), out.Record.CurrentTurn, "turn does not advance after a win")
	assert.Equal(t, "Player A played Red Draw Two and won!", out.Record.LastAction)

	for _, p := range threeSeats() {
		_, err = Resolve(out.Record, p, models.DrawAction(), NewRand(1))
		assert.ErrorIs(t, err, ErrGameOver)
	}
}

func TestDrawAdvancesTurn(t *testing.T) {
	rec := buildRecord(t, tableSetup{
		order: threeSeats(),
		hands: map[models.ParticipantID][]string{
			"A": {"Blue 1"},
			"B": {"Green 1"},
			"C": {"Green 2"},
		},
		discard: []string{"Red 8"},
		color:   models.ColorRed,
		turn:    "A",
	})
	wantTop := rec.DrawPile[len(rec.DrawPile)-1]
	out, err := Resolve(rec, "A", models.DrawAction(), NewRand(1))
	require.NoError(t, err)
	require.NotNil(t, out.Drawn)
	assert.Equal(t, wantTop, *out.Drawn)
	assert.Len(t, out.Record.Hands["A"], 2)
	assert.Equal(t, models.ParticipantID("B"), out.Record.CurrentTurn)
	assert.Equal(t, "Player A drew a card", out.Record.LastAction)
}

func TestDrawReshufflesDiscardExceptTop(t *testing.T) {
	rec := buildRecord(t, tableSetup{
		order: DefaultPlayers(2),
		hands: map[models.ParticipantID][]string{
			"A": {"Blue 1"},
			"B": {"Green 1"},
		},
		discard: []string{"Red 1", "Red 2", "Red 3", "Red 4"},
		color:   models.ColorRed,
		turn:    "A",
	})
	// Push every draw-pile card into B's hand so the draw pile is empty.
	rec.Hands["B"] = append(rec.Hands["B"], rec.DrawPile...)
	rec.DrawPile = nil
	require.NoError(t, Validate(rec))

	out, err := Resolve(rec, "A", models.DrawAction(), NewRand(7))
	require.NoError(t, err)
	assert.True(t, out.Reshuffled)
	assert.Equal(t, cards(t, "Red 4"), out.Record.DiscardPile)
	assert.Len(t, out.Record.DrawPile, 2)
	assert.Len(t, out.Record.Hands["A"], 2)
	assert.Equal(t, DeckSize, out.Record.CardCount())
}

func TestDrawWithNothingLeftPasses(t *testing.T) {
	rec := buildRecord(t, tableSetup{
		order: DefaultPlayers(2),
		hands: map[models.ParticipantID][]string{
			"A": {"Blue 1"},
			"B": {"Green 1"},
		},
		discard: []string{"Red 4"},
		color:   models.ColorRed,
		turn:    "A",
	})
	rec.Hands["B"] = append(rec.Hands["B"], rec.DrawPile...)
	rec.DrawPile = nil

	out, err := Resolve(rec, "A", models.DrawAction(), NewRand(1))
	require.NoError(t, err)
	assert.Nil(t, out.Drawn)
	assert.Equal(t, models.ParticipantID("B"), out.Record.CurrentTurn)
	assert.Equal(t, DeckSize, out.Record.CardCount())
}

func TestCorruptRecordIsRefused(t *testing.T) {
	rec := buildRecord(t, tableSetup{
		order: DefaultPlayers(2),
		hands: map[models.ParticipantID][]string{
			"A": {"Blue 1"},
			"B": {"Green 1"},
		},
		discard: []string{"Red 4"},
		color:   models.ColorRed,
		turn:    "A",
	})
	rec.DrawPile = rec.DrawPile[1:]

	_, err := Resolve(rec, "A", models.DrawAction(), NewRand(1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCorruptState))
	assert.False(t, IsRejection(err))
}

func TestConservationOverRandomGames(t *testing.T) {
	for seed := int64(1); seed <= 30; seed++ {
		players := DefaultPlayers(int(seed%3) + 2)
		rec, err := NewGame(players, HouseRules{HandSize: 7, Seed: seed})
		require.NoError(t, err)
		r := NewRand(seed)

		for move := 0; move < 500 && !rec.IsOver(); move++ {
			actor := rec.CurrentTurn
			action := models.DrawAction()
			if playable := PlayableCards(rec, rec.Hands[actor]); len(playable) > 0 {
				action = models.GameAction{Kind: models.ActionPlay, Card: playable[0]}
				if playable[0].IsWild() {
					action.ChosenColor = models.Colors[move%4]
				}
			}
			out, err := Resolve(rec, actor, action, r)
			require.NoError(t, err)
			require.Equal(t, DeckSize, out.Record.CardCount())
			rec = out.Record
		}
	}
}

func TestUpgradeIsIdempotent(t *testing.T) {
	rec := &models.GameRecord{}
	assert.True(t, Upgrade(rec))
	assert.Equal(t, []models.ParticipantID{"A", "B"}, rec.PlayerOrder)
	assert.Equal(t, models.Clockwise, rec.Direction)

	snapshot := rec.Clone()
	assert.False(t, Upgrade(rec))
	assert.Equal(t, snapshot, rec)
}

func TestParseRules(t *testing.T) {
	rules, err := ParseRules(map[string]interface{}{"handSize": float64(5)}, DefaultHouseRules())
	require.NoError(t, err)
	assert.Equal(t, 5, rules.HandSize)

	_, err = ParseRules(map[string]interface{}{"handSize": "five"}, DefaultHouseRules())
	assert.Error(t, err)
	_, err = ParseRules(map[string]interface{}{"handSize": 0}, DefaultHouseRules())
	assert.Error(t, err)
}
