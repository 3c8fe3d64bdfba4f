// internal/game/engine.go
package game

import (
	"fmt"
	"math/rand"

	"github.com/jason-s-yu/uno/internal/models"
)

// Outcome is the result of resolving one action against a record.
type Outcome struct {
	Record *models.GameRecord

	// Message describes the move from the actor's point of view.
	Message string

	// Drawn is the card the actor drew, for a draw action that produced one.
	Drawn *models.Card

	// Victim and Penalty describe a forced draw (Draw Two, Wild Draw Four).
	Victim  models.ParticipantID
	Penalty int

	// Reshuffled is set when the discard pile was recycled into the draw pile.
	Reshuffled bool

	// Won is set when the move emptied the actor's hand.
	Won bool
}

// NewGame shuffles, deals and flips the opening card for the given seats, then
// applies the opening card's effect to the first seat.
func NewGame(players []models.ParticipantID, rules HouseRules) (*models.GameRecord, error) {
	if err := validateSeating(players); err != nil {
		return nil, err
	}
	if rules.HandSize < 1 || rules.HandSize > MaxHandSize {
		return nil, fmt.Errorf("hand size %d out of range 1-%d", rules.HandSize, MaxHandSize)
	}

	deck := ShuffledDeck(rules.Seed)
	hands, remaining, err := Deal(deck, rules.HandSize, players)
	if err != nil {
		return nil, err
	}
	start, remaining, err := FlipStartCard(remaining)
	if err != nil {
		return nil, err
	}

	rec := &models.GameRecord{
		DrawPile:    remaining,
		DiscardPile: []models.Card{start},
		Hands:       hands,
		PlayerOrder: append([]models.ParticipantID(nil), players...),
		Direction:   models.Clockwise,
		ActiveColor: start.Color,
		CurrentTurn: players[0],
		LastAction:  "Game started",
	}

	first := players[0]
	switch start.Rank {
	case models.RankSkip:
		rec.CurrentTurn = players[1]
		rec.LastAction = fmt.Sprintf("Game started: %s skips Player %s's turn", start, first)
	case models.RankReverse:
		if len(players) == 2 {
			rec.CurrentTurn = players[1]
			rec.LastAction = fmt.Sprintf("Game started: %s skips Player %s's turn", start, first)
		} else {
			rec.Direction = models.CounterClockwise
			rec.CurrentTurn = players[len(players)-1]
			rec.LastAction = fmt.Sprintf("Game started: %s reverses direction, Player %s goes first", start, rec.CurrentTurn)
		}
	case models.RankDrawTwo:
		for i := 0; i < 2; i++ {
			var c models.Card
			c, rec.DrawPile = popTop(rec.DrawPile)
			rec.Hands[first] = append(rec.Hands[first], c)
		}
		rec.CurrentTurn = players[1]
		rec.LastAction = fmt.Sprintf("Game started: %s, Player %s draws 2 and is skipped", start, first)
	}

	if err := Validate(rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// NextPlayer returns the participant steps seats away from `from` in the
// record's current direction.
func NextPlayer(rec *models.GameRecord, from models.ParticipantID, steps int) (models.ParticipantID, error) {
	idx, err := rec.SeatIndex(from)
	if err != nil {
		return "", err
	}
	n := len(rec.PlayerOrder)
	// Go's % keeps the dividend's sign; normalize so counter-clockwise wraps correctly.
	next := ((idx+steps*rec.Direction.Sign())%n + n) % n
	return rec.PlayerOrder[next], nil
}

// CanPlay reports whether card may be played on top with the given active color.
func CanPlay(card, top models.Card, active models.Color) bool {
	if card.IsWild() {
		return true
	}
	if card.Color == active {
		return true
	}
	return !top.IsWild() && card.Rank == top.Rank
}

// PlayableCards returns the cards in hand that can legally be played on rec.
func PlayableCards(rec *models.GameRecord, hand []models.Card) []models.Card {
	top, ok := rec.TopCard()
	if !ok {
		return nil
	}
	var out []models.Card
	for _, c := range hand {
		if CanPlay(c, top, rec.ActiveColor) {
			out = append(out, c)
		}
	}
	return out
}

// Resolve decides whether actor may perform action on rec and computes the
// resulting record. rec itself is never modified. r drives any reshuffle.
func Resolve(rec *models.GameRecord, actor models.ParticipantID, action models.GameAction, r *rand.Rand) (*Outcome, error) {
	if err := Validate(rec); err != nil {
		return nil, err
	}
	if rec.IsOver() {
		return nil, reject(ErrGameOver, "Game is already over.")
	}
	if rec.CurrentTurn != actor {
		return nil, reject(ErrNotYourTurn, "It is not your turn.")
	}

	next := rec.Clone()
	var (
		out *Outcome
		err error
	)
	switch action.Kind {
	case models.ActionPlay:
		out, err = resolvePlay(next, actor, action, r)
	case models.ActionDraw:
		out, err = resolveDraw(next, actor, r)
	default:
		return nil, fmt.Errorf("unknown action %q", action.Kind)
	}
	if err != nil {
		return nil, err
	}
	if err := Validate(out.Record); err != nil {
		return nil, err
	}
	return out, nil
}

func resolvePlay(rec *models.GameRecord, actor models.ParticipantID, action models.GameAction, r *rand.Rand) (*Outcome, error) {
	card := action.Card
	hand := rec.Hands[actor]
	pos := -1
	for i, c := range hand {
		if c == card {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, reject(ErrInvalidCard, "You don't have %q in your hand.", card.String())
	}

	top, _ := rec.TopCard()
	if !CanPlay(card, top, rec.ActiveColor) {
		return nil, reject(ErrIllegalPlay, "Cannot play %q on %q (current color: %s).", card.String(), top.String(), rec.ActiveColor)
	}
	if card.IsWild() && !action.ChosenColor.IsConcrete() {
		return nil, reject(ErrMissingColorChoice,
			"You must choose a color when playing a Wild card. Pass chosen_color as one of: Red, Yellow, Green, Blue.")
	}

	rec.Hands[actor] = append(hand[:pos:pos], hand[pos+1:]...)
	rec.DiscardPile = append(rec.DiscardPile, card)
	if card.IsWild() {
		rec.ActiveColor = action.ChosenColor
	} else {
		rec.ActiveColor = card.Color
	}

	out := &Outcome{Record: rec, Message: fmt.Sprintf("You played %s.", card)}
	n := len(rec.PlayerOrder)

	var (
		turn models.ParticipantID
		err  error
	)
	switch card.Rank {
	case models.RankSkip:
		skipped, _ := NextPlayer(rec, actor, 1)
		turn, err = NextPlayer(rec, actor, 2)
		out.Message += fmt.Sprintf(" Player %s is skipped.", skipped)
	case models.RankReverse:
		if n == 2 {
			skipped, _ := NextPlayer(rec, actor, 1)
			turn = actor
			out.Message += fmt.Sprintf(" Player %s is skipped.", skipped)
		} else {
			rec.Direction = rec.Direction.Flip()
			turn, err = NextPlayer(rec, actor, 1)
			out.Message += fmt.Sprintf(" Direction is now %s.", rec.Direction)
		}
	case models.RankDrawTwo, models.RankWildDrawFour:
		penalty := 2
		if card.Rank == models.RankWildDrawFour {
			penalty = 4
			out.Message += fmt.Sprintf(" Color is now %s.", action.ChosenColor)
		}
		victim, _ := NextPlayer(rec, actor, 1)
		drawn, reshuffled := forceDraw(rec, victim, penalty, r)
		out.Victim, out.Penalty, out.Reshuffled = victim, drawn, reshuffled
		turn, err = NextPlayer(rec, actor, 2)
		out.Message += fmt.Sprintf(" Player %s draws %d and is skipped.", victim, drawn)
	case models.RankWild:
		turn, err = NextPlayer(rec, actor, 1)
		out.Message += fmt.Sprintf(" Color is now %s.", action.ChosenColor)
	default:
		turn, err = NextPlayer(rec, actor, 1)
	}
	if err != nil {
		return nil, corrupt("advancing turn: %v", err)
	}

	if len(rec.Hands[actor]) == 0 {
		w := actor
		rec.Winner = &w
		out.Won = true
		out.Message = fmt.Sprintf("You played %s. You win!", card)
		rec.LastAction = fmt.Sprintf("Player %s played %s and won!", actor, card)
		return out, nil
	}

	rec.CurrentTurn = turn
	rec.LastAction = fmt.Sprintf("Player %s played %s", actor, card)
	if card.IsWild() {
		rec.LastAction += fmt.Sprintf(" (chose %s)", action.ChosenColor)
	}
	return out, nil
}

func resolveDraw(rec *models.GameRecord, actor models.ParticipantID, r *rand.Rand) (*Outcome, error) {
	out := &Outcome{Record: rec}
	card, ok, reshuffled := drawOne(rec, r)
	out.Reshuffled = reshuffled

	turn, err := NextPlayer(rec, actor, 1)
	if err != nil {
		return nil, corrupt("advancing turn: %v", err)
	}
	rec.CurrentTurn = turn

	if !ok {
		// Every card but the top discard is held in hands. Drawing is impossible
		// but the turn must still move or the table would stall.
		out.Message = "No cards left to draw. You pass."
		rec.LastAction = fmt.Sprintf("Player %s passed (no cards left to draw)", actor)
		return out, nil
	}

	rec.Hands[actor] = append(rec.Hands[actor], card)
	out.Drawn = &card
	out.Message = fmt.Sprintf("You drew: %s", card)
	rec.LastAction = fmt.Sprintf("Player %s drew a card", actor)
	return out, nil
}

// forceDraw moves up to n cards into victim's hand and returns how many moved.
func forceDraw(rec *models.GameRecord, victim models.ParticipantID, n int, r *rand.Rand) (int, bool) {
	drawn := 0
	reshuffled := false
	for i := 0; i < n; i++ {
		c, ok, rs := drawOne(rec, r)
		reshuffled = reshuffled || rs
		if !ok {
			break
		}
		rec.Hands[victim] = append(rec.Hands[victim], c)
		drawn++
	}
	return drawn, reshuffled
}

// drawOne pops the top of the draw pile, first recycling every discard but the
// top card when the draw pile is empty. ok is false only when both piles are
// exhausted down to the single active discard.
func drawOne(rec *models.GameRecord, r *rand.Rand) (card models.Card, ok bool, reshuffled bool) {
	if len(rec.DrawPile) == 0 {
		reshuffled = reshuffle(rec, r)
	}
	if len(rec.DrawPile) == 0 {
		return models.Card{}, false, reshuffled
	}
	card, rec.DrawPile = popTop(rec.DrawPile)
	return card, true, reshuffled
}

func reshuffle(rec *models.GameRecord, r *rand.Rand) bool {
	if len(rec.DiscardPile) <= 1 {
		return false
	}
	last := len(rec.DiscardPile) - 1
	top := rec.DiscardPile[last]
	pile := append([]models.Card(nil), rec.DiscardPile[:last]...)
	Shuffle(pile, r)
	rec.DrawPile = pile
	rec.DiscardPile = []models.Card{top}
	return true
}
