package models

import "fmt"

// ActionKind tags the closed set of moves a participant can make.
type ActionKind string

const (
	ActionPlay ActionKind = "play"
	ActionDraw ActionKind = "draw"
)

// GameAction captures a participant's move. It is parsed once at the boundary
// (ParsePlay, DrawAction) and never re-interpreted by the rule engine.
type GameAction struct {
	Kind        ActionKind
	Card        Card
	ChosenColor Color
}

// DrawAction returns the draw move.
func DrawAction() GameAction {
	return GameAction{Kind: ActionDraw}
}

// ParsePlay builds a play move from user input. chosenColor may be empty; an
// unrecognized non-empty color is an input error.
func ParsePlay(card, chosenColor string) (GameAction, error) {
	c, err := ParseCard(card)
	if err != nil {
		return GameAction{}, err
	}
	a := GameAction{Kind: ActionPlay, Card: c}
	if chosenColor != "" {
		col, err := ParseColor(chosenColor)
		if err != nil {
			return GameAction{}, fmt.Errorf("invalid chosen color %q: must be one of Red, Yellow, Green, Blue", chosenColor)
		}
		a.ChosenColor = col
	}
	return a, nil
}

func (a GameAction) String() string {
	switch a.Kind {
	case ActionPlay:
		if a.ChosenColor != ColorNone {
			return fmt.Sprintf("play %s (%s)", a.Card, a.ChosenColor)
		}
		return "play " + a.Card.String()
	case ActionDraw:
		return "draw"
	}
	return string(a.Kind)
}
