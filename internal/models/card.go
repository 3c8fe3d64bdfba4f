// internal/models/card.go
package models

import (
	"fmt"
	"strings"
)

// Color is the color of a card or the active color of the table.
type Color string

const (
	ColorNone   Color = ""
	ColorRed    Color = "Red"
	ColorYellow Color = "Yellow"
	ColorGreen  Color = "Green"
	ColorBlue   Color = "Blue"
)

// Colors lists the four concrete colors in deck order.
var Colors = []Color{ColorRed, ColorYellow, ColorGreen, ColorBlue}

// IsConcrete reports whether c is one of the four playable colors.
func (c Color) IsConcrete() bool {
	switch c {
	case ColorRed, ColorYellow, ColorGreen, ColorBlue:
		return true
	}
	return false
}

// ParseColor accepts a color name case-insensitively ("red", "Red", "RED").
func ParseColor(s string) (Color, error) {
	for _, c := range Colors {
		if strings.EqualFold(strings.TrimSpace(s), string(c)) {
			return c, nil
		}
	}
	return ColorNone, fmt.Errorf("unknown color %q", s)
}

// Rank is the face of a card: a number, an action, or a wild.
type Rank string

const (
	RankZero         Rank = "0"
	RankSkip         Rank = "Skip"
	RankReverse      Rank = "Reverse"
	RankDrawTwo      Rank = "Draw Two"
	RankWild         Rank = "Wild"
	RankWildDrawFour Rank = "Wild Draw Four"
)

// NumberRank returns the rank for digit n (0-9).
func NumberRank(n int) Rank {
	return Rank(fmt.Sprintf("%d", n))
}

// IsNumber reports whether r is one of 0-9.
func (r Rank) IsNumber() bool {
	return len(r) == 1 && r[0] >= '0' && r[0] <= '9'
}

// IsWild reports whether r belongs to the wild family.
func (r Rank) IsWild() bool {
	return r == RankWild || r == RankWildDrawFour
}

// Card is a (color, rank) pair. Wild family cards always carry ColorNone;
// the color chosen when they are played lives on the record, not the card.
type Card struct {
	Color Color
	Rank  Rank
}

// IsWild reports whether the card belongs to the wild family.
func (c Card) IsWild() bool {
	return c.Rank.IsWild()
}

// String renders the card the way players type it: "Red 5", "Green Draw Two", "Wild".
func (c Card) String() string {
	if c.IsWild() {
		return string(c.Rank)
	}
	return string(c.Color) + " " + string(c.Rank)
}

// MarshalText encodes the card as its display string, which is also the stored form.
func (c Card) MarshalText() ([]byte, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return []byte(c.String()), nil
}

// UnmarshalText parses a stored card string.
func (c *Card) UnmarshalText(text []byte) error {
	parsed, err := ParseCard(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCard parses "Red 5", "Yellow Skip", "Blue Draw Two", "Wild" or "Wild Draw Four".
// Color prefixes are matched case-insensitively; surrounding whitespace is ignored.
func ParseCard(s string) (Card, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.EqualFold(s, string(RankWild)):
		return Card{Rank: RankWild}, nil
	case strings.EqualFold(s, string(RankWildDrawFour)):
		return Card{Rank: RankWildDrawFour}, nil
	}

	head, tail, ok := strings.Cut(s, " ")
	if !ok {
		return Card{}, fmt.Errorf("cannot parse card %q", s)
	}
	color, err := ParseColor(head)
	if err != nil {
		return Card{}, fmt.Errorf("cannot parse card %q: %w", s, err)
	}

	tail = strings.TrimSpace(tail)
	var rank Rank
	switch {
	case len(tail) == 1 && tail[0] >= '0' && tail[0] <= '9':
		rank = Rank(tail)
	case strings.EqualFold(tail, string(RankSkip)):
		rank = RankSkip
	case strings.EqualFold(tail, string(RankReverse)):
		rank = RankReverse
	case strings.EqualFold(tail, string(RankDrawTwo)):
		rank = RankDrawTwo
	default:
		return Card{}, fmt.Errorf("cannot parse card %q: unknown rank %q", s, tail)
	}
	return Card{Color: color, Rank: rank}, nil
}

func (c Card) validate() error {
	if c.IsWild() {
		if c.Color != ColorNone {
			return fmt.Errorf("wild card %q must not carry a color", c.Rank)
		}
		return nil
	}
	if !c.Color.IsConcrete() {
		return fmt.Errorf("card %q has no color", c.Rank)
	}
	switch {
	case c.Rank.IsNumber(), c.Rank == RankSkip, c.Rank == RankReverse, c.Rank == RankDrawTwo:
		return nil
	}
	return fmt.Errorf("unknown rank %q", c.Rank)
}
