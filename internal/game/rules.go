// internal/game/rules.go
package game

import "fmt"

// HouseRules defines the knobs a table can set at creation time.
type HouseRules struct {
	HandSize int   `json:"handSize"` // cards dealt to each player; standard is 7
	Seed     int64 `json:"seed"`     // shuffle seed; 0 picks a time-based seed
}

// MaxHandSize keeps a four-seat deal plus the start card and an opening Draw Two within the deck.
const MaxHandSize = 20

// DefaultHouseRules returns the standard rules.
func DefaultHouseRules() HouseRules {
	return HouseRules{HandSize: 7}
}

// Update will update the house rules with the new rules provided.
// If a rule is not set or defined, it will be ignored, and the old value will persist.
func (rules *HouseRules) Update(newRules map[string]interface{}) error {
	// JSON numbers arrive as float64; callers building the map in Go may pass ints.
	toInt64 := func(key string) (int64, bool, error) {
		val, exists := newRules[key]
		if !exists || val == nil {
			return 0, false, nil
		}
		switch v := val.(type) {
		case float64:
			return int64(v), true, nil
		case int:
			return int64(v), true, nil
		case int64:
			return v, true, nil
		}
		return 0, false, fmt.Errorf("invalid type for %s", key)
	}

	if n, ok, err := toInt64("handSize"); err != nil {
		return err
	} else if ok {
		if n < 1 || n > MaxHandSize {
			return fmt.Errorf("handSize must be between 1 and %d", MaxHandSize)
		}
		rules.HandSize = int(n)
	}
	if n, ok, err := toInt64("seed"); err != nil {
		return err
	} else if ok {
		rules.Seed = n
	}
	return nil
}

// ParseRules converts a map of rules to a HouseRules struct. It will ensure the types are valid.
func ParseRules(rules map[string]interface{}, current HouseRules) (HouseRules, error) {
	houseRules := current
	err := houseRules.Update(rules)
	return houseRules, err
}
