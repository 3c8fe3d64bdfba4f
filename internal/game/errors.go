package game

import (
	"errors"
	"fmt"
)

// Rejection kinds. Callers match them with errors.Is; the wrapping
// RejectionError carries the human-readable reason.
var (
	ErrGameOver           = errors.New("game is already over")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidCard        = errors.New("card not in hand")
	ErrIllegalPlay        = errors.New("illegal play")
	ErrMissingColorChoice = errors.New("missing color choice")
	ErrUnknownParticipant = errors.New("unknown participant")
	ErrInvalidSeating     = errors.New("invalid seating")

	// ErrCorruptState marks an invariant violation. It is fatal: the mutation is
	// abandoned and the stored record is left untouched.
	ErrCorruptState = errors.New("corrupt game state")
)

// RejectionError is returned for legality and turn-order violations.
type RejectionError struct {
	Kind   error
	Reason string
}

func (e *RejectionError) Error() string {
	return e.Reason
}

func (e *RejectionError) Unwrap() error {
	return e.Kind
}

func reject(kind error, format string, args ...any) error {
	return &RejectionError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

func corrupt(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...))
}

// IsRejection reports whether err is a rule rejection a caller should not retry.
func IsRejection(err error) bool {
	var re *RejectionError
	return errors.As(err, &re)
}
