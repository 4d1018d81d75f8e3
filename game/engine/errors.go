package engine

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidDimensions  = errors.New("invalid grid dimensions")
	ErrOutOfBounds        = errors.New("coordinate out of bounds")
	ErrIllegalMove        = errors.New("illegal move")
	ErrInvariantViolation = errors.New("engine invariant violated")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// MoveError describes why a move was not applied. Kind is one of the
// sentinel errors above and is what errors.Is matches against.
type MoveError struct {
	Kind   error
	Coord  Coord
	Player Player
	Reason string
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("%v: player %s at (%d,%d): %s", e.Kind, e.Player, e.Coord.Row, e.Coord.Col, e.Reason)
}

func (e *MoveError) Unwrap() error {
	return e.Kind
}

func moveError(kind error, c Coord, p Player, format string, args ...any) *MoveError {
	return &MoveError{
		Kind:   kind,
		Coord:  c,
		Player: p,
		Reason: fmt.Sprintf(format, args...),
	}
}
