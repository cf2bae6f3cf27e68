package services

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned to a client wraps exactly one of these.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state")
	ErrDuplicateSubmission = errors.New("duplicate submission")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
)

var (
	ErrRoomNotFound        = fmt.Errorf("room %w", ErrNotFound)
	ErrPlayerNotFound      = fmt.Errorf("player %w", ErrNotFound)
	ErrPlayerNotInRoom     = fmt.Errorf("player is not in this room: %w", ErrNotFound)
	ErrGameAlreadyStarted  = fmt.Errorf("game already started: %w", ErrInvalidState)
	ErrNotAcceptingAnswers = fmt.Errorf("room is not accepting answers: %w", ErrInvalidState)
	ErrCannotAdvance       = fmt.Errorf("room cannot be advanced now: %w", ErrInvalidState)
	ErrAlreadyAnswered     = fmt.Errorf("already answered: %w", ErrDuplicateSubmission)
	ErrNotHost             = fmt.Errorf("only the host can do that: %w", ErrForbidden)
	ErrWrongPassword       = fmt.Errorf("wrong room password: %w", ErrForbidden)
	ErrNoPlayers           = fmt.Errorf("room has no players: %w", ErrInvalidState)
	ErrConnectionInUse     = fmt.Errorf("connection already belongs to a player, leave first: %w", ErrInvalidState)
	ErrUnknownMessage      = fmt.Errorf("unknown message type: %w", ErrInvalidInput)

	errPanic = errors.New("internal error")
)

// ErrorKind returns a short machine-readable category for err.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrDuplicateSubmission):
		return "duplicate_submission"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	default:
		return "internal"
	}
}
