package services

import (
	"errors"
	"fmt"
)

// ErrorKind classifies user-facing failures. None of them leave a partial
// economic mutation behind.
type ErrorKind string

const (
	KindValidation ErrorKind = "validation"
	KindNotFound   ErrorKind = "not_found"
	KindContention ErrorKind = "contention"
	KindLocked     ErrorKind = "locked"
)

// GameError is reported back to the player as a short text; the command
// still completes normally.
type GameError struct {
	Kind ErrorKind
	Msg  string
}

func (e *GameError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &GameError{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) error {
	return &GameError{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func contentionf(format string, args ...any) error {
	return &GameError{Kind: KindContention, Msg: fmt.Sprintf(format, args...)}
}

func lockedf(format string, args ...any) error {
	return &GameError{Kind: KindLocked, Msg: fmt.Sprintf(format, args...)}
}

// AsGameError unwraps err into a GameError if it is one.
func AsGameError(err error) (*GameError, bool) {
	var ge *GameError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}

// IsKind reports whether err is a GameError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	ge, ok := AsGameError(err)
	return ok && ge.Kind == kind
}
