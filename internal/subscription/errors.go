package subscription

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedBody is returned when the body is not a JSON object.
	ErrMalformedBody = errors.New("malformed body")
	// ErrMissingQuery is returned when query is absent or not a string.
	ErrMissingQuery = errors.New("missing query")
	// ErrUnknownOperation is returned when no registered operation matches.
	ErrUnknownOperation = errors.New("unknown operation")
	// ErrMissingParameter is returned when a matched operation lacks a
	// required variable.
	ErrMissingParameter = errors.New("missing parameter")
)

// Error pairs a sentinel error with the message reported to the client.
type Error struct {
	Err     error
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(err error, message string) *Error {
	return &Error{Err: err, Message: message}
}

// Message returns the client-facing message of err, falling back to
// err.Error() for errors not produced by this package.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
