package controller

import (
	"errors"
	"fmt"
)

// ErrClosed is returned by operations on a closed controller.
var ErrClosed = errors.New("controller closed")

// ErrorCode categorizes controller errors.
type ErrorCode string

const (
	// CodeClosed indicates the controller was already closed.
	CodeClosed ErrorCode = "CLOSED"

	// CodeEngine indicates the peer engine failed to start or stop.
	CodeEngine ErrorCode = "ENGINE"

	// CodeJournal indicates the journal could not be read.
	CodeJournal ErrorCode = "JOURNAL"
)

// Error is a controller failure with the operation that hit it.
type Error struct {
	Code ErrorCode
	Op   string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Op)
	}
	return fmt.Sprintf("%s: %s: %v", e.Code, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// IsClosedError returns true if err reports a closed controller.
// Uses errors.As to handle wrapped errors.
func IsClosedError(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == CodeClosed
	}
	return errors.Is(err, ErrClosed)
}

// IsEngineError returns true if err came from the peer engine.
func IsEngineError(err error) bool {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code == CodeEngine
	}
	return false
}

func closedError(op string) *Error {
	return &Error{Code: CodeClosed, Op: op, Err: ErrClosed}
}
