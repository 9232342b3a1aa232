// Package apperr classifies pipeline failures so callers can tell a dead
// network from a blocked scrape, a drifted page layout or a bad model reply.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies the class of a failure.
type Kind string

const (
	KindConfig    Kind = "config"
	KindTransport Kind = "transport"
	KindBlocked   Kind = "blocked"
	KindParse     Kind = "parse"
	KindModel     Kind = "model"
)

// Error is a classified failure raised by one pipeline stage.
type Error struct {
	Kind Kind
	// Op names the stage that failed, e.g. "serp.search".
	Op string
	// StatusCode is the HTTP status of the failing exchange, if any.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	if e.StatusCode > 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with a kind and an operation name.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted message as the cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// WithStatus records the HTTP status code on e and returns it.
func (e *Error) WithStatus(code int) *Error {
	e.StatusCode = code
	return e
}

// KindOf returns the kind of the outermost classified error in err's chain,
// or "" when err carries no classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
