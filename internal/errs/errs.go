// Package errs defines the error taxonomy shared across the planner.
//
// Errors carry a Kind so callers can map failures to HTTP statuses or
// user-visible messages without matching on strings. Rendering is always
// "<Kind>: <one-line reason>".
package errs

import (
	"errors"
	"fmt"
)

// Kind classifies a planner failure.
type Kind string

const (
	Tle          Kind = "TleError"         // TLE parsing or validation failed
	Calculation  Kind = "CalculationError" // propagator, transform, or missing EOP
	Network      Kind = "NetworkError"     // transport, HTTP status, timeout, cache I/O
	Parse        Kind = "ParseError"       // NORAD id not located in a valid catalog
	InvalidInput Kind = "InvalidInput"     // caller-supplied parameters out of range
)

// Error pairs a Kind with an underlying cause.
type Error struct {
	kind Kind
	err  error
}

func (e *Error) Error() string {
	return string(e.kind) + ": " + e.err.Error()
}

func (e *Error) Unwrap() error {
	return e.err
}

// New returns an error of the given kind with a fixed message.
func New(kind Kind, msg string) error {
	return &Error{kind: kind, err: errors.New(msg)}
}

// Errorf returns an error of the given kind with a formatted message.
// The %w verb is supported for wrapping a cause.
func Errorf(kind Kind, format string, args ...any) error {
	return &Error{kind: kind, err: fmt.Errorf(format, args...)}
}

// Wrap attaches a kind to an existing error. If err already carries a kind,
// it is preserved. Wrapping nil returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	var ke *Error
	if errors.As(err, &ke) {
		return err
	}
	return &Error{kind: kind, err: err}
}

// KindOf extracts the kind from an error chain. The second return is false
// when no kind is attached.
func KindOf(err error) (Kind, bool) {
	var ke *Error
	if errors.As(err, &ke) {
		return ke.kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
