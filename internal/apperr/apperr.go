// Package apperr implements the error-kind taxonomy of the spec's error
// handling design: library code returns a structured error carrying a kind,
// a stable code, and a human message; the HTTP layer is the only place that
// maps a kind to a status code.
package apperr

import "fmt"

// Kind classifies a failure for dispatch and HTTP-status mapping. It is not
// a type per distinct business rule; it is the small, closed taxonomy the
// spec names in §7.
type Kind string

const (
	Validation         Kind = "validation"
	NotFound           Kind = "not_found"
	Conflict           Kind = "conflict"
	InvalidTransition  Kind = "invalid_transition"
	InsufficientStock  Kind = "insufficient_stock"
	NotUndoable        Kind = "not_undoable"
	SerializationRetry Kind = "serialization_retry"
	External           Kind = "external"
	Internal           Kind = "internal"
)

// Error is the single structured error type returned by every component.
// Code is a short stable machine-readable token (e.g. "sku_conflict"); it
// is distinct from Kind, which only governs HTTP disposition.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds an *Error with no wrapped cause.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds an *Error that carries an underlying cause, for Internal and
// External kinds where the cause is useful to log but not to leak to the
// client.
func Wrap(kind Kind, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Cause: cause}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if as(err, &e) {
		return e.Kind == kind
	}
	return false
}

func as(err error, target **Error) bool {
	for err != nil {
		if e, ok := err.(*Error); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func NotFoundf(code, format string, args ...any) *Error {
	return New(NotFound, code, fmt.Sprintf(format, args...))
}

func Conflictf(code, format string, args ...any) *Error {
	return New(Conflict, code, fmt.Sprintf(format, args...))
}

func Validationf(code, format string, args ...any) *Error {
	return New(Validation, code, fmt.Sprintf(format, args...))
}

func InvalidTransitionf(code, format string, args ...any) *Error {
	return New(InvalidTransition, code, fmt.Sprintf(format, args...))
}

func InsufficientStockf(code, format string, args ...any) *Error {
	return New(InsufficientStock, code, fmt.Sprintf(format, args...))
}
