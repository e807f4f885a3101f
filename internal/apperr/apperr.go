// Package apperr defines the error categories surfaced by the order and payment services.
package apperr

import "errors"

// Kind classifies an error for the transport layer.
type Kind uint8

const (
	Internal Kind = iota
	AuthMissing
	AuthInvalid
	Forbidden
	NotFound
	Validation
	InvalidState
)

func (k Kind) String() string {
	switch k {
	case AuthMissing:
		return "auth_missing"
	case AuthInvalid:
		return "auth_invalid"
	case Forbidden:
		return "forbidden"
	case NotFound:
		return "not_found"
	case Validation:
		return "validation"
	case InvalidState:
		return "invalid_state"
	}
	return "internal"
}

// Error is a classified, human-readable failure.
type Error struct {
	Kind    Kind
	Message string
	// Fields holds per-field messages for validation failures.
	Fields map[string]string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap returns an Error of the given kind carrying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// Invalid returns a Validation error with per-field details.
func Invalid(message string, fields map[string]string) *Error {
	return &Error{Kind: Validation, Message: message, Fields: fields}
}

// KindOf returns the Kind of err, or Internal when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Internal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
