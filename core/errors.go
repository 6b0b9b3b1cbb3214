package core

import "github.com/pkg/errors"

// FieldError reports a problem with one input field, keyed by its JSON name.
type FieldError struct {
	Field string
	Error string
}

// ValidationError carries a top-level error plus optional per-field details.
// The HTTP layer renders Fields as a field->message map when present.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{Err: err, Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

// shutdown signals that the application cannot keep serving and the server
// should be stopped gracefully.
type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

// IsShutdown checks whether err is, or wraps, a shutdown error.
func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
