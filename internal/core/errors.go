package core

import (
	"errors"
	"fmt"
)

// ErrNotFound is returned for unknown ids and ownership mismatches alike, so
// callers cannot probe for other users' reminders.
var ErrNotFound = errors.New("not found")

// ValidationError rejects bad input synchronously; nothing is persisted.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
