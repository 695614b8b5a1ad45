package domain

import "errors"

var (
	ErrNotFound     = errors.New("recipient not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
