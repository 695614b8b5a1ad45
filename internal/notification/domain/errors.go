package domain

import "errors"

var (
	ErrNotFound     = errors.New("notification not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrUnknownEvent = errors.New("unknown event kind")
	ErrQueueFull    = errors.New("notification queue is full")
)

// ValidationError represents a field-level validation failure.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
