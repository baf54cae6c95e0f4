package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when mutating or fetching an absent record
	ErrNotFound = errors.New("record not found")
	// ErrInvalidFormat is returned for a malformed backup payload
	ErrInvalidFormat = errors.New("invalid backup file format")
	// ErrNotPersisted is returned when the storage write fails
	ErrNotPersisted = errors.New("record not persisted")
	// ErrSystemCollection is returned when deleting a built-in collection
	ErrSystemCollection = errors.New("system collections cannot be deleted")
)

// ValidationError represents malformed input at creation or update time
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
