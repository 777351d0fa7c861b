package core

import (
	"errors"
	"fmt"
)

// ValidationError is a custom error type for validation failures on
// user-supplied identifiers and tag sets.
type ValidationError struct {
	Message string
	Field   string // e.g., "address", "tag_name", "tag_value"
	Value   string // The invalid value
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for %s '%s': %s", e.Field, e.Value, e.Message)
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var validationError *ValidationError
	return errors.As(err, &validationError)
}
