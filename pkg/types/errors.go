package types

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by the storage, repository and service layers.
// The HTTP layer maps these to status codes with errors.Is.
var (
	// ErrValidation marks bad or missing input (400)
	ErrValidation = errors.New("validation failed")

	// ErrUnsupportedMediaType is returned for image types outside the accepted set
	ErrUnsupportedMediaType = fmt.Errorf("%w: unsupported media type", ErrValidation)

	// ErrPayloadTooLarge is returned when an image exceeds the size limit
	ErrPayloadTooLarge = fmt.Errorf("%w: payload too large", ErrValidation)

	// ErrNotFound is returned when a record does not exist (404)
	ErrNotFound = errors.New("not found")

	// ErrStoreUnavailable marks an unreachable or misconfigured asset backend (500)
	ErrStoreUnavailable = errors.New("asset store unavailable")

	// ErrRepository marks a database failure (500)
	ErrRepository = errors.New("repository error")
)

// ValidationError describes the first invalid input field
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a ValidationError for field
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
