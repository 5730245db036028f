// Package domain defines the core business entities and errors.
package domain

import (
	"errors"
	"fmt"
)

// Common domain errors used across the application.
var (
	// ErrValidation is returned when a domain entity fails validation.
	// This is often wrapped with a more specific error message.
	ErrValidation = errors.New("validation failed")

	// ErrInvalidID is returned when an ID is malformed or invalid.
	ErrInvalidID = errors.New("invalid ID")

	// ErrInvalidTaskStatus is returned when a status string is not one of the known statuses.
	ErrInvalidTaskStatus = errors.New("invalid task status")

	// ErrEmptyTitle is returned when a task title is empty after trimming.
	ErrEmptyTitle = errors.New("task title is required")

	// ErrInvalidEstimate is returned when estMinutes is out of range.
	ErrInvalidEstimate = errors.New("estimated minutes must be between 1 and 1440")

	// ErrInvalidRemaining is returned when remainingSeconds is negative.
	ErrInvalidRemaining = errors.New("remaining seconds cannot be negative")

	// ErrActiveTaskExists is returned when an operation would leave two tasks Active.
	ErrActiveTaskExists = errors.New("another task is already active")
)

// ValidationError describes a single field that failed validation.
// It wraps an underlying sentinel so callers can still use errors.Is.
type ValidationError struct {
	Field   string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Field, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a ValidationError for the given field.
// If err is nil, ErrValidation is wrapped.
func NewValidationError(field, message string, err error) *ValidationError {
	if err == nil {
		err = ErrValidation
	}
	return &ValidationError{
		Field:   field,
		Message: message,
		Err:     err,
	}
}

// IsValidationError reports whether err is, or wraps, a validation failure.
func IsValidationError(err error) bool {
	var vErr *ValidationError
	return errors.As(err, &vErr) ||
		errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidTaskStatus) ||
		errors.Is(err, ErrEmptyTitle) ||
		errors.Is(err, ErrInvalidEstimate) ||
		errors.Is(err, ErrInvalidRemaining)
}
