package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/bubbletasks/internal/api/shared"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/service"
	"github.com/phrazzld/bubbletasks/internal/store"
	"github.com/phrazzld/bubbletasks/internal/upload"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	var maxErr *http.MaxBytesError
	var fieldErrs validator.ValidationErrors

	switch {
	// Not found errors. A malformed id cannot name a stored task either.
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound),
		errors.Is(err, domain.ErrInvalidID):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, domain.ErrActiveTaskExists):
		return http.StatusConflict

	// Payload errors
	case errors.Is(err, upload.ErrTooLarge), errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge

	// Bad request errors
	case domain.IsValidationError(err),
		errors.As(err, &fieldErrs),
		errors.Is(err, service.ErrInvalidOutcome),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrMalformedJSON),
		errors.Is(err, upload.ErrNotImage),
		errors.Is(err, upload.ErrEmpty),
		errors.Is(err, http.ErrNotMultipart),
		errors.Is(err, http.ErrMissingFile):
		return http.StatusBadRequest

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	// Handle nil error
	if err == nil {
		return "Internal server error"
	}

	var maxErr *http.MaxBytesError
	var vErr *domain.ValidationError
	var fieldErrs validator.ValidationErrors

	switch {
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrTaskNotFound),
		errors.Is(err, domain.ErrInvalidID):
		return "Task not found"

	case errors.Is(err, store.ErrNotFound):
		return "Not found"

	case errors.Is(err, domain.ErrActiveTaskExists):
		return "Another task is already active"

	case errors.Is(err, upload.ErrTooLarge), errors.As(err, &maxErr):
		return "File too large"

	case errors.Is(err, upload.ErrNotImage):
		return "Only image files are allowed"

	case errors.Is(err, upload.ErrEmpty),
		errors.Is(err, http.ErrMissingFile),
		errors.Is(err, http.ErrNotMultipart):
		return "No file uploaded"

	case errors.Is(err, shared.ErrMalformedJSON):
		return "Invalid request format"

	case errors.Is(err, service.ErrInvalidOutcome):
		return "Invalid outcome"

	// Request struct tags
	case errors.As(err, &fieldErrs):
		return SanitizeValidationError(err)

	// Domain validation messages are built from field names and fixed text
	case errors.As(err, &vErr):
		return capitalize(vErr.Error())

	case errors.Is(err, domain.ErrEmptyTitle),
		errors.Is(err, domain.ErrInvalidTaskStatus),
		errors.Is(err, domain.ErrInvalidEstimate),
		errors.Is(err, domain.ErrInvalidRemaining):
		return capitalize(rootMessage(err))

	case domain.IsValidationError(err), errors.Is(err, store.ErrInvalidEntity):
		return SanitizeValidationError(err)

	default:
		return "Internal server error"
	}
}

// HandleAPIError writes the error response for err. defaultMsg replaces the
// derived message for 4xx responses when it is not empty.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	status := MapErrorToStatusCode(err)

	msg := GetSafeErrorMessage(err)
	if defaultMsg != "" && status < http.StatusInternalServerError {
		msg = defaultMsg
	}

	shared.RespondWithErrorAndLog(w, r, status, msg, err)
}

// SanitizeValidationError removes sensitive details from validation errors
// and returns a user-friendly message.
func SanitizeValidationError(err error) string {
	errMsg := err.Error()

	// Check if this is likely a validation error message
	if strings.Contains(errMsg, "Field validation") {
		// Example format: "Key: 'CreateTaskRequest.title' Error:Field validation for 'title' failed on the 'notblank' tag"
		parts := strings.Split(errMsg, "Error:")
		if len(parts) >= 2 {
			fieldParts := strings.Split(parts[1], "'")
			if len(fieldParts) >= 3 {
				field := fieldParts[1]
				var tag string
				if len(fieldParts) >= 5 {
					tag = fieldParts[3]
				}

				if tag != "" {
					return fmt.Sprintf("Invalid %s: %s", field, getValidationTagMessage(tag))
				}
				return fmt.Sprintf("Invalid %s", field)
			}
		}
	}

	// Fall back to a generic validation error message
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required", "notblank":
		return "required field"
	case "min", "gt", "gte":
		return "too small"
	case "max", "lt", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// rootMessage returns the text of the innermost wrapped error.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
