package store

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Store errors shared by every backend.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrDuplicate is returned when an insert reuses an existing ID.
	ErrDuplicate = errors.New("entity already exists")

	// ErrInvalidEntity is returned when the backend rejects a record, e.g. a
	// failed CHECK constraint. The wrapped error carries the details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrTaskNotFound indicates that the requested task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)
)

// IsNotFoundError reports whether err is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsDuplicateError reports whether err is a duplicate-ID error.
func IsDuplicateError(err error) bool {
	return errors.Is(err, ErrDuplicate)
}

// StoreError records which operation on which task failed.
type StoreError struct {
	Op     string    // e.g. "insert", "update"
	TaskID uuid.UUID // uuid.Nil when the operation is not about one task
	Err    error
}

// Error implements the error interface.
func (e *StoreError) Error() string {
	if e.TaskID == uuid.Nil {
		return fmt.Sprintf("task store %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("task store %s %s: %v", e.Op, e.TaskID, e.Err)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a StoreError.
func NewStoreError(op string, id uuid.UUID, err error) *StoreError {
	return &StoreError{Op: op, TaskID: id, Err: err}
}
