package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
)

// TaskStore defines the interface for task persistence.
// Implementations must be safe for concurrent use. They store what they are
// given: lifecycle rules (single Active task, archive flags) belong to the
// service layer.
type TaskStore interface {
	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// List returns the tasks in the given scope, ordered the way the
	// scope is presented (see domain.SortForScope). Returns an empty,
	// non-nil slice when nothing matches.
	List(ctx context.Context, scope domain.Scope) ([]*domain.Task, error)

	// Insert saves a new task.
	// Returns ErrDuplicate if a task with the same ID exists.
	Insert(ctx context.Context, task *domain.Task) error

	// Update replaces every stored field of an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// Ping reports whether the backing storage is reachable.
	Ping(ctx context.Context) error
}
