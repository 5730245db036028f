// Package memory provides a process-local task store, used for tests and
// for running the server without persistence.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/store"
)

// TaskStore keeps tasks in a map. Tasks are cloned on the way in and out so
// callers never share memory with the store.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[uuid.UUID]*domain.Task
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates an empty store, optionally seeded with tasks.
func NewTaskStore(seed ...*domain.Task) *TaskStore {
	s := &TaskStore{tasks: make(map[uuid.UUID]*domain.Task, len(seed))}
	for _, t := range seed {
		s.tasks[t.ID] = t.Clone()
	}
	return s
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return t.Clone(), nil
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context, scope domain.Scope) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if scope.Includes(t) {
			out = append(out, t.Clone())
		}
	}
	domain.SortForScope(out, scope)
	return out, nil
}

// Insert implements store.TaskStore.
func (s *TaskStore) Insert(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return store.NewStoreError("insert", task.ID, store.ErrDuplicate)
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; !exists {
		return store.ErrTaskNotFound
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[id]; !exists {
		return store.ErrTaskNotFound
	}
	delete(s.tasks, id)
	return nil
}

// Ping always succeeds.
func (s *TaskStore) Ping(ctx context.Context) error {
	return nil
}
