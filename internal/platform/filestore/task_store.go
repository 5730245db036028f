// Package filestore persists tasks as a JSON array in a single file.
//
// Every operation locks the file, reads it whole, applies the change and
// writes it back. Nothing is cached, so several processes can share one file.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"syscall"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/store"
)

// TaskStore implements store.TaskStore on top of a JSON file.
type TaskStore struct {
	filePath string
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates a store backed by filePath, creating its directory.
// The file itself is created on first write.
func NewTaskStore(filePath string) (*TaskStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("file path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &TaskStore{filePath: filePath}, nil
}

// Path returns the backing file path.
func (s *TaskStore) Path() string {
	return s.filePath
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var found *domain.Task
	err := s.withFileLock(syscall.LOCK_SH, func(file *os.File) error {
		tasks, err := readTasks(file)
		if err != nil {
			return err
		}
		if i := indexOf(tasks, id); i >= 0 {
			found = tasks[i]
			return nil
		}
		return store.ErrTaskNotFound
	})
	return found, err
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context, scope domain.Scope) ([]*domain.Task, error) {
	out := []*domain.Task{}
	err := s.withFileLock(syscall.LOCK_SH, func(file *os.File) error {
		tasks, err := readTasks(file)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if scope.Includes(t) {
				out = append(out, t)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	domain.SortForScope(out, scope)
	return out, nil
}

// Insert implements store.TaskStore.
func (s *TaskStore) Insert(ctx context.Context, task *domain.Task) error {
	return s.mutate(func(tasks []*domain.Task) ([]*domain.Task, error) {
		if indexOf(tasks, task.ID) >= 0 {
			return nil, store.NewStoreError("insert", task.ID, store.ErrDuplicate)
		}
		return append(tasks, task.Clone()), nil
	})
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	return s.mutate(func(tasks []*domain.Task) ([]*domain.Task, error) {
		i := indexOf(tasks, task.ID)
		if i < 0 {
			return nil, store.ErrTaskNotFound
		}
		tasks[i] = task.Clone()
		return tasks, nil
	})
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.mutate(func(tasks []*domain.Task) ([]*domain.Task, error) {
		i := indexOf(tasks, id)
		if i < 0 {
			return nil, store.ErrTaskNotFound
		}
		return append(tasks[:i], tasks[i+1:]...), nil
	})
}

// Ping checks that the file can be opened and parsed.
func (s *TaskStore) Ping(ctx context.Context) error {
	return s.withFileLock(syscall.LOCK_SH, func(file *os.File) error {
		_, err := readTasks(file)
		return err
	})
}

// mutate runs fn on the current contents and writes back what it returns.
// Lock → Read all → Change → Write all → Unlock
func (s *TaskStore) mutate(fn func([]*domain.Task) ([]*domain.Task, error)) error {
	return s.withFileLock(syscall.LOCK_EX, func(file *os.File) error {
		tasks, err := readTasks(file)
		if err != nil {
			return err
		}
		tasks, err = fn(tasks)
		if err != nil {
			return err
		}
		return writeTasks(file, tasks)
	})
}

// withFileLock executes fn with the file locked in the given mode.
func (s *TaskStore) withFileLock(how int, fn func(*os.File) error) error {
	file, err := os.OpenFile(s.filePath, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open task file: %w", err)
	}
	defer file.Close()

	if err := syscall.Flock(int(file.Fd()), how); err != nil {
		return fmt.Errorf("failed to lock task file: %w", err)
	}
	defer func() { _ = syscall.Flock(int(file.Fd()), syscall.LOCK_UN) }()

	return fn(file)
}

func readTasks(file *os.File) ([]*domain.Task, error) {
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to seek task file: %w", err)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read task file: %w", err)
	}
	return decodeTasks(data)
}

func writeTasks(file *os.File, tasks []*domain.Task) error {
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	data, err := json.MarshalIndent(tasks, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal tasks: %w", err)
	}

	if err := file.Truncate(0); err != nil {
		return fmt.Errorf("failed to truncate task file: %w", err)
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek task file: %w", err)
	}
	if _, err := file.Write(data); err != nil {
		return fmt.Errorf("failed to write task file: %w", err)
	}
	return file.Sync()
}

func indexOf(tasks []*domain.Task, id uuid.UUID) int {
	for i, t := range tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
