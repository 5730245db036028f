package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/platform/logger"
	"github.com/phrazzld/bubbletasks/internal/store"
)

// TaskStore implements store.TaskStore over a SQL database.
type TaskStore struct {
	db      store.DBTX
	dialect Dialect
	logger  *slog.Logger
}

var (
	_ store.TaskStore  = (*TaskStore)(nil)
	_ store.Transactor = (*TaskStore)(nil)
)

// NewTaskStore creates a new SQL task store.
// If logger is nil, the default logger is used.
func NewTaskStore(db store.DBTX, dialect Dialect, log *slog.Logger) *TaskStore {
	if log == nil {
		log = slog.Default()
	}
	return &TaskStore{
		db:      db,
		dialect: dialect,
		logger:  log.With(slog.String("component", "task_store"), slog.String("dialect", dialect.Name)),
	}
}

// WithTx returns a store that runs its queries inside tx.
func (s *TaskStore) WithTx(tx *sql.Tx) *TaskStore {
	return &TaskStore{db: tx, dialect: s.dialect, logger: s.logger}
}

// InTx implements store.Transactor. A store already bound to a transaction
// runs fn in that transaction.
func (s *TaskStore) InTx(ctx context.Context, fn func(ctx context.Context, tasks store.TaskStore) error) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return fn(ctx, s)
	}
	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return fn(ctx, s.WithTx(tx))
	})
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.bind(`SELECT ` + store.TaskColumns + ` FROM tasks WHERE id = ?`)
	task, err := store.ScanTask(s.db.QueryRowContext(ctx, query, id.String()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		log.Error("failed to get task", slog.String("task_id", id.String()), slog.String("error", err.Error()))
		return nil, s.dialect.mapError(err)
	}
	return task, nil
}

// List implements store.TaskStore.
func (s *TaskStore) List(ctx context.Context, scope domain.Scope) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + store.TaskColumns + ` FROM tasks`
	var args []any
	switch scope {
	case domain.ScopeActive:
		query += ` WHERE is_archived = ?`
		args = append(args, false)
	case domain.ScopeArchived:
		query += ` WHERE is_archived = ?`
		args = append(args, true)
	}
	query += ` ORDER BY created_at ASC, title ASC`

	rows, err := s.db.QueryContext(ctx, s.dialect.bind(query), args...)
	if err != nil {
		log.Error("failed to list tasks", slog.String("scope", string(scope)), slog.String("error", err.Error()))
		return nil, s.dialect.mapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		task, err := store.ScanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, s.dialect.mapError(err)
	}

	domain.SortForScope(tasks, scope)
	return tasks, nil
}

// Insert implements store.TaskStore.
func (s *TaskStore) Insert(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := s.dialect.bind(`INSERT INTO tasks (` + store.TaskColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, store.TaskValues(task)...); err != nil {
		err = s.dialect.mapError(err)
		if store.IsDuplicateError(err) {
			log.Debug("task id already exists", slog.String("task_id", task.ID.String()))
		} else {
			log.Error("failed to insert task", slog.String("task_id", task.ID.String()), slog.String("error", err.Error()))
		}
		return err
	}

	log.Debug("task inserted", slog.String("task_id", task.ID.String()))
	return nil
}

// Update implements store.TaskStore.
func (s *TaskStore) Update(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	values := store.TaskValues(task)
	query := s.dialect.bind(`UPDATE tasks SET
		title = ?, est_minutes = ?, status = ?, image_data_url = ?, template_key = ?,
		remaining_seconds = ?, timer_started_at = ?, remaining_updated_at = ?,
		created_at = ?, updated_at = ?, is_archived = ?, archived_at = ?
		WHERE id = ?`)
	args := append(values[1:], values[0])

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update task", slog.String("task_id", task.ID.String()), slog.String("error", err.Error()))
		return s.dialect.mapError(err)
	}
	if err := checkRowsAffected(result); err != nil {
		return err
	}

	log.Debug("task updated", slog.String("task_id", task.ID.String()), slog.String("status", string(task.Status)))
	return nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, s.dialect.bind(`DELETE FROM tasks WHERE id = ?`), id.String())
	if err != nil {
		log.Error("failed to delete task", slog.String("task_id", id.String()), slog.String("error", err.Error()))
		return s.dialect.mapError(err)
	}
	return checkRowsAffected(result)
}

// Ping implements store.TaskStore.
func (s *TaskStore) Ping(ctx context.Context) error {
	var one int
	return s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one)
}

func checkRowsAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrTaskNotFound
	}
	return nil
}
