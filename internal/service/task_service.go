package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/events"
	"github.com/phrazzld/bubbletasks/internal/platform/logger"
	"github.com/phrazzld/bubbletasks/internal/store"
)

// CreateTaskInput holds the caller-supplied fields of a new task.
type CreateTaskInput struct {
	Title        string
	EstMinutes   int // 0 means domain.DefaultEstMinutes
	ImageDataURL string
}

// FinishResult is the outcome of finishing a task.
type FinishResult struct {
	// Task is the finished task.
	Task *domain.Task
	// Activated is the task promoted to Active, or nil.
	Activated *domain.Task
}

// TaskService provides task-related operations
type TaskService interface {
	// ListTasks returns the tasks in scope, sorted for display.
	ListTasks(ctx context.Context, scope domain.Scope) ([]*domain.Task, error)

	// GetTask retrieves a task by its ID.
	GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// CreateTask creates a task. It starts Active when no other task is
	// Active and Upcoming otherwise.
	CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error)

	// UpdateTask applies a partial update. Making a task Active while a
	// different task is Active fails with domain.ErrActiveTaskExists.
	UpdateTask(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)

	// DeleteTask removes a task and returns its last state.
	DeleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// FinishAndActivateNext moves a task to outcome (Completed or Cancelled)
	// and, when no task is left Active, promotes the oldest Upcoming task.
	FinishAndActivateNext(ctx context.Context, id uuid.UUID, outcome domain.TaskStatus) (*FinishResult, error)

	// ExpireOverdue completes the Active task when its timer has run out.
	// It returns nil when nothing was due.
	ExpireOverdue(ctx context.Context) (*FinishResult, error)

	// Ping reports whether the underlying store is reachable.
	Ping(ctx context.Context) error
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	mu           sync.Mutex
	tasks        store.TaskStore
	eventEmitter events.EventEmitter
	now          func() time.Time
	logger       *slog.Logger
}

// Option configures a TaskService.
type Option func(*taskServiceImpl)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *taskServiceImpl) {
		s.now = now
	}
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
	opts ...Option,
) (TaskService, error) {
	if tasks == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		tasks:        tasks,
		eventEmitter: eventEmitter,
		now:          time.Now,
		logger:       logger.With("component", "task_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// ListTasks implements TaskService.
func (s *taskServiceImpl) ListTasks(ctx context.Context, scope domain.Scope) ([]*domain.Task, error) {
	tasks, err := s.tasks.List(ctx, scope)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to list tasks",
			"error", err,
			"scope", scope)
		return nil, NewTaskServiceError("list_tasks", "failed to list tasks", err)
	}
	return tasks, nil
}

// GetTask implements TaskService.
func (s *taskServiceImpl) GetTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			logger.FromContextOrDefault(ctx, s.logger).Error("failed to retrieve task",
				"error", err,
				"task_id", id)
		}
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// CreateTask implements TaskService.
func (s *taskServiceImpl) CreateTask(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tasks.List(ctx, domain.ScopeActive)
	if err != nil {
		log.Error("failed to load active tasks", "error", err)
		return nil, NewTaskServiceError("create_task", "failed to load active tasks", err)
	}

	status := domain.TaskStatusUpcoming
	if domain.FindActive(current) == nil {
		status = domain.TaskStatusActive
	}

	task, err := domain.NewTask(input.Title, input.EstMinutes, input.ImageDataURL, status, s.now())
	if err != nil {
		log.Debug("rejected task input", "error", err)
		return nil, NewTaskServiceError("create_task", "invalid task", err)
	}

	if err := s.tasks.Insert(ctx, task); err != nil {
		log.Error("failed to insert task", "error", err, "task_id", task.ID)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	log.Info("task created",
		"task_id", task.ID,
		"status", task.Status,
		"est_minutes", task.EstMinutes)
	s.emit(ctx, events.TaskCreated, task)
	return task, nil
}

// UpdateTask implements TaskService.
func (s *taskServiceImpl) UpdateTask(ctx context.Context, id uuid.UUID, patch domain.TaskPatch) (*domain.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated, err := s.updateLocked(ctx, s.tasks, id, patch)
	if err != nil {
		return nil, NewTaskServiceError("update_task", "failed to update task", err)
	}
	s.emit(ctx, events.TaskUpdated, updated)
	return updated, nil
}

// DeleteTask implements TaskService.
func (s *taskServiceImpl) DeleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("delete_task", "failed to retrieve task", err)
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		log.Error("failed to delete task", "error", err, "task_id", id)
		return nil, NewTaskServiceError("delete_task", "failed to delete task", err)
	}

	log.Info("task deleted", "task_id", id)
	s.emit(ctx, events.TaskDeleted, task)
	return task, nil
}

// FinishAndActivateNext implements TaskService.
func (s *taskServiceImpl) FinishAndActivateNext(
	ctx context.Context,
	id uuid.UUID,
	outcome domain.TaskStatus,
) (*FinishResult, error) {
	if outcome != domain.TaskStatusCompleted && outcome != domain.TaskStatusCancelled {
		return nil, domain.NewValidationError("status", ErrInvalidOutcome.Error(), ErrInvalidOutcome)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.finishAtomically(ctx, id, outcome)
	if err != nil {
		return nil, NewTaskServiceError("finish_task", "failed to finish task", err)
	}
	return result, nil
}

// ExpireOverdue implements TaskService.
//
// The Active task's remainingSeconds is the value last reported by a client,
// so the timer runs out remainingSeconds after that report (see
// domain.Task.TimerDeadline). Unrelated edits do not move the deadline.
func (s *taskServiceImpl) ExpireOverdue(ctx context.Context) (*FinishResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.tasks.List(ctx, domain.ScopeActive)
	if err != nil {
		return nil, NewTaskServiceError("expire_overdue", "failed to load active tasks", err)
	}

	active := domain.FindActive(current)
	if active == nil {
		return nil, nil
	}
	deadline := active.TimerDeadline()
	if s.now().Before(deadline) {
		return nil, nil
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("active task timer expired",
		"task_id", active.ID,
		"deadline", deadline)

	result, err := s.finishAtomically(ctx, active.ID, domain.TaskStatusCompleted)
	if err != nil {
		return nil, NewTaskServiceError("expire_overdue", "failed to complete expired task", err)
	}
	return result, nil
}

// Ping implements TaskService.
func (s *taskServiceImpl) Ping(ctx context.Context) error {
	return s.tasks.Ping(ctx)
}

// updateLocked applies patch to the task in tasks. s.mu must be held. The
// caller emits the change once it is durable.
func (s *taskServiceImpl) updateLocked(
	ctx context.Context,
	tasks store.TaskStore,
	id uuid.UUID,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := tasks.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && *patch.Status == domain.TaskStatusActive && task.Status != domain.TaskStatusActive {
		current, err := tasks.List(ctx, domain.ScopeActive)
		if err != nil {
			return nil, err
		}
		if other := domain.FindActive(current); other != nil && other.ID != id {
			log.Debug("refused second active task",
				"task_id", id,
				"active_task_id", other.ID)
			return nil, domain.ErrActiveTaskExists
		}
	}

	updated, err := patch.Apply(task, s.now())
	if err != nil {
		log.Debug("rejected task update", "error", err, "task_id", id)
		return nil, err
	}

	if err := tasks.Update(ctx, updated); err != nil {
		if !errors.Is(err, domain.ErrActiveTaskExists) {
			log.Error("failed to update task", "error", err, "task_id", id)
		}
		return nil, err
	}

	if task.Status != updated.Status {
		log.Info("task status changed",
			"task_id", id,
			"from", task.Status,
			"to", updated.Status)
	}
	return updated, nil
}

// finishAtomically runs finishLocked as one unit when the store supports
// transactions and emits the changes after they are committed. s.mu must be
// held.
func (s *taskServiceImpl) finishAtomically(ctx context.Context, id uuid.UUID, outcome domain.TaskStatus) (*FinishResult, error) {
	var result *FinishResult
	run := func(ctx context.Context, tasks store.TaskStore) error {
		var err error
		result, err = s.finishLocked(ctx, tasks, id, outcome)
		return err
	}

	var err error
	if tx, ok := s.tasks.(store.Transactor); ok {
		err = tx.InTx(ctx, run)
	} else {
		err = run(ctx, s.tasks)
	}
	if err != nil {
		return nil, err
	}

	s.emit(ctx, events.TaskUpdated, result.Task)
	if result.Activated != nil {
		s.emit(ctx, events.TaskUpdated, result.Activated)
	}
	return result, nil
}

// finishLocked archives a task and promotes the next one. s.mu must be held.
func (s *taskServiceImpl) finishLocked(
	ctx context.Context,
	tasks store.TaskStore,
	id uuid.UUID,
	outcome domain.TaskStatus,
) (*FinishResult, error) {
	finished, err := s.updateLocked(ctx, tasks, id, domain.TaskPatch{Status: &outcome})
	if err != nil {
		return nil, err
	}
	result := &FinishResult{Task: finished}

	remaining, err := tasks.List(ctx, domain.ScopeActive)
	if err != nil {
		return nil, err
	}
	if domain.FindActive(remaining) != nil {
		return result, nil
	}
	next := domain.NextUpcoming(remaining, id)
	if next == nil {
		logger.FromContextOrDefault(ctx, s.logger).Info("no upcoming task to activate", "finished_task_id", id)
		return result, nil
	}

	active := domain.TaskStatusActive
	full := next.FullDurationSeconds()
	startedAt := s.now().UTC()
	activated, err := s.updateLocked(ctx, tasks, next.ID, domain.TaskPatch{
		Status:           &active,
		RemainingSeconds: &full,
		TimerStartedAt:   &startedAt,
	})
	if err != nil {
		return nil, err
	}

	result.Activated = activated
	return result, nil
}

// emit publishes a change. The write has already happened, so a failing
// handler is logged and otherwise ignored.
func (s *taskServiceImpl) emit(ctx context.Context, eventType events.TaskEventType, task *domain.Task) {
	event := events.NewTaskEvent(eventType, task, s.now())
	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("failed to emit task event",
			"error", err,
			"event_type", eventType,
			"task_id", task.ID)
	}
}
