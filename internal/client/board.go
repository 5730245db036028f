package client

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/events"
)

// TaskAPI is the part of the API a Board drives.
type TaskAPI interface {
	ListTasks(ctx context.Context, scope domain.Scope) ([]*domain.Task, error)
	CreateTask(ctx context.Context, params CreateTaskParams) (*domain.Task, error)
	UpdateTask(ctx context.Context, id uuid.UUID, update TaskUpdate) (*domain.Task, error)
	DeleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// State is a snapshot of a Board.
type State struct {
	// Tasks are the Upcoming and Active tasks, oldest first.
	Tasks []*domain.Task
	// ArchivedTasks are the archived tasks, most recently archived first.
	ArchivedTasks []*domain.Task

	IsLoading        bool
	IsLoadingArchive bool
	IsMutating       bool
	// Error is the last failure message, empty when there is none.
	Error string
}

// Board mirrors the server's task list. Every mutation goes to the server
// first and the local record is replaced by the server's version.
//
// Requests are not queued: when calls overlap, the response that arrives
// last wins.
type Board struct {
	api TaskAPI
	now func() time.Time

	mu               sync.Mutex
	tasks            []*domain.Task
	archived         []*domain.Task
	isLoading        bool
	isLoadingArchive bool
	isMutating       bool
	err              string
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithBoardClock replaces time.Now for timer start stamps.
func WithBoardClock(now func() time.Time) BoardOption {
	return func(b *Board) {
		b.now = now
	}
}

// NewBoard creates an empty Board backed by api.
func NewBoard(api TaskAPI, opts ...BoardOption) *Board {
	b := &Board{
		api:      api,
		now:      time.Now,
		tasks:    []*domain.Task{},
		archived: []*domain.Task{},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// State returns a copy of the current state.
func (b *Board) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Tasks:            cloneAll(b.tasks),
		ArchivedTasks:    cloneAll(b.archived),
		IsLoading:        b.isLoading,
		IsLoadingArchive: b.isLoadingArchive,
		IsMutating:       b.isMutating,
		Error:            b.err,
	}
}

// SortedTasks returns the non-archived tasks, oldest first.
func (b *Board) SortedTasks() []*domain.Task {
	return b.State().Tasks
}

// ActiveTask returns the Active task, or nil.
func (b *Board) ActiveTask() *domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	if t := domain.FindActive(b.tasks); t != nil {
		return t.Clone()
	}
	return nil
}

// Task returns the task with id from either list.
func (b *Board) Task(id uuid.UUID) (*domain.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, list := range [][]*domain.Task{b.tasks, b.archived} {
		for _, t := range list {
			if t.ID == id {
				return t.Clone(), true
			}
		}
	}
	return nil, false
}

// ClearError dismisses the last error.
func (b *Board) ClearError() {
	b.mu.Lock()
	b.err = ""
	b.mu.Unlock()
}

// FetchTasks reloads the non-archived tasks.
func (b *Board) FetchTasks(ctx context.Context) error {
	b.mu.Lock()
	b.isLoading, b.err = true, ""
	b.mu.Unlock()

	tasks, err := b.api.ListTasks(ctx, domain.ScopeActive)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.isLoading = false
	if err != nil {
		b.err = errorMessage(err, "Failed to fetch tasks")
		return err
	}
	domain.SortChronological(tasks)
	b.tasks = tasks
	return nil
}

// FetchArchivedTasks reloads the archived tasks.
func (b *Board) FetchArchivedTasks(ctx context.Context) error {
	b.mu.Lock()
	b.isLoadingArchive, b.err = true, ""
	b.mu.Unlock()

	tasks, err := b.api.ListTasks(ctx, domain.ScopeArchived)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.isLoadingArchive = false
	if err != nil {
		b.err = errorMessage(err, "Failed to fetch archived tasks")
		return err
	}
	domain.SortArchived(tasks)
	b.archived = tasks
	return nil
}

// AddTask creates a task. estMinutes of 0 uses the server default.
func (b *Board) AddTask(ctx context.Context, title string, estMinutes int, imageDataURL string) (*domain.Task, error) {
	b.startMutation()
	task, err := b.api.CreateTask(ctx, CreateTaskParams{
		Title:        title,
		EstMinutes:   estMinutes,
		ImageDataURL: imageDataURL,
	})
	if err != nil {
		b.failMutation(err, "Failed to create task")
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.isMutating = false
	b.upsertLocked(task)
	return task.Clone(), nil
}

// UpdateTask sends a partial update and stores the server's version.
func (b *Board) UpdateTask(ctx context.Context, id uuid.UUID, update TaskUpdate) (*domain.Task, error) {
	b.startMutation()
	task, err := b.api.UpdateTask(ctx, id, update)
	if err != nil {
		b.failMutation(err, "Failed to update task")
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.isMutating = false
	b.upsertLocked(task)
	return task.Clone(), nil
}

// ReportRemaining records a countdown tick for the task.
func (b *Board) ReportRemaining(ctx context.Context, id uuid.UUID, remainingSeconds int) error {
	_, err := b.UpdateTask(ctx, id, TaskUpdate{RemainingSeconds: &remainingSeconds})
	return err
}

// DeleteTask deletes a task.
func (b *Board) DeleteTask(ctx context.Context, id uuid.UUID) error {
	b.startMutation()
	if _, err := b.api.DeleteTask(ctx, id); err != nil {
		b.failMutation(err, "Failed to delete task")
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.isMutating = false
	b.removeLocked(id)
	return nil
}

// CompleteAndActivateNext marks the task Completed with no time left and
// then activates the oldest Upcoming task with a full timer.
//
// The two updates are independent requests. When the second fails the
// first is not undone, so the server is left with no Active task; the error
// is recorded and returned.
func (b *Board) CompleteAndActivateNext(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return b.finishAndActivateNext(ctx, id, domain.TaskStatusCompleted, "Failed to complete task")
}

// CancelAndActivateNext is CompleteAndActivateNext with Cancelled as the outcome.
func (b *Board) CancelAndActivateNext(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return b.finishAndActivateNext(ctx, id, domain.TaskStatusCancelled, "Failed to cancel task")
}

// finishAndActivateNext returns the activated task, or nil when nothing
// was waiting.
func (b *Board) finishAndActivateNext(
	ctx context.Context,
	id uuid.UUID,
	outcome domain.TaskStatus,
	failure string,
) (*domain.Task, error) {
	b.mu.Lock()
	b.isMutating, b.err = true, ""
	next := domain.NextUpcoming(b.tasks, id)
	if next != nil {
		next = next.Clone()
	}
	b.mu.Unlock()

	update := TaskUpdate{Status: &outcome}
	if outcome == domain.TaskStatusCompleted {
		update.RemainingSeconds = domain.IntPtr(0)
	}
	finished, err := b.api.UpdateTask(ctx, id, update)
	if err != nil {
		b.failMutation(err, failure)
		return nil, err
	}
	b.apply(finished)

	if next == nil {
		b.endMutation()
		return nil, nil
	}

	active := domain.TaskStatusActive
	startedAt := b.now().UTC()
	activated, err := b.api.UpdateTask(ctx, next.ID, TaskUpdate{
		Status:           &active,
		RemainingSeconds: domain.IntPtr(next.FullDurationSeconds()),
		TimerStartedAt:   &startedAt,
	})
	if err != nil {
		b.failMutation(err, failure)
		return nil, err
	}
	b.apply(activated)
	b.endMutation()
	return activated.Clone(), nil
}

// ApplyEvent folds a change pushed by the server into the board.
func (b *Board) ApplyEvent(event *events.TaskEvent) {
	if event == nil || event.Task == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	switch event.Type {
	case events.TaskDeleted:
		b.removeLocked(event.Task.ID)
	case events.TaskCreated, events.TaskUpdated:
		b.upsertLocked(event.Task.Clone())
	}
}

func (b *Board) apply(task *domain.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.upsertLocked(task)
}

func (b *Board) startMutation() {
	b.mu.Lock()
	b.isMutating, b.err = true, ""
	b.mu.Unlock()
}

func (b *Board) endMutation() {
	b.mu.Lock()
	b.isMutating = false
	b.mu.Unlock()
}

func (b *Board) failMutation(err error, fallback string) {
	b.mu.Lock()
	b.isMutating = false
	b.err = errorMessage(err, fallback)
	b.mu.Unlock()
}

// upsertLocked places task in the list matching its archive flag and
// removes it from the other one.
func (b *Board) upsertLocked(task *domain.Task) {
	b.removeLocked(task.ID)
	if task.IsArchived {
		b.archived = append(b.archived, task)
		domain.SortArchived(b.archived)
		return
	}
	b.tasks = append(b.tasks, task)
	domain.SortChronological(b.tasks)
}

func (b *Board) removeLocked(id uuid.UUID) {
	b.tasks = without(b.tasks, id)
	b.archived = without(b.archived, id)
}

func without(tasks []*domain.Task, id uuid.UUID) []*domain.Task {
	out := tasks[:0:0]
	for _, t := range tasks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func cloneAll(tasks []*domain.Task) []*domain.Task {
	out := make([]*domain.Task, len(tasks))
	for i, t := range tasks {
		out[i] = t.Clone()
	}
	return out
}

// errorMessage prefers the server's message; transport failures get fallback.
func errorMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fallback
	}
	if err != nil && err.Error() != "" {
		return fallback + ": " + err.Error()
	}
	return fallback
}
