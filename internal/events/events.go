package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
)

// TaskEventType names what happened to a task.
type TaskEventType string

// Task event types
const (
	TaskCreated TaskEventType = "task.created"
	TaskUpdated TaskEventType = "task.updated"
	TaskDeleted TaskEventType = "task.deleted"
)

// TaskEvent reports a change to one task. Task is the state after the
// change, or the last known state for TaskDeleted.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"-"`

	Type TaskEventType `json:"type"`
	Task *domain.Task  `json:"task"`
	At   time.Time     `json:"at"`
}

// NewTaskEvent creates an event for a snapshot of task.
func NewTaskEvent(eventType TaskEventType, task *domain.Task, at time.Time) *TaskEvent {
	return &TaskEvent{
		ID:   uuid.New(),
		Type: eventType,
		Task: task.Clone(),
		At:   at.UTC(),
	}
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// HandlerFunc adapts a function to EventHandler.
type HandlerFunc func(ctx context.Context, event *TaskEvent) error

// HandleEvent calls f.
func (f HandlerFunc) HandleEvent(ctx context.Context, event *TaskEvent) error {
	return f(ctx, event)
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}

// NopEmitter discards every event.
type NopEmitter struct{}

// EmitEvent implements EventEmitter.
func (NopEmitter) EmitEvent(context.Context, *TaskEvent) error { return nil }
