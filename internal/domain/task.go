package domain

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// TaskStatus represents where a task is in its lifecycle.
type TaskStatus string

// Possible task status values
const (
	TaskStatusUpcoming  TaskStatus = "Upcoming"
	TaskStatusActive    TaskStatus = "Active"
	TaskStatusPaused    TaskStatus = "Paused"
	TaskStatusCompleted TaskStatus = "Completed"
	TaskStatusCancelled TaskStatus = "Cancelled"
)

// Legacy status names still sent by older clients.
const (
	legacyStatusQueued = "Queued"
	legacyStatusDone   = "Done"
)

// Task limits
const (
	DefaultEstMinutes = 25
	MaxEstMinutes     = 24 * 60
	MaxTitleLength    = 200
)

// ParseTaskStatus converts a wire value into a TaskStatus.
// The legacy names Queued and Done map to Upcoming and Completed.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch strings.TrimSpace(s) {
	case string(TaskStatusUpcoming), legacyStatusQueued:
		return TaskStatusUpcoming, nil
	case string(TaskStatusActive):
		return TaskStatusActive, nil
	case string(TaskStatusPaused):
		return TaskStatusPaused, nil
	case string(TaskStatusCompleted), legacyStatusDone:
		return TaskStatusCompleted, nil
	case string(TaskStatusCancelled):
		return TaskStatusCancelled, nil
	}
	return "", NewValidationError("status", "is not a valid task status", ErrInvalidTaskStatus)
}

// IsValid reports whether s is one of the canonical statuses.
func (s TaskStatus) IsValid() bool {
	switch s {
	case TaskStatusUpcoming, TaskStatusActive, TaskStatusPaused,
		TaskStatusCompleted, TaskStatusCancelled:
		return true
	}
	return false
}

// IsArchived reports whether a task in this status belongs to the archive.
func (s TaskStatus) IsArchived() bool {
	return s != TaskStatusUpcoming && s != TaskStatusActive
}

// Task is a single timed unit of work.
// IsArchived and ArchivedAt are derived from Status and kept in sync by SetStatus.
type Task struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	EstMinutes         int        `json:"estMinutes"`
	Status             TaskStatus `json:"status"`
	ImageDataURL       string     `json:"imageDataUrl,omitempty"`
	TemplateKey        string     `json:"templateKey"`
	RemainingSeconds   *int       `json:"remainingSeconds,omitempty"`
	TimerStartedAt     *time.Time `json:"timerStartedAt,omitempty"`
	// RemainingUpdatedAt is when RemainingSeconds was last written. Server assigned.
	RemainingUpdatedAt *time.Time `json:"remainingUpdatedAt,omitempty"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
	IsArchived         bool       `json:"isArchived"`
	ArchivedAt         *time.Time `json:"archivedAt,omitempty"`
}

// NewTask creates a task with a fresh ID and timestamps.
// A zero estMinutes falls back to DefaultEstMinutes. A task created Active
// gets its timer initialized to the full estimate.
func NewTask(title string, estMinutes int, imageDataURL string, status TaskStatus, now time.Time) (*Task, error) {
	if estMinutes == 0 {
		estMinutes = DefaultEstMinutes
	}
	now = now.UTC()
	title = strings.TrimSpace(title)

	task := &Task{
		ID:           uuid.New(),
		Title:        title,
		EstMinutes:   estMinutes,
		ImageDataURL: imageDataURL,
		TemplateKey:  Slugify(title),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	task.SetStatus(status, now)
	if status == TaskStatusActive {
		task.StartTimer(now)
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}
	return task, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "is required", ErrEmptyTitle)
	}
	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return NewValidationError("title", "is too long", ErrValidation)
	}
	if t.EstMinutes <= 0 || t.EstMinutes > MaxEstMinutes {
		return NewValidationError("estMinutes", "must be between 1 and 1440", ErrInvalidEstimate)
	}
	if !t.Status.IsValid() {
		return NewValidationError("status", "is not a valid task status", ErrInvalidTaskStatus)
	}
	if t.RemainingSeconds != nil && *t.RemainingSeconds < 0 {
		return NewValidationError("remainingSeconds", "cannot be negative", ErrInvalidRemaining)
	}
	return nil
}

// SetStatus changes the status and keeps the archive fields consistent.
// ArchivedAt is stamped on entering the archive and cleared on leaving it.
func (t *Task) SetStatus(status TaskStatus, now time.Time) {
	t.Status = status
	t.IsArchived = status.IsArchived()

	switch {
	case !t.IsArchived:
		t.ArchivedAt = nil
	case t.ArchivedAt == nil:
		ts := now.UTC()
		t.ArchivedAt = &ts
	}
}

// StartTimer resets the countdown to the full estimate starting at now.
func (t *Task) StartTimer(now time.Time) {
	full := t.FullDurationSeconds()
	ts := now.UTC()
	t.RemainingSeconds = &full
	t.TimerStartedAt = &ts
	t.markRemaining(now)
}

// markRemaining records that RemainingSeconds was measured at now.
func (t *Task) markRemaining(now time.Time) {
	ts := now.UTC()
	t.RemainingUpdatedAt = &ts
}

// TimerDeadline is when the countdown reaches zero if it kept running since
// RemainingSeconds was last written. Records without that stamp fall back to
// the timer start and then to UpdatedAt.
func (t *Task) TimerDeadline() time.Time {
	anchor := t.UpdatedAt
	switch {
	case t.RemainingUpdatedAt != nil:
		anchor = *t.RemainingUpdatedAt
	case t.TimerStartedAt != nil:
		anchor = *t.TimerStartedAt
	}
	return anchor.Add(time.Duration(t.Remaining()) * time.Second)
}

// FullDurationSeconds is the estimate expressed in seconds.
func (t *Task) FullDurationSeconds() int {
	return t.EstMinutes * 60
}

// Remaining returns the last known remaining seconds, defaulting to the full estimate.
func (t *Task) Remaining() int {
	if t.RemainingSeconds == nil {
		return t.FullDurationSeconds()
	}
	return *t.RemainingSeconds
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.RemainingSeconds != nil {
		v := *t.RemainingSeconds
		c.RemainingSeconds = &v
	}
	if t.TimerStartedAt != nil {
		v := *t.TimerStartedAt
		c.TimerStartedAt = &v
	}
	if t.RemainingUpdatedAt != nil {
		v := *t.RemainingUpdatedAt
		c.RemainingUpdatedAt = &v
	}
	if t.ArchivedAt != nil {
		v := *t.ArchivedAt
		c.ArchivedAt = &v
	}
	return &c
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonSlugChars  = regexp.MustCompile(`[^a-z0-9-]`)
)

// Slugify derives a template key from a title: lowercase, whitespace runs
// become dashes, anything outside [a-z0-9-] is dropped.
func Slugify(title string) string {
	key := strings.ToLower(strings.TrimSpace(title))
	key = whitespaceRun.ReplaceAllString(key, "-")
	return nonSlugChars.ReplaceAllString(key, "")
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
