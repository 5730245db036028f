package domain

import (
	"strings"
	"time"
)

// TaskPatch is a partial update. Nil fields are left untouched.
type TaskPatch struct {
	Title            *string
	EstMinutes       *int
	Status           *TaskStatus
	ImageDataURL     *string // an empty string clears the image
	RemainingSeconds *int
	TimerStartedAt   *time.Time

	// ClearTimerStartedAt removes the timer start; it wins over TimerStartedAt.
	ClearTimerStartedAt bool
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.EstMinutes == nil && p.Status == nil &&
		p.ImageDataURL == nil && p.RemainingSeconds == nil &&
		p.TimerStartedAt == nil && !p.ClearTimerStartedAt
}

// Apply returns a copy of t with the patch applied and the result validated.
// t itself is never modified, so a failed patch leaves the record unchanged.
//
// Entering Active without an explicit remainingSeconds arms the timer with the
// full estimate (unless a positive value is already stored) and stamps
// timerStartedAt. Entering Completed without remainingSeconds zeroes it.
// Every write of remainingSeconds, and every (re)entry into Active, restamps
// RemainingUpdatedAt so the countdown resumes from that moment.
func (p TaskPatch) Apply(t *Task, now time.Time) (*Task, error) {
	now = now.UTC()
	next := t.Clone()

	if p.Title != nil {
		title := strings.TrimSpace(*p.Title)
		if title == "" {
			return nil, NewValidationError("title", "is required", ErrEmptyTitle)
		}
		next.Title = title
		next.TemplateKey = Slugify(title)
	}
	if p.EstMinutes != nil {
		next.EstMinutes = *p.EstMinutes
	}
	if p.ImageDataURL != nil {
		next.ImageDataURL = *p.ImageDataURL
	}
	if p.RemainingSeconds != nil {
		next.RemainingSeconds = IntPtr(*p.RemainingSeconds)
		next.markRemaining(now)
	}
	switch {
	case p.ClearTimerStartedAt:
		next.TimerStartedAt = nil
	case p.TimerStartedAt != nil:
		ts := p.TimerStartedAt.UTC()
		next.TimerStartedAt = &ts
	}

	if p.Status != nil {
		if !p.Status.IsValid() {
			return nil, NewValidationError("status", "is not a valid task status", ErrInvalidTaskStatus)
		}
		entering := *p.Status != t.Status
		next.SetStatus(*p.Status, now)

		if entering && *p.Status == TaskStatusActive {
			if p.RemainingSeconds == nil && (next.RemainingSeconds == nil || *next.RemainingSeconds == 0) {
				next.RemainingSeconds = IntPtr(next.FullDurationSeconds())
			}
			if p.RemainingSeconds == nil {
				next.markRemaining(now)
			}
			if p.TimerStartedAt == nil && !p.ClearTimerStartedAt {
				ts := now
				next.TimerStartedAt = &ts
			}
		}
		if entering && *p.Status == TaskStatusCompleted && p.RemainingSeconds == nil {
			next.RemainingSeconds = IntPtr(0)
			next.markRemaining(now)
		}
	}

	next.UpdatedAt = now
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return next, nil
}
