package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Scope selects which part of the task list to return.
type Scope string

// Possible list scopes
const (
	ScopeActive   Scope = "active"
	ScopeArchived Scope = "archived"
	ScopeAll      Scope = "all"
)

// ParseScope converts a query value into a Scope. An empty value means ScopeAll.
func ParseScope(s string) (Scope, error) {
	switch Scope(strings.ToLower(strings.TrimSpace(s))) {
	case "", ScopeAll:
		return ScopeAll, nil
	case ScopeActive:
		return ScopeActive, nil
	case ScopeArchived:
		return ScopeArchived, nil
	}
	return "", NewValidationError("scope", "must be one of active, archived, all", ErrValidation)
}

// Includes reports whether t belongs to the scope.
func (s Scope) Includes(t *Task) bool {
	switch s {
	case ScopeActive:
		return !t.IsArchived
	case ScopeArchived:
		return t.IsArchived
	}
	return true
}

// SortForScope orders tasks the way a scope is presented.
func SortForScope(tasks []*Task, scope Scope) {
	if scope == ScopeArchived {
		SortArchived(tasks)
		return
	}
	SortChronological(tasks)
}

// SortChronological orders oldest first, breaking ties by title.
func SortChronological(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.Title < b.Title
	})
}

// SortArchived orders most recently archived first, breaking ties by title.
// Tasks without archivedAt fall back to updatedAt.
func SortArchived(tasks []*Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := archiveTime(tasks[i]), archiveTime(tasks[j])
		if !a.Equal(b) {
			return a.After(b)
		}
		return tasks[i].Title < tasks[j].Title
	})
}

func archiveTime(t *Task) time.Time {
	if t.ArchivedAt != nil {
		return *t.ArchivedAt
	}
	return t.UpdatedAt
}

// NextUpcoming returns the chronologically first Upcoming task other than
// exclude, or nil when there is none. tasks is not reordered.
func NextUpcoming(tasks []*Task, exclude uuid.UUID) *Task {
	candidates := make([]*Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == TaskStatusUpcoming && t.ID != exclude {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	SortChronological(candidates)
	return candidates[0]
}

// FindActive returns the Active task, or nil.
func FindActive(tasks []*Task) *Task {
	for _, t := range tasks {
		if t.Status == TaskStatusActive {
			return t
		}
	}
	return nil
}
