// Package storetest holds behaviour tests every store.TaskStore
// implementation must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. It is called once per subtest.
type Factory func(t *testing.T) store.TaskStore

var base = time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)

// NewTask builds a valid task created at base plus offset.
func NewTask(t *testing.T, title string, status domain.TaskStatus, offset time.Duration) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(title, 15, "", status, base.Add(offset))
	require.NoError(t, err)
	return task
}

// RunTaskStoreTests runs the shared suite against the stores newStore makes.
func RunTaskStoreTests(t *testing.T, newStore Factory) {
	ctx := context.Background()

	t.Run("insert and get round trip", func(t *testing.T) {
		s := newStore(t)
		task := NewTask(t, "Round trip", domain.TaskStatusActive, 0)
		task.ImageDataURL = "http://localhost:3001/uploads/x.png"

		require.NoError(t, s.Insert(ctx, task))

		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assertSameTask(t, task, got)
	})

	t.Run("get unknown id", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetByID(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.True(t, store.IsNotFoundError(err))
	})

	t.Run("duplicate insert", func(t *testing.T) {
		s := newStore(t)
		task := NewTask(t, "Dup", domain.TaskStatusUpcoming, 0)
		require.NoError(t, s.Insert(ctx, task))
		assert.ErrorIs(t, s.Insert(ctx, task), store.ErrDuplicate)
	})

	t.Run("update replaces fields", func(t *testing.T) {
		s := newStore(t)
		task := NewTask(t, "Before", domain.TaskStatusUpcoming, 0)
		require.NoError(t, s.Insert(ctx, task))

		task.Title = "After"
		task.SetStatus(domain.TaskStatusCompleted, base.Add(time.Minute))
		task.RemainingSeconds = domain.IntPtr(0)
		task.UpdatedAt = base.Add(time.Minute)
		require.NoError(t, s.Update(ctx, task))

		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assertSameTask(t, task, got)
	})

	t.Run("update unknown id", func(t *testing.T) {
		s := newStore(t)
		task := NewTask(t, "Ghost", domain.TaskStatusUpcoming, 0)
		assert.ErrorIs(t, s.Update(ctx, task), store.ErrTaskNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		s := newStore(t)
		task := NewTask(t, "Gone", domain.TaskStatusUpcoming, 0)
		require.NoError(t, s.Insert(ctx, task))

		require.NoError(t, s.Delete(ctx, task.ID))
		_, err := s.GetByID(ctx, task.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
		assert.ErrorIs(t, s.Delete(ctx, task.ID), store.ErrTaskNotFound)
	})

	t.Run("list scopes and ordering", func(t *testing.T) {
		s := newStore(t)

		late := NewTask(t, "late", domain.TaskStatusUpcoming, 2*time.Minute)
		early := NewTask(t, "early", domain.TaskStatusActive, 0)
		tieB := NewTask(t, "tie-b", domain.TaskStatusUpcoming, time.Minute)
		tieA := NewTask(t, "tie-a", domain.TaskStatusUpcoming, time.Minute)

		doneOld := NewTask(t, "done-old", domain.TaskStatusUpcoming, 0)
		doneOld.SetStatus(domain.TaskStatusCompleted, base.Add(time.Hour))
		doneNew := NewTask(t, "done-new", domain.TaskStatusUpcoming, 0)
		doneNew.SetStatus(domain.TaskStatusCancelled, base.Add(2*time.Hour))

		for _, task := range []*domain.Task{late, early, tieB, tieA, doneOld, doneNew} {
			require.NoError(t, s.Insert(ctx, task))
		}

		active, err := s.List(ctx, domain.ScopeActive)
		require.NoError(t, err)
		assert.Equal(t, []string{"early", "tie-a", "tie-b", "late"}, titles(active))

		archived, err := s.List(ctx, domain.ScopeArchived)
		require.NoError(t, err)
		assert.Equal(t, []string{"done-new", "done-old"}, titles(archived))

		all, err := s.List(ctx, domain.ScopeAll)
		require.NoError(t, err)
		assert.Len(t, all, 6)
		assert.Equal(t, "done-new", all[0].Title, "ties on createdAt break by title")
	})

	t.Run("list empty is non-nil", func(t *testing.T) {
		s := newStore(t)
		tasks, err := s.List(ctx, domain.ScopeAll)
		require.NoError(t, err)
		assert.NotNil(t, tasks)
		assert.Empty(t, tasks)
	})

	t.Run("returned tasks are copies", func(t *testing.T) {
		s := newStore(t)
		task := NewTask(t, "Copy", domain.TaskStatusUpcoming, 0)
		require.NoError(t, s.Insert(ctx, task))

		task.Title = "mutated after insert"
		got, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Copy", got.Title)

		got.Title = "mutated after get"
		again, err := s.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Copy", again.Title)
	})

	t.Run("ping", func(t *testing.T) {
		assert.NoError(t, newStore(t).Ping(ctx))
	})
}

func assertSameTask(t *testing.T, want, got *domain.Task) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Title, got.Title)
	assert.Equal(t, want.EstMinutes, got.EstMinutes)
	assert.Equal(t, want.Status, got.Status)
	assert.Equal(t, want.ImageDataURL, got.ImageDataURL)
	assert.Equal(t, want.TemplateKey, got.TemplateKey)
	assert.Equal(t, want.RemainingSeconds, got.RemainingSeconds)
	assertSameTime(t, want.TimerStartedAt, got.TimerStartedAt)
	assertSameTime(t, want.RemainingUpdatedAt, got.RemainingUpdatedAt)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt), "createdAt %v != %v", want.CreatedAt, got.CreatedAt)
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt %v != %v", want.UpdatedAt, got.UpdatedAt)
	assert.Equal(t, want.IsArchived, got.IsArchived)
	assertSameTime(t, want.ArchivedAt, got.ArchivedAt)
}

func assertSameTime(t *testing.T, want, got *time.Time) {
	t.Helper()
	if want == nil {
		assert.Nil(t, got)
		return
	}
	require.NotNil(t, got)
	assert.True(t, want.Equal(*got), "%v != %v", *want, *got)
}

func titles(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}
