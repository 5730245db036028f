package main

import (
	"context"
	"testing"

	"github.com/phrazzld/bubbletasks/internal/client"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCompletesAndActivatesNext(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first, err := env.client.CreateTask(ctx, client.CreateTaskParams{Title: "Sprint", EstMinutes: 1})
	require.NoError(t, err)
	second, err := env.client.CreateTask(ctx, client.CreateTaskParams{Title: "Rest", EstMinutes: 2})
	require.NoError(t, err)

	one := 1
	_, err = env.client.UpdateTask(ctx, first.ID, client.TaskUpdate{RemainingSeconds: &one})
	require.NoError(t, err)

	out := env.mustRun(t, "watch", "--once", "--refresh", "20ms", "--report", "1s")
	assert.Contains(t, out, "Completed: Sprint")
	assert.Contains(t, out, "Active: Rest")

	archived, err := env.client.ListTasks(ctx, domain.ScopeArchived)
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, domain.TaskStatusCompleted, archived[0].Status)
	require.NotNil(t, archived[0].RemainingSeconds)
	assert.Equal(t, 0, *archived[0].RemainingSeconds)

	active, err := env.client.ListTasks(ctx, domain.ScopeActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Equal(t, domain.TaskStatusActive, active[0].Status)
	require.NotNil(t, active[0].RemainingSeconds)
	assert.Equal(t, 120, *active[0].RemainingSeconds)
	assert.NotNil(t, active[0].TimerStartedAt)
}

func TestWatchLastTask(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	only, err := env.client.CreateTask(ctx, client.CreateTaskParams{Title: "Solo", EstMinutes: 1})
	require.NoError(t, err)
	one := 1
	_, err = env.client.UpdateTask(ctx, only.ID, client.TaskUpdate{RemainingSeconds: &one})
	require.NoError(t, err)

	out := env.mustRun(t, "watch", "--refresh", "20ms")
	assert.Contains(t, out, "Completed: Solo")
	assert.Contains(t, out, "No upcoming tasks.")
}

func TestWatchWithoutActiveTask(t *testing.T) {
	env := newTestEnv(t)
	out := env.mustRun(t, "watch")
	assert.Contains(t, out, "No active task.")
}
