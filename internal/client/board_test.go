package client

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func titles(tasks []*domain.Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.Title
	}
	return out
}

func TestBoardAgainstServer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	board := NewBoard(env.client)

	first, err := board.AddTask(ctx, "First", 10, "")
	require.NoError(t, err)
	_, err = board.AddTask(ctx, "Second", 15, "")
	require.NoError(t, err)
	_, err = board.AddTask(ctx, "Third", 5, "")
	require.NoError(t, err)

	state := board.State()
	assert.Equal(t, []string{"First", "Second", "Third"}, titles(state.Tasks))
	assert.False(t, state.IsMutating)
	assert.Empty(t, state.Error)
	assert.Equal(t, "First", board.ActiveTask().Title)

	t.Run("complete and activate next", func(t *testing.T) {
		activated, err := board.CompleteAndActivateNext(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, activated)
		assert.Equal(t, "Second", activated.Title)
		assert.Equal(t, 900, *activated.RemainingSeconds)

		state := board.State()
		assert.Equal(t, []string{"Second", "Third"}, titles(state.Tasks))
		assert.Equal(t, []string{"First"}, titles(state.ArchivedTasks))
		assert.Equal(t, 0, *state.ArchivedTasks[0].RemainingSeconds)
	})

	t.Run("cancel and activate next", func(t *testing.T) {
		active := board.ActiveTask()
		activated, err := board.CancelAndActivateNext(ctx, active.ID)
		require.NoError(t, err)
		assert.Equal(t, "Third", activated.Title)

		archived := board.State().ArchivedTasks
		assert.Equal(t, []string{"Second", "First"}, titles(archived))
		assert.Equal(t, domain.TaskStatusCancelled, archived[0].Status)
	})

	t.Run("last task leaves nothing active", func(t *testing.T) {
		active := board.ActiveTask()
		activated, err := board.CompleteAndActivateNext(ctx, active.ID)
		require.NoError(t, err)
		assert.Nil(t, activated)
		assert.Nil(t, board.ActiveTask())
	})

	t.Run("refetch matches the local mirror", func(t *testing.T) {
		fresh := NewBoard(env.client)
		require.NoError(t, fresh.FetchTasks(ctx))
		require.NoError(t, fresh.FetchArchivedTasks(ctx))

		assert.Equal(t, titles(board.State().Tasks), titles(fresh.State().Tasks))
		assert.Equal(t, titles(board.State().ArchivedTasks), titles(fresh.State().ArchivedTasks))
	})

	t.Run("errors are recorded and cleared", func(t *testing.T) {
		_, err := board.AddTask(ctx, "  ", 5, "")
		require.Error(t, err)
		assert.Equal(t, "Invalid title: required field", board.State().Error)

		board.ClearError()
		assert.Empty(t, board.State().Error)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, board.DeleteTask(ctx, first.ID))
		_, ok := board.Task(first.ID)
		assert.False(t, ok)
	})
}

// fakeAPI serves from a map and can fail chosen updates.
type fakeAPI struct {
	mu       sync.Mutex
	tasks    map[uuid.UUID]*domain.Task
	failFor  map[uuid.UUID]error
	listErr  error
	updates  []uuid.UUID
	listWait chan struct{}
}

func newFakeAPI(tasks ...*domain.Task) *fakeAPI {
	f := &fakeAPI{tasks: map[uuid.UUID]*domain.Task{}, failFor: map[uuid.UUID]error{}}
	for _, t := range tasks {
		f.tasks[t.ID] = t.Clone()
	}
	return f
}

func (f *fakeAPI) ListTasks(ctx context.Context, scope domain.Scope) ([]*domain.Task, error) {
	if f.listWait != nil {
		<-f.listWait
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []*domain.Task
	for _, t := range f.tasks {
		if scope.Includes(t) {
			out = append(out, t.Clone())
		}
	}
	return out, nil
}

func (f *fakeAPI) CreateTask(ctx context.Context, params CreateTaskParams) (*domain.Task, error) {
	task, err := domain.NewTask(params.Title, params.EstMinutes, params.ImageDataURL, domain.TaskStatusUpcoming, baseTime)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks[task.ID] = task
	return task.Clone(), nil
}

func (f *fakeAPI) UpdateTask(ctx context.Context, id uuid.UUID, update TaskUpdate) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, id)
	if err := f.failFor[id]; err != nil {
		return nil, err
	}
	task, ok := f.tasks[id]
	if !ok {
		return nil, &APIError{StatusCode: 404, Message: "Task not found"}
	}
	next, err := domain.TaskPatch{
		Status:           update.Status,
		RemainingSeconds: update.RemainingSeconds,
		TimerStartedAt:   update.TimerStartedAt,
	}.Apply(task, baseTime.Add(time.Hour))
	if err != nil {
		return nil, err
	}
	f.tasks[id] = next
	return next.Clone(), nil
}

func (f *fakeAPI) DeleteTask(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	task, ok := f.tasks[id]
	if !ok {
		return nil, &APIError{StatusCode: 404, Message: "Task not found"}
	}
	delete(f.tasks, id)
	return task, nil
}

func seededBoard(t *testing.T) (*Board, *fakeAPI, *domain.Task, *domain.Task) {
	t.Helper()
	active, err := domain.NewTask("Active", 10, "", domain.TaskStatusActive, baseTime)
	require.NoError(t, err)
	next, err := domain.NewTask("Next", 20, "", domain.TaskStatusUpcoming, baseTime.Add(time.Minute))
	require.NoError(t, err)

	api := newFakeAPI(active, next)
	stamp := baseTime.Add(2 * time.Hour)
	board := NewBoard(api, WithBoardClock(func() time.Time { return stamp }))
	require.NoError(t, board.FetchTasks(context.Background()))
	return board, api, active, next
}

func TestCompleteAndActivateNextSecondStepFails(t *testing.T) {
	board, api, active, next := seededBoard(t)
	api.failFor[next.ID] = &APIError{StatusCode: 500, Message: "Internal server error"}

	activated, err := board.CompleteAndActivateNext(context.Background(), active.ID)
	assert.Nil(t, activated)
	require.Error(t, err)

	state := board.State()
	assert.Equal(t, "Internal server error", state.Error)
	assert.False(t, state.IsMutating)

	assert.Equal(t, []uuid.UUID{active.ID, next.ID}, api.updates, "no retry")
	assert.Nil(t, board.ActiveTask(), "first step is not undone")
	assert.Equal(t, domain.TaskStatusCompleted, api.tasks[active.ID].Status)
	assert.Equal(t, domain.TaskStatusUpcoming, api.tasks[next.ID].Status)
}

func TestCompleteAndActivateNextFirstStepFails(t *testing.T) {
	board, api, active, _ := seededBoard(t)
	api.failFor[active.ID] = errors.New("connection refused")

	_, err := board.CompleteAndActivateNext(context.Background(), active.ID)
	require.Error(t, err)
	assert.Equal(t, "Failed to complete task: connection refused", board.State().Error)
	assert.Len(t, api.updates, 1)
	assert.Equal(t, "Active", board.ActiveTask().Title)
}

func TestCompleteAndActivateNextSendsFullTimer(t *testing.T) {
	board, api, active, next := seededBoard(t)

	activated, err := board.CompleteAndActivateNext(context.Background(), active.ID)
	require.NoError(t, err)
	assert.Equal(t, next.ID, activated.ID)
	assert.Equal(t, 1200, *activated.RemainingSeconds)
	assert.True(t, activated.TimerStartedAt.Equal(baseTime.Add(2*time.Hour)))
	assert.Equal(t, domain.TaskStatusActive, api.tasks[next.ID].Status)
}

func TestBoardLoadingFlags(t *testing.T) {
	api := newFakeAPI()
	api.listWait = make(chan struct{})
	board := NewBoard(api)

	done := make(chan error, 1)
	go func() { done <- board.FetchTasks(context.Background()) }()

	require.Eventually(t, func() bool { return board.State().IsLoading }, time.Second, 5*time.Millisecond)
	close(api.listWait)
	require.NoError(t, <-done)
	assert.False(t, board.State().IsLoading)

	api.listErr = errors.New("timeout")
	api.listWait = nil
	require.Error(t, board.FetchArchivedTasks(context.Background()))
	state := board.State()
	assert.False(t, state.IsLoadingArchive)
	assert.Equal(t, "Failed to fetch archived tasks: timeout", state.Error)
}

func TestBoardApplyEvent(t *testing.T) {
	board := NewBoard(newFakeAPI())
	task, err := domain.NewTask("Remote", 5, "", domain.TaskStatusUpcoming, baseTime)
	require.NoError(t, err)

	board.ApplyEvent(events.NewTaskEvent(events.TaskCreated, task, baseTime))
	assert.Len(t, board.State().Tasks, 1)

	task.SetStatus(domain.TaskStatusCompleted, baseTime.Add(time.Minute))
	board.ApplyEvent(events.NewTaskEvent(events.TaskUpdated, task, baseTime))
	state := board.State()
	assert.Empty(t, state.Tasks)
	assert.Len(t, state.ArchivedTasks, 1)

	board.ApplyEvent(events.NewTaskEvent(events.TaskDeleted, task, baseTime))
	assert.Empty(t, board.State().ArchivedTasks)

	board.ApplyEvent(nil)
}
