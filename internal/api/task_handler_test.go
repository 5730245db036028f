package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/api/shared"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/platform/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTask(t *testing.T) {
	t.Run("first task is active, second is upcoming", func(t *testing.T) {
		ts := newTestServer(t, nil)

		first := ts.create(t, "  Write report ", 30)
		assert.Equal(t, "Write report", first.Title)
		assert.Equal(t, "write-report", first.TemplateKey)
		assert.Equal(t, domain.TaskStatusActive, first.Status)
		require.NotNil(t, first.RemainingSeconds)
		assert.Equal(t, 1800, *first.RemainingSeconds)
		assert.NotNil(t, first.TimerStartedAt)
		assert.False(t, first.IsArchived)

		second := ts.create(t, "Read", 10)
		assert.Equal(t, domain.TaskStatusUpcoming, second.Status)
		assert.Nil(t, second.RemainingSeconds)
	})

	t.Run("estimate defaults and coercion", func(t *testing.T) {
		ts := newTestServer(t, nil)

		rec := ts.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": "Default"})
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, domain.DefaultEstMinutes, decodeEnvelope(t, rec).Task.EstMinutes)

		rec = ts.do(t, http.MethodPost, "/api/tasks", `{"title":"Coerced","estMinutes":"15"}`)
		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, 15, decodeEnvelope(t, rec).Task.EstMinutes)
	})

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{"missing title", `{"estMinutes":10}`, http.StatusBadRequest, "Invalid title: required field"},
		{"blank title", `{"title":"   "}`, http.StatusBadRequest, "Invalid title: required field"},
		{"zero minutes", `{"title":"x","estMinutes":0}`, http.StatusBadRequest, "Invalid estMinutes: too small"},
		{"negative minutes", `{"title":"x","estMinutes":-3}`, http.StatusBadRequest, "Invalid estMinutes: too small"},
		{"too many minutes", `{"title":"x","estMinutes":5000}`, http.StatusBadRequest, "Invalid estMinutes: too large"},
		{"non-numeric minutes", `{"title":"x","estMinutes":"soon"}`, http.StatusBadRequest, "Invalid request format"},
		{"malformed json", `{"title":`, http.StatusBadRequest, "Invalid request format"},
		{"empty body", ``, http.StatusBadRequest, "Invalid title: required field"},
		{"title too long", `{"title":"` + strings.Repeat("x", domain.MaxTitleLength+1) + `"}`, http.StatusBadRequest, "Invalid title: too large"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t, nil)

			rec := ts.do(t, http.MethodPost, "/api/tasks", tc.body)
			assert.Equal(t, tc.wantStatus, rec.Code)

			env := decodeEnvelope(t, rec)
			assert.False(t, env.Success)
			assert.Equal(t, tc.wantMessage, env.Error)
			assert.NotEmpty(t, env.TraceID)
			assert.Equal(t, env.TraceID, rec.Header().Get(shared.TraceIDHeader))
		})
	}
}

func TestListTasks(t *testing.T) {
	ts := newTestServer(t, nil)
	a := ts.create(t, "A", 5)
	b := ts.create(t, "B", 5)
	c := ts.create(t, "C", 5)

	rec := ts.do(t, http.MethodPost, "/api/tasks/"+a.ID.String()+"/complete", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = ts.do(t, http.MethodPost, "/api/tasks/"+b.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	ids := func(tasks []*domain.Task) []uuid.UUID {
		out := make([]uuid.UUID, len(tasks))
		for i, task := range tasks {
			out[i] = task.ID
		}
		return out
	}

	tests := []struct {
		query string
		want  []uuid.UUID
	}{
		{"", []uuid.UUID{a.ID, b.ID, c.ID}},
		{"?scope=all", []uuid.UUID{a.ID, b.ID, c.ID}},
		{"?scope=active", []uuid.UUID{c.ID}},
		{"?scope=archived", []uuid.UUID{b.ID, a.ID}},
	}
	for _, tc := range tests {
		t.Run("scope"+tc.query, func(t *testing.T) {
			rec := ts.do(t, http.MethodGet, "/api/tasks"+tc.query, nil)
			require.Equal(t, http.StatusOK, rec.Code)
			env := decodeEnvelope(t, rec)
			assert.True(t, env.Success)
			assert.Equal(t, tc.want, ids(env.Tasks))
		})
	}

	t.Run("unknown scope", func(t *testing.T) {
		rec := ts.do(t, http.MethodGet, "/api/tasks?scope=recent", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid scope", decodeEnvelope(t, rec).Error)
	})

	t.Run("empty list is an array", func(t *testing.T) {
		empty := newTestServer(t, nil)
		rec := empty.do(t, http.MethodGet, "/api/tasks", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"success":true,"tasks":[]}`, rec.Body.String())
	})
}

func TestUpdateTask(t *testing.T) {
	t.Run("invalid status leaves the record unchanged", func(t *testing.T) {
		ts := newTestServer(t, nil)
		task := ts.create(t, "Stable", 10)

		rec := ts.do(t, http.MethodPut, "/api/tasks/"+task.ID.String(),
			`{"title":"Changed","status":"Finished"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid status: invalid value", decodeEnvelope(t, rec).Error)

		stored, err := ts.store.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Stable", stored.Title)
		assert.Equal(t, domain.TaskStatusActive, stored.Status)
	})

	t.Run("blank title", func(t *testing.T) {
		ts := newTestServer(t, nil)
		task := ts.create(t, "Stable", 10)

		rec := ts.do(t, http.MethodPut, "/api/tasks/"+task.ID.String(), `{"title":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid title: required field", decodeEnvelope(t, rec).Error)
	})

	t.Run("negative remaining seconds", func(t *testing.T) {
		ts := newTestServer(t, nil)
		task := ts.create(t, "Stable", 10)

		rec := ts.do(t, http.MethodPut, "/api/tasks/"+task.ID.String(), `{"remainingSeconds":-1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid remainingSeconds: too small", decodeEnvelope(t, rec).Error)
	})

	t.Run("second active task conflicts", func(t *testing.T) {
		ts := newTestServer(t, nil)
		ts.create(t, "Active", 10)
		upcoming := ts.create(t, "Waiting", 10)

		rec := ts.do(t, http.MethodPut, "/api/tasks/"+upcoming.ID.String(), `{"status":"Active"}`)
		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "Another task is already active", decodeEnvelope(t, rec).Error)
	})

	t.Run("activating arms the timer", func(t *testing.T) {
		ts := newTestServer(t, nil)
		first := ts.create(t, "First", 10)
		second := ts.create(t, "Second", 20)

		rec := ts.do(t, http.MethodPut, "/api/tasks/"+first.ID.String(), `{"status":"Paused"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		paused := decodeEnvelope(t, rec).Task
		assert.True(t, paused.IsArchived)
		assert.NotNil(t, paused.ArchivedAt)

		rec = ts.do(t, http.MethodPut, "/api/tasks/"+second.ID.String(), `{"status":"Active"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		active := decodeEnvelope(t, rec).Task
		require.NotNil(t, active.RemainingSeconds)
		assert.Equal(t, 1200, *active.RemainingSeconds)
		assert.NotNil(t, active.TimerStartedAt)
	})

	t.Run("tick and clear fields", func(t *testing.T) {
		ts := newTestServer(t, nil)
		task := ts.create(t, "Ticking", 10)

		rec := ts.do(t, http.MethodPut, "/api/tasks/"+task.ID.String(),
			`{"remainingSeconds":"590","imageDataUrl":"data:image/png;base64,AAAA"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		updated := decodeEnvelope(t, rec).Task
		assert.Equal(t, 590, *updated.RemainingSeconds)
		assert.Equal(t, "data:image/png;base64,AAAA", updated.ImageDataURL)

		rec = ts.do(t, http.MethodPut, "/api/tasks/"+task.ID.String(),
			`{"imageDataUrl":null,"timerStartedAt":null}`)
		require.Equal(t, http.StatusOK, rec.Code)
		cleared := decodeEnvelope(t, rec).Task
		assert.Empty(t, cleared.ImageDataURL)
		assert.Nil(t, cleared.TimerStartedAt)
		assert.Equal(t, 590, *cleared.RemainingSeconds)
	})

	t.Run("legacy status names are accepted", func(t *testing.T) {
		ts := newTestServer(t, nil)
		task := ts.create(t, "Legacy", 10)

		rec := ts.do(t, http.MethodPut, "/api/tasks/"+task.ID.String(), `{"status":"Done"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		done := decodeEnvelope(t, rec).Task
		assert.Equal(t, domain.TaskStatusCompleted, done.Status)
		assert.Equal(t, 0, *done.RemainingSeconds)
	})

	t.Run("unknown and malformed ids", func(t *testing.T) {
		ts := newTestServer(t, nil)

		for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
			rec := ts.do(t, http.MethodPut, "/api/tasks/"+id, `{"title":"x"}`)
			assert.Equal(t, http.StatusNotFound, rec.Code, id)
			assert.Equal(t, "Task not found", decodeEnvelope(t, rec).Error, id)
		}
	})
}

func TestDeleteTask(t *testing.T) {
	ts := newTestServer(t, nil)
	task := ts.create(t, "Doomed", 10)

	rec := ts.do(t, http.MethodDelete, "/api/tasks/"+task.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, task.ID, env.Task.ID)

	rec = ts.do(t, http.MethodDelete, "/api/tasks/"+task.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFinishTask(t *testing.T) {
	t.Run("complete promotes the oldest upcoming task", func(t *testing.T) {
		ts := newTestServer(t, nil)
		active := ts.create(t, "Active", 10)
		oldest := ts.create(t, "Oldest", 15)
		ts.create(t, "Newest", 5)

		rec := ts.do(t, http.MethodPost, "/api/tasks/"+active.ID.String()+"/complete", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		env := decodeEnvelope(t, rec)
		assert.Equal(t, domain.TaskStatusCompleted, env.Task.Status)
		assert.Equal(t, 0, *env.Task.RemainingSeconds)
		require.NotNil(t, env.Activated)
		assert.Equal(t, oldest.ID, env.Activated.ID)
		assert.Equal(t, domain.TaskStatusActive, env.Activated.Status)
		assert.Equal(t, 900, *env.Activated.RemainingSeconds)
	})

	t.Run("cancel with nothing queued leaves no active task", func(t *testing.T) {
		ts := newTestServer(t, nil)
		active := ts.create(t, "Only", 10)

		rec := ts.do(t, http.MethodPost, "/api/tasks/"+active.ID.String()+"/cancel", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), `"activated"`)

		env := decodeEnvelope(t, rec)
		assert.Equal(t, domain.TaskStatusCancelled, env.Task.Status)
		assert.Nil(t, env.Activated)

		rec = ts.do(t, http.MethodGet, "/api/tasks?scope=active", nil)
		assert.Empty(t, decodeEnvelope(t, rec).Tasks)
	})

	t.Run("unknown task", func(t *testing.T) {
		ts := newTestServer(t, nil)
		rec := ts.do(t, http.MethodPost, "/api/tasks/"+uuid.NewString()+"/complete", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

// brokenStore fails every call with an error carrying sensitive detail.
type brokenStore struct {
	*memory.TaskStore
	err error
}

func (b *brokenStore) List(context.Context, domain.Scope) ([]*domain.Task, error) {
	return nil, b.err
}

func (b *brokenStore) Ping(context.Context) error {
	return b.err
}

func TestInternalErrorsAreSanitized(t *testing.T) {
	ts := newTestServer(t, &brokenStore{
		TaskStore: memory.NewTaskStore(),
		err:       errors.New("dial tcp db.internal.example.com:5432: password=hunter2 refused"),
	})

	rec := ts.do(t, http.MethodGet, "/api/tasks", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	env := decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Internal server error", env.Error)
	assert.NotEmpty(t, env.TraceID)
	assert.NotContains(t, rec.Body.String(), "hunter2")
	assert.NotContains(t, rec.Body.String(), "example.com")

	rec = ts.do(t, http.MethodGet, "/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "Storage unavailable", decodeEnvelope(t, rec).Error)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	ts := newTestServer(t, nil)

	rec := ts.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.True(t, env.Success)
	assert.Equal(t, "BubbleTasks API is running", env.Message)
	assert.Equal(t, "memory", env.Storage)

	rec = ts.do(t, http.MethodGet, "/api/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	env = decodeEnvelope(t, rec)
	assert.False(t, env.Success)
	assert.Equal(t, "Endpoint not found", env.Error)

	rec = ts.do(t, http.MethodPatch, "/api/tasks", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestTraceIDIsPropagated(t *testing.T) {
	ts := newTestServer(t, nil)

	req := newRequest(http.MethodGet, "/api/tasks?scope=bogus")
	req.Header.Set(shared.TraceIDHeader, "client-trace-0001")
	rec := serve(ts, req)

	assert.Equal(t, "client-trace-0001", rec.Header().Get(shared.TraceIDHeader))
	assert.Equal(t, "client-trace-0001", decodeEnvelope(t, rec).TraceID)
}
