package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	apimw "github.com/phrazzld/bubbletasks/internal/api/middleware"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/events"
	"github.com/phrazzld/bubbletasks/internal/platform/memory"
	"github.com/phrazzld/bubbletasks/internal/service"
	"github.com/phrazzld/bubbletasks/internal/store"
	"github.com/phrazzld/bubbletasks/internal/upload"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

// envelope covers every response body the API writes.
type envelope struct {
	Success   bool           `json:"success"`
	Error     string         `json:"error"`
	TraceID   string         `json:"traceId"`
	Task      *domain.Task   `json:"task"`
	Activated *domain.Task   `json:"activated"`
	Tasks     []*domain.Task `json:"tasks"`
	ImageURL  string         `json:"imageUrl"`
	Filename  string         `json:"filename"`
	Message   string         `json:"message"`
	Storage   string         `json:"storage"`
}

type testServer struct {
	router  http.Handler
	store   store.TaskStore
	hub     *StreamHub
	uploads *upload.Store
}

// steppingClock advances one second per call so creation order is strict.
func steppingClock() func() time.Time {
	var n atomic.Int64
	return func() time.Time {
		return baseTime.Add(time.Duration(n.Add(1)) * time.Second)
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, tasks store.TaskStore) *testServer {
	t.Helper()
	log := testLogger()

	if tasks == nil {
		tasks = memory.NewTaskStore()
	}

	hub := NewStreamHub(nil, log)
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(hub)

	svc, err := service.NewTaskService(tasks, emitter, log, service.WithClock(steppingClock()))
	require.NoError(t, err)

	uploads, err := upload.NewStore(filepath.Join(t.TempDir(), "uploads"), 1024, "http://localhost:3001", log)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Use(apimw.TraceMiddleware(log))
	r.Route("/api", Handlers{
		Tasks:  NewTaskHandler(svc, log),
		Upload: NewUploadHandler(uploads, log),
		Health: NewHealthHandler(svc, "memory", log),
		Stream: hub,
	}.Mount)

	return &testServer{router: r, store: tasks, hub: hub, uploads: uploads}
}

// do sends body as JSON unless it is already a string.
func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) create(t *testing.T, title string, estMinutes int) *domain.Task {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/tasks", map[string]any{"title": title, "estMinutes": estMinutes})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decodeEnvelope(t, rec).Task
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func newRequest(method, path string) *http.Request {
	return httptest.NewRequest(method, path, nil)
}

func serve(s *testServer, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}
