package client

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/bubbletasks/internal/api"
	"github.com/phrazzld/bubbletasks/internal/events"
	"github.com/phrazzld/bubbletasks/internal/platform/memory"
	"github.com/phrazzld/bubbletasks/internal/service"
	"github.com/phrazzld/bubbletasks/internal/upload"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)

type testEnv struct {
	server *httptest.Server
	client *Client
	hub    *api.StreamHub
}

// newTestEnv starts a real API server over an in-memory store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := api.NewStreamHub(nil, log)
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(hub)

	var tick atomic.Int64
	clock := func() time.Time { return baseTime.Add(time.Duration(tick.Add(1)) * time.Second) }

	svc, err := service.NewTaskService(memory.NewTaskStore(), emitter, log, service.WithClock(clock))
	require.NoError(t, err)
	uploads, err := upload.NewStore(filepath.Join(t.TempDir(), "uploads"), 4096, "http://localhost:3001", log)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Route("/api", api.Handlers{
		Tasks:  api.NewTaskHandler(svc, log),
		Upload: api.NewUploadHandler(uploads, log),
		Health: api.NewHealthHandler(svc, "memory", log),
		Stream: hub,
	}.Mount)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/api", WithLogger(log))
	require.NoError(t, err)
	return &testEnv{server: srv, client: c, hub: hub}
}
