package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/bubbletasks/internal/api"
	"github.com/phrazzld/bubbletasks/internal/client"
	"github.com/phrazzld/bubbletasks/internal/events"
	"github.com/phrazzld/bubbletasks/internal/platform/memory"
	"github.com/phrazzld/bubbletasks/internal/service"
	"github.com/phrazzld/bubbletasks/internal/upload"
	"github.com/stretchr/testify/require"
)

type testEnv struct {
	apiURL string
	client *client.Client
}

// newTestEnv starts a real API server over an in-memory store.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	hub := api.NewStreamHub(nil, log)
	emitter := events.NewInMemoryEventEmitter(log)
	emitter.RegisterHandler(hub)

	svc, err := service.NewTaskService(memory.NewTaskStore(), emitter, log)
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

	apiURL := srv.URL + "/api"
	c, err := client.New(apiURL, client.WithLogger(log))
	require.NoError(t, err)
	return &testEnv{apiURL: apiURL, client: c}
}

// run executes bubblectl against the test server and returns stdout.
func (e *testEnv) run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--api-url", e.apiURL}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, args...)
	require.NoError(t, err, out)
	return out
}
