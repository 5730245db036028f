package main

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/phrazzld/bubbletasks/internal/config"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testConfig returns a valid config on the given backend with every path
// under a temp dir.
func testConfig(t *testing.T, backend string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Server: config.ServerConfig{
			Host:                   "127.0.0.1",
			Port:                   3001,
			LogLevel:               "debug",
			AllowedOrigins:         []string{"http://localhost:5173"},
			ShutdownTimeoutSeconds: 1,
		},
		Storage: config.StorageConfig{
			Backend:  backend,
			FilePath: filepath.Join(dir, "tasks.json"),
		},
		Database: config.DatabaseConfig{
			SQLitePath:  filepath.Join(dir, "bubbletasks.db"),
			AutoMigrate: true,
		},
		Upload: config.UploadConfig{
			Dir:           filepath.Join(dir, "uploads"),
			MaxBytes:      1 << 20,
			PublicBaseURL: "http://localhost:3001",
		},
		Timer: config.TimerConfig{
			SweepSchedule: "@every 1s",
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	require.NoError(t, cfg.Validate())
	app, err := newApplication(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(app.cleanup)
	return app
}
