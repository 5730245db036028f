package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/bubbletasks/internal/api"
	"github.com/phrazzld/bubbletasks/internal/config"
	"github.com/phrazzld/bubbletasks/internal/events"
	"github.com/phrazzld/bubbletasks/internal/scheduler"
	"github.com/phrazzld/bubbletasks/internal/service"
	"github.com/phrazzld/bubbletasks/internal/store"
	"github.com/phrazzld/bubbletasks/internal/upload"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	// Configuration
	config *config.Config

	// Core services
	logger *slog.Logger
	db     *sql.DB // nil for the memory and file backends

	taskStore   store.TaskStore
	emitter     *events.InMemoryEventEmitter
	taskService service.TaskService
	uploads     *upload.Store
	hub         *api.StreamHub

	// sweeper is nil unless timer.auto_complete is set.
	sweeper *scheduler.Sweeper
}

// newApplication opens storage and wires every component together.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	taskStore, db, err := openTaskStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	app := &application{
		config:    cfg,
		logger:    logger,
		db:        db,
		taskStore: taskStore,
	}

	app.hub = api.NewStreamHub(cfg.Server.AllowedOrigins, logger)

	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(events.NewLoggingHandler(logger))
	app.emitter.RegisterHandler(app.hub)

	app.taskService, err = service.NewTaskService(taskStore, app.emitter, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	app.uploads, err = upload.NewStore(cfg.Upload.Dir, cfg.Upload.MaxBytes, cfg.Upload.PublicBaseURL, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create upload store: %w", err)
	}

	if cfg.Timer.AutoComplete {
		app.sweeper, err = scheduler.NewSweeper(app.taskService, cfg.Timer.SweepSchedule, logger)
		if err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to create expiry sweeper: %w", err)
		}
	}

	return app, nil
}

// handlers builds the API handlers.
func (app *application) handlers() api.Handlers {
	return api.Handlers{
		Tasks:  api.NewTaskHandler(app.taskService, app.logger),
		Upload: api.NewUploadHandler(app.uploads, app.logger),
		Health: api.NewHealthHandler(app.taskService, app.config.Storage.Backend, app.logger),
		Stream: app.hub,
	}
}

// Run starts background work and serves HTTP until ctx is cancelled.
func (app *application) Run(ctx context.Context) error {
	if app.sweeper != nil {
		if err := app.sweeper.Start(ctx); err != nil {
			return fmt.Errorf("failed to start expiry sweeper: %w", err)
		}
		app.logger.Info("Expiry sweeper started", "schedule", app.config.Timer.SweepSchedule)
	}

	return app.startHTTPServer(ctx, app.setupRouter())
}

// cleanup releases resources. It is safe to call more than once.
func (app *application) cleanup() {
	if app.sweeper != nil {
		app.sweeper.Stop()
	}
	if app.db != nil {
		app.logger.Info("Closing database connection")
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
		app.db = nil
	}
}
