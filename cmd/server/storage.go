package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/phrazzld/bubbletasks/internal/config"
	"github.com/phrazzld/bubbletasks/internal/platform/filestore"
	"github.com/phrazzld/bubbletasks/internal/platform/memory"
	"github.com/phrazzld/bubbletasks/internal/platform/postgres"
	"github.com/phrazzld/bubbletasks/internal/platform/sqlite"
	"github.com/phrazzld/bubbletasks/internal/platform/sqlstore"
	"github.com/phrazzld/bubbletasks/internal/store"
)

// openTaskStore builds the configured task store. db is nil for the memory
// and file backends.
func openTaskStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.TaskStore, *sql.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		logger.Warn("using in-memory storage, tasks are lost on restart")
		return memory.NewTaskStore(), nil, nil

	case config.BackendFile:
		fs, err := filestore.NewTaskStore(cfg.Storage.FilePath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open task file: %w", err)
		}
		logger.Info("Task file opened", "path", fs.Path())
		return fs, nil, nil

	case config.BackendPostgres, config.BackendSQLite:
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.AutoMigrate {
			if err := migrateDatabase(ctx, cfg, db, sqlstore.MigrateUp, logger); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		logger.Info("Database connection established", "backend", cfg.Storage.Backend)
		if cfg.Storage.Backend == config.BackendPostgres {
			return postgres.NewTaskStore(db, logger), db, nil
		}
		return sqlite.NewTaskStore(db, logger), db, nil
	}

	return nil, nil, fmt.Errorf("unsupported storage backend %q", cfg.Storage.Backend)
}

// openDatabase connects to the configured SQL backend.
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		return db, nil
	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.Database.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open database connection: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("storage backend %q has no database", cfg.Storage.Backend)
}

// migrateDatabase runs a goose command against db.
func migrateDatabase(ctx context.Context, cfg *config.Config, db *sql.DB, command string, logger *slog.Logger) error {
	var err error
	switch cfg.Storage.Backend {
	case config.BackendPostgres:
		err = postgres.Migrate(ctx, db, command, logger)
	case config.BackendSQLite:
		err = sqlite.Migrate(ctx, db, command, logger)
	default:
		return fmt.Errorf("storage backend %q has no schema to migrate", cfg.Storage.Backend)
	}
	if err != nil {
		return fmt.Errorf("migration %s failed: %w", command, err)
	}
	return nil
}
