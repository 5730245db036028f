package main

import (
	"context"
	"testing"

	"github.com/phrazzld/bubbletasks/internal/config"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/phrazzld/bubbletasks/internal/platform/sqlstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenTaskStore(t *testing.T) {
	ctx := context.Background()

	for _, backend := range []string{config.BackendMemory, config.BackendFile, config.BackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t, backend)
			tasks, db, err := openTaskStore(ctx, cfg, discardLogger())
			require.NoError(t, err)
			if db != nil {
				t.Cleanup(func() { _ = db.Close() })
			}
			assert.Equal(t, backend == config.BackendSQLite, db != nil)

			require.NoError(t, tasks.Ping(ctx))

			task, err := domain.NewTask("Stored", 5, "", domain.TaskStatusUpcoming, testNow())
			require.NoError(t, err)
			require.NoError(t, tasks.Insert(ctx, task))

			got, err := tasks.GetByID(ctx, task.ID)
			require.NoError(t, err)
			assert.Equal(t, "Stored", got.Title)
		})
	}

	t.Run("unsupported backend", func(t *testing.T) {
		cfg := testConfig(t, "redis")
		_, _, err := openTaskStore(ctx, cfg, discardLogger())
		assert.ErrorContains(t, err, "unsupported storage backend")
	})
}

func TestMigrateDatabaseSQLite(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t, config.BackendSQLite)

	db, err := openDatabase(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	commands := []string{
		sqlstore.MigrateUp, sqlstore.MigrateVersion, sqlstore.MigrateStatus,
		sqlstore.MigrateDown, sqlstore.MigrateUp, sqlstore.MigrateReset,
	}
	for _, command := range commands {
		require.NoError(t, migrateDatabase(ctx, cfg, db, command, discardLogger()), command)
	}

	_, err = db.ExecContext(ctx, "SELECT 1 FROM tasks")
	assert.Error(t, err, "reset removes the tasks table")
}

func TestMigrateDatabaseRejectsNonSQLBackends(t *testing.T) {
	cfg := testConfig(t, config.BackendFile)
	err := migrateDatabase(context.Background(), cfg, nil, sqlstore.MigrateUp, discardLogger())
	assert.ErrorContains(t, err, "has no schema")

	_, err = openDatabase(context.Background(), cfg)
	assert.ErrorContains(t, err, "has no database")
}
