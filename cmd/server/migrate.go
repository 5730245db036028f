package main

import (
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/bubbletasks/internal/platform/sqlstore"
	"github.com/spf13/cobra"
)

// runMigrate handles `migrate [command]`. The default command is up.
func runMigrate(cmd *cobra.Command, args []string) error {
	command := sqlstore.MigrateUp
	if len(args) == 1 {
		command = args[0]
	}

	cfg, err := loadAppConfig(configFile)
	if err != nil {
		return err
	}
	logger, err := setupAppLogger(cfg, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	// One correlation ID ties together every log line of the operation.
	migrationLogger := logger.With(
		"correlation_id", uuid.NewString(),
		"component", "migrations",
		"command", command,
	)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	start := time.Now()
	migrationLogger.Info("Starting migration operation", "backend", cfg.Storage.Backend)
	if err := migrateDatabase(ctx, cfg, db, command, migrationLogger); err != nil {
		migrationLogger.Error("Migration operation failed", "error", err)
		return err
	}
	migrationLogger.Info("Migration operation completed", "duration", time.Since(start))
	return nil
}
