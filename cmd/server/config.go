package main

import (
	"fmt"
	"log/slog"

	"github.com/phrazzld/bubbletasks/internal/config"
)

// loadAppConfig loads the configuration from the config file and environment.
func loadAppConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// logConfig reports the effective configuration without secrets.
func logConfig(cfg *config.Config, logger *slog.Logger) {
	logger.Info("Server configuration loaded",
		"addr", cfg.Server.Addr(),
		"log_level", cfg.Server.LogLevel,
		"storage_backend", cfg.Storage.Backend,
		"upload_dir", cfg.Upload.Dir,
		"auto_complete", cfg.Timer.AutoComplete)

	if cfg.Database.URL != "" {
		logger.Debug("Database configuration", "url_present", true)
	}
}
