package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/phrazzld/bubbletasks/internal/config"
	"github.com/phrazzld/bubbletasks/internal/platform/logger"
)

// setupAppLogger configures the process-wide logger from the server config.
func setupAppLogger(cfg *config.Config, out io.Writer) (*slog.Logger, error) {
	l, err := logger.Setup(logger.LoggerConfig{
		Level:  cfg.Server.LogLevel,
		Output: out,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}
	return l, nil
}
