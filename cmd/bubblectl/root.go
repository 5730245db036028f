package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/phrazzld/bubbletasks/internal/client"
	"github.com/phrazzld/bubbletasks/internal/platform/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config keys, also read from BUBBLETASKS_<KEY>.
const (
	keyAPIURL   = "api_url"
	keyTimeout  = "timeout"
	keyLogLevel = "log_level"
)

// cli carries the settings shared by every command.
type cli struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	c := &cli{v: viper.New()}
	c.v.SetEnvPrefix("BUBBLETASKS")
	c.v.AutomaticEnv()
	c.v.SetDefault(keyAPIURL, client.DefaultBaseURL)
	c.v.SetDefault(keyTimeout, 15*time.Second)
	c.v.SetDefault(keyLogLevel, "warn")

	root := &cobra.Command{
		Use:           "bubblectl",
		Short:         "Terminal client for BubbleTasks",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("api-url", client.DefaultBaseURL, "API root URL (env BUBBLETASKS_API_URL)")
	flags.Duration("timeout", 15*time.Second, "per-request timeout")
	flags.String("log-level", "warn", "diagnostic log level written to stderr")
	_ = c.v.BindPFlag(keyAPIURL, flags.Lookup("api-url"))
	_ = c.v.BindPFlag(keyTimeout, flags.Lookup("timeout"))
	_ = c.v.BindPFlag(keyLogLevel, flags.Lookup("log-level"))

	root.AddCommand(
		c.listCmd(),
		c.addCmd(),
		c.updateCmd(),
		c.deleteCmd(),
		c.finishCmd("done", "Complete a task and activate the next one", finishComplete),
		c.finishCmd("cancel", "Cancel a task and activate the next one", finishCancel),
		c.uploadCmd(),
		c.healthCmd(),
		c.watchCmd(),
	)
	return root
}

// client builds an API client from the flags and environment.
func (c *cli) client(cmd *cobra.Command) (*client.Client, error) {
	log, err := c.logger(cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	api, err := client.New(
		c.v.GetString(keyAPIURL),
		client.WithHTTPClient(&http.Client{Timeout: c.v.GetDuration(keyTimeout)}),
		client.WithLogger(log),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create API client: %w", err)
	}
	return api, nil
}

func (c *cli) logger(out io.Writer) (*slog.Logger, error) {
	level, err := logger.ParseLevel(c.v.GetString(keyLogLevel))
	if err != nil {
		return nil, err
	}
	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level})), nil
}
