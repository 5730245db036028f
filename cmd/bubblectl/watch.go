package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phrazzld/bubbletasks/internal/client"
	"github.com/phrazzld/bubbletasks/internal/countdown"
	"github.com/phrazzld/bubbletasks/internal/domain"
	"github.com/spf13/cobra"
)

const (
	barWidth   = 20
	titleWidth = 30
)

// watcher runs the countdown of the Active task and moves on to the next
// one when time is up.
type watcher struct {
	board   *client.Board
	out     io.Writer
	logger  *slog.Logger
	once    bool
	refresh time.Duration
	report  time.Duration
}

func (c *cli) watchCmd() *cobra.Command {
	var (
		once    bool
		follow  bool
		refresh time.Duration
		report  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Run the countdown of the Active task",
		Long: `Counts down the Active task, reporting the remaining time to the server.
When time is up the task is completed and the oldest upcoming task becomes
Active, and watching continues with it unless --once is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			api, err := c.client(cmd)
			if err != nil {
				return err
			}
			log, err := c.logger(cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			w := &watcher{
				board:   client.NewBoard(api),
				out:     cmd.OutOrStdout(),
				logger:  log,
				once:    once,
				refresh: refresh,
				report:  report,
			}

			if follow {
				stream, err := api.Subscribe(ctx)
				if err != nil {
					return err
				}
				defer func() { _ = stream.Close() }()
				go func() {
					if err := stream.Follow(ctx, w.board); err != nil {
						log.Warn("task stream closed", "error", err)
					}
				}()
			}

			return w.run(ctx)
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "stop after the current task finishes")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow changes made by other clients")
	cmd.Flags().DurationVar(&refresh, "refresh", time.Second, "display refresh interval")
	cmd.Flags().DurationVar(&report, "report", countdown.DefaultReportInterval, "how often remaining time is sent to the server")
	_ = cmd.Flags().MarkHidden("refresh")
	return cmd
}

func (w *watcher) run(ctx context.Context) error {
	if err := w.board.FetchTasks(ctx); err != nil {
		return fmt.Errorf("failed to fetch tasks: %w", err)
	}

	for {
		active := w.board.ActiveTask()
		if active == nil {
			fmt.Fprintln(w.out, "No active task.")
			return nil
		}

		finished, err := w.countdown(ctx, active)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				fmt.Fprintln(w.out)
				return nil
			}
			return err
		}
		if !finished {
			// The Active task changed under us.
			continue
		}

		next, err := w.board.CompleteAndActivateNext(ctx, active.ID)
		if err != nil {
			return fmt.Errorf("failed to complete %q: %w", active.Title, err)
		}
		fmt.Fprintf(w.out, "\nCompleted: %s\n", active.Title)
		if next == nil {
			fmt.Fprintln(w.out, "No upcoming tasks.")
			return nil
		}
		fmt.Fprintf(w.out, "Active: %s\n", next.Title)
		if w.once {
			return nil
		}
	}
}

// countdown runs the timer of task. It reports false when the task stopped
// being the Active one before time ran out.
func (w *watcher) countdown(ctx context.Context, task *domain.Task) (bool, error) {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	switched := false
	cd := countdown.New(task.EstMinutes, task.RemainingSeconds, countdown.Options{
		ReportInterval:  w.report,
		RefreshInterval: w.refresh,
		OnTick: func(remaining int) {
			if err := w.board.ReportRemaining(ctx, task.ID, remaining); err != nil {
				w.logger.Warn("failed to report remaining time",
					"task_id", task.ID, "remaining_seconds", remaining, "error", err)
			}
		},
		OnTimeUp: func() {
			fmt.Fprint(w.out, "\a")
		},
		OnRender: func(snap countdown.Snapshot) {
			w.render(task, snap)
			if current := w.board.ActiveTask(); !snap.Done && (current == nil || current.ID != task.ID) {
				switched = true
				cancel()
			}
		},
	})

	err := cd.Run(taskCtx)
	switch {
	case err == nil:
		return true, nil
	case switched && ctx.Err() == nil:
		fmt.Fprintln(w.out)
		return false, nil
	}
	return false, err
}

func (w *watcher) render(task *domain.Task, snap countdown.Snapshot) {
	fmt.Fprintf(w.out, "\r%-*s %s %s %5.1f%% %-7s",
		titleWidth, truncate(task.Title, titleWidth), snap.Display, progressBar(snap.Progress, barWidth), snap.Progress, snap.Urgency)
}
