// Package scheduler runs the background expiry sweep that completes an Active
// task whose timer ran out while no client was watching.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/phrazzld/bubbletasks/internal/service"
	rcron "github.com/robfig/cron/v3"
)

// DefaultSchedule runs the sweep every five seconds.
const DefaultSchedule = "@every 5s"

// stopTimeout bounds how long Stop waits for a running sweep.
const stopTimeout = 5 * time.Second

// Expirer completes the Active task once its timer has run out.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (*service.FinishResult, error)
}

// Sweeper calls Expirer.ExpireOverdue on a cron schedule.
type Sweeper struct {
	expirer  Expirer
	schedule string
	logger   *slog.Logger

	mu     sync.Mutex
	cron   *rcron.Cron
	cancel context.CancelFunc
}

// NewSweeper validates schedule and returns a stopped Sweeper. Schedules use
// the six-field cron syntax (with seconds) or a descriptor such as "@every 5s".
func NewSweeper(expirer Expirer, schedule string, logger *slog.Logger) (*Sweeper, error) {
	if expirer == nil {
		return nil, errors.New("expirer cannot be nil")
	}
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := parser().Parse(schedule); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", schedule, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		expirer:  expirer,
		schedule: schedule,
		logger:   logger.With("component", "expiry_sweeper"),
	}, nil
}

func parser() rcron.Parser {
	return rcron.NewParser(rcron.Second | rcron.Minute | rcron.Hour | rcron.Dom | rcron.Month | rcron.Dow | rcron.Descriptor)
}

// Start schedules the sweep. The sweep runs with a context derived from ctx;
// cancelling ctx stops the sweeper.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return errors.New("sweeper already started")
	}

	runCtx, cancel := context.WithCancel(ctx)
	cronLogger := cronLogger{s.logger}
	c := rcron.New(
		rcron.WithParser(parser()),
		rcron.WithLogger(cronLogger),
		rcron.WithChain(rcron.Recover(cronLogger), rcron.SkipIfStillRunning(cronLogger)),
	)
	if _, err := c.AddFunc(s.schedule, func() { s.Sweep(runCtx) }); err != nil {
		cancel()
		return fmt.Errorf("failed to register sweep: %w", err)
	}

	s.cron = c
	s.cancel = cancel
	c.Start()
	s.logger.Info("expiry sweeper started", "schedule", s.schedule)

	go func() {
		<-runCtx.Done()
		s.Stop()
	}()
	return nil
}

// Stop halts the schedule and waits for a running sweep to finish.
// It is safe to call more than once.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()

	select {
	case <-c.Stop().Done():
	case <-time.After(stopTimeout):
		s.logger.Warn("timed out waiting for running sweep")
	}
	s.logger.Info("expiry sweeper stopped")
}

// Sweep runs one expiry check.
func (s *Sweeper) Sweep(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	result, err := s.expirer.ExpireOverdue(ctx)
	if err != nil {
		s.logger.Error("expiry sweep failed", "error", err)
		return
	}
	if result == nil {
		return
	}

	attrs := []any{"task_id", result.Task.ID}
	if result.Activated != nil {
		attrs = append(attrs, "activated_task_id", result.Activated.ID)
	}
	s.logger.Info("completed expired task", attrs...)
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append([]interface{}{"error", err}, keysAndValues...)...)
}
