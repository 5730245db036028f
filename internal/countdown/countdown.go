// Package countdown runs a task timer against the wall clock.
//
// The remaining time is derived from an end timestamp rather than by
// decrementing a counter, so a late or skipped refresh never makes the
// timer drift.
package countdown

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"
)

// Urgency classifies how close a countdown is to running out.
type Urgency int

// Urgency levels
const (
	Normal Urgency = iota
	Warning
	Urgent
)

// Urgency thresholds
const (
	UrgentThreshold  = 60 * time.Second
	WarningThreshold = 5 * time.Minute
)

// DefaultReportInterval is how often OnTick is called while running.
const DefaultReportInterval = 5 * time.Second

func (u Urgency) String() string {
	switch u {
	case Warning:
		return "warning"
	case Urgent:
		return "urgent"
	}
	return "normal"
}

// UrgencyFor returns the urgency of a remaining duration.
func UrgencyFor(remaining time.Duration) Urgency {
	switch {
	case remaining <= UrgentThreshold:
		return Urgent
	case remaining <= WarningThreshold:
		return Warning
	}
	return Normal
}

// Format renders whole seconds as MM:SS. Minutes are not wrapped at an hour.
func Format(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Options configures a Countdown. All callbacks are optional and are
// invoked without the countdown's lock held.
type Options struct {
	// ReportInterval controls OnTick. Zero means DefaultReportInterval.
	ReportInterval time.Duration

	// RefreshInterval is how often Run re-evaluates. Zero means one second.
	RefreshInterval time.Duration

	// OnTick receives the remaining whole seconds each time they reach a
	// multiple of ReportInterval, and after Reset.
	OnTick func(remainingSeconds int)

	// OnTimeUp is called once when the countdown reaches zero.
	OnTimeUp func()

	// OnRender is called by Run on every refresh.
	OnRender func(Snapshot)

	// Now replaces time.Now.
	Now func() time.Time
}

// Snapshot is the displayable state at one instant.
type Snapshot struct {
	Remaining        time.Duration
	RemainingSeconds int
	Total            time.Duration
	Urgency          Urgency
	Display          string
	Progress         float64 // percent elapsed, 0..100
	Running          bool
	Done             bool
}

// Countdown is a pausable timer for one task. It is safe for concurrent use.
type Countdown struct {
	mu sync.Mutex

	total     time.Duration
	remaining time.Duration // authoritative while stopped
	end       time.Time     // authoritative while running
	running   bool
	done      bool

	lastReported int
	opts         Options
}

// New creates a stopped countdown for a task estimated at estMinutes.
// remainingSeconds is the last known value; nil means the full estimate.
func New(estMinutes int, remainingSeconds *int, opts Options) *Countdown {
	if opts.ReportInterval <= 0 {
		opts.ReportInterval = DefaultReportInterval
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	total := time.Duration(estMinutes) * time.Minute
	if total < time.Second {
		total = time.Second
	}

	remaining := time.Duration(estMinutes) * time.Minute
	if remainingSeconds != nil {
		remaining = time.Duration(*remainingSeconds) * time.Second
	}
	if remaining < 0 {
		remaining = 0
	}

	return &Countdown{
		total:        total,
		remaining:    remaining,
		lastReported: -1,
		opts:         opts,
	}
}

// Start sets the end time to now plus the remaining time and begins
// counting. It is a no-op when already running or finished.
func (c *Countdown) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running || c.done {
		return
	}
	c.end = c.opts.Now().Add(c.remaining)
	c.running = true
}

// Pause freezes the remaining time.
func (c *Countdown) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return
	}
	c.remaining = c.remainingAt(c.opts.Now())
	c.running = false
}

// Resume continues a paused countdown from where it stopped.
func (c *Countdown) Resume() {
	c.Start()
}

// Toggle pauses a running countdown and resumes a stopped one.
func (c *Countdown) Toggle() {
	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	if running {
		c.Pause()
		return
	}
	c.Resume()
}

// Reset stops the countdown, restores the full duration and reports it
// through OnTick.
func (c *Countdown) Reset() {
	c.mu.Lock()
	c.running = false
	c.done = false
	c.remaining = c.total
	c.lastReported = -1
	full := wholeSeconds(c.total)
	onTick := c.opts.OnTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(full)
	}
}

// Remaining returns the time left, never negative.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current(c.opts.Now())
}

// Snapshot returns the current displayable state without side effects.
func (c *Countdown) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotAt(c.opts.Now())
}

// Tick evaluates the countdown at the current time: it fires OnTick when a
// report is due and OnTimeUp when time has run out. Run calls it on every
// refresh; callers driving their own loop may call it directly.
func (c *Countdown) Tick() Snapshot {
	c.mu.Lock()
	now := c.opts.Now()
	snap := c.snapshotAt(now)

	var report, timeUp bool
	if c.running {
		secs := snap.RemainingSeconds
		interval := wholeSeconds(c.opts.ReportInterval)
		if secs != c.lastReported && interval > 0 && secs%interval == 0 {
			c.lastReported = secs
			report = true
		}
		if snap.Remaining == 0 {
			c.running = false
			c.done = true
			c.remaining = 0
			timeUp = true
			snap.Running = false
			snap.Done = true
		}
	}
	onTick, onTimeUp := c.opts.OnTick, c.opts.OnTimeUp
	c.mu.Unlock()

	if report && onTick != nil {
		onTick(snap.RemainingSeconds)
	}
	if timeUp && onTimeUp != nil {
		onTimeUp()
	}
	return snap
}

// Run refreshes the countdown until it finishes or ctx is cancelled.
// It starts the countdown if it is not already running.
func (c *Countdown) Run(ctx context.Context) error {
	c.Start()

	ticker := time.NewTicker(c.opts.RefreshInterval)
	defer ticker.Stop()

	for {
		snap := c.Tick()
		if c.opts.OnRender != nil {
			c.opts.OnRender(snap)
		}
		if snap.Done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Countdown) current(now time.Time) time.Duration {
	if c.running {
		return c.remainingAt(now)
	}
	return c.remaining
}

func (c *Countdown) remainingAt(now time.Time) time.Duration {
	left := c.end.Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

func (c *Countdown) snapshotAt(now time.Time) Snapshot {
	remaining := c.current(now)
	secs := wholeSeconds(remaining)
	return Snapshot{
		Remaining:        remaining,
		RemainingSeconds: secs,
		Total:            c.total,
		Urgency:          UrgencyFor(time.Duration(secs) * time.Second),
		Display:          Format(secs),
		Progress:         Progress(c.total, time.Duration(secs)*time.Second),
		Running:          c.running,
		Done:             c.done,
	}
}

// Progress returns the elapsed share of total as a percentage in [0, 100].
func Progress(total, remaining time.Duration) float64 {
	if total < time.Second {
		total = time.Second
	}
	p := float64(total-remaining) / float64(total) * 100
	return math.Min(math.Max(p, 0), 100)
}

// wholeSeconds rounds up: a fresh countdown shows its full length and
// 00:00 appears only at the end.
func wholeSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int((d + time.Second - 1) / time.Second)
}
