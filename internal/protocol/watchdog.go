package protocol

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

// Killer is the process a Watchdog is bound to.
type Killer interface {
	Kill() error
	Pid() int
}

// Watchdog kills its backend when a single request overruns the deadline.
//
// A Watchdog is bound to one process for its whole life and runs at most
// one goroutine. It never touches session status; it only kills the process
// and reports the kill through the onKill callback.
type Watchdog struct {
	log      *slog.Logger
	target   Killer
	timer    *RequestTimer
	deadline time.Duration
	interval time.Duration
	onKill   func()

	mu      sync.Mutex
	cancel  context.CancelFunc
	eg      *errgroup.Group
	started bool

	fired atomic.Bool
}

// NewWatchdog creates a watchdog for target. The effective deadline is
// deadline scaled by the timer's multiplier; it is checked every interval.
// onKill may be nil.
func NewWatchdog(
	log *slog.Logger,
	target Killer,
	timer *RequestTimer,
	deadline time.Duration,
	interval time.Duration,
	onKill func(),
) *Watchdog {
	return &Watchdog{
		log:      log.With("component", "watchdog"),
		target:   target,
		timer:    timer,
		deadline: deadline,
		interval: interval,
		onKill:   onKill,
	}
}

// Start launches the watchdog loop. Cancelling ctx does not stop it; only
// Stop or a kill does. Calling Start more than once has no effect.
func (w *Watchdog) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.started {
		return
	}

	w.started = true

	ctx, w.cancel = context.WithCancel(context.WithoutCancel(ctx))
	w.eg = &errgroup.Group{}

	w.eg.Go(func() error {
		w.run(ctx)

		return nil
	})

	w.log.Debug("Watchdog started",
		"deadline", w.Deadline(),
		"interval", w.interval,
	)
}

// Stop ends the loop and waits for it to exit. It's safe to call Stop
// multiple times, before Start, or after the watchdog has fired.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	cancel, eg := w.cancel, w.eg
	w.started = true // a stopped watchdog cannot be restarted
	w.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	_ = eg.Wait()
}

// Deadline returns the effective deadline.
func (w *Watchdog) Deadline() time.Duration {
	return w.timer.Scale(w.deadline)
}

// Fired reports whether the watchdog killed its process.
func (w *Watchdog) Fired() bool {
	return w.fired.Load()
}

func (w *Watchdog) run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Watchdog stopped")

			return
		case <-ticker.C:
			if w.check() {
				return
			}
		}
	}
}

// check kills the target if the in-flight request is overdue and reports
// whether it did. Fired and onKill are observable before the kill lands.
func (w *Watchdog) check() bool {
	start, ok := w.timer.Started()
	if !ok {
		return false
	}

	elapsed := time.Since(start)
	deadline := w.Deadline()

	if elapsed <= deadline {
		return false
	}

	pid := w.target.Pid()

	// The overdue request may have finished since it was read.
	if current, ok := w.timer.Started(); !ok || !current.Equal(start) {
		w.log.Debug("Overdue request finished before kill", "pid", pid, "elapsed", elapsed)

		return false
	}

	w.log.Warn("Watchdog identified blocking backend process",
		"pid", pid,
		"elapsed", elapsed,
		"deadline", deadline,
	)

	w.fired.Store(true)

	if w.onKill != nil {
		w.onKill()
	}

	if err := w.target.Kill(); err != nil {
		w.log.Error("Failed to kill blocking backend process", "pid", pid, "error", err)
	}

	w.log.Info("Backend process killed", "pid", pid)

	return true
}
