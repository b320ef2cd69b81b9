package cqp

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/cqp-go/internal/config"
)

// Options configures a session. Most callers use the With* functions instead.
type Options = config.Options

// Process is the contract for a supervised backend, see WithProcess.
type Process = config.Process

// Defaults applied when the corresponding option is unset.
const (
	DefaultDeadline     = config.DefaultDeadline
	DefaultPollInterval = config.DefaultPollInterval
	DefaultMultiplier   = config.DefaultMultiplier
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithBinaryPath sets the path to the cqp binary.
// If not set, cqp is searched in PATH and common install locations.
func WithBinaryPath(path string) Option {
	return func(o *Options) {
		o.BinaryPath = path
	}
}

// WithArgs sets the option string passed to cqp, split on whitespace
// (e.g. "-D BNC"). Child mode (-c) is always added.
func WithArgs(args string) Option {
	return func(o *Options) {
		o.Args = args
	}
}

// WithRegistry sets the corpus registry directory.
func WithRegistry(dir string) Option {
	return func(o *Options) {
		o.Registry = dir
	}
}

// WithEnv adds environment variables for the backend process.
func WithEnv(env map[string]string) Option {
	return func(o *Options) {
		o.Env = env
	}
}

// WithCwd sets the working directory for the backend process.
func WithCwd(cwd string) Option {
	return func(o *Options) {
		o.Cwd = cwd
	}
}

// ===== Watchdog =====

// WithDeadline sets how long a single request may run before the backend
// is killed, at multiplier 1. Defaults to DefaultDeadline.
func WithDeadline(deadline time.Duration) Option {
	return func(o *Options) {
		o.Deadline = deadline
	}
}

// WithPollInterval sets how often the watchdog checks the running request.
// Defaults to DefaultPollInterval.
func WithPollInterval(interval time.Duration) Option {
	return func(o *Options) {
		o.PollInterval = interval
	}
}

// WithMultiplier sets the initial deadline multiplier.
// It can be changed later with Session.SetMultiplier.
func WithMultiplier(m float64) Option {
	return func(o *Options) {
		o.Multiplier = m
	}
}

// ===== Advanced =====

// WithErrorHandler sets a callback that receives the text of every backend
// error as it is captured. Without one, backend errors are logged.
func WithErrorHandler(handler func(string)) Option {
	return func(o *Options) {
		o.ErrorHandler = handler
	}
}

// WithMetricsRegisterer registers the session's Prometheus collectors on reg.
// Sessions sharing a registerer share their collectors.
func WithMetricsRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.MetricsRegisterer = reg
	}
}

// WithProcess injects a custom backend process instead of spawning the cqp
// binary. This is primarily useful for testing, or for running the backend
// somewhere other than a local child process.
func WithProcess(process Process) Option {
	return func(o *Options) {
		o.Process = process
	}
}
