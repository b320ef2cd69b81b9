package config

import (
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultDeadline is the longest a single request may run before the
	// watchdog kills the backend, at multiplier 1.
	DefaultDeadline = 40 * time.Second

	// DefaultPollInterval is how often the watchdog inspects the in-flight request.
	DefaultPollInterval = 30 * time.Second

	// DefaultMultiplier scales DefaultDeadline.
	DefaultMultiplier = 1.0
)

// Options configures a CQP session.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// BinaryPath is the explicit path to the cqp binary.
	// If empty, the binary is searched in PATH and common install locations.
	BinaryPath string

	// Args is the raw option string passed to the binary, split on whitespace
	// (e.g. "-r /corpora/registry -D BNC"). Child mode (-c) is always added.
	Args string

	// Registry sets the corpus registry directory (-r).
	Registry string

	// Env provides additional environment variables for the backend process.
	Env map[string]string

	// Cwd sets the working directory for the backend process.
	Cwd string

	// Deadline is the per-request limit before the watchdog kills the backend.
	// Zero means DefaultDeadline.
	Deadline time.Duration

	// PollInterval is the watchdog tick. Zero means DefaultPollInterval.
	PollInterval time.Duration

	// Multiplier scales Deadline. Zero means DefaultMultiplier.
	Multiplier float64

	// ErrorHandler receives the text of every backend error as it is captured.
	// If nil, backend errors are logged at info level.
	ErrorHandler func(string)

	// MetricsRegisterer registers the session's Prometheus collectors.
	// If nil, metrics are collected but not registered anywhere.
	MetricsRegisterer prometheus.Registerer

	// Process allows injecting a custom backend process implementation.
	// If nil, a subprocess is spawned from BinaryPath and Args.
	Process Process
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
// A nil receiver yields the default options.
func (o *Options) WithDefaults() *Options {
	var out Options
	if o != nil {
		out = *o
	}

	if out.Logger == nil {
		out.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if out.Deadline <= 0 {
		out.Deadline = DefaultDeadline
	}

	if out.PollInterval <= 0 {
		out.PollInterval = DefaultPollInterval
	}

	if out.Multiplier <= 0 {
		out.Multiplier = DefaultMultiplier
	}

	return &out
}
