package cqp

import (
	"io"
	"log/slog"
)

// NopLogger returns a logger that discards all output.
// Sessions use it when no logger is configured.
func NopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
