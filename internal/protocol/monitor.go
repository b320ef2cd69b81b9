package protocol

import (
	"log/slog"
	"strings"
)

// stderrChunkSize bounds how much error output one check consumes.
const stderrChunkSize = 16384

// StderrSource is the part of a backend process the ErrorMonitor needs.
type StderrSource interface {
	StderrReady() (bool, error)
	ReadStderr(max int) (string, error)
}

// ErrorMonitor detects error output from the backend without blocking.
type ErrorMonitor struct {
	log    *slog.Logger
	source StderrSource
}

// NewErrorMonitor creates a monitor for source's error stream.
func NewErrorMonitor(log *slog.Logger, source StderrSource) *ErrorMonitor {
	return &ErrorMonitor{
		log:    log.With("component", "error_monitor"),
		source: source,
	}
}

// Check returns pending error text, trailing whitespace trimmed, and
// whether there was any. Polling failures count as "no error".
func (m *ErrorMonitor) Check() (string, bool) {
	ready, err := m.source.StderrReady()
	if err != nil {
		m.log.Debug("Error stream poll failed", "error", err)

		return "", false
	}

	if !ready {
		return "", false
	}

	text, err := m.source.ReadStderr(stderrChunkSize)
	if err != nil {
		m.log.Debug("Error stream read failed", "error", err)
	}

	text = strings.TrimRight(text, " \t\r\n")
	if text == "" {
		return "", false
	}

	m.log.Debug("Backend reported error", "message", text)

	return text, true
}
