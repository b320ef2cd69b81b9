// Package config provides configuration types for CQP sessions.
package config

import "context"

// Process defines the contract for a supervised CQP backend.
// Implement this to provide custom processes for testing or alternative
// launch methods (e.g. running the backend inside a container).
//
// The default implementation is subprocess.Process which spawns a child
// process with three pipes.
type Process interface {
	// Start launches the backend and connects its streams.
	Start(ctx context.Context) error

	// WriteLine writes one line to the backend's input, appending a newline.
	// It returns an error wrapping ErrTransportClosed when the input is gone.
	WriteLine(line string) error

	// ReadLine blocks until one line of output is available, without its
	// line terminator. It returns io.EOF once the output stream closes.
	ReadLine() (string, error)

	// StderrReady reports, without blocking, whether error output is pending.
	StderrReady() (bool, error)

	// ReadStderr reads at most max bytes of pending error output.
	ReadStderr(max int) (string, error)

	// Kill forcibly terminates the backend. It's safe to call Kill multiple times.
	Kill() error

	// IsAlive reports whether the backend is still running.
	IsAlive() bool

	// Pid returns the backend's process id, or 0 if it is not a local process.
	Pid() int
}
