package cqp

import (
	"context"
	"time"

	"github.com/wagiedev/cqp-go/internal/cli"
	"github.com/wagiedev/cqp-go/internal/session"
)

// Version is the backend version reported in the startup banner.
type Version = cli.Version

// MinimumVersion is the oldest backend that supports query locks.
const MinimumVersion = cli.MinimumVersion

// Status is the error status of a session.
type Status = session.Status

// Session statuses.
const (
	StatusOK      = session.StatusOK
	StatusError   = session.StatusError
	StatusKilled  = session.StatusKilled
	StatusStopped = session.StatusStopped
)

// Session is a running CQP backend.
//
// Requests are serialized: concurrent calls to Exec and Query run one after
// another. Status accessors never wait for a running request.
type Session interface {
	// Exec sends one command and returns its output. The output is returned
	// even when err is a *BackendError or *KilledError. ctx is checked
	// before the command is sent; a running command is bounded by the
	// watchdog deadline instead.
	Exec(ctx context.Context, command string) (string, error)

	// Query runs command inside a query lock. Every step runs; failures are
	// reported together in a *QueryError.
	Query(ctx context.Context, command string) (string, error)

	// Status returns the status of the last request, or StatusKilled /
	// StatusStopped once the backend is gone.
	Status() Status

	// Ok reports whether the backend is running and the last request succeeded.
	Ok() bool

	// ErrorMessage returns the error text of the last failed request,
	// prefixed with KilledBanner once the backend has been killed.
	ErrorMessage() string

	// Err returns the session's error state as an error, or nil. A stopped
	// session reports ErrSessionStopped.
	Err() error

	// SetMultiplier scales the watchdog deadline and returns the effective
	// deadline. m must be positive.
	SetMultiplier(m float64) (time.Duration, error)

	// Deadline returns the effective watchdog deadline.
	Deadline() time.Duration

	// Version returns the negotiated backend version.
	Version() Version

	// ID returns the session id used in log output.
	ID() string

	// Pid returns the backend's process id.
	Pid() int

	// IsRunning reports whether the backend is running.
	IsRunning() bool

	// Stop kills the backend. It's safe to call Stop multiple times.
	Stop() error
}

// Compile-time verification that the internal session implements Session.
var _ Session = (*session.Session)(nil)

// Start spawns a CQP backend and completes the startup handshake.
//
// Returns *BinaryNotFoundError or *ConnectionError if the backend cannot be
// spawned, *HandshakeError if it does not print a valid banner (including a
// backend killed by the watchdog while starting), and *VersionError if it is
// too old. On error no backend is left running.
func Start(ctx context.Context, opts ...Option) (Session, error) {
	s := session.New(applyOptions(opts))

	if err := s.Start(ctx); err != nil {
		return nil, err
	}

	return s, nil
}
