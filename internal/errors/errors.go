package errors

import (
	"errors"
	"fmt"
	"strings"
)

// KilledBanner prefixes the message of every KilledError.
const KilledBanner = "**** CQP KILLED ***\nCQP COULD NOT PROCESS YOUR REQUEST\n"

// CQPError is the base interface for all session errors.
type CQPError interface {
	error
	IsCQPError() bool
}

// Compile-time verification that all error types implement CQPError.
var (
	_ CQPError = (*BinaryNotFoundError)(nil)
	_ CQPError = (*ConnectionError)(nil)
	_ CQPError = (*HandshakeError)(nil)
	_ CQPError = (*VersionError)(nil)
	_ CQPError = (*BackendError)(nil)
	_ CQPError = (*KilledError)(nil)
	_ CQPError = (*QueryError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrTransportClosed indicates a request could not be written to the backend.
	// The request produced no response; session status is left untouched.
	ErrTransportClosed = errors.New("transport closed")

	// ErrProcessExited indicates the backend's output stream closed before
	// the end-of-response marker was seen.
	ErrProcessExited = errors.New("backend process exited")

	// ErrSessionStopped indicates the session was stopped and cannot be reused.
	ErrSessionStopped = errors.New("session stopped: sessions are single-use, start a new one")

	// ErrSessionAlreadyStarted indicates Start was called twice on one session.
	ErrSessionAlreadyStarted = errors.New("session already started")

	// ErrInvalidMultiplier indicates a non-positive deadline multiplier.
	ErrInvalidMultiplier = errors.New("deadline multiplier must be positive")

	// ErrUnsupportedPlatform indicates the platform lacks the pipe polling
	// primitives the session relies on.
	ErrUnsupportedPlatform = errors.New("platform does not support CQP child processes")
)

// BinaryNotFoundError indicates the CQP binary was not found.
type BinaryNotFoundError struct {
	SearchedPaths []string
}

func (e *BinaryNotFoundError) Error() string {
	return fmt.Sprintf("cqp binary not found in: %v", e.SearchedPaths)
}

// IsCQPError implements CQPError.
func (e *BinaryNotFoundError) IsCQPError() bool { return true }

// ConnectionError indicates the backend process could not be spawned.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to start CQP backend: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsCQPError implements CQPError.
func (e *ConnectionError) IsCQPError() bool { return true }

// HandshakeError indicates the first line emitted by the backend was not a
// recognizable version banner.
type HandshakeError struct {
	Banner string
	Err    error
}

func (e *HandshakeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("CQP backend startup failed: %v", e.Err)
	}

	return fmt.Sprintf("CQP backend startup failed: unrecognized banner %q", e.Banner)
}

func (e *HandshakeError) Unwrap() error {
	return e.Err
}

// IsCQPError implements CQPError.
func (e *HandshakeError) IsCQPError() bool { return true }

// VersionError indicates the backend is older than the minimum version that
// supports query locks.
type VersionError struct {
	Version string
	Minimum string
}

func (e *VersionError) Error() string {
	return fmt.Sprintf("CQP version too old: %s (need %s or newer)", e.Version, e.Minimum)
}

// IsCQPError implements CQPError.
func (e *VersionError) IsCQPError() bool { return true }

// BackendError carries text the backend wrote to its error stream.
// The backend keeps running after a BackendError.
type BackendError struct {
	Message string
}

func (e *BackendError) Error() string {
	return e.Message
}

// IsCQPError implements CQPError.
func (e *BackendError) IsCQPError() bool { return true }

// KilledError reports that the backend is gone, either killed by the
// watchdog or exited on its own. Message holds any backend error text
// captured before the process died.
type KilledError struct {
	Message string
	Err     error
}

func (e *KilledError) Error() string {
	return strings.TrimRight(KilledBanner+e.Message, "\n")
}

func (e *KilledError) Unwrap() error {
	return e.Err
}

// IsCQPError implements CQPError.
func (e *KilledError) IsCQPError() bool { return true }

// StepFailure records one failed step of a query-lock bracket.
type StepFailure struct {
	// Step is one of "lock", "query" or "unlock".
	Step    string
	Command string
	Err     error
}

func (f *StepFailure) Error() string {
	return fmt.Sprintf("%s (%s): %v", f.Step, f.Command, f.Err)
}

func (f *StepFailure) Unwrap() error {
	return f.Err
}

// QueryError aggregates every failure that occurred during one locked
// query, in step order.
type QueryError struct {
	Failures []*StepFailure
}

func (e *QueryError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, f.Error())
	}

	return "locked query failed: " + strings.Join(parts, "; ")
}

// Unwrap exposes the failures so errors.Is and errors.As see each step's cause.
func (e *QueryError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f)
	}

	return errs
}

// Message joins the per-step error texts with newlines.
func (e *QueryError) Message() string {
	texts := make([]string, 0, len(e.Failures))

	for _, f := range e.Failures {
		if backendErr, ok := errors.AsType[*BackendError](f.Err); ok {
			texts = append(texts, backendErr.Message)

			continue
		}

		if killedErr, ok := errors.AsType[*KilledError](f.Err); ok {
			if killedErr.Message != "" {
				texts = append(texts, killedErr.Message)
			}

			continue
		}

		texts = append(texts, f.Err.Error())
	}

	return strings.Join(texts, "\n")
}

// IsCQPError implements CQPError.
func (e *QueryError) IsCQPError() bool { return true }
