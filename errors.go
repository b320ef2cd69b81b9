package cqp

import "github.com/wagiedev/cqp-go/internal/errors"

// Re-export error types from internal package

// BinaryNotFoundError indicates the cqp binary was not found.
type BinaryNotFoundError = errors.BinaryNotFoundError

// ConnectionError indicates the backend process could not be spawned.
type ConnectionError = errors.ConnectionError

// HandshakeError indicates the backend did not print a valid version banner.
type HandshakeError = errors.HandshakeError

// VersionError indicates the backend is too old.
type VersionError = errors.VersionError

// BackendError carries text the backend wrote to its error stream.
type BackendError = errors.BackendError

// KilledError indicates the backend was killed or exited.
type KilledError = errors.KilledError

// StepFailure records one failed step of a locked query.
type StepFailure = errors.StepFailure

// QueryError aggregates the failed steps of a locked query.
type QueryError = errors.QueryError

// CQPError is the base interface for all session errors.
type CQPError = errors.CQPError

// KilledBanner prefixes the message of every KilledError.
const KilledBanner = errors.KilledBanner

// Re-export sentinel errors from internal package.
var (
	// ErrTransportClosed indicates a command could not be sent to the backend.
	ErrTransportClosed = errors.ErrTransportClosed

	// ErrProcessExited indicates the backend's output closed mid-response.
	ErrProcessExited = errors.ErrProcessExited

	// ErrSessionStopped indicates the session has been stopped and cannot be reused.
	ErrSessionStopped = errors.ErrSessionStopped

	// ErrSessionAlreadyStarted indicates Start was called on a running session.
	ErrSessionAlreadyStarted = errors.ErrSessionAlreadyStarted

	// ErrInvalidMultiplier indicates a non-positive deadline multiplier.
	ErrInvalidMultiplier = errors.ErrInvalidMultiplier

	// ErrUnsupportedPlatform indicates the platform cannot host a backend process.
	ErrUnsupportedPlatform = errors.ErrUnsupportedPlatform
)
