// Package session supervises one CQP backend process.
//
// A Session owns a child process, a watchdog that kills the child when a
// request overruns its deadline, and the protocol channel that frames
// requests. Sessions are single-use: once stopped or killed they cannot be
// restarted.
package session

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/cqp-go/internal/cli"
	"github.com/wagiedev/cqp-go/internal/config"
	"github.com/wagiedev/cqp-go/internal/errors"
	"github.com/wagiedev/cqp-go/internal/metrics"
	"github.com/wagiedev/cqp-go/internal/protocol"
	"github.com/wagiedev/cqp-go/internal/subprocess"
)

// ConfigCommand is issued once after a successful handshake.
const ConfigCommand = "set PrettyPrint off"

// maxLockToken bounds the random query-lock token, drawn from [1, maxLockToken].
const maxLockToken = 1_000_000

// Query-lock step names reported in StepFailure.Step.
const (
	StepLock   = "lock"
	StepQuery  = "query"
	StepUnlock = "unlock"
)

// Session is a supervised CQP backend.
//
// All requests are serialized; a locked query holds the request lock across
// its three steps. Status accessors never wait for an in-flight request.
type Session struct {
	log          *slog.Logger
	id           ulid.ULID
	proc         config.Process
	timer        *protocol.RequestTimer
	channel      *protocol.Channel
	watchdog     *protocol.Watchdog
	metrics      *metrics.Collector
	errorHandler func(string)

	reqMu sync.Mutex // Serializes requests

	stateMu      sync.RWMutex // Protects the fields below
	status       Status
	errorMessage string
	version      cli.Version
	started      bool
	stopped      bool

	running atomic.Bool
}

// New creates a session from options. The backend is not spawned until Start.
func New(options *config.Options) *Session {
	opts := options.WithDefaults()
	id := ulid.Make()
	log := opts.Logger.With("session_id", id.String())

	proc := opts.Process
	if proc == nil {
		proc = subprocess.NewProcess(log, opts)
	}

	s := &Session{
		log:          log.With("component", "session"),
		id:           id,
		proc:         proc,
		timer:        protocol.NewRequestTimer(opts.Multiplier),
		metrics:      metrics.New(opts.MetricsRegisterer),
		errorHandler: opts.ErrorHandler,
		status:       StatusOK,
	}

	s.channel = protocol.NewChannel(log, proc, s.timer)
	s.watchdog = protocol.NewWatchdog(log, proc, s.timer, opts.Deadline, opts.PollInterval, s.onWatchdogKill)

	return s
}

// Start spawns the backend, starts the watchdog and performs the startup
// handshake: the version banner is read and checked, then ConfigCommand is
// issued. The whole handshake is covered by the watchdog deadline.
//
// On failure the backend is killed and the session is stopped. Cancelling
// ctx after Start returns has no effect on the session.
func (s *Session) Start(ctx context.Context) error {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	s.stateMu.Lock()

	switch {
	case s.stopped:
		s.stateMu.Unlock()

		return errors.ErrSessionStopped
	case s.started:
		s.stateMu.Unlock()

		return errors.ErrSessionAlreadyStarted
	}

	s.started = true
	s.stateMu.Unlock()

	if err := s.proc.Start(ctx); err != nil {
		s.markStopped()

		return err
	}

	s.stateMu.Lock()
	if s.stopped {
		s.stateMu.Unlock()
		_ = s.proc.Kill()

		return errors.ErrSessionStopped
	}

	s.running.Store(true)
	s.stateMu.Unlock()

	s.watchdog.Start(ctx)

	version, err := s.handshake()
	if err != nil {
		s.log.Error("CQP handshake failed", "error", err)
		s.shutdown()

		return err
	}

	s.metrics.SessionStarted()
	s.log.Info("CQP session started", "pid", s.proc.Pid(), "version", version.String())

	return nil
}

func (s *Session) handshake() (cli.Version, error) {
	s.timer.Begin()
	banner, err := s.proc.ReadLine()
	s.timer.End()

	if err != nil {
		s.running.Store(false)

		var cause error = fmt.Errorf("%w: %w", errors.ErrProcessExited, err)
		if s.watchdog.Fired() {
			cause = &errors.KilledError{Err: cause}
		}

		return cli.Version{}, &errors.HandshakeError{Err: cause}
	}

	s.log.Debug("CQP banner", "banner", banner)

	version, err := cli.CheckBanner(banner)
	if err != nil {
		return cli.Version{}, err
	}

	s.stateMu.Lock()
	s.version = version
	s.stateMu.Unlock()

	if _, err := s.exec(ConfigCommand); err != nil {
		if _, ok := stderrors.AsType[*errors.BackendError](err); !ok {
			return cli.Version{}, &errors.HandshakeError{Banner: banner, Err: err}
		}

		s.log.Warn("CQP rejected configuration command", "command", ConfigCommand, "error", err)
		s.setStatus(StatusOK, "")
	}

	return version, nil
}

// Exec sends one command and returns its output.
//
// ctx is only consulted before the command is sent; a running request is
// bounded by the watchdog deadline. Errors:
//   - ErrTransportClosed (wrapped): the command could not be sent. Status is
//     left untouched.
//   - *KilledError: the backend died during the request. The partial output
//     is returned.
//   - *BackendError: the backend reported an error. The output is returned
//     and the status becomes StatusError.
func (s *Session) Exec(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	return s.exec(command)
}

// exec runs one request. The caller holds reqMu.
func (s *Session) exec(command string) (string, error) {
	if !s.running.Load() {
		return "", s.notRunningError()
	}

	start := time.Now()
	reply, err := s.channel.Execute(command)
	elapsed := time.Since(start)

	switch {
	case err != nil && stderrors.Is(err, errors.ErrProcessExited):
		s.running.Store(false)
		s.setStatus(StatusError, reply.ErrorText)
		s.reportError(reply.ErrorText)
		s.metrics.ObserveRequest(metrics.OutcomeKilled, elapsed)
		s.log.Warn("CQP backend died during request", "watchdog", s.watchdog.Fired(), "elapsed", elapsed)

		return reply.Text, &errors.KilledError{Message: reply.ErrorText, Err: err}

	case err != nil:
		s.metrics.ObserveRequest(metrics.OutcomeTransportError, elapsed)
		s.log.Debug("CQP request not sent", "error", err)

		if !s.proc.IsAlive() {
			s.running.Store(false)
		}

		if !s.running.Load() {
			return "", s.notRunningError()
		}

		return "", err

	case reply.ErrorText != "":
		s.setStatus(StatusError, reply.ErrorText)
		s.reportError(reply.ErrorText)
		s.metrics.ObserveRequest(metrics.OutcomeBackendError, elapsed)

		return reply.Text, &errors.BackendError{Message: reply.ErrorText}
	}

	s.setStatus(StatusOK, "")
	s.metrics.ObserveRequest(metrics.OutcomeOK, elapsed)

	return reply.Text, nil
}

// Query runs command inside a query lock: "set QueryLock <token>", the
// command, then "unlock <token>". Every step runs even if an earlier one
// failed. The command's output is always returned; failed steps are
// reported together in a *QueryError, whose Message also becomes the
// session's error message.
func (s *Session) Query(ctx context.Context, command string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	token := rand.IntN(maxLockToken) + 1 //nolint:gosec // the lock token only guards against accidental unlocks

	steps := []struct {
		name    string
		command string
	}{
		{name: StepLock, command: fmt.Sprintf("set QueryLock %d", token)},
		{name: StepQuery, command: command},
		{name: StepUnlock, command: fmt.Sprintf("unlock %d", token)},
	}

	var (
		result   string
		failures []*errors.StepFailure
	)

	for _, step := range steps {
		out, err := s.exec(step.command)
		if step.name == StepQuery {
			result = out
		}

		if err != nil {
			failures = append(failures, &errors.StepFailure{Step: step.name, Command: step.command, Err: err})
		}
	}

	if len(failures) == 0 {
		return result, nil
	}

	queryErr := &errors.QueryError{Failures: failures}
	s.setStatus(StatusError, queryErr.Message())

	return result, queryErr
}

// SetMultiplier scales the watchdog deadline and returns the effective
// deadline. It applies from the watchdog's next check.
func (s *Session) SetMultiplier(m float64) (time.Duration, error) {
	if m <= 0 {
		return 0, fmt.Errorf("%w: got %v", errors.ErrInvalidMultiplier, m)
	}

	s.timer.SetMultiplier(m)

	deadline := s.watchdog.Deadline()
	s.log.Debug("Deadline multiplier changed", "multiplier", m, "deadline", deadline)

	return deadline, nil
}

// Deadline returns the effective watchdog deadline.
func (s *Session) Deadline() time.Duration {
	return s.watchdog.Deadline()
}

// Multiplier returns the current deadline multiplier.
func (s *Session) Multiplier() float64 {
	return s.timer.Multiplier()
}

// Status returns the session status.
func (s *Session) Status() Status {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	switch {
	case !s.started || s.stopped:
		return StatusStopped
	case !s.running.Load():
		return StatusKilled
	}

	return s.status
}

// Ok reports whether the backend is running and the last request succeeded.
func (s *Session) Ok() bool {
	return s.Status() == StatusOK
}

// ErrorMessage returns the backend error text of the last failed request.
// If the backend was killed, the text is prefixed with the killed banner.
// A session that was never started or has been stopped carries no banner.
func (s *Session) ErrorMessage() string {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	if !s.started || s.stopped {
		return s.errorMessage
	}

	if !s.running.Load() {
		return (&errors.KilledError{Message: s.errorMessage}).Error()
	}

	return s.errorMessage
}

// Err returns the session's error state as an error: ErrSessionStopped if
// the session was never started or has been stopped, a *KilledError if the
// backend was killed, a *BackendError if the last request failed, or nil.
func (s *Session) Err() error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	if !s.started || s.stopped {
		return errors.ErrSessionStopped
	}

	if !s.running.Load() {
		return &errors.KilledError{Message: s.errorMessage}
	}

	if s.status == StatusError {
		return &errors.BackendError{Message: s.errorMessage}
	}

	return nil
}

// Version returns the backend version negotiated during the handshake.
func (s *Session) Version() cli.Version {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	return s.version
}

// ID returns the session id used in log output.
func (s *Session) ID() string {
	return s.id.String()
}

// Pid returns the backend's process id.
func (s *Session) Pid() int {
	return s.proc.Pid()
}

// IsRunning reports whether the backend is running.
func (s *Session) IsRunning() bool {
	return s.running.Load()
}

// WatchdogFired reports whether the watchdog killed the backend.
func (s *Session) WatchdogFired() bool {
	return s.watchdog.Fired()
}

// Stop stops the watchdog, then kills the backend. It does not wait for an
// in-flight request; killing the backend makes that request fail with a
// *KilledError. It's safe to call Stop multiple times.
func (s *Session) Stop() error {
	s.stateMu.Lock()
	if s.stopped {
		s.stateMu.Unlock()

		return nil
	}

	s.stopped = true
	s.running.Store(false)
	s.stateMu.Unlock()

	s.log.Info("Stopping CQP session")

	s.watchdog.Stop()

	if err := s.proc.Kill(); err != nil {
		return fmt.Errorf("stop CQP backend: %w", err)
	}

	return nil
}

// shutdown tears the session down after a failed startup.
func (s *Session) shutdown() {
	s.watchdog.Stop()

	if err := s.proc.Kill(); err != nil {
		s.log.Debug("Kill after failed startup", "error", err)
	}

	s.markStopped()
}

func (s *Session) markStopped() {
	s.stateMu.Lock()
	s.stopped = true
	s.running.Store(false)
	s.stateMu.Unlock()
}

func (s *Session) onWatchdogKill() {
	s.running.Store(false)
	s.metrics.WatchdogKilled()
}

func (s *Session) setStatus(status Status, message string) {
	s.stateMu.Lock()
	s.status = status
	s.errorMessage = message
	s.stateMu.Unlock()
}

// reportError hands backend error text to the configured handler.
func (s *Session) reportError(text string) {
	if text == "" {
		return
	}

	if s.errorHandler != nil {
		s.errorHandler(text)

		return
	}

	s.log.Info("CQP error", "message", text)
}

func (s *Session) notRunningError() error {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	switch {
	case !s.started:
		return fmt.Errorf("%w: session not started", errors.ErrTransportClosed)
	case s.stopped:
		return fmt.Errorf("%w: %w", errors.ErrTransportClosed, errors.ErrSessionStopped)
	}

	return &errors.KilledError{Message: s.errorMessage, Err: errors.ErrTransportClosed}
}
