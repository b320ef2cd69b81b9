package cqp

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/cqp-go/internal/testutil/fakecqp"
)

// fakeOptions returns options that run the fake backend.
func fakeOptions(env map[string]string, extra ...Option) []Option {
	fake := fakecqp.Options(env)

	return append([]Option{
		WithBinaryPath(fake.BinaryPath),
		WithEnv(fake.Env),
		WithLogger(slog.Default()),
		WithPollInterval(20 * time.Millisecond),
	}, extra...)
}

func TestStart(t *testing.T) {
	s, err := Start(context.Background(), fakeOptions(nil)...)
	require.NoError(t, err)

	defer func() { require.NoError(t, s.Stop()) }()

	require.True(t, s.Ok())
	require.Equal(t, StatusOK, s.Status())
	require.Equal(t, 3, s.Version().Major)
	require.Equal(t, DefaultDeadline, s.Deadline())

	out, err := s.Exec(context.Background(), "lines 2")
	require.NoError(t, err)
	require.Equal(t, "line 1\nline 2", out)
}

func TestStart_VersionTooOld(t *testing.T) {
	s, err := Start(context.Background(), fakeOptions(map[string]string{
		fakecqp.EnvBanner: "CQP version 2.2.b40",
	})...)

	require.Nil(t, s)

	versionErr, ok := errors.AsType[*VersionError](err)
	require.True(t, ok, "expected VersionError, got %v", err)
	require.Equal(t, MinimumVersion, versionErr.Minimum)
}

func TestStart_BinaryNotFound(t *testing.T) {
	_, err := Start(context.Background(), WithBinaryPath("/nonexistent/cqp"))

	_, ok := errors.AsType[*BinaryNotFoundError](err)
	require.True(t, ok, "expected BinaryNotFoundError, got %v", err)

	var cqpErr CQPError
	require.ErrorAs(t, err, &cqpErr)
}

func TestSession_ErrorHandlerAndStatus(t *testing.T) {
	var handled []string

	s, err := Start(context.Background(), fakeOptions(nil,
		WithErrorHandler(func(text string) { handled = append(handled, text) }),
	)...)
	require.NoError(t, err)

	defer s.Stop()

	_, err = s.Exec(context.Background(), "bogus")

	_, ok := errors.AsType[*BackendError](err)
	require.True(t, ok, "expected BackendError, got %v", err)
	require.Equal(t, StatusError, s.Status())
	require.Equal(t, []string{`CQP Syntax Error: unknown command "bogus"`}, handled)
	require.Equal(t, handled[0], s.ErrorMessage())
}

func TestSession_WatchdogKill(t *testing.T) {
	reg := prometheus.NewRegistry()

	s, err := Start(context.Background(), fakeOptions(nil,
		WithDeadline(100*time.Millisecond),
		WithMetricsRegisterer(reg),
	)...)
	require.NoError(t, err)

	defer s.Stop()

	_, err = s.Exec(context.Background(), "sleep 1h")

	killedErr, ok := errors.AsType[*KilledError](err)
	require.True(t, ok, "expected KilledError, got %v", err)
	require.Contains(t, killedErr.Error(), "CQP COULD NOT PROCESS YOUR REQUEST")
	require.Equal(t, StatusKilled, s.Status())
	require.False(t, s.IsRunning())

	expected := `
# HELP cqp_watchdog_kills_total Total number of CQP backends killed by the watchdog
# TYPE cqp_watchdog_kills_total counter
cqp_watchdog_kills_total 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "cqp_watchdog_kills_total"))
}

func TestSession_QueryLock(t *testing.T) {
	s, err := Start(context.Background(), fakeOptions(map[string]string{
		fakecqp.EnvLockError: "CQP Error: no lock",
	})...)
	require.NoError(t, err)

	defer s.Stop()

	out, err := s.Query(context.Background(), "echo hit")
	require.Equal(t, "hit", out)

	queryErr, ok := errors.AsType[*QueryError](err)
	require.True(t, ok)
	require.Equal(t, "CQP Error: no lock", queryErr.Message())
	require.Equal(t, "CQP Error: no lock", s.ErrorMessage())
}

func TestSession_SetMultiplier(t *testing.T) {
	s, err := Start(context.Background(), fakeOptions(nil, WithDeadline(10*time.Second), WithMultiplier(0.5))...)
	require.NoError(t, err)

	defer s.Stop()

	require.Equal(t, 5*time.Second, s.Deadline())

	deadline, err := s.SetMultiplier(3)
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, deadline)

	_, err = s.SetMultiplier(0)
	require.ErrorIs(t, err, ErrInvalidMultiplier)
}

func TestSession_StopIsFinal(t *testing.T) {
	s, err := Start(context.Background(), fakeOptions(nil)...)
	require.NoError(t, err)

	require.NoError(t, s.Stop())
	require.NoError(t, s.Stop())
	require.Equal(t, StatusStopped, s.Status())

	_, err = s.Exec(context.Background(), "echo hi")
	require.ErrorIs(t, err, ErrSessionStopped)
	require.ErrorIs(t, err, ErrTransportClosed)
}
