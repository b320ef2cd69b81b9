package cqp

import (
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestApplyOptions(t *testing.T) {
	logger := slog.Default()
	reg := prometheus.NewRegistry()
	handler := func(string) {}

	opts := applyOptions([]Option{
		WithLogger(logger),
		WithBinaryPath("/opt/cwb/bin/cqp"),
		WithArgs("-D BNC"),
		WithRegistry("/corpora/registry"),
		WithEnv(map[string]string{"LC_ALL": "C.UTF-8"}),
		WithCwd("/tmp"),
		WithDeadline(time.Minute),
		WithPollInterval(time.Second),
		WithMultiplier(2),
		WithErrorHandler(handler),
		WithMetricsRegisterer(reg),
	})

	require.Same(t, logger, opts.Logger)
	require.Equal(t, "/opt/cwb/bin/cqp", opts.BinaryPath)
	require.Equal(t, "-D BNC", opts.Args)
	require.Equal(t, "/corpora/registry", opts.Registry)
	require.Equal(t, map[string]string{"LC_ALL": "C.UTF-8"}, opts.Env)
	require.Equal(t, "/tmp", opts.Cwd)
	require.Equal(t, time.Minute, opts.Deadline)
	require.Equal(t, time.Second, opts.PollInterval)
	require.InDelta(t, 2.0, opts.Multiplier, 0)
	require.NotNil(t, opts.ErrorHandler)
	require.Equal(t, reg, opts.MetricsRegisterer)
	require.Nil(t, opts.Process)
}

func TestApplyOptions_Empty(t *testing.T) {
	opts := applyOptions(nil)

	require.Nil(t, opts.Logger)
	require.Zero(t, opts.Deadline)
}
