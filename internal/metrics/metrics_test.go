package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCollector_ObserveRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveRequest(OutcomeOK, 10*time.Millisecond)
	c.ObserveRequest(OutcomeOK, 20*time.Millisecond)
	c.ObserveRequest(OutcomeBackendError, time.Millisecond)

	require.InDelta(t, 2, testutil.ToFloat64(c.RequestsTotal.WithLabelValues(OutcomeOK)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(c.RequestsTotal.WithLabelValues(OutcomeBackendError)), 0)

	count, err := testutil.GatherAndCount(reg, "cqp_requests_total", "cqp_request_duration_seconds")
	require.NoError(t, err)
	require.Equal(t, 3, count)
}

func TestCollector_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	first := New(reg)
	second := New(reg)

	first.WatchdogKilled()
	second.WatchdogKilled()
	second.SessionStarted()

	require.InDelta(t, 2, testutil.ToFloat64(first.WatchdogKills), 0)
	require.InDelta(t, 1, testutil.ToFloat64(first.SessionsStarted), 0)
}

func TestCollector_Unregistered(t *testing.T) {
	c := New(nil)
	c.SessionStarted()

	require.InDelta(t, 1, testutil.ToFloat64(c.SessionsStarted), 0)
}

func TestCollector_NilIsNoop(t *testing.T) {
	var c *Collector

	require.NotPanics(t, func() {
		c.ObserveRequest(OutcomeKilled, time.Second)
		c.WatchdogKilled()
		c.SessionStarted()
	})
}
