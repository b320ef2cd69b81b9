// Package metrics exposes Prometheus collectors for CQP sessions.
package metrics

import (
	stderrors "errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Request outcomes used as the "outcome" label of RequestsTotal.
const (
	OutcomeOK             = "ok"
	OutcomeBackendError   = "backend_error"
	OutcomeTransportError = "transport_error"
	OutcomeKilled         = "killed"
)

// Collector holds the session metrics. A nil *Collector is valid and
// records nothing.
type Collector struct {
	// RequestsTotal counts requests by outcome.
	RequestsTotal *prometheus.CounterVec
	// RequestDuration is the latency of requests in seconds.
	RequestDuration prometheus.Histogram
	// WatchdogKills counts backends killed for overrunning the deadline.
	WatchdogKills prometheus.Counter
	// SessionsStarted counts sessions that completed the startup handshake.
	SessionsStarted prometheus.Counter
}

// New creates the collectors and registers them on reg. Collectors already
// registered by another session are shared. A nil reg leaves the
// collectors unregistered.
func New(reg prometheus.Registerer) *Collector {
	c := &Collector{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cqp_requests_total",
				Help: "Total number of CQP requests by outcome",
			},
			[]string{"outcome"},
		),
		RequestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cqp_request_duration_seconds",
				Help:    "CQP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		WatchdogKills: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cqp_watchdog_kills_total",
				Help: "Total number of CQP backends killed by the watchdog",
			},
		),
		SessionsStarted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "cqp_sessions_started_total",
				Help: "Total number of CQP sessions started",
			},
		),
	}

	if reg == nil {
		return c
	}

	c.RequestsTotal = register(reg, c.RequestsTotal)
	c.RequestDuration = register(reg, c.RequestDuration)
	c.WatchdogKills = register(reg, c.WatchdogKills)
	c.SessionsStarted = register(reg, c.SessionsStarted)

	return c
}

// register registers col, or returns the equal collector already registered.
func register[T prometheus.Collector](reg prometheus.Registerer, col T) T {
	if err := reg.Register(col); err != nil {
		if are, ok := stderrors.AsType[prometheus.AlreadyRegisteredError](err); ok {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing
			}
		}
	}

	return col
}

// ObserveRequest records one finished request.
func (c *Collector) ObserveRequest(outcome string, elapsed time.Duration) {
	if c == nil {
		return
	}

	c.RequestsTotal.WithLabelValues(outcome).Inc()
	c.RequestDuration.Observe(elapsed.Seconds())
}

// WatchdogKilled records a watchdog kill.
func (c *Collector) WatchdogKilled() {
	if c == nil {
		return
	}

	c.WatchdogKills.Inc()
}

// SessionStarted records a successful startup.
func (c *Collector) SessionStarted() {
	if c == nil {
		return
	}

	c.SessionsStarted.Inc()
}
