package protocol

import (
	"math"
	"sync/atomic"
	"time"
)

// RequestTimer is the timing state shared by the foreground request path
// and the watchdog. All methods are safe for concurrent use.
type RequestTimer struct {
	start      atomic.Pointer[time.Time]
	multiplier atomic.Uint64 // float64 bits
}

// NewRequestTimer creates a timer with no request in flight.
func NewRequestTimer(multiplier float64) *RequestTimer {
	t := &RequestTimer{}
	t.SetMultiplier(multiplier)

	return t
}

// Begin marks a request as in flight from now.
func (t *RequestTimer) Begin() {
	now := time.Now()
	t.start.Store(&now)
}

// End marks that no request is in flight.
func (t *RequestTimer) End() {
	t.start.Store(nil)
}

// Started returns the start time of the in-flight request, if any.
func (t *RequestTimer) Started() (time.Time, bool) {
	start := t.start.Load()
	if start == nil {
		return time.Time{}, false
	}

	return *start, true
}

// Multiplier returns the current deadline multiplier.
func (t *RequestTimer) Multiplier() float64 {
	return math.Float64frombits(t.multiplier.Load())
}

// SetMultiplier replaces the deadline multiplier.
func (t *RequestTimer) SetMultiplier(m float64) {
	t.multiplier.Store(math.Float64bits(m))
}

// Scale applies the multiplier to a base deadline.
func (t *RequestTimer) Scale(deadline time.Duration) time.Duration {
	return time.Duration(float64(deadline) * t.Multiplier())
}
