package prover

import (
	"sync"
	"time"

	"github.com/certen/rollup-submitter/internal/domainerr"
	"github.com/certen/rollup-submitter/internal/metrics"
)

// circuitState mirrors prover_http.rs's CircuitState: Closed lets
// traffic through, Open short-circuits every call until the cool-off
// elapses, HalfOpen lets calls through as probes (it does not limit
// them to one) until a success closes or a failure reopens it.
type circuitState int

const (
	circuitClosed circuitState = iota
	circuitOpen
	circuitHalfOpen
)

// breaker is a small mutex-guarded circuit breaker. No library in the
// example pack provides this (see DESIGN.md), so it is hand-rolled
// here in the same shape as the original's HttpProofProvider fields.
type breaker struct {
	mu          sync.Mutex
	state       circuitState
	failures    int
	threshold   int
	coolOff     time.Duration
	lastFailure time.Time
}

func newBreaker(threshold int, coolOff time.Duration) *breaker {
	if threshold <= 0 {
		threshold = 5
	}
	if coolOff <= 0 {
		coolOff = 30 * time.Second
	}
	return &breaker{state: circuitClosed, threshold: threshold, coolOff: coolOff}
}

// allow reports whether a call may proceed, transitioning Open->HalfOpen
// once the cool-off has elapsed.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case circuitClosed, circuitHalfOpen:
		return nil
	case circuitOpen:
		if time.Since(b.lastFailure) > b.coolOff {
			b.state = circuitHalfOpen
			return nil
		}
		metrics.ProverCircuitOpenHitsTotal.Inc()
		return domainerr.ErrBreakerOpen
	default:
		return nil
	}
}

func (b *breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != circuitClosed {
		b.state = circuitClosed
	}
	b.failures = 0
}

func (b *breaker) recordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures++
	b.lastFailure = time.Now()
	if b.failures >= b.threshold && b.state != circuitOpen {
		b.state = circuitOpen
		metrics.ProverCircuitTrippedTotal.Inc()
	}
}
