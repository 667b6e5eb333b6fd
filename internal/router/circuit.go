package router

import (
	"sync"
	"time"
)

// CircuitState represents the state of a circuit breaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // provider answering
	StateOpen                         // failure threshold reached
	StateHalfOpen                     // probe interval elapsed, next attempt decides
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

func (s CircuitState) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// CircuitStats is a point-in-time copy of a breaker's counters.
type CircuitStats struct {
	State               CircuitState `json:"state"`
	ConsecutiveFailures int          `json:"consecutiveFailures"`
	TotalFailures       int          `json:"totalFailures"`
	TotalSuccesses      int          `json:"totalSuccesses"`
	LastFailure         *time.Time   `json:"lastFailure,omitempty"`
	LastSuccess         *time.Time   `json:"lastSuccess,omitempty"`
}

// CircuitBreaker tracks the outcome of calls to one provider.
type CircuitBreaker struct {
	mu sync.Mutex

	state       CircuitState
	consecutive int
	failures    int
	successes   int
	lastFailure time.Time
	lastSuccess time.Time
	openedAt    time.Time

	failureThreshold      int
	recoveryProbeInterval time.Duration
	now                   func() time.Time
}

// NewCircuitBreaker creates a breaker that opens after failureThreshold
// consecutive failures and half-opens after recoveryProbeInterval.
func NewCircuitBreaker(failureThreshold int, recoveryProbeInterval time.Duration) *CircuitBreaker {
	if failureThreshold < 1 {
		failureThreshold = 1
	}
	return &CircuitBreaker{
		state:                 StateClosed,
		failureThreshold:      failureThreshold,
		recoveryProbeInterval: recoveryProbeInterval,
		now:                   time.Now,
	}
}

// State returns the current circuit state.
func (cb *CircuitBreaker) State() CircuitState {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState()
}

// currentState moves OPEN to HALF_OPEN once the probe interval has elapsed.
// Must be called with mu held.
func (cb *CircuitBreaker) currentState() CircuitState {
	if cb.state == StateOpen && cb.now().Sub(cb.openedAt) >= cb.recoveryProbeInterval {
		cb.state = StateHalfOpen
	}
	return cb.state
}

// Allow reports whether the breaker would let a call through.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.currentState() != StateOpen
}

func (cb *CircuitBreaker) RecordSuccess() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.successes++
	cb.consecutive = 0
	cb.lastSuccess = cb.now()
	cb.state = StateClosed
}

func (cb *CircuitBreaker) RecordFailure() {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.failures++
	cb.consecutive++
	cb.lastFailure = cb.now()

	switch cb.currentState() {
	case StateClosed:
		if cb.consecutive >= cb.failureThreshold {
			cb.state = StateOpen
			cb.openedAt = cb.now()
		}
	case StateHalfOpen:
		cb.state = StateOpen
		cb.openedAt = cb.now()
	}
}

func (cb *CircuitBreaker) Stats() CircuitStats {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	stats := CircuitStats{
		State:               cb.currentState(),
		ConsecutiveFailures: cb.consecutive,
		TotalFailures:       cb.failures,
		TotalSuccesses:      cb.successes,
	}
	if !cb.lastFailure.IsZero() {
		t := cb.lastFailure
		stats.LastFailure = &t
	}
	if !cb.lastSuccess.IsZero() {
		t := cb.lastSuccess
		stats.LastSuccess = &t
	}
	return stats
}
