package router

import (
	"sync"
	"time"

	"github.com/af-corp/wayfinder/internal/types"
)

// HealthTracker keeps one circuit breaker per provider.
type HealthTracker struct {
	mu       sync.RWMutex
	breakers map[types.ProviderID]*CircuitBreaker

	failureThreshold      int
	recoveryProbeInterval time.Duration
}

func NewHealthTracker(failureThreshold int, recoveryProbeInterval time.Duration) *HealthTracker {
	return &HealthTracker{
		breakers:              make(map[types.ProviderID]*CircuitBreaker),
		failureThreshold:      failureThreshold,
		recoveryProbeInterval: recoveryProbeInterval,
	}
}

// Breaker returns (or lazily creates) the circuit breaker for a provider.
func (ht *HealthTracker) Breaker(provider types.ProviderID) *CircuitBreaker {
	ht.mu.RLock()
	cb, ok := ht.breakers[provider]
	ht.mu.RUnlock()
	if ok {
		return cb
	}

	ht.mu.Lock()
	defer ht.mu.Unlock()
	if cb, ok := ht.breakers[provider]; ok {
		return cb
	}
	cb = NewCircuitBreaker(ht.failureThreshold, ht.recoveryProbeInterval)
	ht.breakers[provider] = cb
	return cb
}

func (ht *HealthTracker) IsAvailable(provider types.ProviderID) bool {
	return ht.Breaker(provider).Allow()
}

func (ht *HealthTracker) RecordSuccess(provider types.ProviderID) {
	ht.Breaker(provider).RecordSuccess()
}

func (ht *HealthTracker) RecordFailure(provider types.ProviderID) {
	ht.Breaker(provider).RecordFailure()
}
