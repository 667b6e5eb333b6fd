package router

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/af-corp/wayfinder/internal/config"
	"github.com/af-corp/wayfinder/internal/types"
)

// AttemptObserver is told about every provider attempt. outcome is "success"
// or "failure".
type AttemptObserver func(provider types.ProviderID, outcome string, duration time.Duration)

// Dispatcher tries the configured providers one after another in ascending
// fallback priority and returns the first successful answer.
type Dispatcher struct {
	registry *Registry
	models   []config.ProviderConfig
	health   *HealthTracker
	observe  AttemptObserver
	timeout  time.Duration
	logger   *slog.Logger
}

type DispatcherOption func(*Dispatcher)

// WithHealthTracker records every attempt outcome on ht. The tracker is used
// for reporting; it never removes a provider from the fallback order.
func WithHealthTracker(ht *HealthTracker) DispatcherOption {
	return func(d *Dispatcher) { d.health = ht }
}

func WithAttemptObserver(fn AttemptObserver) DispatcherOption {
	return func(d *Dispatcher) { d.observe = fn }
}

// WithDispatchTimeout bounds a whole Generate call. Zero disables the bound.
func WithDispatchTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher copies models, so later changes to the caller's slice have no
// effect.
func NewDispatcher(registry *Registry, models []config.ProviderConfig, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		registry: registry,
		models:   slices.Clone(models),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ordered returns a priority-sorted copy of the provider list. Equal
// priorities keep their declaration order.
func (d *Dispatcher) ordered() []config.ProviderConfig {
	sorted := slices.Clone(d.models)
	slices.SortStableFunc(sorted, func(a, b config.ProviderConfig) int {
		return cmp.Compare(a.FallbackPriority, b.FallbackPriority)
	})
	return sorted
}

// Order returns the provider ids in the order Generate tries them.
func (d *Dispatcher) Order() []types.ProviderID {
	sorted := d.ordered()
	ids := make([]types.ProviderID, 0, len(sorted))
	for _, m := range sorted {
		ids = append(ids, m.Provider)
	}
	return ids
}

// Generate returns the text of the first provider that answers req. When every
// provider fails it returns an *AllProvidersFailedError. A cancelled ctx stops
// the loop and returns the context error.
func (d *Dispatcher) Generate(ctx context.Context, req *types.GenerationRequest) (string, error) {
	if len(d.models) == 0 {
		return "", ErrNoProvidersConfigured
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	ordered := d.ordered()
	attempts := make([]*ProviderCallError, 0, len(ordered))

	for _, m := range ordered {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("dispatch stopped after %d attempts: %w", len(attempts), err)
		}

		text, callErr := d.attempt(ctx, m, req)
		if callErr == nil {
			return text, nil
		}

		d.logger.Warn("AI provider failed, trying next",
			"provider", m.Provider,
			"priority", m.FallbackPriority,
			"duration_ms", callErr.Duration.Milliseconds(),
			"error", callErr.Err,
		)
		attempts = append(attempts, callErr)
	}

	return "", &AllProvidersFailedError{Attempts: attempts}
}

func (d *Dispatcher) attempt(ctx context.Context, m config.ProviderConfig, req *types.GenerationRequest) (string, *ProviderCallError) {
	start := time.Now()

	client, ok := d.registry.Get(m.Provider)
	if !ok {
		callErr := &ProviderCallError{Provider: m.Provider, Priority: m.FallbackPriority, Err: ErrClientNotRegistered}
		d.record(m.Provider, callErr, 0)
		return "", callErr
	}

	text, err := client.Generate(ctx, req)
	elapsed := time.Since(start)
	if err == nil && text == "" {
		err = errors.New("empty response")
	}
	if err != nil {
		callErr := &ProviderCallError{Provider: m.Provider, Priority: m.FallbackPriority, Duration: elapsed, Err: err}
		d.record(m.Provider, callErr, elapsed)
		return "", callErr
	}

	d.record(m.Provider, nil, elapsed)
	d.logger.Debug("AI provider succeeded",
		"provider", m.Provider,
		"priority", m.FallbackPriority,
		"duration_ms", elapsed.Milliseconds(),
	)
	return text, nil
}

func (d *Dispatcher) record(provider types.ProviderID, callErr *ProviderCallError, elapsed time.Duration) {
	outcome := "success"
	if callErr != nil {
		outcome = "failure"
	}
	if d.health != nil {
		if callErr != nil {
			d.health.RecordFailure(provider)
		} else {
			d.health.RecordSuccess(provider)
		}
	}
	if d.observe != nil {
		d.observe(provider, outcome, elapsed)
	}
}

// ProviderHealth is one row of Dispatcher.Health.
type ProviderHealth struct {
	Provider   types.ProviderID `json:"provider"`
	Priority   int              `json:"fallbackPriority"`
	Registered bool             `json:"registered"`
	// Available is false while the provider's circuit is open. Generate
	// still tries it in order.
	Available bool `json:"available"`
	CircuitStats
}

// Health reports each configured provider in attempt order together with its
// circuit breaker counters. Without a health tracker every row shows closed.
func (d *Dispatcher) Health() []ProviderHealth {
	sorted := d.ordered()
	rows := make([]ProviderHealth, 0, len(sorted))
	for _, m := range sorted {
		_, registered := d.registry.Get(m.Provider)
		row := ProviderHealth{
			Provider:     m.Provider,
			Priority:     m.FallbackPriority,
			Registered:   registered,
			Available:    true,
			CircuitStats: CircuitStats{State: StateClosed},
		}
		if d.health != nil {
			row.Available = d.health.IsAvailable(m.Provider)
			row.CircuitStats = d.health.Breaker(m.Provider).Stats()
		}
		rows = append(rows, row)
	}
	return rows
}
