package router

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/af-corp/wayfinder/internal/types"
)

// ErrNoProvidersConfigured is returned by Dispatcher.Generate when there is no
// provider to try. No call is made in that case.
var ErrNoProvidersConfigured = errors.New("no AI providers configured")

// ErrClientNotRegistered marks a configured provider that has no client in the
// registry. It counts as a failed attempt.
var ErrClientNotRegistered = errors.New("provider client not registered")

// ProviderCallError records one failed attempt of a dispatch.
type ProviderCallError struct {
	Provider types.ProviderID
	Priority int
	Duration time.Duration
	Err      error
}

func (e *ProviderCallError) Error() string {
	return fmt.Sprintf("provider %s (priority %d): %v", e.Provider, e.Priority, e.Err)
}

func (e *ProviderCallError) Unwrap() error { return e.Err }

// AllProvidersFailedError is returned when every configured provider failed.
// Attempts holds exactly one entry per provider, in the order they were tried.
type AllProvidersFailedError struct {
	Attempts []*ProviderCallError
}

func (e *AllProvidersFailedError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, a.Error())
	}
	return fmt.Sprintf("all %d AI providers failed: %s", len(e.Attempts), strings.Join(parts, "; "))
}

func (e *AllProvidersFailedError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		errs = append(errs, a)
	}
	return errs
}

// Providers lists the providers in attempt order.
func (e *AllProvidersFailedError) Providers() []types.ProviderID {
	ids := make([]types.ProviderID, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		ids = append(ids, a.Provider)
	}
	return ids
}

// DecodeError is returned when provider output is not valid JSON. Raw holds
// the text as received, before fence stripping.
type DecodeError struct {
	Raw string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode structured response: %v (raw: %q)", e.Err, e.Raw)
}

func (e *DecodeError) Unwrap() error { return e.Err }
