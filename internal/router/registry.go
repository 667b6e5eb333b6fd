package router

import (
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/af-corp/wayfinder/internal/config"
	"github.com/af-corp/wayfinder/internal/router/adapters"
	"github.com/af-corp/wayfinder/internal/types"
)

// Registry maps provider ids to their clients.
type Registry struct {
	mu      sync.RWMutex
	clients map[types.ProviderID]adapters.Client
}

func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[types.ProviderID]adapters.Client),
	}
}

func (r *Registry) Register(client adapters.Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[client.Name()] = client
}

func (r *Registry) Get(provider types.ProviderID) (adapters.Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[provider]
	return c, ok
}

// Providers returns the registered provider ids in lexical order.
func (r *Registry) Providers() []types.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]types.ProviderID, 0, len(r.clients))
	for id := range r.clients {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// BuildClients creates one client per supported provider entry. Entries with
// an unknown provider id are skipped with a warning. No network calls are made.
// defaultTimeout applies to providers that do not set their own.
func BuildClients(models []config.ProviderConfig, defaultTimeout time.Duration, logger *slog.Logger) *Registry {
	registry := NewRegistry()
	for _, cfg := range models {
		if !cfg.Provider.Supported() {
			logger.Warn("unsupported AI provider skipped", "provider", cfg.Provider)
			continue
		}

		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		client := &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		}

		adapter, err := adapters.NewChatAdapter(cfg, client)
		if err != nil {
			logger.Warn("AI provider skipped", "provider", cfg.Provider, "error", err)
			continue
		}
		registry.Register(adapter)
		logger.Info("AI provider registered",
			"provider", cfg.Provider,
			"model", adapter.Model(),
			"fallback_priority", cfg.FallbackPriority,
		)
	}
	return registry
}
