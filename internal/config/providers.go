package config

import (
	"log/slog"
	"time"

	"github.com/af-corp/wayfinder/internal/types"
)

// ProviderConfig declares one language-model backend and where it sits in the
// fallback order.
type ProviderConfig struct {
	Provider types.ProviderID `yaml:"provider"`
	APIKey   string           `yaml:"api_key"`
	// Model falls back to the provider's default when empty.
	Model            string        `yaml:"model,omitempty"`
	FallbackPriority int           `yaml:"fallback_priority"`
	BaseURL          string        `yaml:"base_url,omitempty"`
	Timeout          time.Duration `yaml:"timeout,omitempty"`
}

// LogValue keeps the API key out of structured logs.
func (p ProviderConfig) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("provider", string(p.Provider)),
		slog.String("model", p.Model),
		slog.Int("fallback_priority", p.FallbackPriority),
	)
}

// ProviderNames returns the declared provider ids in list order.
func (c *Config) ProviderNames() []string {
	names := make([]string, 0, len(c.AIModels))
	for _, m := range c.AIModels {
		names = append(names, string(m.Provider))
	}
	return names
}
