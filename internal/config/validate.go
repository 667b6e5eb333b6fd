package config

import (
	"fmt"
	"strings"
)

// ConfigError lists every problem found while validating a resolved config.
type ConfigError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing configuration: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid configuration: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

// Validate checks the fields the service cannot start without. It returns a
// *ConfigError naming all of them, or nil.
func (c *Config) Validate() error {
	cerr := &ConfigError{}

	if len(c.AIModels) == 0 {
		cerr.Missing = append(cerr.Missing, "ai_models")
	}
	if strings.TrimSpace(c.Database.Host) == "" {
		cerr.Missing = append(cerr.Missing, "database.host")
	}
	if strings.TrimSpace(c.Database.Name) == "" {
		cerr.Missing = append(cerr.Missing, "database.name")
	}
	if strings.TrimSpace(c.Weather.APIKey) == "" {
		cerr.Missing = append(cerr.Missing, "weather.api_key")
	}
	if strings.TrimSpace(c.Weather.BaseURL) == "" {
		cerr.Missing = append(cerr.Missing, "weather.base_url")
	}

	seen := make(map[string]bool, len(c.AIModels))
	for i, m := range c.AIModels {
		if m.Provider == "" {
			cerr.Missing = append(cerr.Missing, fmt.Sprintf("ai_models[%d].provider", i))
			continue
		}
		if seen[string(m.Provider)] {
			cerr.Invalid = append(cerr.Invalid, fmt.Sprintf("ai_models[%d].provider (duplicate %s)", i, m.Provider))
		}
		seen[string(m.Provider)] = true
	}

	if len(cerr.Missing) == 0 && len(cerr.Invalid) == 0 {
		return nil
	}
	return cerr
}
