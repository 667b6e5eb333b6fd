package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/af-corp/wayfinder/internal/types"
)

const (
	baseFileName       = "default.yaml"
	DefaultEnvironment = "development"
)

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:default} patterns in a string.
func expandEnvVars(s string, lookup func(string) (string, bool)) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		submatch := envVarPattern.FindStringSubmatch(match)
		if len(submatch) < 2 {
			return match
		}
		varName := submatch[1]
		defaultVal := ""
		if len(submatch) >= 3 {
			defaultVal = submatch[2]
		}
		if val, ok := lookup(varName); ok {
			return val
		}
		return defaultVal
	})
}

// EnvironmentName picks the environment used to select the overlay file:
// the explicit value if set, then APP_ENV, then "development".
func EnvironmentName(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if env := os.Getenv("APP_ENV"); env != "" {
		return env
	}
	return DefaultEnvironment
}

// Resolver builds a Config from <dir>/default.yaml, an optional
// <dir>/<env>.yaml overlay and environment variables.
type Resolver struct {
	dir       string
	logger    *slog.Logger
	lookupEnv func(string) (string, bool)
}

type ResolverOption func(*Resolver)

// WithLookupEnv replaces os.LookupEnv as the source of environment variables.
func WithLookupEnv(fn func(string) (string, bool)) ResolverOption {
	return func(r *Resolver) { r.lookupEnv = fn }
}

func NewResolver(dir string, logger *slog.Logger, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		dir:       dir,
		logger:    logger,
		lookupEnv: os.LookupEnv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) basePath() string { return filepath.Join(r.dir, baseFileName) }

func (r *Resolver) overlayPath(env string) string { return filepath.Join(r.dir, env+".yaml") }

// Resolve merges the configuration sources for env and validates the result.
// Validation problems are reported together as a *ConfigError.
func (r *Resolver) Resolve(env string) (*Config, error) {
	base, err := r.readDocument(r.basePath())
	if err != nil {
		return nil, fmt.Errorf("load base config: %w", err)
	}

	overlay, err := r.readDocument(r.overlayPath(env))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		r.logger.Debug("no environment overlay", "env", env, "path", r.overlayPath(env))
		overlay = map[string]any{}
	case err != nil:
		return nil, fmt.Errorf("load %s config: %w", env, err)
	}

	cfg, err := decode(MergeMaps(base, overlay))
	if err != nil {
		return nil, err
	}

	r.applyEnvOverrides(cfg)
	cfg.AIModels = r.dropKeyless(cfg.AIModels)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.logger.Info("configuration resolved",
		"env", env,
		"dir", r.dir,
		"ai_models", cfg.ProviderNames(),
		"database_host", cfg.Database.Host,
	)
	return cfg, nil
}

func (r *Resolver) readDocument(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	doc := map[string]any{}
	if err := yaml.Unmarshal([]byte(expandEnvVars(string(data), r.lookupEnv)), &doc); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return doc, nil
}

// MergeMaps overlays src onto dst and returns the result without modifying
// either input. Nested mappings merge key by key; any other overlay value,
// lists included, replaces the base value.
func MergeMaps(dst, src map[string]any) map[string]any {
	out := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		out[k] = v
	}
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := out[k].(map[string]any); ok {
				out[k] = MergeMaps(dstMap, srcMap)
				continue
			}
		}
		out[k] = v
	}
	return out
}

func decode(doc map[string]any) (*Config, error) {
	data, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode merged config: %w", err)
	}
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode merged config: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides runs in a fixed order: provider keys, provider priorities,
// database fields, weather fields. Empty variables never override.
func (r *Resolver) applyEnvOverrides(cfg *Config) {
	for _, p := range types.SupportedProviders() {
		key, ok := r.env(p.EnvPrefix() + "_API_KEY")
		if !ok {
			continue
		}
		found := false
		for i := range cfg.AIModels {
			if cfg.AIModels[i].Provider == p {
				cfg.AIModels[i].APIKey = key
				found = true
			}
		}
		if !found {
			cfg.AIModels = append(cfg.AIModels, ProviderConfig{
				Provider:         p,
				APIKey:           key,
				FallbackPriority: nextPriority(cfg.AIModels),
			})
		}
	}

	for _, p := range types.SupportedProviders() {
		name := p.EnvPrefix() + "_FALLBACK_PRIORITY"
		if priority, ok := r.envInt(name); ok {
			for i := range cfg.AIModels {
				if cfg.AIModels[i].Provider == p {
					cfg.AIModels[i].FallbackPriority = priority
				}
			}
		}
	}

	if v, ok := r.env("DB_HOST"); ok {
		cfg.Database.Host = v
	}
	if v, ok := r.envInt("DB_PORT"); ok {
		cfg.Database.Port = v
	}
	if v, ok := r.env("DB_USER"); ok {
		cfg.Database.User = v
	}
	if v, ok := r.env("DB_PASSWORD"); ok {
		cfg.Database.Password = v
	}
	if v, ok := r.env("DB_NAME"); ok {
		cfg.Database.Name = v
	}

	if v, ok := r.env("WEATHER_API_KEY"); ok {
		cfg.Weather.APIKey = v
	}
	if v, ok := r.env("WEATHER_API_BASE_URL"); ok {
		cfg.Weather.BaseURL = v
	}
}

func (r *Resolver) env(name string) (string, bool) {
	v, ok := r.lookupEnv(name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *Resolver) envInt(name string) (int, bool) {
	v, ok := r.env(name)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		r.logger.Warn("ignoring non-integer environment variable", "name", name)
		return 0, false
	}
	return n, true
}

func nextPriority(models []ProviderConfig) int {
	highest := 0
	for _, m := range models {
		if m.FallbackPriority > highest {
			highest = m.FallbackPriority
		}
	}
	return highest + 1
}

// dropKeyless removes provider entries that cannot be instantiated.
func (r *Resolver) dropKeyless(models []ProviderConfig) []ProviderConfig {
	kept := make([]ProviderConfig, 0, len(models))
	for _, m := range models {
		if strings.TrimSpace(m.APIKey) == "" {
			r.logger.Warn("ai model skipped: no api key", "provider", m.Provider)
			continue
		}
		kept = append(kept, m)
	}
	return kept
}

// Watch re-resolves the configuration whenever the base or overlay file for
// env changes and passes the outcome to onChange. The configuration already in
// use is never replaced; callers decide whether a restart is warranted.
func (r *Resolver) Watch(ctx context.Context, env string, onChange func(*Config, error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(r.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch config dir %s: %w", r.dir, err)
	}

	relevant := map[string]bool{
		baseFileName:  true,
		env + ".yaml": true,
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !relevant[filepath.Base(event.Name)] {
					continue
				}
				if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Remove) {
					r.logger.Info("config file changed", "file", event.Name)
					onChange(r.Resolve(env))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				r.logger.Error("fsnotify error", "error", err)
			}
		}
	}()

	return nil
}
