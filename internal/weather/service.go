package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/wayfinder/internal/config"
	"github.com/af-corp/wayfinder/internal/telemetry"
)

const redisKeyPrefix = "wayfinder:weather:"

// Service resolves forecasts through an in-process cache, then Redis, then
// the forecast API. Only forecasts that came from the API are cached.
type Service struct {
	cfg        config.WeatherConfig
	httpClient *http.Client
	finder     DestinationFinder
	rdb        *redis.Client
	local      *gocache.Cache
	metrics    *telemetry.Metrics
	logger     *slog.Logger
}

type Option func(*Service)

func WithDestinationFinder(f DestinationFinder) Option { return func(s *Service) { s.finder = f } }
func WithRedis(rdb *redis.Client) Option              { return func(s *Service) { s.rdb = rdb } }
func WithMetrics(m *telemetry.Metrics) Option         { return func(s *Service) { s.metrics = m } }
func WithHTTPClient(c *http.Client) Option            { return func(s *Service) { s.httpClient = c } }
func WithLogger(l *slog.Logger) Option                { return func(s *Service) { s.logger = l } }

func NewService(cfg config.WeatherConfig, opts ...Option) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	cfg.CacheTTL = ttl
	if cfg.Units == "" {
		cfg.Units = "metric"
	}

	s := &Service{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		local:      gocache.New(ttl, 2*ttl),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Forecast never fails: any lookup or upstream problem is logged and answered
// with Fallback(date).
func (s *Service) Forecast(ctx context.Context, destination string, date time.Time) *Forecast {
	key := cacheKey(destination, date)

	if v, ok := s.local.Get(key); ok {
		s.observe("cache")
		return v.(*Forecast)
	}
	if f := s.fromRedis(ctx, key); f != nil {
		s.local.SetDefault(key, f)
		s.observe("redis")
		return f
	}

	f, err := s.fetch(ctx, destination, date)
	if err != nil {
		s.logger.Warn("weather forecast unavailable, using fallback",
			"destination", destination,
			"date", date.Format(dateLayout),
			"error", err,
		)
		s.observe("fallback")
		return Fallback(date)
	}

	s.local.SetDefault(key, f)
	s.toRedis(ctx, key, f)
	s.observe("api")
	return f
}

func (s *Service) fetch(ctx context.Context, destination string, date time.Time) (*Forecast, error) {
	c, err := s.coordinates(ctx, destination)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(c.Longitude, 'f', -1, 64))
	q.Set("appid", s.cfg.APIKey)
	q.Set("units", s.cfg.Units)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build weather request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("weather api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload owmResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode weather response: %w", err)
	}
	f := payload.pick(date)
	if f == nil {
		return nil, fmt.Errorf("no forecast entry for %s", date.UTC().Format(dateLayout))
	}
	return f, nil
}

func (s *Service) fromRedis(ctx context.Context, key string) *Forecast {
	if s.rdb == nil {
		return nil
	}
	data, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.logger.Debug("weather cache read failed", "error", err)
		}
		return nil
	}
	var f Forecast
	if err := json.Unmarshal(data, &f); err != nil {
		return nil
	}
	return &f
}

func (s *Service) toRedis(ctx context.Context, key string, f *Forecast) {
	if s.rdb == nil {
		return
	}
	data, err := json.Marshal(f)
	if err != nil {
		return
	}
	if err := s.rdb.Set(ctx, redisKeyPrefix+key, data, s.cfg.CacheTTL).Err(); err != nil {
		s.logger.Debug("weather cache write failed", "error", err)
	}
}

func (s *Service) observe(source string) {
	if s.metrics != nil {
		s.metrics.RecordWeatherLookup(source)
	}
}

func cacheKey(destination string, date time.Time) string {
	return normalizeDestination(destination) + ":" + date.UTC().Format(dateLayout)
}
