package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/af-corp/wayfinder/internal/types"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestTotal         *prometheus.CounterVec
	RequestDurationMs    *prometheus.HistogramVec
	ProviderAttemptTotal *prometheus.CounterVec
	ProviderDurationMs   *prometheus.HistogramVec
	FilterActionTotal    *prometheus.CounterVec
	WeatherLookupTotal   *prometheus.CounterVec
	RateLimitHitTotal    *prometheus.CounterVec
}

// NewMetrics creates all metrics and registers them with reg. Passing
// prometheus.DefaultRegisterer exposes them on the default /metrics handler.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfinder_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"route", "method", "status"}),

		RequestDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfinder_http_request_duration_ms",
			Help:    "HTTP request duration in milliseconds, including provider and weather latency.",
			Buckets: []float64{5, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		}, []string{"route"}),

		ProviderAttemptTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfinder_provider_attempts_total",
			Help: "Language model provider attempts made by the fallback dispatcher.",
		}, []string{"provider", "outcome"}),

		ProviderDurationMs: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wayfinder_provider_attempt_duration_ms",
			Help:    "Duration of a single provider attempt in milliseconds.",
			Buckets: []float64{100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000},
		}, []string{"provider"}),

		FilterActionTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfinder_filter_action_total",
			Help: "Total prompt filter actions taken.",
		}, []string{"filter", "action"}),

		WeatherLookupTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfinder_weather_lookups_total",
			Help: "Weather lookups by the source that answered them.",
		}, []string{"source"}),

		RateLimitHitTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wayfinder_rate_limit_hits_total",
			Help: "Requests rejected by the rate limiter.",
		}, []string{"dimension"}),
	}
}

// RecordRequest records metrics for a completed HTTP request.
func (m *Metrics) RecordRequest(labels RequestLabels) {
	m.RequestTotal.WithLabelValues(labels.Route, labels.Method, labels.Status).Inc()
	m.RequestDurationMs.WithLabelValues(labels.Route).Observe(labels.DurationMs)
}

// RecordProviderAttempt has the signature of router.AttemptObserver.
func (m *Metrics) RecordProviderAttempt(provider types.ProviderID, outcome string, d time.Duration) {
	m.ProviderAttemptTotal.WithLabelValues(string(provider), outcome).Inc()
	m.ProviderDurationMs.WithLabelValues(string(provider)).Observe(float64(d.Milliseconds()))
}

func (m *Metrics) RecordFilterAction(filter, action string) {
	m.FilterActionTotal.WithLabelValues(filter, action).Inc()
}

// RecordWeatherLookup counts a lookup answered by source ("cache", "redis",
// "api" or "fallback").
func (m *Metrics) RecordWeatherLookup(source string) {
	m.WeatherLookupTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) RecordRateLimitHit(dimension string) {
	m.RateLimitHitTotal.WithLabelValues(dimension).Inc()
}

// RequestLabels holds the label values for recording a request.
type RequestLabels struct {
	Route      string
	Method     string
	Status     string
	DurationMs float64
}
