package ratelimit

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/af-corp/wayfinder/internal/config"
	"github.com/af-corp/wayfinder/internal/httputil"
	"github.com/af-corp/wayfinder/internal/telemetry"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func requestFrom(addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/api/ai/generate", nil)
	req.RemoteAddr = addr
	return req
}

func TestMiddleware_AllowsRequest(t *testing.T) {
	mw := Middleware(NewLimiter(nil, nil), config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100}, nil)
	handler := mw(okHandler())

	rec := httptest.NewRecorder()
	rec.Header().Set("X-Request-ID", "req-1")
	handler.ServeHTTP(rec, requestFrom("203.0.113.5:4321"))

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if h := rec.Header().Get(headerRateLimitRequests); h != "100" {
		t.Errorf("expected X-RateLimit-Limit-Requests=100, got %s", h)
	}
	if h := rec.Header().Get(headerRateLimitRemainingRequests); h != "99" {
		t.Errorf("expected X-RateLimit-Remaining-Requests=99, got %s", h)
	}
	if h := rec.Header().Get(headerRateLimitReset); h == "" {
		t.Error("expected X-RateLimit-Reset-Requests header")
	}
}

func TestMiddleware_RejectsOverLimit(t *testing.T) {
	metrics := telemetry.NewMetrics(prometheus.NewRegistry())
	mw := Middleware(NewLimiter(nil, nil), config.RateLimitConfig{Enabled: true, RequestsPerMinute: 2}, metrics)
	handler := mw(okHandler())

	var rec *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, requestFrom("203.0.113.7:1000"))
	}

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get(headerRetryAfter) == "" {
		t.Error("expected Retry-After header")
	}

	var resp httputil.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error: %v", err)
	}
	if resp.Error == "" {
		t.Error("expected an error message")
	}

	// another client is unaffected
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("203.0.113.8:1000"))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for a different client, got %d", rec.Code)
	}
}

func TestMiddleware_RedisDownFallsBackToLocal(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1})
	t.Cleanup(func() { _ = rdb.Close() })
	limiter := NewLimiter(rdb, slog.New(slog.NewTextHandler(io.Discard, nil)))
	handler := Middleware(limiter, config.RateLimitConfig{Enabled: true, RequestsPerMinute: 1}, nil)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("203.0.113.10:1"))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if h := rec.Header().Get(headerRateLimitRemainingRequests); h != "0" {
		t.Errorf("expected X-RateLimit-Remaining-Requests=0, got %s", h)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, requestFrom("203.0.113.10:1"))
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429 from the local limiter, got %d", rec.Code)
	}
}

func TestMiddleware_Disabled_PassThrough(t *testing.T) {
	mw := Middleware(NewLimiter(nil, nil), config.RateLimitConfig{Enabled: false, RequestsPerMinute: 1}, nil)

	called := 0
	handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called++
	}))

	for i := 0; i < 3; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), requestFrom("203.0.113.9:1"))
	}
	if called != 3 {
		t.Errorf("expected all requests through, got %d", called)
	}
}

func TestClientKey(t *testing.T) {
	if got := ClientKey(requestFrom("198.51.100.1:5555")); got != "198.51.100.1" {
		t.Errorf("expected host only, got %s", got)
	}
	if got := ClientKey(requestFrom("198.51.100.2")); got != "198.51.100.2" {
		t.Errorf("expected raw address without port, got %s", got)
	}
}
