package telemetry

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Middleware records request metrics and writes one access log line per
// request. Routes are labelled by their chi pattern so path parameters do not
// explode metric cardinality.
func Middleware(m *Metrics, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if pattern := rctx.RoutePattern(); pattern != "" {
					route = pattern
				}
			}
			elapsed := time.Since(start)

			if m != nil {
				m.RecordRequest(RequestLabels{
					Route:      route,
					Method:     r.Method,
					Status:     strconv.Itoa(status),
					DurationMs: float64(elapsed.Milliseconds()),
				})
			}
			if logger != nil {
				logger.Info("request completed",
					"request_id", ww.Header().Get("X-Request-ID"),
					"method", r.Method,
					"route", route,
					"status", status,
					"duration_ms", elapsed.Milliseconds(),
					"bytes", ww.BytesWritten(),
				)
			}
		})
	}
}
