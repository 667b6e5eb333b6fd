// Package api exposes the travel and text-generation operations over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/af-corp/wayfinder/internal/filter"
	"github.com/af-corp/wayfinder/internal/httputil"
	"github.com/af-corp/wayfinder/internal/router"
	"github.com/af-corp/wayfinder/internal/telemetry"
	"github.com/af-corp/wayfinder/internal/travel"
	"github.com/af-corp/wayfinder/internal/types"
)

type Recommender interface {
	Recommendations(ctx context.Context, interests []string, budget string) ([]types.Recommendation, error)
	Attraction(ctx context.Context, id int64) (*types.Attraction, error)
}

type ItineraryPlanner interface {
	Plan(ctx context.Context, req travel.ItineraryRequest) (*travel.Itinerary, error)
}

type StructuredGenerator interface {
	Generate(ctx context.Context, req *types.GenerationRequest, responseType string) (any, error)
}

type ProviderHealthReporter interface {
	Health() []router.ProviderHealth
}

// Pinger reports whether the database is reachable. *pgxpool.Pool implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the collaborators behind the HTTP surface. Guard, Metrics and DB
// may be nil.
type Deps struct {
	Recommender  Recommender
	Destinations travel.DestinationLister
	Weather      travel.ForecastProvider
	Planner      ItineraryPlanner
	Generator    router.Generator
	Structured   StructuredGenerator
	Providers    ProviderHealthReporter
	Guard        *filter.Chain
	Metrics      *telemetry.Metrics
	DB           Pinger
	Logger       *slog.Logger
	Version      string
}

// Handler holds dependencies for the HTTP handlers.
type Handler struct {
	Deps
	now func() time.Time
}

func NewHandler(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{Deps: deps, now: time.Now}
}

// Mount registers the API routes under basePath and the health check at /health.
func (h *Handler) Mount(r chi.Router, basePath string) {
	r.Get("/health", h.Health)
	r.Route(basePath, func(r chi.Router) {
		r.Post("/recommendations", h.Recommendations)
		r.Get("/attractions/{id}", h.AttractionDetails)
		r.Get("/destinations", h.ListDestinations)
		r.Get("/weather/{destination}", h.WeatherForecast)
		r.Post("/generate-itinerary", h.GenerateItinerary)
		r.Post("/ai/generate", h.Generate)
		r.Post("/ai/structured-response", h.StructuredResponse)
		r.Get("/ai/providers", h.ProviderStatus)
	})
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]string{
		"status":  "healthy",
		"version": h.Version,
	}
	status := http.StatusOK
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.Ping(ctx); err != nil {
			h.Logger.Warn("health check: database unreachable", "error", err)
			body["status"] = "degraded"
			body["database"] = "unreachable"
			status = http.StatusServiceUnavailable
		} else {
			body["database"] = "ok"
		}
	}
	httputil.WriteJSON(w, status, body)
}

func requestID(r *http.Request) string {
	return RequestIDFromContext(r.Context())
}
