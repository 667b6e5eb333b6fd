package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/af-corp/wayfinder/internal/httputil"
	"github.com/af-corp/wayfinder/internal/store"
	"github.com/af-corp/wayfinder/internal/travel"
)

type recommendationsRequest struct {
	Interests []string `json:"interests"`
	Budget    string   `json:"budget"`
}

// Recommendations handles POST /recommendations.
func (h *Handler) Recommendations(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	var body recommendationsRequest
	if err := httputil.DecodeJSON(r, &body); err != nil || body.Interests == nil || strings.TrimSpace(body.Budget) == "" {
		httputil.WriteBadRequestError(w, reqID, "Invalid request parameters. Interests array and budget are required.")
		return
	}

	recs, err := h.Recommender.Recommendations(r.Context(), body.Interests, body.Budget)
	if err != nil {
		h.Logger.Error("recommendations failed", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to get travel recommendations")
		return
	}
	httputil.WriteSuccess(w, recs)
}

// AttractionDetails handles GET /attractions/{id}.
func (h *Handler) AttractionDetails(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteBadRequestError(w, reqID, "Attraction id must be a positive integer")
		return
	}

	a, err := h.Recommender.Attraction(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		httputil.WriteNotFoundError(w, reqID, "Attraction not found")
		return
	case err != nil:
		h.Logger.Error("attraction lookup failed", "request_id", reqID, "attraction_id", id, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to get attraction details")
		return
	}
	httputil.WriteSuccess(w, a)
}

// ListDestinations handles GET /destinations?country=.
func (h *Handler) ListDestinations(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	destinations, err := h.Destinations.List(r.Context(), strings.TrimSpace(r.URL.Query().Get("country")))
	if err != nil {
		h.Logger.Error("destination list failed", "request_id", reqID, "error", err)
		httputil.WriteInternalError(w, reqID, "Failed to list destinations")
		return
	}
	httputil.WriteSuccess(w, destinations)
}

// WeatherForecast handles GET /weather/{destination}?date=YYYY-MM-DD. A
// missing date means today.
func (h *Handler) WeatherForecast(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	destination := strings.TrimSpace(chi.URLParam(r, "destination"))
	if destination == "" {
		httputil.WriteBadRequestError(w, reqID, "Destination is required")
		return
	}

	date := h.now()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			httputil.WriteBadRequestError(w, reqID, "date must be formatted as YYYY-MM-DD")
			return
		}
		date = parsed
	}

	httputil.WriteSuccess(w, h.Weather.Forecast(r.Context(), destination, date))
}

// GenerateItinerary handles POST /generate-itinerary.
func (h *Handler) GenerateItinerary(w http.ResponseWriter, r *http.Request) {
	reqID := requestID(r)

	var body travel.ItineraryRequest
	if err := httputil.DecodeJSON(r, &body); err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}
	if err := body.Validate(); err != nil {
		httputil.WriteBadRequestError(w, reqID, err.Error())
		return
	}
	// destination, interests and budget end up in the day-plan prompt
	if !h.guard(w, r, reqID, "generate-itinerary", body.GenerationRequest(nil)) {
		return
	}

	it, err := h.Planner.Plan(r.Context(), body)
	if err != nil {
		h.Logger.Error("itinerary generation failed",
			"request_id", reqID,
			"destination", body.Destination,
			"error", err,
		)
		httputil.WriteInternalError(w, reqID, "Failed to generate itinerary")
		return
	}
	httputil.WriteSuccess(w, it)
}
