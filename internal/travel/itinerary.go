package travel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/af-corp/wayfinder/internal/types"
	"github.com/af-corp/wayfinder/internal/weather"
)

const (
	itineraryResponseType = "ItineraryDay[]"
	itineraryMaxTokens    = 1500
	MaxItineraryDays      = 30
)

type ItineraryRequest struct {
	Destination string   `json:"destination"`
	Duration    int      `json:"duration"`
	Interests   []string `json:"interests"`
	Budget      string   `json:"budget,omitempty"`
}

// Validate names every missing required field at once.
func (r *ItineraryRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Destination) == "" {
		missing = append(missing, "destination")
	}
	if r.Duration == 0 {
		missing = append(missing, "duration")
	}
	if r.Interests == nil {
		missing = append(missing, "interests")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}
	if r.Duration < 0 || r.Duration > MaxItineraryDays {
		return fmt.Errorf("duration must be between 1 and %d", MaxItineraryDays)
	}
	return nil
}

func (r ItineraryRequest) BudgetOrDefault() string {
	if b := strings.TrimSpace(r.Budget); b != "" {
		return b
	}
	return DefaultBudget
}

// GenerationRequest is the model request sent when planning the days of this
// trip. With nil recs it carries only the caller's own text.
func (r ItineraryRequest) GenerationRequest(recs []types.Recommendation) *types.GenerationRequest {
	return &types.GenerationRequest{
		Prompt:      ItineraryPrompt(r, r.BudgetOrDefault(), recs),
		MaxTokens:   itineraryMaxTokens,
		Temperature: types.DefaultTemperature,
	}
}

type Itinerary struct {
	Recommendations []types.Recommendation `json:"recommendations"`
	Weather         *weather.Forecast      `json:"weather"`
	Destination     string                 `json:"destination"`
	Duration        int                    `json:"duration"`
	Interests       []string               `json:"interests"`
	Budget          string                 `json:"budget"`
	Days            []types.ItineraryDay   `json:"days,omitempty"`
}

type ForecastProvider interface {
	Forecast(ctx context.Context, destination string, date time.Time) *weather.Forecast
}

// StructuredGenerator is satisfied by *router.StructuredDecoder.
type StructuredGenerator interface {
	GenerateInto(ctx context.Context, req *types.GenerationRequest, responseType string, dst any) error
}

type Planner struct {
	recommender *Recommender
	forecasts   ForecastProvider
	generator   StructuredGenerator
	logger      *slog.Logger
	now         func() time.Time
}

// NewPlanner builds a planner. generator may be nil, in which case
// itineraries carry no day plan.
func NewPlanner(recommender *Recommender, forecasts ForecastProvider, generator StructuredGenerator, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		recommender: recommender,
		forecasts:   forecasts,
		generator:   generator,
		logger:      logger,
		now:         time.Now,
	}
}

// Plan combines recommendations, the forecast for today and, when a model
// answers with a usable plan, a day-by-day schedule. A failed or malformed
// model answer leaves Days empty rather than failing the itinerary.
func (p *Planner) Plan(ctx context.Context, req ItineraryRequest) (*Itinerary, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	budget := req.BudgetOrDefault()

	recs, err := p.recommender.Recommendations(ctx, req.Interests, budget)
	if err != nil {
		return nil, err
	}
	start := p.now()
	forecast := p.forecasts.Forecast(ctx, req.Destination, start)

	it := &Itinerary{
		Recommendations: recs,
		Weather:         forecast,
		Destination:     req.Destination,
		Duration:        req.Duration,
		Interests:       req.Interests,
		Budget:          budget,
	}
	it.Days = p.days(ctx, req, recs, forecast)
	return it, nil
}

func (p *Planner) days(ctx context.Context, req ItineraryRequest, recs []types.Recommendation, forecast *weather.Forecast) []types.ItineraryDay {
	if p.generator == nil {
		return nil
	}
	genReq := req.GenerationRequest(recs)

	var days []types.ItineraryDay
	if err := p.generator.GenerateInto(ctx, genReq, itineraryResponseType, &days); err != nil {
		p.logger.Warn("itinerary day plan unavailable",
			"destination", req.Destination,
			"error", err,
		)
		return nil
	}
	if len(days) > req.Duration {
		days = days[:req.Duration]
	}
	if len(days) > 0 && forecast != nil && days[0].WeatherForecast == nil {
		days[0].WeatherForecast = &types.DayWeatherSummary{
			Temperature: forecast.Temperature.Average,
			Conditions:  forecast.Conditions,
		}
	}
	return days
}

// ItineraryPrompt describes the trip and the JSON shape expected per day.
func ItineraryPrompt(req ItineraryRequest, budget string, recs []types.Recommendation) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Plan a %d-day trip to %s with a %s budget.", req.Duration, req.Destination, budget)
	if len(req.Interests) > 0 {
		fmt.Fprintf(&b, " The traveller is interested in %s.", strings.Join(req.Interests, ", "))
	}

	var activities []string
	for _, r := range recs {
		if strings.EqualFold(r.Destination.Name, req.Destination) {
			activities = append(activities, r.RecommendedActivities...)
		}
	}
	if len(activities) > 0 {
		fmt.Fprintf(&b, " Include these where they fit: %s.", strings.Join(activities, ", "))
	}

	b.WriteString(" Return an array with one element per day, each shaped as " +
		`{"day": 1, "activities": [{"time": "09:00", "activity": "", "location": "", "estimatedCost": 0, "travelTips": ""}]}.`)
	return b.String()
}
