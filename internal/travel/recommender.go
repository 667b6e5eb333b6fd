// Package travel builds destination recommendations and itineraries from the
// stored catalogue, weather forecasts and language-model output.
package travel

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/af-corp/wayfinder/internal/types"
)

const (
	// maxRecommendedActivities caps the activity names per destination.
	maxRecommendedActivities = 5
	// activityCostCeiling is compared against estimated_cost scaled by the budget factor.
	activityCostCeiling = 100.0
	DefaultBudget       = "moderate"
)

// interestCategories are the interests any destination can serve.
var interestCategories = map[string]bool{
	"technology": true,
	"culture":    true,
	"food":       true,
	"history":    true,
	"nature":     true,
}

var budgetFactors = map[string]float64{
	"low":      0.5,
	"moderate": 0.75,
	"high":     1,
}

// BudgetFactor maps a budget label to the multiplier applied to activity
// costs. Unknown labels count as moderate.
func BudgetFactor(budget string) float64 {
	if f, ok := budgetFactors[strings.ToLower(strings.TrimSpace(budget))]; ok {
		return f
	}
	return budgetFactors[DefaultBudget]
}

type DestinationLister interface {
	List(ctx context.Context, country string) ([]types.Destination, error)
}

type AttractionFinder interface {
	FindByDestination(ctx context.Context, destinationID int64, interests []string) ([]types.Attraction, error)
	Get(ctx context.Context, id int64) (*types.Attraction, error)
}

type Recommender struct {
	destinations DestinationLister
	attractions  AttractionFinder
	logger       *slog.Logger
}

func NewRecommender(destinations DestinationLister, attractions AttractionFinder, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recommender{destinations: destinations, attractions: attractions, logger: logger}
}

// Recommendations lists every destination when at least one interest is a
// known category, each with its attractions sharing an interest and the
// names of up to five activities that fit the budget.
func (r *Recommender) Recommendations(ctx context.Context, interests []string, budget string) ([]types.Recommendation, error) {
	normalized := normalizeInterests(interests)
	if !matchesCategory(normalized) {
		return []types.Recommendation{}, nil
	}

	destinations, err := r.destinations.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("list destinations: %w", err)
	}

	out := make([]types.Recommendation, 0, len(destinations))
	for _, d := range destinations {
		attractions, err := r.attractions.FindByDestination(ctx, d.ID, normalized)
		if err != nil {
			return nil, fmt.Errorf("attractions for destination %d: %w", d.ID, err)
		}
		if attractions == nil {
			attractions = []types.Attraction{}
		}
		out = append(out, types.Recommendation{
			Destination:           d,
			Attractions:           attractions,
			RecommendedActivities: RecommendedActivities(attractions, budget),
		})
	}

	r.logger.Debug("recommendations built",
		"interests", normalized,
		"budget", budget,
		"destinations", len(out),
	)
	return out, nil
}

// Attraction returns one attraction by id. A missing id surfaces as
// store.ErrNotFound.
func (r *Recommender) Attraction(ctx context.Context, id int64) (*types.Attraction, error) {
	return r.attractions.Get(ctx, id)
}

// RecommendedActivities keeps attractions whose scaled cost stays within the
// ceiling, in their given order. A missing cost counts as free.
func RecommendedActivities(attractions []types.Attraction, budget string) []string {
	factor := BudgetFactor(budget)
	names := make([]string, 0, maxRecommendedActivities)
	for _, a := range attractions {
		if len(names) == maxRecommendedActivities {
			break
		}
		cost := 0.0
		if a.EstimatedCost != nil {
			cost = *a.EstimatedCost
		}
		if cost*factor <= activityCostCeiling {
			names = append(names, a.Name)
		}
	}
	return names
}

func normalizeInterests(interests []string) []string {
	out := make([]string, 0, len(interests))
	for _, i := range interests {
		if i = strings.ToLower(strings.TrimSpace(i)); i != "" {
			out = append(out, i)
		}
	}
	return out
}

func matchesCategory(interests []string) bool {
	for _, i := range interests {
		if interestCategories[i] {
			return true
		}
	}
	return false
}
