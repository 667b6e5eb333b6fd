package types

import "time"

type Destination struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Country     string    `json:"country"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Attraction struct {
	ID                  int64    `json:"id"`
	DestinationID       int64    `json:"destination_id"`
	Name                string   `json:"name"`
	Type                string   `json:"type"`
	Description         string   `json:"description,omitempty"`
	Interests           []string `json:"interests"`
	EstimatedCost       *float64 `json:"estimated_cost,omitempty"`
	RecommendedDuration *int     `json:"recommended_duration,omitempty"`
}

// Recommendation groups a destination with the attractions that matched the
// traveller's interests.
type Recommendation struct {
	Destination           Destination  `json:"destination"`
	Attractions           []Attraction `json:"attractions"`
	RecommendedActivities []string     `json:"recommendedActivities"`
}

// ItineraryDay is the shape requested from the language model when planning
// an itinerary day by day.
type ItineraryDay struct {
	Day             int                `json:"day"`
	Activities      []Activity         `json:"activities"`
	WeatherForecast *DayWeatherSummary `json:"weatherForecast,omitempty"`
}

type Activity struct {
	Time          string  `json:"time"`
	Activity      string  `json:"activity"`
	Location      string  `json:"location"`
	EstimatedCost float64 `json:"estimatedCost"`
	TravelTips    string  `json:"travelTips,omitempty"`
}

type DayWeatherSummary struct {
	Temperature   float64  `json:"temperature"`
	Conditions    string   `json:"conditions"`
	Precipitation *float64 `json:"precipitation,omitempty"`
}
