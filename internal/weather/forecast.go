// Package weather looks up a daily forecast for a destination from
// OpenWeatherMap, with a fixed fallback record when no forecast is available.
package weather

import "time"

const dateLayout = "2006-01-02"

type Forecast struct {
	Date        string      `json:"date"`
	Temperature Temperature `json:"temperature"`
	Conditions  string      `json:"conditions"`
	Humidity    float64     `json:"humidity"`
	WindSpeed   float64     `json:"windSpeed"`
}

type Temperature struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

// Fallback is returned whenever a real forecast cannot be produced for date.
func Fallback(date time.Time) *Forecast {
	return &Forecast{
		Date:        date.Format(dateLayout),
		Temperature: Temperature{Min: 20, Max: 25, Average: 22},
		Conditions:  "Moderate",
		Humidity:    60,
		WindSpeed:   5,
	}
}

// owmResponse is the subset of the OpenWeatherMap 5 day / 3 hour forecast
// payload that is read.
type owmResponse struct {
	List []owmEntry `json:"list"`
}

type owmEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp     float64 `json:"temp"`
		TempMin  float64 `json:"temp_min"`
		TempMax  float64 `json:"temp_max"`
		Humidity float64 `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// pick returns the first entry falling on date's calendar day (UTC), or nil.
func (r *owmResponse) pick(date time.Time) *Forecast {
	day := date.UTC().Format(dateLayout)
	for _, e := range r.List {
		if time.Unix(e.Dt, 0).UTC().Format(dateLayout) != day {
			continue
		}
		f := &Forecast{
			Date: day,
			Temperature: Temperature{
				Min:     e.Main.TempMin,
				Max:     e.Main.TempMax,
				Average: e.Main.Temp,
			},
			Humidity:  e.Main.Humidity,
			WindSpeed: e.Wind.Speed,
		}
		if len(e.Weather) > 0 {
			f.Conditions = e.Weather[0].Description
		}
		return f
	}
	return nil
}
