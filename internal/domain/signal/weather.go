package signal

import (
	"context"
	"strings"
	"time"
)

// Condition is the weather classification used by the pricing rules.
type Condition string

const (
	ConditionClear Condition = "clear"
	ConditionRain  Condition = "rain"
	ConditionStorm Condition = "storm"
	ConditionSnow  Condition = "snow"
)

// Weather is the weather context consumed by the pricing engine.
type Weather struct {
	Condition   Condition `json:"condition"`
	Temperature float64   `json:"temperature"`
	Description string    `json:"description"`
	Humidity    int       `json:"humidity"`
}

// Observation is a raw reading returned by an external weather service.
type Observation struct {
	// Main is the short condition group, e.g. "Rain" or "Thunderstorm".
	Main        string
	Description string
	Temperature float64
	Humidity    int
}

// WeatherSource looks up current weather for a coordinate.
type WeatherSource interface {
	Current(ctx context.Context, lat, lon float64) (*Observation, error)
}

type keywordRule struct {
	keyword   string
	condition Condition
}

// classification is evaluated top to bottom; the first match wins.
var classification = []keywordRule{
	{keyword: "storm", condition: ConditionStorm},
	{keyword: "thunder", condition: ConditionStorm},
	{keyword: "rain", condition: ConditionRain},
	{keyword: "snow", condition: ConditionSnow},
}

// Classify maps free-form condition text onto a Condition. Unrecognized text
// is treated as clear.
func Classify(text string) Condition {
	text = strings.ToLower(text)
	for _, r := range classification {
		if strings.Contains(text, r.keyword) {
			return r.condition
		}
	}
	return ConditionClear
}

// FromObservation converts a raw observation into a Weather context.
func FromObservation(o Observation) Weather {
	humidity := o.Humidity
	switch {
	case humidity < 0:
		humidity = 0
	case humidity > 100:
		humidity = 100
	}
	return Weather{
		Condition:   Classify(o.Main),
		Temperature: o.Temperature,
		Description: o.Description,
		Humidity:    humidity,
	}
}

// SimulatedWeather returns the canned weather used when no live reading is
// available: light rain between 14:00 and 17:59, clear sky otherwise.
func SimulatedWeather(t time.Time) Weather {
	if h := t.Hour(); h >= 14 && h <= 17 {
		return Weather{
			Condition:   ConditionRain,
			Temperature: 28,
			Description: "Light rain",
			Humidity:    80,
		}
	}
	return Weather{
		Condition:   ConditionClear,
		Temperature: 25,
		Description: "Clear sky",
		Humidity:    60,
	}
}
