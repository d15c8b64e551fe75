package signal

import "time"

// TimeOfDay is the meal band derived from the hour.
type TimeOfDay string

const (
	Breakfast TimeOfDay = "breakfast"
	Lunch     TimeOfDay = "lunch"
	Dinner    TimeOfDay = "dinner"
	LateNight TimeOfDay = "late-night"
)

// DayType distinguishes weekdays from weekends.
type DayType string

const (
	Weekday DayType = "weekday"
	Weekend DayType = "weekend"
)

// Traffic is the simulated road traffic level.
type Traffic string

const (
	TrafficLow    Traffic = "low"
	TrafficMedium Traffic = "medium"
	TrafficHigh   Traffic = "high"
)

// TimeFactors is the time-of-day and traffic context for a pricing request.
type TimeFactors struct {
	Hour               int       `json:"hour"`
	TimeOfDay          TimeOfDay `json:"time_of_day"`
	DayType            DayType   `json:"day_type"`
	Traffic            Traffic   `json:"traffic"`
	TrafficDescription string    `json:"traffic_description"`
}

// IsPeak reports whether the time falls into the lunch or dinner band.
func (f TimeFactors) IsPeak() bool {
	return f.TimeOfDay == Lunch || f.TimeOfDay == Dinner
}

// TimeFactorsAt derives time factors from a wall-clock time.
//
// Traffic bands are intentionally independent of the meal bands: rush hours
// are 08–10 and 17–19 inclusive, 11–16 is moderate, everything else is light.
func TimeFactorsAt(t time.Time) TimeFactors {
	hour := t.Hour()

	var tod TimeOfDay
	switch {
	case hour >= 6 && hour < 11:
		tod = Breakfast
	case hour >= 11 && hour < 16:
		tod = Lunch
	case hour >= 16 && hour < 22:
		tod = Dinner
	default:
		tod = LateNight
	}

	day := Weekday
	if wd := t.Weekday(); wd == time.Saturday || wd == time.Sunday {
		day = Weekend
	}

	var (
		traffic Traffic
		desc    string
	)
	switch {
	case (hour >= 8 && hour <= 10) || (hour >= 17 && hour <= 19):
		traffic, desc = TrafficHigh, "Heavy traffic - rush hour"
	case hour >= 11 && hour <= 16:
		traffic, desc = TrafficMedium, "Moderate traffic"
	default:
		traffic, desc = TrafficLow, "Light traffic"
	}

	return TimeFactors{
		Hour:               hour,
		TimeOfDay:          tod,
		DayType:            day,
		Traffic:            traffic,
		TrafficDescription: desc,
	}
}
