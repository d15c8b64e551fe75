package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/xenking/dynamic-pricing/internal/domain/signal"
)

// adjustment is a single multiplicative rule.
type adjustment struct {
	factor decimal.Decimal
	impact float64
	reason string
}

func adj(factor string, impact float64, reason string) adjustment {
	return adjustment{
		factor: decimal.RequireFromString(factor),
		impact: impact,
		reason: reason,
	}
}

var weatherRules = map[signal.Condition]adjustment{
	signal.ConditionStorm: adj("1.5", 0.50, "50% increase due to storm"),
	signal.ConditionRain:  adj("1.3", 0.30, "30% increase due to rain"),
	signal.ConditionSnow:  adj("1.4", 0.40, "40% increase due to snow"),
}

var trafficRules = map[signal.Traffic]adjustment{
	signal.TrafficHigh:   adj("1.25", 0.25, "25% increase for high traffic"),
	signal.TrafficMedium: adj("1.1", 0.10, "10% increase for medium traffic"),
}

var (
	weekendPeak = adj("1.15", 0.15, "15% increase for weekend peak hours")
	weekdayPeak = adj("1.1", 0.10, "10% increase for weekday peak hours")
	lateNight   = adj("0.9", -0.10, "10% discount for late night")
)

// ComputeFallback prices dishes with the deterministic rule set. It performs
// no I/O and returns identical results for identical inputs. Weather, time
// factors and an empty timestamp are set on the result.
//
// Rules are applied in order weather, traffic, time; the product is clamped
// to [0.75, 1.75] and dishes are priced with the clamped value. Only the
// reported multiplier is rounded to two decimals.
func ComputeFallback(dishes []Dish, weather signal.Weather, tf signal.TimeFactors) Result {
	var (
		multiplier = decimal.NewFromInt(1)
		factors    Factors
		reasons    []string
	)
	apply := func(a adjustment) {
		multiplier = multiplier.Mul(a.factor)
		reasons = append(reasons, a.reason)
	}

	if a, ok := weatherRules[weather.Condition]; ok {
		apply(a)
		factors.WeatherImpact = a.impact
	}

	if a, ok := trafficRules[tf.Traffic]; ok {
		apply(a)
		factors.TrafficImpact = a.impact
	}

	switch {
	case tf.IsPeak() && tf.DayType == signal.Weekend:
		apply(weekendPeak)
		factors.TimeImpact = weekendPeak.impact
	case tf.IsPeak():
		apply(weekdayPeak)
		factors.TimeImpact = weekdayPeak.impact
	case tf.TimeOfDay == signal.LateNight:
		apply(lateNight)
		factors.DemandImpact = lateNight.impact
	}

	multiplier = Clamp(multiplier)

	priced := make([]PricedDish, len(dishes))
	for i, d := range dishes {
		priced[i] = PriceDish(d, multiplier)
	}

	summary := NormalConditions
	if len(reasons) > 0 {
		summary = strings.Join(reasons, " | ")
	}

	return Result{
		Multiplier:        multiplier.Round(2).InexactFloat64(),
		Reasoning:         summary,
		Dishes:            priced,
		Factors:           factors,
		ConditionsSummary: summary,
		Weather:           weather,
		TimeFactors:       tf,
		Source:            SourceRules,
	}
}
