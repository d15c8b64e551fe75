package pricing

import (
	"testing"

	"github.com/jaswdr/faker"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/dynamic-pricing/internal/domain/signal"
)

func weatherOf(c signal.Condition) signal.Weather {
	return signal.Weather{Condition: c, Temperature: 25, Description: string(c), Humidity: 60}
}

func timeOf(hour int, tod signal.TimeOfDay, day signal.DayType, traffic signal.Traffic) signal.TimeFactors {
	return signal.TimeFactors{
		Hour:               hour,
		TimeOfDay:          tod,
		DayType:            day,
		Traffic:            traffic,
		TrafficDescription: string(traffic),
	}
}

var pizza = Dish{ID: "1", Name: "Pizza", Price: 349, Category: "pizza"}

func TestComputeFallback(t *testing.T) {
	tests := []struct {
		name       string
		weather    signal.Weather
		tf         signal.TimeFactors
		dish       Dish
		multiplier float64
		dynamic    int64
		change     string
		surcharge  int64
		savings    int64
		factors    Factors
		summary    string
	}{
		{
			name:       "storm, rush hour, weekday dinner is clamped",
			weather:    weatherOf(signal.ConditionStorm),
			tf:         timeOf(18, signal.Dinner, signal.Weekday, signal.TrafficHigh),
			dish:       pizza,
			multiplier: 1.75,
			dynamic:    611,
			change:     "+262",
			surcharge:  262,
			factors:    Factors{WeatherImpact: 0.50, TrafficImpact: 0.25, TimeImpact: 0.10},
			summary:    "50% increase due to storm | 25% increase for high traffic | 10% increase for weekday peak hours",
		},
		{
			name:       "late night discount",
			weather:    weatherOf(signal.ConditionClear),
			tf:         timeOf(2, signal.LateNight, signal.Weekday, signal.TrafficLow),
			dish:       pizza,
			multiplier: 0.9,
			dynamic:    314,
			change:     "-35",
			savings:    35,
			factors:    Factors{DemandImpact: -0.10},
			summary:    "10% discount for late night",
		},
		{
			name:       "rain, medium traffic, weekday lunch",
			weather:    weatherOf(signal.ConditionRain),
			tf:         timeOf(13, signal.Lunch, signal.Weekday, signal.TrafficMedium),
			dish:       Dish{ID: "2", Name: "Burger", Price: 100},
			multiplier: 1.57,
			dynamic:    157,
			change:     "+57",
			surcharge:  57,
			factors:    Factors{WeatherImpact: 0.30, TrafficImpact: 0.10, TimeImpact: 0.10},
			summary:    "30% increase due to rain | 10% increase for medium traffic | 10% increase for weekday peak hours",
		},
		{
			name:       "pizza priced with unrounded multiplier",
			weather:    weatherOf(signal.ConditionRain),
			tf:         timeOf(14, signal.Lunch, signal.Weekday, signal.TrafficMedium),
			dish:       pizza,
			multiplier: 1.57, // 1.3 * 1.1 * 1.1 = 1.573
			dynamic:    549,  // 349 * 1.573 = 548.977
			change:     "+200",
			surcharge:  200,
			factors:    Factors{WeatherImpact: 0.30, TrafficImpact: 0.10, TimeImpact: 0.10},
			summary:    "30% increase due to rain | 10% increase for medium traffic | 10% increase for weekday peak hours",
		},
		{
			name:       "exact half rounds to even",
			weather:    weatherOf(signal.ConditionClear),
			tf:         timeOf(1, signal.LateNight, signal.Weekday, signal.TrafficLow),
			dish:       Dish{ID: "6", Name: "Papad", Price: 5},
			multiplier: 0.9,
			dynamic:    4, // 5 * 0.9 = 4.5
			change:     "-1",
			savings:    1,
			factors:    Factors{DemandImpact: -0.10},
			summary:    "10% discount for late night",
		},
		{
			name:       "snow, weekend lunch",
			weather:    weatherOf(signal.ConditionSnow),
			tf:         timeOf(12, signal.Lunch, signal.Weekend, signal.TrafficMedium),
			dish:       Dish{ID: "3", Name: "Soup", Price: 200},
			multiplier: 1.75, // 1.4 * 1.1 * 1.15 = 1.771
			dynamic:    350,
			change:     "+150",
			surcharge:  150,
			factors:    Factors{WeatherImpact: 0.40, TrafficImpact: 0.10, TimeImpact: 0.15},
			summary:    "40% increase due to snow | 10% increase for medium traffic | 15% increase for weekend peak hours",
		},
		{
			name:       "clear breakfast with light traffic is unchanged",
			weather:    weatherOf(signal.ConditionClear),
			tf:         timeOf(7, signal.Breakfast, signal.Weekday, signal.TrafficLow),
			dish:       pizza,
			multiplier: 1,
			dynamic:    349,
			change:     "0",
			summary:    NormalConditions,
		},
		{
			name:       "rain at breakfast rush hour",
			weather:    weatherOf(signal.ConditionRain),
			tf:         timeOf(9, signal.Breakfast, signal.Weekend, signal.TrafficHigh),
			dish:       Dish{ID: "4", Name: "Dosa", Price: 120},
			multiplier: 1.63, // 1.3 * 1.25 = 1.625
			dynamic:    195,  // 120 * 1.625
			change:     "+75",
			surcharge:  75,
			factors:    Factors{WeatherImpact: 0.30, TrafficImpact: 0.25},
			summary:    "30% increase due to rain | 25% increase for high traffic",
		},
		{
			name:       "free dish stays free",
			weather:    weatherOf(signal.ConditionStorm),
			tf:         timeOf(18, signal.Dinner, signal.Weekend, signal.TrafficHigh),
			dish:       Dish{ID: "5", Name: "Water", Price: 0},
			multiplier: 1.75,
			dynamic:    0,
			change:     "0",
			factors:    Factors{WeatherImpact: 0.50, TrafficImpact: 0.25, TimeImpact: 0.15},
			summary:    "50% increase due to storm | 25% increase for high traffic | 15% increase for weekend peak hours",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ComputeFallback([]Dish{tt.dish}, tt.weather, tt.tf)

			assert.Equal(t, tt.multiplier, res.Multiplier)
			assert.Equal(t, tt.factors, res.Factors)
			assert.Equal(t, tt.summary, res.Reasoning)
			assert.Equal(t, tt.summary, res.ConditionsSummary)
			assert.Equal(t, tt.weather, res.Weather)
			assert.Equal(t, tt.tf, res.TimeFactors)
			assert.Equal(t, SourceRules, res.Source)
			assert.Empty(t, res.Timestamp)

			require.Len(t, res.Dishes, 1)
			got := res.Dishes[0]
			assert.Equal(t, tt.dish.ID, got.ID)
			assert.Equal(t, tt.dish.Name, got.Name)
			assert.Equal(t, tt.dish.Price, got.OriginalPrice)
			assert.Equal(t, tt.dynamic, got.DynamicPrice)
			assert.Equal(t, tt.multiplier, got.Multiplier)
			assert.Equal(t, tt.change, got.PriceChange)
			assert.Equal(t, tt.surcharge, got.Surcharge)
			assert.Equal(t, tt.savings, got.Savings)
		})
	}
}

func TestComputeFallback_Idempotent(t *testing.T) {
	dishes := []Dish{pizza, {ID: "2", Name: "Lassi", Price: 89, Category: "drinks"}}
	w := weatherOf(signal.ConditionRain)
	tf := timeOf(19, signal.Dinner, signal.Weekend, signal.TrafficHigh)

	first := ComputeFallback(dishes, w, tf)
	second := ComputeFallback(dishes, w, tf)
	assert.Equal(t, first, second)
	assert.Equal(t, int64(349), dishes[0].Price, "input must not be mutated")
}

func TestComputeFallback_PreservesOrder(t *testing.T) {
	dishes := []Dish{{ID: "c", Price: 3}, {ID: "a", Price: 1}, {ID: "b", Price: 2}}
	res := ComputeFallback(dishes, weatherOf(signal.ConditionClear), timeOf(7, signal.Breakfast, signal.Weekday, signal.TrafficLow))

	require.Len(t, res.Dishes, 3)
	assert.Equal(t, "c", res.Dishes[0].ID)
	assert.Equal(t, "a", res.Dishes[1].ID)
	assert.Equal(t, "b", res.Dishes[2].ID)
}

// productOf rebuilds the unclamped multiplier from the reported impacts.
func productOf(f Factors) decimal.Decimal {
	m := decimal.NewFromInt(1)
	for _, impact := range []float64{f.WeatherImpact, f.TrafficImpact, f.TimeImpact, f.DemandImpact} {
		m = m.Mul(decimal.NewFromInt(1).Add(decimal.NewFromFloat(impact)))
	}
	return m
}

func TestComputeFallback_Properties(t *testing.T) {
	fake := faker.New()

	conditions := []signal.Condition{signal.ConditionClear, signal.ConditionRain, signal.ConditionStorm, signal.ConditionSnow}
	traffic := []signal.Traffic{signal.TrafficLow, signal.TrafficMedium, signal.TrafficHigh}
	bands := []signal.TimeOfDay{signal.Breakfast, signal.Lunch, signal.Dinner, signal.LateNight}
	days := []signal.DayType{signal.Weekday, signal.Weekend}

	dishes := make([]Dish, 50)
	for i := range dishes {
		dishes[i] = Dish{
			ID:       fake.UUID().V4(),
			Name:     fake.Lorem().Word(),
			Price:    int64(fake.IntBetween(0, 5000)),
			Category: fake.Lorem().Word(),
		}
	}

	for _, c := range conditions {
		for _, tr := range traffic {
			for _, band := range bands {
				for _, day := range days {
					res := ComputeFallback(dishes, weatherOf(c), timeOf(12, band, day, tr))

					m := decimal.NewFromFloat(res.Multiplier)
					assert.False(t, m.LessThan(MinMultiplier), "multiplier %v below bound", res.Multiplier)
					assert.False(t, m.GreaterThan(MaxMultiplier), "multiplier %v above bound", res.Multiplier)

					exact := Clamp(productOf(res.Factors))
					assert.Equal(t, exact.Round(2).InexactFloat64(), res.Multiplier)

					require.Len(t, res.Dishes, len(dishes))
					for i, pd := range res.Dishes {
						want := decimal.NewFromInt(dishes[i].Price).Mul(exact).RoundBank(0).IntPart()
						assert.Equal(t, want, pd.DynamicPrice)
						assert.Equal(t, res.Multiplier, pd.Multiplier)

						diff := pd.DynamicPrice - pd.OriginalPrice
						if diff < 0 {
							diff = -diff
						}
						assert.Equal(t, diff, pd.Surcharge+pd.Savings)
						assert.False(t, pd.Surcharge != 0 && pd.Savings != 0, "both surcharge and savings set")
					}
				}
			}
		}
	}
}

func TestSettle(t *testing.T) {
	tests := []struct {
		original, dynamic int64
		change            string
		surcharge         int64
		savings           int64
	}{
		{349, 611, "+262", 262, 0},
		{349, 314, "-35", 0, 35},
		{349, 349, "0", 0, 0},
	}
	for _, tt := range tests {
		change, surcharge, savings := Settle(tt.original, tt.dynamic)
		assert.Equal(t, tt.change, change)
		assert.Equal(t, tt.surcharge, surcharge)
		assert.Equal(t, tt.savings, savings)
	}
}
