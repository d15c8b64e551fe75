// Package pricing computes demand-adjusted dish prices from weather and
// time-of-day signals. A generative oracle is preferred; the deterministic
// rule engine in ComputeFallback is used whenever the oracle fails.
package pricing

import (
	"context"
	"strconv"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/dynamic-pricing/internal/domain/signal"
)

// ErrNoDishes is returned when a pricing request contains no dishes.
var ErrNoDishes = errors.New("no dishes provided")

// Multiplier bounds applied by the rule engine.
var (
	MinMultiplier = decimal.RequireFromString("0.75")
	MaxMultiplier = decimal.RequireFromString("1.75")
)

// NormalConditions is the summary used when no rule adjusted the price.
const NormalConditions = "Normal pricing conditions"

// TimestampLayout is the ISO-8601 layout of Result.Timestamp.
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Source identifies which path produced a Result.
type Source string

const (
	SourceOracle Source = "oracle"
	SourceRules  Source = "rules"
)

// Dish is a menu item to be priced. Price is in minor currency units.
type Dish struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Category string `json:"category"`
}

// PricedDish is a Dish with its demand-adjusted price.
type PricedDish struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         int64   `json:"price"`
	Category      string  `json:"category,omitempty"`
	OriginalPrice int64   `json:"originalPrice"`
	DynamicPrice  int64   `json:"dynamicPrice"`
	Multiplier    float64 `json:"multiplier"`
	PriceChange   string  `json:"priceChange"`
	Surcharge     int64   `json:"surcharge"`
	Savings       int64   `json:"savings"`
}

// Factors decomposes the multiplier into signed per-signal impacts.
type Factors struct {
	WeatherImpact float64 `json:"weather_impact"`
	TrafficImpact float64 `json:"traffic_impact"`
	TimeImpact    float64 `json:"time_impact"`
	DemandImpact  float64 `json:"demand_impact"`
}

// Result is the outcome of a pricing request.
type Result struct {
	Multiplier        float64            `json:"multiplier"`
	Reasoning         string             `json:"reasoning"`
	Dishes            []PricedDish       `json:"dishes"`
	Factors           Factors            `json:"factors"`
	ConditionsSummary string             `json:"conditions_summary"`
	Weather           signal.Weather     `json:"weather"`
	TimeFactors       signal.TimeFactors `json:"time_factors"`
	Timestamp         string             `json:"timestamp"`

	// Source is kept off the wire: clients cannot tell oracle pricing from
	// rule-based pricing.
	Source Source `json:"-"`
}

// Prompt is the instruction sent to the oracle.
type Prompt struct {
	System string
	User   string
}

// Oracle is an external generative model returning a JSON document.
type Oracle interface {
	Complete(ctx context.Context, p Prompt) ([]byte, error)
}

// PriceDish applies the multiplier to a dish, rounding half to even to a whole
// price. The multiplier reported on the dish is rounded to two decimals.
func PriceDish(d Dish, multiplier decimal.Decimal) PricedDish {
	dynamic := decimal.NewFromInt(d.Price).Mul(multiplier).RoundBank(0).IntPart()
	change, surcharge, savings := Settle(d.Price, dynamic)
	return PricedDish{
		ID:            d.ID,
		Name:          d.Name,
		Price:         d.Price,
		Category:      d.Category,
		OriginalPrice: d.Price,
		DynamicPrice:  dynamic,
		Multiplier:    multiplier.Round(2).InexactFloat64(),
		PriceChange:   change,
		Surcharge:     surcharge,
		Savings:       savings,
	}
}

// Settle computes the signed price change and splits it into a surcharge or
// savings amount. At most one of the two is nonzero.
func Settle(original, dynamic int64) (change string, surcharge, savings int64) {
	diff := dynamic - original
	if diff > 0 {
		return "+" + strconv.FormatInt(diff, 10), diff, 0
	}
	return strconv.FormatInt(diff, 10), 0, -diff
}

// Clamp bounds a multiplier to [MinMultiplier, MaxMultiplier].
func Clamp(m decimal.Decimal) decimal.Decimal {
	return decimal.Min(decimal.Max(m, MinMultiplier), MaxMultiplier)
}
