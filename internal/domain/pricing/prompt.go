package pricing

import (
	"fmt"
	"strings"

	"github.com/go-faster/jx"

	"github.com/xenking/dynamic-pricing/internal/domain/signal"
)

const systemPrompt = "You are a pricing expert AI. Respond ONLY with valid JSON. " +
	"No markdown formatting, no code blocks, no explanations outside JSON."

// The ranges are wider than the fixed points used by ComputeFallback to give
// the model room to weigh combined conditions.
const pricingRules = `PRICING RULES:
1. Heavy Rain/Storm: +30-50% (difficult delivery, driver safety)
2. Light Rain: +15-25% (slower delivery)
3. High Traffic: +20-30% (longer delivery time)
4. Medium Traffic: +10-15%
5. Peak Hours (lunch/dinner weekday): +10-20%
6. Weekend dinner: +15-25%
7. Late night: -10-20% (low demand)
8. Hot weather (>35°C): +5-10% (drinks and cold items)
9. Pleasant weather + low traffic: -5-15% (discount to boost orders)

CONSTRAINTS:
- Minimum multiplier: 0.75 (25% discount max)
- Maximum multiplier: 1.75 (75% increase max)
- Keep prices reasonable for Indian market
- Price must be whole numbers (round final price)`

const outputSchema = `Respond with ONLY a valid JSON object (no markdown, no explanation):
{
  "multiplier": 1.25,
  "reasoning": "Brief explanation of pricing decision based on conditions",
  "dishes": [
    {
      "id": "1",
      "name": "Margherita Pizza",
      "originalPrice": 349,
      "dynamicPrice": 419,
      "multiplier": 1.20,
      "priceChange": "+70"
    }
  ],
  "factors": {
    "weather_impact": 0.20,
    "traffic_impact": 0.15,
    "time_impact": 0.10,
    "demand_impact": 0.05
  },
  "conditions_summary": "Heavy rain with high traffic during dinner time - prices increased to compensate delivery challenges"
}`

// BuildPrompt renders the oracle instruction for the given dishes and signals.
func BuildPrompt(dishes []Dish, weather signal.Weather, tf signal.TimeFactors) Prompt {
	var b strings.Builder
	b.WriteString("You are a dynamic pricing AI expert for a food delivery service in India. ")
	b.WriteString("Analyze the following real-time conditions and provide intelligent pricing adjustments.\n\n")

	b.WriteString("CURRENT CONDITIONS:\n")
	fmt.Fprintf(&b, "Weather: %s (%s)\n", weather.Condition, weather.Description)
	fmt.Fprintf(&b, "Temperature: %g°C\n", weather.Temperature)
	fmt.Fprintf(&b, "Humidity: %d%%\n", weather.Humidity)
	fmt.Fprintf(&b, "Time: %s (%d:00)\n", tf.TimeOfDay, tf.Hour)
	fmt.Fprintf(&b, "Day: %s\n", tf.DayType)
	fmt.Fprintf(&b, "Traffic: %s (%s)\n\n", tf.Traffic, tf.TrafficDescription)

	b.WriteString("DISHES TO PRICE:\n")
	b.Write(encodeDishes(dishes))
	b.WriteString("\n\n")

	b.WriteString(pricingRules)
	b.WriteString("\n\n")
	b.WriteString(outputSchema)

	return Prompt{
		System: systemPrompt,
		User:   b.String(),
	}
}

func encodeDishes(dishes []Dish) []byte {
	var e jx.Encoder
	e.Arr(func(e *jx.Encoder) {
		for _, d := range dishes {
			category := d.Category
			if category == "" {
				category = "food"
			}
			e.Obj(func(e *jx.Encoder) {
				e.Field("id", func(e *jx.Encoder) { e.Str(d.ID) })
				e.Field("name", func(e *jx.Encoder) { e.Str(d.Name) })
				e.Field("price", func(e *jx.Encoder) { e.Int64(d.Price) })
				e.Field("category", func(e *jx.Encoder) { e.Str(category) })
			})
		}
	})
	return e.Bytes()
}
