package pricing

import (
	"math"
	"strconv"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
)

// ErrMalformedResponse is returned when the oracle output does not match the
// expected schema.
var ErrMalformedResponse = errors.New("malformed oracle response")

// ParseOracleResponse decodes and normalizes an oracle pricing document.
//
// Required fields are multiplier, a non-empty dishes array, and originalPrice
// and dynamicPrice on every dish. Prices are coerced to integers and the
// surcharge, savings and price change of every dish are recomputed from them.
// Values are not checked against multiplier bounds.
func ParseOracleResponse(raw []byte, requested []Dish) (*Result, error) {
	var (
		res           Result
		hasMultiplier bool
	)

	d := jx.DecodeBytes(raw)
	if tt := d.Next(); tt != jx.Object {
		return nil, errors.Wrapf(ErrMalformedResponse, "expected object, got %s", tt)
	}
	if err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "multiplier":
			v, err := decodeNumber(d)
			if err != nil {
				return errors.Wrap(err, "multiplier")
			}
			res.Multiplier = v
			hasMultiplier = true
		case "reasoning":
			v, err := decodeOptString(d)
			if err != nil {
				return errors.Wrap(err, "reasoning")
			}
			res.Reasoning = v
		case "conditions_summary":
			v, err := decodeOptString(d)
			if err != nil {
				return errors.Wrap(err, "conditions_summary")
			}
			res.ConditionsSummary = v
		case "factors":
			f, err := decodeFactors(d)
			if err != nil {
				return errors.Wrap(err, "factors")
			}
			res.Factors = f
		case "dishes":
			if tt := d.Next(); tt != jx.Array {
				return errors.Errorf("dishes: expected array, got %s", tt)
			}
			return d.Arr(func(d *jx.Decoder) error {
				pd, err := decodeDish(d)
				if err != nil {
					return errors.Wrapf(err, "dishes[%d]", len(res.Dishes))
				}
				res.Dishes = append(res.Dishes, pd)
				return nil
			})
		default:
			return d.Skip()
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(ErrMalformedResponse, err.Error())
	}

	if !hasMultiplier {
		return nil, errors.Wrap(ErrMalformedResponse, "missing multiplier")
	}
	if len(res.Dishes) == 0 {
		return nil, errors.Wrap(ErrMalformedResponse, "missing dishes")
	}

	byID := make(map[string]Dish, len(requested))
	for _, rd := range requested {
		byID[rd.ID] = rd
	}
	for i := range res.Dishes {
		pd := &res.Dishes[i]
		if pd.Multiplier == 0 {
			pd.Multiplier = res.Multiplier
		}
		pd.Price = pd.OriginalPrice
		if rd, ok := byID[pd.ID]; ok {
			pd.Category = rd.Category
			pd.Price = rd.Price
		}
		pd.PriceChange, pd.Surcharge, pd.Savings = Settle(pd.OriginalPrice, pd.DynamicPrice)
	}

	res.Source = SourceOracle
	return &res, nil
}

func decodeDish(d *jx.Decoder) (PricedDish, error) {
	var (
		pd                      PricedDish
		hasOriginal, hasDynamic bool
	)
	if tt := d.Next(); tt != jx.Object {
		return pd, errors.Errorf("expected object, got %s", tt)
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		switch string(key) {
		case "id":
			v, err := decodeID(d)
			if err != nil {
				return errors.Wrap(err, "id")
			}
			pd.ID = v
		case "name":
			v, err := decodeOptString(d)
			if err != nil {
				return errors.Wrap(err, "name")
			}
			pd.Name = v
		case "originalPrice":
			v, err := decodeNumber(d)
			if err != nil {
				return errors.Wrap(err, "originalPrice")
			}
			pd.OriginalPrice = int64(math.Trunc(v))
			hasOriginal = true
		case "dynamicPrice":
			v, err := decodeNumber(d)
			if err != nil {
				return errors.Wrap(err, "dynamicPrice")
			}
			pd.DynamicPrice = int64(math.Round(v))
			hasDynamic = true
		case "multiplier":
			if d.Next() == jx.Null {
				return d.Null()
			}
			v, err := decodeNumber(d)
			if err != nil {
				return errors.Wrap(err, "multiplier")
			}
			pd.Multiplier = v
		default:
			// Oracle surcharge accounting is never trusted.
			return d.Skip()
		}
		return nil
	})
	if err != nil {
		return pd, err
	}
	switch {
	case !hasOriginal:
		return pd, errors.New("missing originalPrice")
	case !hasDynamic:
		return pd, errors.New("missing dynamicPrice")
	}
	return pd, nil
}

func decodeFactors(d *jx.Decoder) (Factors, error) {
	var f Factors
	switch d.Next() {
	case jx.Null:
		return f, d.Null()
	case jx.Object:
	default:
		return f, errors.Errorf("expected object, got %s", d.Next())
	}
	err := d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		var dst *float64
		switch string(key) {
		case "weather_impact":
			dst = &f.WeatherImpact
		case "traffic_impact":
			dst = &f.TrafficImpact
		case "time_impact":
			dst = &f.TimeImpact
		case "demand_impact":
			dst = &f.DemandImpact
		default:
			return d.Skip()
		}
		v, err := decodeNumber(d)
		if err != nil {
			return errors.Wrap(err, string(key))
		}
		*dst = v
		return nil
	})
	return f, err
}

// decodeNumber reads a finite number, accepting numeric strings.
func decodeNumber(d *jx.Decoder) (float64, error) {
	var v float64
	switch tt := d.Next(); tt {
	case jx.Number:
		f, err := d.Float64()
		if err != nil {
			return 0, err
		}
		v = f
	case jx.String:
		s, err := d.Str()
		if err != nil {
			return 0, err
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, errors.Wrapf(err, "parse %q", s)
		}
		v = f
	default:
		return 0, errors.Errorf("expected number, got %s", tt)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, errors.New("number is not finite")
	}
	return v, nil
}

func decodeOptString(d *jx.Decoder) (string, error) {
	switch tt := d.Next(); tt {
	case jx.String:
		return d.Str()
	case jx.Null:
		return "", d.Null()
	default:
		return "", errors.Errorf("expected string, got %s", tt)
	}
}

// decodeID accepts both string and numeric identifiers.
func decodeID(d *jx.Decoder) (string, error) {
	if d.Next() == jx.Number {
		n, err := d.Num()
		if err != nil {
			return "", err
		}
		return string(n), nil
	}
	return decodeOptString(d)
}
