package pricing

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/dynamic-pricing/internal/domain/signal"
)

const instrumentationName = "github.com/xenking/dynamic-pricing/internal/domain/pricing"

// Signals provides the per-request signal context.
type Signals interface {
	Weather(ctx context.Context, lat, lon float64) signal.Weather
	TimeFactors() signal.TimeFactors
	Now() time.Time
}

// Config holds non-dependency configuration for the Service.
type Config struct {
	// EnforceOracleBounds clamps oracle multipliers to [0.75, 1.75] and
	// re-derives dish prices from original prices. Off by default: oracle
	// values are passed through as returned.
	EnforceOracleBounds bool

	MeterProvider  metric.MeterProvider
	TracerProvider trace.TracerProvider
}

// Service prices dishes with the oracle, falling back to ComputeFallback.
type Service struct {
	signals       Signals
	oracle        Oracle
	enforceBounds bool

	tracer  trace.Tracer
	results metric.Int64Counter
}

// NewService creates a pricing Service. A nil oracle means every request is
// priced by the rule engine.
func NewService(cfg Config, signals Signals, oracle Oracle) (*Service, error) {
	if cfg.MeterProvider == nil {
		cfg.MeterProvider = metricnoop.NewMeterProvider()
	}
	if cfg.TracerProvider == nil {
		cfg.TracerProvider = tracenoop.NewTracerProvider()
	}

	results, err := cfg.MeterProvider.Meter(instrumentationName).Int64Counter("pricing.results",
		metric.WithDescription("Pricing results by source (oracle or rules)"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create results counter")
	}

	return &Service{
		signals:       signals,
		oracle:        oracle,
		enforceBounds: cfg.EnforceOracleBounds,
		tracer:        cfg.TracerProvider.Tracer(instrumentationName),
		results:       results,
	}, nil
}

// Calculate prices dishes for the given coordinate.
//
// Signals are fetched once. The oracle is called at most once; any oracle
// failure is logged and the same signals are priced by ComputeFallback
// instead, so the only error is ErrNoDishes. Weather, time factors and the
// timestamp are always set locally.
func (s *Service) Calculate(ctx context.Context, dishes []Dish, lat, lon float64) (*Result, error) {
	if len(dishes) == 0 {
		return nil, ErrNoDishes
	}
	lg := zctx.From(ctx)

	weather := s.signals.Weather(ctx, lat, lon)
	tf := s.signals.TimeFactors()

	res, err := s.priceWithOracle(ctx, dishes, weather, tf)
	if err != nil {
		lg.Warn("Oracle pricing failed, using rule-based fallback", zap.Error(err))
		fallback := ComputeFallback(dishes, weather, tf)
		res = &fallback
	}

	res.Weather = weather
	res.TimeFactors = tf
	res.Timestamp = s.signals.Now().Format(TimestampLayout)

	s.results.Add(ctx, 1, metric.WithAttributes(attribute.String("source", string(res.Source))))
	lg.Info("Priced dishes",
		zap.String("source", string(res.Source)),
		zap.Float64("multiplier", res.Multiplier),
		zap.Int("dishes", len(res.Dishes)),
		zap.String("weather", string(weather.Condition)),
		zap.String("traffic", string(tf.Traffic)),
	)
	return res, nil
}

func (s *Service) priceWithOracle(ctx context.Context, dishes []Dish, weather signal.Weather, tf signal.TimeFactors) (_ *Result, rerr error) {
	if s.oracle == nil {
		return nil, errors.New("oracle not configured")
	}

	ctx, span := s.tracer.Start(ctx, "pricing.oracle")
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		span.End()
	}()

	raw, err := s.oracle.Complete(ctx, BuildPrompt(dishes, weather, tf))
	if err != nil {
		return nil, errors.Wrap(err, "call oracle")
	}

	res, err := ParseOracleResponse(raw, dishes)
	if err != nil {
		return nil, errors.Wrap(err, "parse oracle response")
	}

	m := decimal.NewFromFloat(res.Multiplier)
	if m.LessThan(MinMultiplier) || m.GreaterThan(MaxMultiplier) {
		zctx.From(ctx).Warn("Oracle multiplier outside bounds",
			zap.Float64("multiplier", res.Multiplier),
			zap.Bool("enforced", s.enforceBounds),
		)
		if s.enforceBounds {
			applyBounds(res, Clamp(m))
		}
	}
	span.SetAttributes(attribute.Float64("pricing.multiplier", res.Multiplier))

	return res, nil
}

// applyBounds replaces the oracle multiplier and re-prices every dish from
// its original price.
func applyBounds(res *Result, m decimal.Decimal) {
	res.Multiplier = m.InexactFloat64()
	for i, pd := range res.Dishes {
		priced := PriceDish(Dish{
			ID:       pd.ID,
			Name:     pd.Name,
			Price:    pd.OriginalPrice,
			Category: pd.Category,
		}, m)
		priced.Price = pd.Price
		res.Dishes[i] = priced
	}
}
