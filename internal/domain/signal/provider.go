// Package signal produces the weather and time-of-day context used to price
// dishes. All external lookups degrade to deterministic simulations, so the
// provider never fails.
package signal

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// DefaultWeatherTimeout bounds a single external weather lookup.
const DefaultWeatherTimeout = 5 * time.Second

// ProviderConfig holds non-dependency configuration for the Provider.
type ProviderConfig struct {
	// WeatherTimeout bounds the external lookup. Zero means DefaultWeatherTimeout.
	WeatherTimeout time.Duration
	// Location is the time zone used for time factors and simulated weather.
	// Nil means time.Local.
	Location *time.Location
	// Now overrides the wall clock, mostly for tests.
	Now func() time.Time
}

// Provider combines an optional weather source with the wall clock.
type Provider struct {
	source  WeatherSource
	timeout time.Duration
	loc     *time.Location
	now     func() time.Time
}

// NewProvider creates a Provider. A nil source means weather is always
// simulated.
func NewProvider(cfg ProviderConfig, source WeatherSource) *Provider {
	p := &Provider{
		source:  source,
		timeout: cfg.WeatherTimeout,
		loc:     cfg.Location,
		now:     cfg.Now,
	}
	if p.timeout <= 0 {
		p.timeout = DefaultWeatherTimeout
	}
	if p.loc == nil {
		p.loc = time.Local
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Now returns the current time in the provider's location.
func (p *Provider) Now() time.Time {
	return p.now().In(p.loc)
}

// Weather returns the current weather at the coordinate, falling back to the
// time-based simulation on any lookup failure.
func (p *Provider) Weather(ctx context.Context, lat, lon float64) Weather {
	if p.source == nil {
		return SimulatedWeather(p.Now())
	}

	lookupCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	obs, err := p.source.Current(lookupCtx, lat, lon)
	if err != nil || obs == nil {
		zctx.From(ctx).Warn("Weather lookup failed, using simulation",
			zap.Float64("lat", lat),
			zap.Float64("lon", lon),
			zap.Error(err),
		)
		return SimulatedWeather(p.Now())
	}
	return FromObservation(*obs)
}

// TimeFactors returns the time factors for the current moment.
func (p *Provider) TimeFactors() TimeFactors {
	return TimeFactorsAt(p.Now())
}
