package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xenking/dynamic-pricing/internal/domain/pricing"
	"github.com/xenking/dynamic-pricing/internal/domain/signal"
	"github.com/xenking/dynamic-pricing/internal/groq"
	"github.com/xenking/dynamic-pricing/internal/handler"
	"github.com/xenking/dynamic-pricing/internal/openweather"
	"github.com/xenking/dynamic-pricing/pkg/health"
	"github.com/xenking/dynamic-pricing/pkg/httpmiddleware"
)

// Telemetry provides the metric and trace providers.
type Telemetry interface {
	MeterProvider() metric.MeterProvider
	TracerProvider() trace.TracerProvider
}

// Components are the wired domain objects shared by the API server and the
// operator CLI.
type Components struct {
	Signals *signal.Provider
	Pricing *pricing.Service
	Oracle  *groq.Client
}

// NewComponents builds the signal provider, oracle client and pricing
// service from cfg.
func NewComponents(cfg *Config, lg *zap.Logger, m Telemetry) (*Components, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var source signal.WeatherSource
	if cfg.Weather.APIKey != "" {
		weather, err := openweather.New(cfg.Weather.APIKey, cfg.Weather.BaseURL, outboundClient(m, 0))
		if err != nil {
			return nil, errors.Wrap(err, "create weather client")
		}
		source = weather
	} else {
		lg.Info("Weather API key not set, using simulated weather")
	}
	signals := signal.NewProvider(signal.ProviderConfig{
		WeatherTimeout: cfg.Weather.Timeout,
		Location:       loc,
	}, source)

	oracle, err := groq.New(groq.Config{
		APIKey:  cfg.Oracle.APIKey,
		BaseURL: cfg.Oracle.BaseURL,
		Model:   cfg.Oracle.Model,
		Timeout: cfg.Oracle.Timeout,
	}, outboundClient(m, cfg.Oracle.Timeout))
	if err != nil {
		return nil, errors.Wrap(err, "create oracle client")
	}

	svc, err := pricing.NewService(pricing.Config{
		EnforceOracleBounds: cfg.Oracle.EnforceBounds,
		MeterProvider:       m.MeterProvider(),
		TracerProvider:      m.TracerProvider(),
	}, signals, oracle)
	if err != nil {
		return nil, errors.Wrap(err, "create pricing service")
	}

	return &Components{Signals: signals, Pricing: svc, Oracle: oracle}, nil
}

// outboundClient returns an instrumented HTTP client that forwards the
// request id upstream. Zero timeout leaves deadlines to the request context.
func outboundClient(m Telemetry, timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		Transport: httpmiddleware.PropagateRequestID(otelhttp.NewTransport(http.DefaultTransport,
			otelhttp.WithMeterProvider(m.MeterProvider()),
			otelhttp.WithTracerProvider(m.TracerProvider()),
		)),
	}
}

// NewHealth registers the process and upstream checks. Upstream checks are
// non-critical: pricing keeps working when they fail.
func NewHealth(cfg *Config, m Telemetry) *health.Health {
	h := health.New()
	h.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	h.AddLivenessCheck("gc_pause", time.Second, health.GCMaxPauseCheck(time.Second))

	probe := outboundClient(m, 0)
	h.AddReadinessCheck("oracle", 5*time.Second,
		health.ReachableCheck(probe, cfg.Oracle.BaseURL), health.NonCritical())
	if cfg.Weather.APIKey != "" {
		h.AddReadinessCheck("weather", 5*time.Second,
			health.ReachableCheck(probe, cfg.Weather.BaseURL), health.NonCritical())
	}
	return h
}

// NewRouter mounts the probes and the pricing API.
func NewRouter(h *handler.Handler, hc *health.Health) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", hc.LiveEndpoint)
	mux.HandleFunc("GET /readyz", hc.ReadyEndpoint)
	h.Register(mux, "/api")
	return mux
}

// NewHTTPHandler wraps the router with the middleware chain.
func NewHTTPHandler(cfg *Config, lg *zap.Logger, m Telemetry, router http.Handler) http.Handler {
	return httpmiddleware.Wrap(router,
		httpmiddleware.RequestID(),
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			AllowOrigins:     cfg.CORS.Origins,
			AllowHeaders:     []string{"Content-Type", "Authorization", "X-Request-ID"},
			ExposeHeaders:    []string{"X-Request-ID"},
			AllowCredentials: cfg.CORS.AllowCredentials,
			MaxAge:           86400,
		}),
		httpmiddleware.Instrument(cfg.ServiceName, m),
		httpmiddleware.LogRequests(),
	)
}

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m Telemetry, cfg *Config) error {
	lg.Info("Initializing",
		zap.String("addr", cfg.Addr),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("weather_configured", cfg.Weather.APIKey != ""),
		zap.Bool("enforce_oracle_bounds", cfg.Oracle.EnforceBounds),
	)

	c, err := NewComponents(cfg, lg, m)
	if err != nil {
		return err
	}

	healthSvc := NewHealth(cfg, m)
	healthSvc.Start(ctx, 30*time.Second)
	defer healthSvc.Stop()
	healthSvc.SetReady(true)

	h := handler.NewHandler(handler.HandlerConfig{
		ServiceName:      cfg.ServiceName,
		OracleConfigured: cfg.Oracle.APIKey != "",
		Now:              c.Signals.Now,
	}, c.Pricing, handler.NewValidator())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      cfg.Oracle.Timeout + cfg.Weather.Timeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           NewHTTPHandler(cfg, lg, m, NewRouter(h, healthSvc)),
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		healthSvc.SetReady(false)
		if ctx.Err() != nil {
			lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
			time.Sleep(cfg.Graceful.ReadinessDelay)
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			return errors.Wrap(err, "shutdown")
		}
		return nil
	})
	return g.Wait()
}
