package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/xenking/dynamic-pricing/internal/domain/pricing"
)

// Request body limit for pricing requests.
const maxBodySize = 1 << 20

// Pricer prices a list of dishes at a coordinate.
type Pricer interface {
	Calculate(ctx context.Context, dishes []pricing.Dish, lat, lon float64) (*pricing.Result, error)
}

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// ServiceName is reported by the health endpoint.
	ServiceName string
	// OracleConfigured is reported by the health endpoint.
	OracleConfigured bool
	// Now overrides the wall clock used for health timestamps.
	Now func() time.Time
}

// Handler serves the pricing HTTP API.
type Handler struct {
	pricer           Pricer
	validate         *validatorv10.Validate
	serviceName      string
	oracleConfigured bool
	now              func() time.Time
}

// NewHandler constructs a Handler. A nil validate means NewValidator().
func NewHandler(cfg HandlerConfig, pricer Pricer, validate *validatorv10.Validate) *Handler {
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "dynamic-pricing"
	}
	return &Handler{
		pricer:           pricer,
		validate:         validate,
		serviceName:      cfg.ServiceName,
		oracleConfigured: cfg.OracleConfigured,
		now:              cfg.Now,
	}
}

// Register mounts the API routes on mux under prefix, e.g. "/api".
func (h *Handler) Register(mux *http.ServeMux, prefix string) {
	mux.HandleFunc("POST "+prefix+"/pricing/calculate", h.Calculate)
	mux.HandleFunc("GET "+prefix+"/pricing/health", h.Health)
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

type successResponse struct {
	Success bool            `json:"success"`
	Data    *pricing.Result `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}
