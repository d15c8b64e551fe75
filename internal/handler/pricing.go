package handler

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/dynamic-pricing/internal/domain/pricing"
)

// Defaults applied to omitted request fields.
const (
	DefaultLatitude  = 28.6139
	DefaultLongitude = 77.2090
	DefaultDishPrice = 299
)

type calculateRequest struct {
	Dishes    []dishRequest `json:"dishes" validate:"dive"`
	Latitude  *float64      `json:"latitude" validate:"omitempty,gte=-90,lte=90"`
	Longitude *float64      `json:"longitude" validate:"omitempty,gte=-180,lte=180"`
}

type dishRequest struct {
	ID       dishID   `json:"id"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price" validate:"omitempty,gte=0,lte=1000000000"`
	Category string   `json:"category"`
}

// dishID accepts both string and numeric identifiers.
type dishID string

func (id *dishID) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = dishID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return errors.Wrap(err, "dish id")
	}
	*id = dishID(n.String())
	return nil
}

func (r dishRequest) toDomain() pricing.Dish {
	price := int64(DefaultDishPrice)
	if r.Price != nil {
		price = int64(math.Trunc(*r.Price))
	}
	return pricing.Dish{
		ID:       string(r.ID),
		Name:     r.Name,
		Price:    price,
		Category: r.Category,
	}
}

// Calculate handles POST /api/pricing/calculate.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req calculateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.Dishes) == 0 {
		writeError(w, http.StatusBadRequest, "No dishes provided")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, validationMessage(err))
		return
	}

	lat, lon := DefaultLatitude, DefaultLongitude
	if req.Latitude != nil {
		lat = *req.Latitude
	}
	if req.Longitude != nil {
		lon = *req.Longitude
	}

	dishes := make([]pricing.Dish, len(req.Dishes))
	for i, d := range req.Dishes {
		dishes[i] = d.toDomain()
	}

	res, err := h.pricer.Calculate(r.Context(), dishes, lat, lon)
	switch {
	case errors.Is(err, pricing.ErrNoDishes):
		writeError(w, http.StatusBadRequest, "No dishes provided")
		return
	case err != nil:
		zctx.From(r.Context()).Error("Pricing failed",
			zap.Int("dishes", len(dishes)),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, successResponse{Success: true, Data: res})
}

type healthResponse struct {
	Status           string `json:"status"`
	Service          string `json:"service"`
	Timestamp        string `json:"timestamp"`
	OracleConfigured bool   `json:"oracle_configured"`
}

// Health handles GET /api/pricing/health.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:           "ok",
		Service:          h.serviceName,
		Timestamp:        h.now().Format(pricing.TimestampLayout),
		OracleConfigured: h.oracleConfigured,
	})
}
