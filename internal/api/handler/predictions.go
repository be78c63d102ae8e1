package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/api/response"
	"github.com/airlens/airlens/internal/predictions"
	"github.com/airlens/airlens/internal/provider"
)

const predictionsMaxAge = 5 * time.Minute

// PredictionService answers gridded prediction queries.
type PredictionService interface {
	Query(ctx context.Context, q predictions.Query) (*geojson.FeatureCollection, error)
}

// PredictionsHandler handles prediction heatmap endpoints.
type PredictionsHandler struct {
	service  PredictionService
	failures failureWriter
}

// NewPredictionsHandler creates a new PredictionsHandler.
func NewPredictionsHandler(service PredictionService, policy provider.PolicySource, onDegraded func(provider.Domain), logger zerolog.Logger) *PredictionsHandler {
	return &PredictionsHandler{
		service: service,
		failures: failureWriter{
			domain: provider.DomainPredictions,
			messages: upstreamMessages{
				notConfigured: "Server is not configured with a predictions backend.",
				status:        "Failed to query predictions.",
				request:       "Failed to query predictions.",
			},
			policy:     policy,
			onDegraded: onDegraded,
			logger:     logger,
		},
	}
}

// GetPredictions handles GET /v1/predictions - PM2.5 prediction cells as
// GeoJSON for a timestamp and a bbox or a lat/lon/radius_km circle.
func (h *PredictionsHandler) GetPredictions(w http.ResponseWriter, r *http.Request) {
	q, err := predictions.ParseQuery(r.URL.Query())
	if err != nil {
		response.BadRequest(w, r, queryErrorMessage(err), nil)
		return
	}

	fc, err := h.service.Query(r.Context(), q)
	if err != nil {
		if errors.Is(err, predictions.ErrInvalidQuery) {
			response.BadRequest(w, r, queryErrorMessage(err), nil)
			return
		}
		h.failures.write(w, r, err, geojson.NewFeatureCollection())
		return
	}

	response.CacheFor(w, predictionsMaxAge)
	response.JSON(w, r, http.StatusOK, fc)
}

func queryErrorMessage(err error) string {
	switch {
	case errors.Is(err, predictions.ErrMissingTimestamp):
		return `Missing timestamp parameter "ts".`
	case errors.Is(err, predictions.ErrInvalidTimestamp):
		return `Invalid "ts" parameter.`
	case errors.Is(err, predictions.ErrInvalidBBox):
		return `Invalid "bbox" parameter format.`
	case errors.Is(err, predictions.ErrInvalidCenter):
		return `Invalid "lat" or "lon" parameters.`
	case errors.Is(err, predictions.ErrInvalidRadius):
		return `Invalid "radius_km" parameter.`
	case errors.Is(err, predictions.ErrSelectorConflict):
		return `Provide either "bbox" or "lat", "lon" and "radius_km", not both.`
	default:
		return `Either "bbox" or "lat", "lon" and "radius_km" must be provided.`
	}
}
