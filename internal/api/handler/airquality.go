package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/airquality"
	"github.com/airlens/airlens/internal/api/response"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
)

// stationsMaxAge is how long clients may cache station observations.
const stationsMaxAge = 5 * time.Minute

// StationService returns reduced station observations near a point.
type StationService interface {
	Current(ctx context.Context, point geo.Point, distance float64) ([]airquality.Observation, error)
}

// AirQualityHandler handles station observation endpoints.
type AirQualityHandler struct {
	service  StationService
	failures failureWriter
}

// NewAirQualityHandler creates a new AirQualityHandler.
func NewAirQualityHandler(service StationService, policy provider.PolicySource, onDegraded func(provider.Domain), logger zerolog.Logger) *AirQualityHandler {
	return &AirQualityHandler{
		service: service,
		failures: failureWriter{
			domain: provider.DomainStations,
			messages: upstreamMessages{
				notConfigured: "Server is not configured with an AirNow API key.",
				status:        "Failed to fetch air quality data from AirNow.",
				request:       "Failed to request air quality data.",
			},
			policy:     policy,
			onDegraded: onDegraded,
			logger:     logger,
		},
	}
}

// GetCurrent handles GET /v1/air-quality - averaged station observations.
// Without "distance" the search widens over the radius ladder.
func (h *AirQualityHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	point, ok := pointFromQuery(w, r)
	if !ok {
		return
	}

	var distance float64
	if raw := r.URL.Query().Get("distance"); raw != "" {
		d, err := strconv.ParseFloat(raw, 64)
		if err != nil || d <= 0 {
			response.BadRequest(w, r, `Invalid "distance" parameter.`, nil)
			return
		}
		distance = d
	}

	observations, err := h.service.Current(r.Context(), point, distance)
	if err != nil {
		if errors.Is(err, airquality.ErrInvalidDistance) {
			response.BadRequest(w, r, `Invalid "distance" parameter.`, nil)
			return
		}
		h.failures.write(w, r, err, []airquality.Observation{})
		return
	}

	response.CacheFor(w, stationsMaxAge)
	response.JSON(w, r, http.StatusOK, observations)
}
