package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/api/response"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/weather"
)

const weatherMaxAge = 5 * time.Minute

// WeatherService returns current conditions at a point.
type WeatherService interface {
	Current(ctx context.Context, point geo.Point) (*weather.Snapshot, error)
}

// WeatherHandler handles weather endpoints.
type WeatherHandler struct {
	service  WeatherService
	failures failureWriter
}

// NewWeatherHandler creates a new WeatherHandler.
func NewWeatherHandler(service WeatherService, policy provider.PolicySource, onDegraded func(provider.Domain), logger zerolog.Logger) *WeatherHandler {
	return &WeatherHandler{
		service: service,
		failures: failureWriter{
			domain: provider.DomainWeather,
			messages: upstreamMessages{
				notConfigured: "Server is not configured with a Maps API key.",
				status:        "Failed to fetch weather data from Google.",
				request:       "Failed to request weather data.",
			},
			policy:     policy,
			onDegraded: onDegraded,
			logger:     logger,
		},
	}
}

// GetCurrent handles GET /v1/weather - current conditions.
func (h *WeatherHandler) GetCurrent(w http.ResponseWriter, r *http.Request) {
	point, ok := pointFromQuery(w, r)
	if !ok {
		return
	}

	snapshot, err := h.service.Current(r.Context(), point)
	if err != nil {
		h.failures.write(w, r, err, (*weather.Snapshot)(nil))
		return
	}

	response.CacheFor(w, weatherMaxAge)
	response.JSON(w, r, http.StatusOK, snapshot)
}
