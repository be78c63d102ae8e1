package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/api/models"
	"github.com/airlens/airlens/internal/api/response"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
	"github.com/airlens/airlens/internal/satellite"
)

// satelliteMaxAge matches the hourly cadence of TEMPO granules.
const satelliteMaxAge = time.Hour

// SatelliteService returns an NO2 column reading with the domain policy applied.
type SatelliteService interface {
	Reading(ctx context.Context, point geo.Point) (*satellite.Reading, error)
}

// SatelliteHandler handles satellite endpoints.
type SatelliteHandler struct {
	service  SatelliteService
	failures failureWriter
}

// NewSatelliteHandler creates a new SatelliteHandler. The service applies
// the satellite degrade policy itself, so errors reaching the handler fail.
func NewSatelliteHandler(service SatelliteService, logger zerolog.Logger) *SatelliteHandler {
	return &SatelliteHandler{
		service: service,
		failures: failureWriter{
			domain: provider.DomainSatellite,
			messages: upstreamMessages{
				notConfigured: "Server is not configured with a TEMPO API token.",
				status:        "Failed to fetch TEMPO data from NASA Harmony.",
				request:       "Failed to request TEMPO data.",
			},
			logger: logger,
		},
	}
}

// GetNO2 handles GET /v1/satellite/no2 - tropospheric NO2 column.
func (h *SatelliteHandler) GetNO2(w http.ResponseWriter, r *http.Request) {
	point, ok := pointFromQuery(w, r)
	if !ok {
		return
	}

	reading, err := h.service.Reading(r.Context(), point)
	if err != nil {
		h.failures.write(w, r, err, nil)
		return
	}

	if reading.Source != satellite.SourceLive {
		w.Header().Set(models.ProvenanceHeader, models.ProvenanceDegraded)
		w.Header().Set("Cache-Control", "no-store")
	} else {
		response.CacheFor(w, satelliteMaxAge)
	}
	response.JSON(w, r, http.StatusOK, reading)
}
