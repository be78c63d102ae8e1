package handler

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/api/models"
	"github.com/airlens/airlens/internal/api/response"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
)

// Client-facing messages for coordinate validation.
const (
	msgMissingCoordinates = `Missing "lat" or "lon" parameters.`
	msgInvalidCoordinates = `Invalid "lat" or "lon" parameters.`
)

// pointFromQuery reads lat and lon from the query string. On failure it
// writes a 400 problem and returns false.
func pointFromQuery(w http.ResponseWriter, r *http.Request) (geo.Point, bool) {
	query := r.URL.Query()
	point, err := geo.ParsePoint(query.Get("lat"), query.Get("lon"))
	switch {
	case err == nil:
		return point, true
	case errors.Is(err, geo.ErrMissingCoordinates):
		response.BadRequest(w, r, msgMissingCoordinates, nil)
	default:
		response.BadRequest(w, r, msgInvalidCoordinates, []models.FieldError{
			{Field: "lat", Message: "must be a number between -90 and 90"},
			{Field: "lon", Message: "must be a number between -180 and 180"},
		})
	}
	return geo.Point{}, false
}

// upstreamMessages are the client-facing messages for one domain's failures.
type upstreamMessages struct {
	notConfigured string
	status        string
	request       string
}

// failureWriter answers failed upstream calls for one domain.
type failureWriter struct {
	domain     provider.Domain
	messages   upstreamMessages
	policy     provider.PolicySource
	onDegraded func(provider.Domain)
	logger     zerolog.Logger
}

// write serves fallback as a degraded 200 when the domain's policy is
// Degrade. Otherwise it writes a 500 problem carrying the upstream details.
func (f failureWriter) write(w http.ResponseWriter, r *http.Request, err error, fallback interface{}) {
	if f.policy != nil && f.policy.Policy(r.Context(), f.domain) == provider.Degrade {
		f.logger.Warn().Err(err).Str("domain", string(f.domain)).Msg("serving degraded response")
		if f.onDegraded != nil {
			f.onDegraded(f.domain)
		}
		response.Degraded(w, r, fallback)
		return
	}

	f.logger.Error().Err(err).Str("domain", string(f.domain)).Msg("upstream request failed")

	perr, ok := provider.AsError(err)
	switch {
	case errors.Is(err, provider.ErrNotConfigured):
		response.NotConfigured(w, r, f.messages.notConfigured)
	case ok && perr.Kind == provider.KindStatus:
		response.UpstreamError(w, r, f.messages.status, perr.Details())
	default:
		response.UpstreamError(w, r, f.messages.request, provider.Details(err))
	}
}
