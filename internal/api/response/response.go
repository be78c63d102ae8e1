// Package response writes JSON bodies and problem responses for handlers.
package response

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/airlens/airlens/internal/api/middleware"
	"github.com/airlens/airlens/internal/api/models"
)

// JSON writes data with status and echoes the request id.
func JSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	echoRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Degraded writes a 200 marked X-Data-Provenance: degraded. Degraded
// responses are never cached.
func Degraded(w http.ResponseWriter, r *http.Request, data any) {
	w.Header().Set(models.ProvenanceHeader, models.ProvenanceDegraded)
	w.Header().Set("Cache-Control", "no-store")
	JSON(w, r, http.StatusOK, data)
}

// NoContent writes a 204 and echoes the request id.
func NoContent(w http.ResponseWriter, r *http.Request) {
	echoRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// CacheFor marks a response as publicly cacheable for maxAge.
func CacheFor(w http.ResponseWriter, maxAge time.Duration) {
	w.Header().Set("Cache-Control", "public, max-age="+strconv.Itoa(int(maxAge.Seconds())))
}

// Error writes problem for the request path.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.WithInstance(r.URL.Path).Write(w)
}

func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, errors))
}

func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewNotFound(traceID(r), detail))
}

// Superseded answers a panel request replaced by a newer one in its session.
func Superseded(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewSuperseded(traceID(r), detail))
}

// InternalError hides detail from the client error member.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewInternalError(traceID(r), detail))
}

// UpstreamError answers 500 with the client message in "error" and the
// upstream diagnostics in "details".
func UpstreamError(w http.ResponseWriter, r *http.Request, message, details string) {
	Error(w, r, models.NewUpstreamError(traceID(r), message, details))
}

// NotConfigured answers 500 for a missing server credential.
func NotConfigured(w http.ResponseWriter, r *http.Request, message string) {
	Error(w, r, models.NewNotConfigured(traceID(r), message))
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}

func echoRequestID(w http.ResponseWriter, r *http.Request) {
	if id := traceID(r); id != "" {
		w.Header().Set(middleware.RequestIDHeader, id)
	}
}
