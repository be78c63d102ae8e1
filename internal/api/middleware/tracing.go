package middleware

import (
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/airlens/airlens/internal/api/models"
)

const tracerName = "github.com/airlens/airlens/internal/api/middleware"

// TracingConfig configures the Tracing middleware.
type TracingConfig struct {
	ServiceName string

	// Provider and Propagator default to the otel globals.
	Provider   trace.TracerProvider
	Propagator propagation.TextMapPropagator
}

// Tracing starts a server span per request, continuing any W3C trace context
// the client sent. Once chi has routed the request the span is renamed to the
// route pattern. Selected coordinates are recorded so slow panel loads can be
// tied to a location.
func Tracing(cfg TracingConfig) func(http.Handler) http.Handler {
	if cfg.Provider == nil {
		cfg.Provider = otel.GetTracerProvider()
	}
	if cfg.Propagator == nil {
		cfg.Propagator = otel.GetTextMapPropagator()
	}
	tracer := cfg.Provider.Tracer(tracerName)
	serviceName := cfg.ServiceName

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := cfg.Propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("service.name", serviceName),
					attribute.String("http.request.method", r.Method),
					attribute.String("url.scheme", scheme(r)),
					attribute.String("url.path", r.URL.Path),
					attribute.String("server.address", r.Host),
					attribute.String("user_agent.original", r.UserAgent()),
					attribute.String("client.address", r.RemoteAddr),
				),
			)
			defer span.End()

			span.SetAttributes(coordinateAttributes(r)...)
			if requestID := GetRequestID(ctx); requestID != "" {
				span.SetAttributes(attribute.String("request.id", requestID))
			}
			if sessionID := GetSessionID(ctx); sessionID != "" {
				span.SetAttributes(attribute.String("session.id", sessionID))
			}

			wrapped := newStatusRecorder(w)
			r = r.WithContext(ctx)
			next.ServeHTTP(wrapped, r)

			if pattern := routePattern(r); pattern != "unmatched" {
				span.SetName(r.Method + " " + pattern)
				span.SetAttributes(attribute.String("http.route", pattern))
			}
			span.SetAttributes(
				attribute.Int("http.status_code", wrapped.statusCode),
				attribute.Int64("http.response.body.size", wrapped.written),
			)
			if provenance := wrapped.Header().Get(models.ProvenanceHeader); provenance != "" {
				span.SetAttributes(attribute.String("data.provenance", provenance))
			}

			if wrapped.statusCode >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
			}
		})
	}
}

// coordinateAttributes returns geo.lat/geo.lon for requests that carry
// parseable lat and lon query parameters.
func coordinateAttributes(r *http.Request) []attribute.KeyValue {
	q := r.URL.Query()
	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil {
		return nil
	}
	lon, err := strconv.ParseFloat(q.Get("lon"), 64)
	if err != nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Float64("geo.lat", lat),
		attribute.Float64("geo.lon", lon),
	}
}

// scheme returns the request scheme.
func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
