package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/airlens/airlens/internal/api/models"
)

// SlowRequest is the duration past which a successful request logs at warn.
// A panel load waits on four upstreams, so this sits above the slowest one.
const SlowRequest = 8 * time.Second

// Logger writes one structured line per request. Server errors log at error
// and client errors or slow requests at warn. Probe traffic under /v1/ops/
// logs at debug.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)

			next.ServeHTTP(rec, r)

			elapsed := time.Since(start)
			ctx := r.Context()
			event := requestLevel(log, r.URL.Path, rec.statusCode, elapsed).
				Str("request_id", GetRequestID(ctx)).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", rec.statusCode).
				Int64("bytes", rec.written).
				Dur("duration", elapsed).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent())

			if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
				event = event.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
			}
			if id := GetSessionID(ctx); id != "" {
				event = event.Str("session_id", id)
			}
			if p := rec.Header().Get(models.ProvenanceHeader); p != "" {
				event = event.Str("provenance", p)
			}
			if elapsed > SlowRequest {
				event = event.Bool("slow", true)
			}
			event.Msg("request completed")
		})
	}
}

func requestLevel(log zerolog.Logger, path string, status int, elapsed time.Duration) *zerolog.Event {
	switch {
	case status >= http.StatusInternalServerError:
		return log.Error()
	case status >= http.StatusBadRequest, elapsed > SlowRequest:
		return log.Warn()
	case strings.HasPrefix(path, "/v1/ops/"):
		return log.Debug()
	default:
		return log.Info()
	}
}
