package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/airlens/airlens/internal/api/models"
)

const meterName = "github.com/airlens/airlens/internal/api/middleware"

// Metrics records per-route request instruments.
type Metrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments on mp. A nil mp uses the
// global meter provider.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	meter := mp.Meter(meterName)

	var (
		m   Metrics
		err error
	)
	if m.duration, err = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}
	if m.total, err = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("HTTP server requests by route and status"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.inFlight, err = meter.Int64UpDownCounter("http.server.active_requests",
		metric.WithDescription("HTTP server requests in progress"),
		metric.WithUnit("{request}"),
	); err != nil {
		return nil, err
	}
	if m.size, err = meter.Int64Histogram("http.server.response.body.size",
		metric.WithDescription("Size of HTTP server response bodies"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware records duration, count, body size and in-flight requests.
// Responses served from a degraded source carry data.degraded=true.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			start := time.Now()

			method := metric.WithAttributes(attribute.String("http.request.method", r.Method))
			m.inFlight.Add(ctx, 1, method)
			defer m.inFlight.Add(ctx, -1, method)

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			attrs := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", routePattern(r)),
				attribute.Int("http.response.status_code", rec.statusCode),
				attribute.Bool("data.degraded", rec.Header().Get(models.ProvenanceHeader) == models.ProvenanceDegraded),
			)
			m.duration.Record(ctx, time.Since(start).Seconds(), attrs)
			m.total.Add(ctx, 1, attrs)
			m.size.Record(ctx, rec.written, attrs)
		})
	}
}
