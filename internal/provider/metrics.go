package provider

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/airlens/airlens/internal/provider"

// Metrics holds instruments for upstream provider calls.
type Metrics struct {
	requestDuration metric.Float64Histogram
	requestTotal    metric.Int64Counter
	degradedTotal   metric.Int64Counter
}

// NewMetrics creates provider metrics on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	requestDuration, err := meter.Float64Histogram(
		"provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	requestTotal, err := meter.Int64Counter(
		"provider.request.total",
		metric.WithDescription("Total number of provider requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	degradedTotal, err := meter.Int64Counter(
		"provider.degraded.total",
		metric.WithDescription("Number of responses served in degraded mode"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		degradedTotal:   degradedTotal,
	}, nil
}

// RecordRequest records metrics for a provider request.
func (m *Metrics) RecordRequest(provider, operation string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("provider.name", provider),
		attribute.String("provider.operation", operation),
	}

	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
		if perr, ok := AsError(err); ok {
			attrs = append(attrs, attribute.String("provider.failure", string(perr.Kind)))
		}
	}

	// Request contexts may already be cancelled by the time we record.
	ctx := context.TODO()
	m.requestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDegraded counts a response served under the Degrade policy.
func (m *Metrics) RecordDegraded(domain Domain) {
	m.degradedTotal.Add(context.TODO(), 1, metric.WithAttributes(
		attribute.String("provider.domain", string(domain)),
	))
}
