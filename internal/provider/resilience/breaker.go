// Package resilience wraps upstream HTTP calls in per-provider circuit
// breakers with opt-in retries and tracks each provider's health.
package resilience

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sony/gobreaker/v2"
)

// Trip thresholds used by DefaultReadyToTrip.
const (
	TripConsecutiveFailures = 3
	TripMinRequests         = 5
	TripFailureRatio        = 0.5
)

// BreakerConfig tunes one provider's breaker. Zero functions fall back to
// DefaultReadyToTrip and DefaultIsSuccessful.
type BreakerConfig struct {
	Name string

	// HalfOpenProbes is how many calls may test a half-open breaker.
	HalfOpenProbes uint32

	// CountWindow clears the closed-state counts periodically.
	CountWindow time.Duration

	// OpenFor is how long the breaker rejects calls before probing.
	OpenFor time.Duration

	ReadyToTrip   func(gobreaker.Counts) bool
	IsSuccessful  func(error) bool
	OnStateChange func(name string, from, to gobreaker.State)
}

// DefaultBreakerConfig returns the breaker every provider client starts from:
// one probe, a five minute count window and a one minute open period.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:           name,
		HalfOpenProbes: 1,
		CountWindow:    5 * time.Minute,
		OpenFor:        time.Minute,
	}
}

// DefaultReadyToTrip opens on a run of consecutive failures, or once enough
// calls were seen to judge a failure ratio.
func DefaultReadyToTrip(counts gobreaker.Counts) bool {
	switch {
	case counts.ConsecutiveFailures >= TripConsecutiveFailures:
		return true
	case counts.Requests < TripMinRequests:
		return false
	default:
		return float64(counts.TotalFailures) >= TripFailureRatio*float64(counts.Requests)
	}
}

// DefaultIsSuccessful ignores cancellation: a superseded panel load says
// nothing about the provider.
func DefaultIsSuccessful(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func newBreaker(cfg BreakerConfig) *gobreaker.CircuitBreaker[*http.Response] {
	settings := gobreaker.Settings{
		Name:          cfg.Name,
		MaxRequests:   cfg.HalfOpenProbes,
		Interval:      cfg.CountWindow,
		Timeout:       cfg.OpenFor,
		ReadyToTrip:   cfg.ReadyToTrip,
		IsSuccessful:  cfg.IsSuccessful,
		OnStateChange: cfg.OnStateChange,
	}
	if settings.ReadyToTrip == nil {
		settings.ReadyToTrip = DefaultReadyToTrip
	}
	if settings.IsSuccessful == nil {
		settings.IsSuccessful = DefaultIsSuccessful
	}
	return gobreaker.NewCircuitBreaker[*http.Response](settings) //nolint:bodyclose // type parameter
}
