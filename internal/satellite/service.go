package satellite

import (
	"context"
	"math/rand/v2"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/provider"
)

// ServiceConfig holds configuration for the satellite service.
type ServiceConfig struct {
	// Provider is the column data source.
	Provider Provider

	// Policy decides between failing and degrading (default: DefaultPolicies).
	Policy provider.PolicySource

	// Random returns values in [0, 1) for simulated readings (default: math/rand/v2).
	Random func() float64

	// OnDegraded is called whenever a degraded reading is served. Optional.
	OnDegraded func(domain provider.Domain)

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service turns provider results into readings according to the domain policy.
type Service struct {
	provider   Provider
	policy     provider.PolicySource
	random     func() float64
	onDegraded func(provider.Domain)
	logger     zerolog.Logger
}

// NewService creates a new satellite service.
func NewService(cfg ServiceConfig) *Service {
	policy := cfg.Policy
	if policy == nil {
		policy = provider.DefaultPolicies()
	}

	random := cfg.Random
	if random == nil {
		random = rand.Float64
	}

	return &Service{
		provider:   cfg.Provider,
		policy:     policy,
		random:     random,
		onDegraded: cfg.OnDegraded,
		logger:     cfg.Logger,
	}
}

// Reading returns the NO2 column at point.
//
// Under the Degrade policy failures become labeled placeholder readings and
// the error is nil. Under Fail they are returned unchanged.
func (s *Service) Reading(ctx context.Context, point geo.Point) (*Reading, error) {
	value, ok, err := s.provider.Column(ctx, point)
	if err == nil {
		if !ok {
			return &Reading{Value: NotAvailable, Source: SourceLive}, nil
		}
		return &Reading{Value: FormatColumn(value), Source: SourceLive}, nil
	}

	if s.policy.Policy(ctx, provider.DomainSatellite) != provider.Degrade {
		return nil, err
	}

	reading := s.degraded(err)
	s.logger.Warn().
		Err(err).
		Str("source", reading.Source).
		Msg("serving degraded satellite reading")
	if s.onDegraded != nil {
		s.onDegraded(provider.DomainSatellite)
	}
	return reading, nil
}

// degraded maps a failure to its placeholder reading.
func (s *Service) degraded(err error) *Reading {
	perr, ok := provider.AsError(err)
	if !ok {
		return &Reading{Value: NotAvailable, Source: SourceRequestFailed}
	}

	switch perr.Kind {
	case provider.KindNotConfigured:
		return &Reading{Value: FormatColumn(s.random() * SimulatedMax), Source: SourceSimulated}
	case provider.KindStatus:
		return &Reading{Value: NotAvailable, Source: SourceError(perr.StatusCode)}
	default:
		return &Reading{Value: NotAvailable, Source: SourceRequestFailed}
	}
}
