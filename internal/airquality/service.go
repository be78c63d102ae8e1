package airquality

import (
	"context"
	"math"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/geo"
)

// ServiceConfig holds configuration for the air quality service.
type ServiceConfig struct {
	// Source is the station data provider.
	Source StationSource

	// Ladder is the search radius ladder in miles (default: DefaultLadder).
	Ladder []float64

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service resolves and reduces station observations for a point.
type Service struct {
	resolver *Resolver
	ladder   []float64
	logger   zerolog.Logger
}

// NewService creates a new air quality service.
// An invalid ladder falls back to DefaultLadder.
func NewService(cfg ServiceConfig) *Service {
	ladder := cfg.Ladder
	if ValidateLadder(ladder) != nil {
		ladder = DefaultLadder
	}

	return &Service{
		resolver: NewResolver(cfg.Source, cfg.Logger),
		ladder:   append([]float64(nil), ladder...),
		logger:   cfg.Logger,
	}
}

// Ladder returns the configured radius ladder.
func (s *Service) Ladder() []float64 {
	return append([]float64(nil), s.ladder...)
}

// Current returns one observation per pollutant near point.
// A positive distance searches that single radius instead of the ladder.
// An empty slice means no stations were found.
func (s *Service) Current(ctx context.Context, point geo.Point, distance float64) ([]Observation, error) {
	ladder := s.ladder
	if distance != 0 {
		if distance < 0 || math.IsNaN(distance) || math.IsInf(distance, 0) {
			return nil, ErrInvalidDistance
		}
		ladder = []float64{distance}
	}

	raw, err := s.resolver.Resolve(ctx, point, ladder)
	if err != nil {
		return nil, err
	}

	return SelectResult(raw, Reduce(raw)), nil
}
