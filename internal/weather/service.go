package weather

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/geo"
)

// ServiceConfig holds configuration for the weather service.
type ServiceConfig struct {
	// Provider is the weather data provider.
	Provider Provider

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service returns current weather. Results are not cached here; responses
// advertise a cache lifetime instead.
type Service struct {
	provider Provider
	logger   zerolog.Logger
}

// NewService creates a new weather service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		provider: cfg.Provider,
		logger:   cfg.Logger,
	}
}

// Current returns the weather snapshot at point.
func (s *Service) Current(ctx context.Context, point geo.Point) (*Snapshot, error) {
	if err := point.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	snapshot, err := s.provider.Current(ctx, point)
	if err != nil {
		s.logger.Error().Err(err).Str("point", point.String()).Msg("failed to fetch current weather")
		return nil, err
	}

	s.logger.Debug().
		Str("point", point.String()).
		Dur("duration", time.Since(start)).
		Msg("current weather fetched")
	return snapshot, nil
}
