package airquality

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/geo"
)

// DefaultLadder is the station search radius ladder, in miles.
var DefaultLadder = []float64{10, 25, 50, 100}

// ValidateLadder checks that radii are positive, finite and strictly increasing.
func ValidateLadder(ladder []float64) error {
	if len(ladder) == 0 {
		return ErrInvalidLadder
	}
	prev := 0.0
	for _, r := range ladder {
		if math.IsNaN(r) || math.IsInf(r, 0) || r <= prev {
			return fmt.Errorf("%w: %v", ErrInvalidLadder, ladder)
		}
		prev = r
	}
	return nil
}

// Resolver widens a station search until it finds observations.
type Resolver struct {
	source StationSource
	logger zerolog.Logger
}

// NewResolver creates a resolver over source.
func NewResolver(source StationSource, logger zerolog.Logger) *Resolver {
	return &Resolver{
		source: source,
		logger: logger,
	}
}

// Resolve queries each rung of ladder in order and returns the first non-empty
// result. An exhausted ladder yields an empty slice and no error. A failing
// rung aborts the search with that rung's error.
func (r *Resolver) Resolve(ctx context.Context, point geo.Point, ladder []float64) ([]Observation, error) {
	if err := ValidateLadder(ladder); err != nil {
		return nil, err
	}

	for _, radius := range ladder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		observations, err := r.source.Observations(ctx, point, radius)
		if err != nil {
			return nil, fmt.Errorf("station search at %v miles: %w", radius, err)
		}

		if len(observations) > 0 {
			r.logger.Debug().
				Float64("radius_miles", radius).
				Int("observations", len(observations)).
				Msg("station search resolved")
			return observations, nil
		}
	}

	r.logger.Debug().
		Float64("max_radius_miles", ladder[len(ladder)-1]).
		Msg("no stations within search ladder")
	return []Observation{}, nil
}
