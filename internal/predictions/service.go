package predictions

import (
	"context"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"
)

// ServiceConfig holds configuration for the prediction service.
type ServiceConfig struct {
	// Store is the prediction backend (use Unavailable when unconfigured).
	Store Store

	// MaxResults caps features per response (default and ceiling: MaxResults).
	MaxResults int

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service validates queries, drives the store and shapes the result.
type Service struct {
	store      Store
	maxResults int
	logger     zerolog.Logger
}

// NewService creates a new prediction service.
func NewService(cfg ServiceConfig) *Service {
	store := cfg.Store
	if store == nil {
		store = Unavailable{}
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 || maxResults > MaxResults {
		maxResults = MaxResults
	}

	return &Service{
		store:      store,
		maxResults: maxResults,
		logger:     cfg.Logger,
	}
}

// Query returns matching cells as a FeatureCollection of at most MaxResults
// Point features, each carrying only the pm25_pred property.
func (s *Service) Query(ctx context.Context, q Query) (*geojson.FeatureCollection, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := s.store.Predictions(ctx, q, s.maxResults)
	if err != nil {
		s.logger.Error().Err(err).Time("ts", q.Timestamp).Msg("prediction query failed")
		return nil, err
	}

	truncated := len(rows) > s.maxResults
	if truncated {
		rows = rows[:s.maxResults]
	}

	s.logger.Debug().
		Int("rows", len(rows)).
		Bool("truncated", truncated).
		Bool("radius", q.IsRadius()).
		Dur("duration", time.Since(start)).
		Msg("prediction query completed")

	return ToFeatureCollection(rows), nil
}

// ToFeatureCollection maps rows 1:1 to Point features at [lon, lat].
func ToFeatureCollection(rows []Point) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	fc.Features = make([]*geojson.Feature, 0, len(rows))
	for _, r := range rows {
		f := geojson.NewFeature(orb.Point{r.CellLon, r.CellLat})
		f.Properties["pm25_pred"] = r.PM25
		fc.Append(f)
	}
	return fc
}
