package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/airlens/airlens/internal/config"
	"github.com/airlens/airlens/internal/predictions"
	"github.com/airlens/airlens/internal/predictions/bq"
	"github.com/airlens/airlens/internal/predictions/postgis"
)

// newPredictionService builds the configured prediction backend. The returned
// func releases backend resources.
func newPredictionService(ctx context.Context, cfg config.Config, db *pgxpool.Pool, log zerolog.Logger) (*predictions.Service, func(), error) {
	noop := func() {}

	var (
		store   predictions.Store
		closeFn = noop
	)

	switch cfg.Predictions.Backend {
	case config.BackendPostGIS:
		if db == nil {
			return nil, noop, fmt.Errorf("postgis predictions need DATABASE_URL")
		}
		s, err := postgis.NewStore(db, postgis.Config{
			Table:      cfg.Predictions.PGTable,
			PredColumn: cfg.Predictions.PredColumn,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("postgis store: %w", err)
		}
		store = s

	case config.BackendBigQuery:
		s, err := bq.Open(ctx, bq.Config{
			ProjectID:  cfg.Predictions.BQProjectID,
			Dataset:    cfg.Predictions.BQDataset,
			Table:      cfg.Predictions.BQTable,
			PredColumn: cfg.Predictions.PredColumn,
			Location:   cfg.Predictions.BQLocation,
		})
		if err != nil {
			return nil, noop, fmt.Errorf("bigquery store: %w", err)
		}
		store = s
		closeFn = func() {
			if err := s.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close bigquery client")
			}
		}

	case config.BackendMemory:
		s, err := predictions.LoadGeoJSONFile(cfg.Predictions.File)
		if err != nil {
			return nil, noop, fmt.Errorf("load predictions file: %w", err)
		}
		store = s

	default:
		log.Warn().Msg("PREDICTIONS_BACKEND not set - /v1/predictions will report not configured")
		store = predictions.Unavailable{}
	}

	return predictions.NewService(predictions.ServiceConfig{
		Store:  store,
		Logger: log,
	}), closeFn, nil
}
