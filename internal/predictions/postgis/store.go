// Package postgis implements the prediction store on PostgreSQL with PostGIS.
package postgis

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/airlens/airlens/internal/predictions"
	"github.com/airlens/airlens/internal/provider"
)

// Querier is the subset of *pgxpool.Pool the store needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Config holds configuration for the PostGIS store.
type Config struct {
	// Table is the prediction table, optionally schema qualified.
	Table string

	// PredColumn is the column holding the PM2.5 prediction (default: pm25_pred).
	PredColumn string
}

// Store reads prediction cells from a table with lat_cell, lon_cell and
// ts_utc columns.
type Store struct {
	db     Querier
	table  string
	column string
}

// NewStore validates the configured identifiers and returns a store.
func NewStore(db Querier, cfg Config) (*Store, error) {
	column := cfg.PredColumn
	if column == "" {
		column = "pm25_pred"
	}

	if err := predictions.ValidateIdentifier(cfg.Table); err != nil {
		return nil, fmt.Errorf("prediction table: %w", err)
	}
	if err := predictions.ValidateIdentifier(column); err != nil {
		return nil, fmt.Errorf("prediction column: %w", err)
	}

	return &Store{
		db:     db,
		table:  pgx.Identifier(strings.Split(cfg.Table, ".")).Sanitize(),
		column: pgx.Identifier{column}.Sanitize(),
	}, nil
}

// BuildQuery returns the SQL and positional arguments for q.
// The point form compares geodesic distance on geography values.
func (s *Store) BuildQuery(q predictions.Query, limit int) (string, []any) {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT lat_cell, lon_cell, %s AS pm25_pred FROM %s WHERE ts_utc = $1 AND %s IS NOT NULL AND ",
		s.column, s.table, s.column)

	if q.IsRadius() {
		b.WriteString("ST_DWithin(ST_SetSRID(ST_MakePoint(lon_cell, lat_cell), 4326)::geography, " +
			"ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography, $4) LIMIT $5")
		return b.String(), []any{q.Timestamp, q.Center.Lon, q.Center.Lat, q.RadiusMeters(), limit}
	}

	b.WriteString("lat_cell BETWEEN $2 AND $3 AND lon_cell BETWEEN $4 AND $5 LIMIT $6")
	return b.String(), []any{q.Timestamp, q.BBox.MinLat, q.BBox.MaxLat, q.BBox.MinLng, q.BBox.MaxLng, limit}
}

// Predictions implements predictions.Store.
func (s *Store) Predictions(ctx context.Context, q predictions.Query, limit int) ([]predictions.Point, error) {
	sql, args := s.BuildQuery(q, limit)

	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, provider.Transport(predictions.StoreName, err)
	}

	points, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (predictions.Point, error) {
		var p predictions.Point
		err := row.Scan(&p.CellLat, &p.CellLon, &p.PM25)
		return p, err
	})
	if err != nil {
		return nil, provider.Transport(predictions.StoreName, err)
	}
	return points, nil
}
