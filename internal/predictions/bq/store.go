// Package bq implements the prediction store on BigQuery.
package bq

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"

	"github.com/airlens/airlens/internal/predictions"
	"github.com/airlens/airlens/internal/provider"
)

// DefaultLocation is the dataset location queries run in.
const DefaultLocation = "US"

// Config holds configuration for the BigQuery store.
type Config struct {
	ProjectID  string
	Dataset    string
	Table      string
	PredColumn string // default: pm25_pred
	Location   string // default: US
}

// RowIterator yields query result rows. *bigquery.RowIterator implements it.
type RowIterator interface {
	Next(dst any) error
}

// Reader runs a parameterized query.
type Reader interface {
	Read(ctx context.Context, sql string, params []bigquery.QueryParameter, location string) (RowIterator, error)
}

// ClientReader runs queries on a BigQuery client.
type ClientReader struct {
	Client *bigquery.Client
}

// Read implements Reader.
func (r ClientReader) Read(ctx context.Context, sql string, params []bigquery.QueryParameter, location string) (RowIterator, error) {
	query := r.Client.Query(sql)
	query.Location = location
	query.Parameters = params
	return query.Read(ctx)
}

// Close closes the client.
func (r ClientReader) Close() error {
	return r.Client.Close()
}

// Store reads prediction cells from a BigQuery table.
type Store struct {
	reader   Reader
	table    string
	column   string
	location string
}

// New validates cfg and builds a store over reader.
func New(reader Reader, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" || cfg.Dataset == "" || cfg.Table == "" {
		return nil, provider.NotConfigured(predictions.StoreName)
	}

	column := cfg.PredColumn
	if column == "" {
		column = "pm25_pred"
	}
	location := cfg.Location
	if location == "" {
		location = DefaultLocation
	}

	for _, ident := range []string{cfg.ProjectID, cfg.Dataset, cfg.Table, column} {
		if err := predictions.ValidateIdentifier(ident); err != nil {
			return nil, err
		}
	}

	return &Store{
		reader:   reader,
		table:    fmt.Sprintf("`%s.%s.%s`", cfg.ProjectID, cfg.Dataset, cfg.Table),
		column:   column,
		location: location,
	}, nil
}

// Open creates a BigQuery client for cfg.ProjectID using application default
// credentials and returns a store over it.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.ProjectID == "" {
		return nil, provider.NotConfigured(predictions.StoreName)
	}
	client, err := bigquery.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("create bigquery client: %w", err)
	}
	store, err := New(ClientReader{Client: client}, cfg)
	if err != nil {
		client.Close()
		return nil, err
	}
	return store, nil
}

// Close releases the reader when it holds resources.
func (s *Store) Close() error {
	if c, ok := s.reader.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// BuildQuery returns the SQL and named parameters for q.
func (s *Store) BuildQuery(q predictions.Query, limit int) (string, []bigquery.QueryParameter) {
	base := fmt.Sprintf("SELECT lat_cell, lon_cell, %s AS pm25_pred FROM %s WHERE ts_utc = @ts AND %s IS NOT NULL",
		s.column, s.table, s.column)

	if q.IsRadius() {
		sql := base + " AND ST_DWITHIN(ST_GEOGPOINT(lon_cell, lat_cell), ST_GEOGPOINT(@lon, @lat), @radius_m)" +
			fmt.Sprintf(" LIMIT %d", limit)
		return sql, []bigquery.QueryParameter{
			{Name: "ts", Value: q.Timestamp},
			{Name: "lat", Value: q.Center.Lat},
			{Name: "lon", Value: q.Center.Lon},
			{Name: "radius_m", Value: q.RadiusMeters()},
		}
	}

	sql := base + " AND lat_cell BETWEEN @minLat AND @maxLat AND lon_cell BETWEEN @minLng AND @maxLng" +
		fmt.Sprintf(" LIMIT %d", limit)
	return sql, []bigquery.QueryParameter{
		{Name: "ts", Value: q.Timestamp},
		{Name: "minLat", Value: q.BBox.MinLat},
		{Name: "maxLat", Value: q.BBox.MaxLat},
		{Name: "minLng", Value: q.BBox.MinLng},
		{Name: "maxLng", Value: q.BBox.MaxLng},
	}
}

type row struct {
	LatCell float64 `bigquery:"lat_cell"`
	LonCell float64 `bigquery:"lon_cell"`
	PM25    float64 `bigquery:"pm25_pred"`
}

// Predictions implements predictions.Store.
func (s *Store) Predictions(ctx context.Context, q predictions.Query, limit int) ([]predictions.Point, error) {
	sql, params := s.BuildQuery(q, limit)

	it, err := s.reader.Read(ctx, sql, params, s.location)
	if err != nil {
		return nil, provider.Transport(predictions.StoreName, err)
	}

	var points []predictions.Point
	for {
		var r row
		err := it.Next(&r)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, provider.Transport(predictions.StoreName, err)
		}
		points = append(points, predictions.Point{CellLat: r.LatCell, CellLon: r.LonCell, PM25: r.PM25})
	}
	return points, nil
}
