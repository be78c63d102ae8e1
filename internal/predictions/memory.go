package predictions

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/airlens/airlens/internal/geo"
)

// MemoryStore holds prediction grids in memory, keyed by timestamp.
// It is safe for concurrent reads once loaded.
type MemoryStore struct {
	grids map[time.Time][]Point
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{grids: make(map[time.Time][]Point)}
}

// Add appends cells for ts. Not safe for use concurrently with Predictions.
func (m *MemoryStore) Add(ts time.Time, points ...Point) {
	ts = ts.UTC()
	m.grids[ts] = append(m.grids[ts], points...)
}

// Predictions filters the grid for q.Timestamp by box, or by geodesic
// distance from the query center.
func (m *MemoryStore) Predictions(_ context.Context, q Query, limit int) ([]Point, error) {
	var out []Point
	for _, p := range m.grids[q.Timestamp.UTC()] {
		if limit > 0 && len(out) >= limit {
			break
		}
		cell := geo.Point{Lat: p.CellLat, Lon: p.CellLon}
		if q.IsRadius() {
			if geo.DistanceMeters(*q.Center, cell) <= q.RadiusMeters() {
				out = append(out, p)
			}
			continue
		}
		if q.BBox.Contains(cell) {
			out = append(out, p)
		}
	}
	return out, nil
}

// LoadGeoJSONFile loads a FeatureCollection of Point features whose properties
// carry "ts" (RFC 3339) and "pm25_pred".
func LoadGeoJSONFile(path string) (*MemoryStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read predictions file: %w", err)
	}

	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parse predictions file: %w", err)
	}

	store := NewMemoryStore()
	for i, f := range fc.Features {
		pt, ok := f.Geometry.(orb.Point)
		if !ok {
			return nil, fmt.Errorf("feature %d: geometry is %T, want Point", i, f.Geometry)
		}
		ts, err := parseTimestamp(f.Properties.MustString("ts", ""))
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		pm25, ok := f.Properties["pm25_pred"].(float64)
		if !ok {
			return nil, fmt.Errorf("feature %d: missing numeric pm25_pred", i)
		}
		store.Add(ts, Point{CellLat: pt.Lat(), CellLon: pt.Lon(), PM25: pm25})
	}
	return store, nil
}
