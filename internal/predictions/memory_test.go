package predictions_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/predictions"
)

func TestMemoryStore_RadiusUsesGeodesicDistance(t *testing.T) {
	store := predictions.NewMemoryStore()
	store.Add(ts,
		predictions.Point{CellLat: 34.05, CellLon: -118.24, PM25: 10},  // downtown LA
		predictions.Point{CellLat: 34.10, CellLon: -118.30, PM25: 12},  // ~7.7 km away
		predictions.Point{CellLat: 34.42, CellLon: -119.70, PM25: 5},   // Santa Barbara
		predictions.Point{CellLat: 37.77, CellLon: -122.42, PM25: 7.5}, // San Francisco
	)

	got, err := store.Predictions(context.Background(),
		predictions.NewRadiusQuery(ts, geo.Point{Lat: 34.05, Lon: -118.24}, 10), predictions.MaxResults)

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 10.0, got[0].PM25)
	assert.Equal(t, 12.0, got[1].PM25)
}

func TestMemoryStore_BBoxAndTimestamp(t *testing.T) {
	store := predictions.NewMemoryStore()
	store.Add(ts, predictions.Point{CellLat: 37.5, CellLon: -122.0, PM25: 3})
	store.Add(ts.Add(1), predictions.Point{CellLat: 37.5, CellLon: -122.0, PM25: 99})

	got, err := store.Predictions(context.Background(),
		predictions.NewBBoxQuery(ts, geo.BBox{MinLng: -123, MinLat: 37, MaxLng: -121, MaxLat: 38}), 10)

	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 3.0, got[0].PM25)
}

func TestMemoryStore_Limit(t *testing.T) {
	store := predictions.NewMemoryStore()
	for i := 0; i < 20; i++ {
		store.Add(ts, predictions.Point{CellLat: 37.5, CellLon: -122.0, PM25: float64(i)})
	}

	got, err := store.Predictions(context.Background(),
		predictions.NewBBoxQuery(ts, geo.BBox{MinLng: -123, MinLat: 37, MaxLng: -121, MaxLat: 38}), 5)

	require.NoError(t, err)
	assert.Len(t, got, 5)
}

func TestLoadGeoJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type":"Feature","geometry":{"type":"Point","coordinates":[-121.75,37.25]},
			 "properties":{"ts":"2025-10-04T18:00:00Z","pm25_pred":8.4}}
		]
	}`), 0o600))

	store, err := predictions.LoadGeoJSONFile(path)
	require.NoError(t, err)

	got, err := store.Predictions(context.Background(),
		predictions.NewBBoxQuery(ts, geo.BBox{MinLng: -122, MinLat: 37, MaxLng: -121, MaxLat: 38}), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, predictions.Point{CellLat: 37.25, CellLon: -121.75, PM25: 8.4}, got[0])
}

func TestLoadGeoJSONFile_RejectsNonPoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "grid.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"type": "FeatureCollection",
		"features": [
			{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},
			 "properties":{"ts":"2025-10-04T18:00:00Z","pm25_pred":1}}
		]
	}`), 0o600))

	_, err := predictions.LoadGeoJSONFile(path)
	assert.Error(t, err)
}
