// Package panel assembles the combined location panel: a region gate, then
// concurrent place, weather, station and satellite lookups.
package panel

import (
	"context"

	"github.com/airlens/airlens/internal/airquality"
	"github.com/airlens/airlens/internal/geo"
	"github.com/airlens/airlens/internal/satellite"
	"github.com/airlens/airlens/internal/weather"
)

// Region outcomes of a panel load.
const (
	RegionInside  = "inside"
	RegionOutside = "outside_region"
)

// Status is the outcome of one panel section.
type Status string

const (
	StatusOK            Status = "ok"
	StatusEmpty         Status = "empty"
	StatusFailed        Status = "failed"
	StatusDegraded      Status = "degraded"
	StatusNotConfigured Status = "not_configured"
)

// Section carries a section's status and, when it did not succeed, why.
type Section struct {
	Status Status `json:"status"`
	Error  string `json:"error,omitempty"`
}

func (s Section) sectionStatus() Status { return s.Status }

// PlaceSection is the reverse-geocoded place name.
type PlaceSection struct {
	Section
	Name string `json:"name,omitempty"`
}

// WeatherSection is the current weather.
type WeatherSection struct {
	Section
	Data *weather.Snapshot `json:"data,omitempty"`
}

// StationsSection is the averaged station observations.
type StationsSection struct {
	Section
	Data []airquality.Observation `json:"data,omitempty"`
}

// SatelliteSection is the NO2 column reading.
type SatelliteSection struct {
	Section
	Data *satellite.Reading `json:"data,omitempty"`
}

// State is the full panel for one point. Sections are nil when the point is
// outside the service region.
type State struct {
	Point      geo.Point         `json:"point"`
	Region     string            `json:"region"`
	Generation uint64            `json:"generation,omitempty"`
	Place      *PlaceSection     `json:"place,omitempty"`
	Weather    *WeatherSection   `json:"weather,omitempty"`
	Stations   *StationsSection  `json:"stations,omitempty"`
	Satellite  *SatelliteSection `json:"satellite,omitempty"`
}

// OutsideRegion reports whether enrichment was skipped for this point.
func (s State) OutsideRegion() bool {
	return s.Region == RegionOutside
}

// Gate decides whether a point is served.
type Gate interface {
	Contains(p geo.Point) bool
}

// PlaceNamer resolves a display name for a point.
type PlaceNamer interface {
	PlaceName(ctx context.Context, point geo.Point) (string, error)
}

// WeatherSource returns current weather.
type WeatherSource interface {
	Current(ctx context.Context, point geo.Point) (*weather.Snapshot, error)
}

// StationSource returns reduced station observations; distance 0 uses the ladder.
type StationSource interface {
	Current(ctx context.Context, point geo.Point, distance float64) ([]airquality.Observation, error)
}

// SatelliteSource returns a column reading with the satellite policy applied.
type SatelliteSource interface {
	Reading(ctx context.Context, point geo.Point) (*satellite.Reading, error)
}

// Loader produces a panel state for a point.
type Loader interface {
	Load(ctx context.Context, point geo.Point) State
}
