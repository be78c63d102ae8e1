// Package airquality resolves ground-station AQI observations around a point
// and collapses overlapping station reports into one reading per pollutant.
package airquality

import (
	"context"
	"errors"
	"time"

	"github.com/airlens/airlens/internal/geo"
)

// Resolver errors.
var (
	ErrInvalidLadder   = errors.New("radius ladder must be non-empty, positive and strictly increasing")
	ErrInvalidDistance = errors.New("distance must be a positive number")
)

// Parameter is the pollutant an observation reports on.
type Parameter string

const (
	ParameterPM25 Parameter = "PM2.5"
	ParameterO3   Parameter = "O3"
)

// Category is an AQI severity bucket.
type Category struct {
	Number int    `json:"Number"`
	Name   string `json:"Name"`
}

// Observation is one station's current report for one pollutant.
// Field names follow the upstream wire shape so clients can consume either.
type Observation struct {
	Parameter     Parameter `json:"ParameterName"`
	AQI           int       `json:"AQI"`
	Category      Category  `json:"Category"`
	ReportingArea string    `json:"ReportingArea"`
	StateCode     string    `json:"StateCode"`
	Latitude      float64   `json:"Latitude"`
	Longitude     float64   `json:"Longitude"`
	ObservedAt    time.Time `json:"ObservedAt"`
}

// StationSource fetches observations within distance miles of a point.
type StationSource interface {
	Observations(ctx context.Context, point geo.Point, distance float64) ([]Observation, error)
}
