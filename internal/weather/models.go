// Package weather provides current conditions for a point.
package weather

import (
	"context"
	"time"

	"github.com/airlens/airlens/internal/geo"
)

// Wind is a speed with the unit the provider reported it in.
type Wind struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Condition is a human-readable summary of the sky.
type Condition struct {
	Text    string `json:"text"`
	IconURI string `json:"iconUri"`
}

// Snapshot is the current weather at one point.
type Snapshot struct {
	ObservedAt   time.Time `json:"observedAt"`
	TemperatureC float64   `json:"temperatureC"`
	HumidityPct  int       `json:"humidityPct"`
	WindSpeed    Wind      `json:"windSpeed"`
	Condition    Condition `json:"condition"`
}

// Provider fetches current conditions.
type Provider interface {
	Current(ctx context.Context, point geo.Point) (*Snapshot, error)
}
