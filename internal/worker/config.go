// Package worker runs background provider probes for AirLens.
package worker

import (
	"time"

	"github.com/airlens/airlens/internal/geo"
)

// ProbeTarget is a named sample point probed against every provider.
type ProbeTarget struct {
	Name  string
	Point geo.Point
}

// ProbeConfig holds configuration for the provider probe job.
type ProbeConfig struct {
	// Targets are the sample points. If empty, uses DefaultProbeTargets.
	Targets []ProbeTarget

	// Concurrency bounds the points probed at once.
	// Default: 3
	Concurrency int

	// Timeout bounds the probes of one point.
	// Default: 30 seconds
	Timeout time.Duration

	ProbeStations  bool
	ProbeWeather   bool
	ProbeSatellite bool
}

// DefaultProbeConfig returns the default probe configuration.
func DefaultProbeConfig() ProbeConfig {
	return ProbeConfig{
		Targets:        DefaultProbeTargets(),
		Concurrency:    3,
		Timeout:        30 * time.Second,
		ProbeStations:  true,
		ProbeWeather:   true,
		ProbeSatellite: true,
	}
}

// DefaultProbeTargets spans California's largest metro areas and the
// Central Valley.
func DefaultProbeTargets() []ProbeTarget {
	return []ProbeTarget{
		{Name: "Los Angeles", Point: geo.Point{Lat: 34.0522, Lon: -118.2437}},
		{Name: "San Francisco", Point: geo.Point{Lat: 37.7749, Lon: -122.4194}},
		{Name: "Sacramento", Point: geo.Point{Lat: 38.5816, Lon: -121.4944}},
		{Name: "Fresno", Point: geo.Point{Lat: 36.7378, Lon: -119.7871}},
		{Name: "San Diego", Point: geo.Point{Lat: 32.7157, Lon: -117.1611}},
	}
}

// HealthCheckConfig probes a single point with a short timeout.
func HealthCheckConfig() ProbeConfig {
	cfg := DefaultProbeConfig()
	cfg.Targets = []ProbeTarget{{Name: "health-check", Point: geo.CaliforniaCenter}}
	cfg.Concurrency = 1
	cfg.Timeout = 10 * time.Second
	return cfg
}
