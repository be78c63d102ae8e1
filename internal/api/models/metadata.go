package models

import "github.com/paulmach/orb/geojson"

// Region describes the service region for map clients.
type Region struct {
	Name   string `json:"name"`
	Center Point  `json:"center"`
	Bounds GeoBox `json:"bounds"`

	// Outline is the region polygon as a GeoJSON Feature.
	Outline *geojson.Feature `json:"outline"`

	// Polyline is the outline as an encoded polyline, ready for map overlays.
	Polyline string `json:"polyline"`

	// StationLadder is the station search radius ladder in miles.
	StationLadder []float64 `json:"stationLadder"`
}

// Category is one AQI band.
type Category struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
	MaxAQI int    `json:"maxAqi,omitempty"`
}

// Enums represents the enum values used by the API.
type Enums struct {
	Parameters    []string   `json:"parameters"`
	Categories    []Category `json:"categories"`
	Domains       []string   `json:"domains"`
	Policies      []string   `json:"policies"`
	PanelStatuses []string   `json:"panelStatuses"`
}
