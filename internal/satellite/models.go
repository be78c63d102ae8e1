// Package satellite provides tropospheric NO2 column readings with provenance.
package satellite

import (
	"context"
	"fmt"

	"github.com/airlens/airlens/internal/geo"
)

// Provenance tags attached to every reading.
const (
	SourceLive          = "live"
	SourceSimulated     = "simulated — no credential"
	SourceRequestFailed = "request failed"
)

// NotAvailable is the reading value when no measurement could be produced.
const NotAvailable = "N/A"

// ColumnUnit is the unit suffix of formatted column values.
const ColumnUnit = "mol/m²"

// SimulatedMax bounds the placeholder value used when no credential is configured.
const SimulatedMax = 5e15

// Reading is a formatted column value and where it came from.
type Reading struct {
	Value  string `json:"value"`
	Source string `json:"source"`
}

// SourceError is the provenance tag for an upstream status failure.
func SourceError(status int) string {
	return fmt.Sprintf("error: %d", status)
}

// FormatColumn renders a column density as two-decimal scientific notation.
func FormatColumn(v float64) string {
	return fmt.Sprintf("%.2e %s", v, ColumnUnit)
}

// Provider fetches the latest column density at a point.
// ok is false when the upstream answered without a value for the point.
type Provider interface {
	Column(ctx context.Context, point geo.Point) (value float64, ok bool, err error)
}
