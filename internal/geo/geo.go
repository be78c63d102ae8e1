// Package geo provides the coordinate types shared by every data domain and the
// service region used to gate enrichment requests.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// Coordinate errors.
var (
	ErrMissingCoordinates = errors.New(`missing "lat" or "lon" parameters`)
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrInvalidBBox        = errors.New("invalid bbox")
)

// Point is an immutable WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies within the WGS84 coordinate range.
func (p Point) Valid() bool {
	return isFinite(p.Lat) && isFinite(p.Lon) &&
		p.Lat >= -90 && p.Lat <= 90 &&
		p.Lon >= -180 && p.Lon <= 180
}

// Validate returns ErrInvalidCoordinates when the point is out of range.
func (p Point) Validate() error {
	if !p.Valid() {
		return fmt.Errorf("%w: lat=%v lon=%v", ErrInvalidCoordinates, p.Lat, p.Lon)
	}
	return nil
}

// Orb returns the point in orb's [lon, lat] order.
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// String formats the point with six decimals, the precision upstream APIs accept.
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lon)
}

// FromOrb converts an orb point back into a Point.
func FromOrb(p orb.Point) Point {
	return Point{Lat: p.Lat(), Lon: p.Lon()}
}

// ParsePoint parses raw lat/lon query values.
// Empty values yield ErrMissingCoordinates; anything unparsable, non-finite or
// out of range yields ErrInvalidCoordinates.
func ParsePoint(lat, lon string) (Point, error) {
	if strings.TrimSpace(lat) == "" || strings.TrimSpace(lon) == "" {
		return Point{}, ErrMissingCoordinates
	}

	latNum, err := parseFinite(lat)
	if err != nil {
		return Point{}, fmt.Errorf("%w: lat: %v", ErrInvalidCoordinates, err)
	}
	lonNum, err := parseFinite(lon)
	if err != nil {
		return Point{}, fmt.Errorf("%w: lon: %v", ErrInvalidCoordinates, err)
	}

	p := Point{Lat: latNum, Lon: lonNum}
	if err := p.Validate(); err != nil {
		return Point{}, err
	}
	return p, nil
}

// DistanceMeters returns the great-circle distance between two points.
func DistanceMeters(a, b Point) float64 {
	return orbgeo.Distance(a.Orb(), b.Orb())
}

// BBox is an axis-aligned longitude/latitude rectangle.
type BBox struct {
	MinLng float64 `json:"minLng"`
	MinLat float64 `json:"minLat"`
	MaxLng float64 `json:"maxLng"`
	MaxLat float64 `json:"maxLat"`
}

// ParseBBox parses "minLng,minLat,maxLng,maxLat".
func ParseBBox(raw string) (BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return BBox{}, fmt.Errorf("%w: expected 4 comma separated values, got %d", ErrInvalidBBox, len(parts))
	}

	var values [4]float64
	for i, part := range parts {
		v, err := parseFinite(part)
		if err != nil {
			return BBox{}, fmt.Errorf("%w: %v", ErrInvalidBBox, err)
		}
		values[i] = v
	}

	b := BBox{MinLng: values[0], MinLat: values[1], MaxLng: values[2], MaxLat: values[3]}
	if b.MinLat > b.MaxLat || b.MinLng > b.MaxLng {
		return BBox{}, fmt.Errorf("%w: min exceeds max", ErrInvalidBBox)
	}
	return b, nil
}

// Bound returns the box as an orb.Bound.
func (b BBox) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{b.MinLng, b.MinLat},
		Max: orb.Point{b.MaxLng, b.MaxLat},
	}
}

// Contains reports whether the point lies inside the box, edges included.
func (b BBox) Contains(p Point) bool {
	return b.Bound().Contains(p.Orb())
}

func parseFinite(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, err
	}
	if !isFinite(v) {
		return 0, fmt.Errorf("%q is not a finite number", raw)
	}
	return v, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
