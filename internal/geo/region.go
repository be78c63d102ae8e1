package geo

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// ErrOpenRing is returned when a region outline does not close on itself.
var ErrOpenRing = errors.New("region outline must be closed")

// californiaOutline is the simplified state boundary used by the dashboard.
var californiaOutline = []Point{
	{Lat: 41.9727325, Lon: -120.0091050},
	{Lat: 41.8898826, Lon: -124.6045661},
	{Lat: 33.9044735, Lon: -120.4462801},
	{Lat: 32.6184122, Lon: -117.1073262},
	{Lat: 32.6554188, Lon: -114.2955756},
	{Lat: 34.3047333, Lon: -114.1637748},
	{Lat: 35.0995465, Lon: -114.7349117},
	{Lat: 39.0254518, Lon: -120.0948112},
	{Lat: 41.9727325, Lon: -120.0091050},
}

// California is the supported service region.
var California = MustRegion("California", californiaOutline)

// CaliforniaCenter is the initial map center.
var CaliforniaCenter = Point{Lat: 36.7783, Lon: -119.4179}

// Region is a static polygon used for point membership tests.
// It is never mutated after construction and is safe for concurrent reads.
type Region struct {
	name  string
	ring  orb.Ring
	bound orb.Bound
}

// NewRegion builds a region from a closed outline (first point == last point).
func NewRegion(name string, outline []Point) (*Region, error) {
	if len(outline) < 4 {
		return nil, fmt.Errorf("region %q: need at least 4 points, got %d", name, len(outline))
	}
	if outline[0] != outline[len(outline)-1] {
		return nil, fmt.Errorf("region %q: %w", name, ErrOpenRing)
	}

	ring := make(orb.Ring, 0, len(outline))
	for _, p := range outline {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("region %q: %w", name, err)
		}
		ring = append(ring, p.Orb())
	}

	return &Region{
		name:  name,
		ring:  ring,
		bound: ring.Bound(),
	}, nil
}

// MustRegion is like NewRegion but panics on an invalid outline.
func MustRegion(name string, outline []Point) *Region {
	r, err := NewRegion(name, outline)
	if err != nil {
		panic(err)
	}
	return r
}

// Name returns the region's display name.
func (r *Region) Name() string {
	return r.name
}

// Contains reports whether p falls inside the region. Points on the outline
// count as inside; the answer is deterministic for a given input.
func (r *Region) Contains(p Point) bool {
	if !p.Valid() {
		return false
	}
	op := p.Orb()
	if !r.bound.Contains(op) {
		return false
	}
	return planar.RingContains(r.ring, op)
}

// Outline returns a copy of the region's closed outline.
func (r *Region) Outline() []Point {
	points := make([]Point, 0, len(r.ring))
	for _, p := range r.ring {
		points = append(points, FromOrb(p))
	}
	return points
}

// Polygon returns the region as an orb polygon for GeoJSON encoding.
func (r *Region) Polygon() orb.Polygon {
	ring := make(orb.Ring, len(r.ring))
	copy(ring, r.ring)
	return orb.Polygon{ring}
}

// Bound returns the region's bounding box.
func (r *Region) Bound() BBox {
	return BBox{
		MinLng: r.bound.Min.Lon(),
		MinLat: r.bound.Min.Lat(),
		MaxLng: r.bound.Max.Lon(),
		MaxLat: r.bound.Max.Lat(),
	}
}
