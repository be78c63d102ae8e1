// Package predictions serves gridded PM2.5 model output for a timestamp and
// either a viewport or a search circle.
package predictions

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/airlens/airlens/internal/geo"
)

// ErrInvalidQuery is wrapped by every query validation error.
var ErrInvalidQuery = errors.New("invalid prediction query")

// Query validation errors.
var (
	ErrMissingTimestamp = fmt.Errorf(`%w: missing timestamp parameter "ts"`, ErrInvalidQuery)
	ErrInvalidTimestamp = fmt.Errorf(`%w: invalid "ts" parameter`, ErrInvalidQuery)
	ErrInvalidBBox      = fmt.Errorf(`%w: invalid "bbox" parameter format`, ErrInvalidQuery)
	ErrInvalidCenter    = fmt.Errorf(`%w: invalid "lat" or "lon" parameter`, ErrInvalidQuery)
	ErrInvalidRadius    = fmt.Errorf(`%w: "radius_km" must be a positive number`, ErrInvalidQuery)
	ErrSelectorConflict = fmt.Errorf(`%w: provide either "bbox" or "lat, lon, and radius_km", not both`, ErrInvalidQuery)
	ErrSelectorMissing  = fmt.Errorf(`%w: either "bbox" or "lat, lon, and radius_km" must be provided`, ErrInvalidQuery)
)

// timestampLayouts are accepted for "ts"; zoneless forms are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// Query selects prediction cells at one timestamp, by box or by circle.
// Exactly one of BBox and Center is set.
type Query struct {
	Timestamp time.Time
	BBox      *geo.BBox
	Center    *geo.Point
	RadiusKm  float64
}

// NewBBoxQuery builds a viewport query.
func NewBBoxQuery(ts time.Time, bbox geo.BBox) Query {
	return Query{Timestamp: ts, BBox: &bbox}
}

// NewRadiusQuery builds a search circle query.
func NewRadiusQuery(ts time.Time, center geo.Point, radiusKm float64) Query {
	return Query{Timestamp: ts, Center: &center, RadiusKm: radiusKm}
}

// IsRadius reports whether the query uses the point and radius selector.
func (q Query) IsRadius() bool {
	return q.Center != nil
}

// RadiusMeters returns the search radius in meters.
func (q Query) RadiusMeters() float64 {
	return q.RadiusKm * 1000
}

// Validate checks selector exclusivity and numeric ranges.
func (q Query) Validate() error {
	if q.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}

	switch {
	case q.BBox != nil && q.Center != nil:
		return ErrSelectorConflict
	case q.BBox == nil && q.Center == nil:
		return ErrSelectorMissing
	case q.Center != nil:
		if !q.Center.Valid() {
			return ErrInvalidCenter
		}
		if !(q.RadiusKm > 0) || math.IsInf(q.RadiusKm, 0) {
			return ErrInvalidRadius
		}
	default:
		b := *q.BBox
		for _, v := range []float64{b.MinLng, b.MinLat, b.MaxLng, b.MaxLat} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return ErrInvalidBBox
			}
		}
		if b.MinLng > b.MaxLng || b.MinLat > b.MaxLat {
			return ErrInvalidBBox
		}
	}
	return nil
}

// ParseQuery reads ts, bbox, lat, lon and radius_km from query parameters.
// Both or neither selector is rejected before any numeric parsing.
func ParseQuery(values url.Values) (Query, error) {
	rawTS := strings.TrimSpace(values.Get("ts"))
	rawBBox := strings.TrimSpace(values.Get("bbox"))
	rawLat := strings.TrimSpace(values.Get("lat"))
	rawLon := strings.TrimSpace(values.Get("lon"))
	rawRadius := strings.TrimSpace(values.Get("radius_km"))

	if rawTS == "" {
		return Query{}, ErrMissingTimestamp
	}
	ts, err := parseTimestamp(rawTS)
	if err != nil {
		return Query{}, err
	}

	hasBBox := rawBBox != ""
	anyPoint := rawLat != "" || rawLon != "" || rawRadius != ""
	allPoint := rawLat != "" && rawLon != "" && rawRadius != ""

	switch {
	case hasBBox && anyPoint:
		return Query{}, ErrSelectorConflict
	case !hasBBox && !allPoint:
		return Query{}, ErrSelectorMissing
	}

	var q Query
	if hasBBox {
		bbox, err := geo.ParseBBox(rawBBox)
		if err != nil {
			return Query{}, fmt.Errorf("%w: %v", ErrInvalidBBox, err)
		}
		q = NewBBoxQuery(ts, bbox)
	} else {
		center, err := geo.ParsePoint(rawLat, rawLon)
		if err != nil {
			return Query{}, fmt.Errorf("%w: %v", ErrInvalidCenter, err)
		}
		radius, err := strconv.ParseFloat(rawRadius, 64)
		if err != nil {
			return Query{}, ErrInvalidRadius
		}
		q = NewRadiusQuery(ts, center, radius)
	}

	if err := q.Validate(); err != nil {
		return Query{}, err
	}
	return q, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, raw)
}
