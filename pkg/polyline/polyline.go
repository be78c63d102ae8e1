// Package polyline implements Google's encoded polyline format for orb
// geometries at the standard five-decimal precision.
//
// See https://developers.google.com/maps/documentation/utilities/polylinealgorithm.
package polyline

import (
	"errors"
	"math"

	"github.com/paulmach/orb"
)

const factor = 1e5

// ErrTruncated is returned by Decode when the input ends mid-value or holds
// a latitude without its longitude.
var ErrTruncated = errors.New("polyline: truncated input")

// Encode encodes points, which are in orb's lon/lat order. The output lists
// latitude first, as the format requires.
func Encode(points []orb.Point) string {
	buf := make([]byte, 0, len(points)*6)
	var prevLat, prevLon int64
	for _, p := range points {
		lat := int64(math.Round(p.Lat() * factor))
		lon := int64(math.Round(p.Lon() * factor))
		buf = appendSigned(buf, lat-prevLat)
		buf = appendSigned(buf, lon-prevLon)
		prevLat, prevLon = lat, lon
	}
	return string(buf)
}

// EncodeRing encodes a polygon ring, closing point included.
func EncodeRing(ring orb.Ring) string {
	return Encode(ring)
}

// Decode parses an encoded polyline. An empty string decodes to an empty
// line string.
func Decode(encoded string) (orb.LineString, error) {
	var (
		ls       orb.LineString
		lat, lon int64
	)
	for i := 0; i < len(encoded); {
		dLat, n, err := readSigned(encoded[i:])
		if err != nil {
			return nil, err
		}
		i += n
		if i == len(encoded) {
			return nil, ErrTruncated
		}
		dLon, n, err := readSigned(encoded[i:])
		if err != nil {
			return nil, err
		}
		i += n

		lat += dLat
		lon += dLon
		ls = append(ls, orb.Point{float64(lon) / factor, float64(lat) / factor})
	}
	return ls, nil
}

// appendSigned zigzag-encodes v and writes it in 5-bit groups, low first.
func appendSigned(buf []byte, v int64) []byte {
	u := uint64(v) << 1
	if v < 0 {
		u = ^u
	}
	for u >= 0x20 {
		buf = append(buf, byte(0x20|(u&0x1f))+63)
		u >>= 5
	}
	return append(buf, byte(u)+63)
}

func readSigned(s string) (int64, int, error) {
	var (
		u     uint64
		shift uint
	)
	for i := 0; i < len(s); i++ {
		b := uint64(s[i]) - 63
		if b > 0x3f {
			return 0, 0, errors.New("polyline: invalid character")
		}
		u |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			v := int64(u >> 1)
			if u&1 != 0 {
				v = ^v
			}
			return v, i + 1, nil
		}
	}
	return 0, 0, ErrTruncated
}
