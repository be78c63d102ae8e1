package polyline_test

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/airlens/airlens/pkg/polyline"
)

// googleExample is the worked example from the format documentation.
var googleExample = []orb.Point{
	{-120.2, 38.5},
	{-120.95, 40.7},
	{-126.453, 43.252},
}

func near(a, b orb.Point) bool {
	return math.Abs(a.Lon()-b.Lon()) < 1e-5 && math.Abs(a.Lat()-b.Lat()) < 1e-5
}

func TestEncode(t *testing.T) {
	tests := []struct {
		name   string
		points []orb.Point
		want   string
	}{
		{"empty", nil, ""},
		{"single point", googleExample[:1], "_p~iF~ps|U"},
		{"documented example", googleExample, "_p~iF~ps|U_ulLnnqC_mqNvxq`@"},
		{"origin", []orb.Point{{0, 0}}, "??"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := polyline.Encode(tt.points); got != tt.want {
				t.Errorf("Encode() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecode(t *testing.T) {
	got, err := polyline.Decode("_p~iF~ps|U_ulLnnqC_mqNvxq`@")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(got) != len(googleExample) {
		t.Fatalf("Decode() returned %d points, want %d", len(got), len(googleExample))
	}
	for i := range got {
		if !near(got[i], googleExample[i]) {
			t.Errorf("point %d = %v, want %v", i, got[i], googleExample[i])
		}
	}
}

func TestDecode_Empty(t *testing.T) {
	got, err := polyline.Decode("")
	if err != nil || len(got) != 0 {
		t.Errorf("Decode(\"\") = %v, %v; want empty, nil", got, err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name      string
		encoded   string
		truncated bool
	}{
		{"latitude without longitude", "_p~iF", true},
		{"unterminated value", "_p~iF~ps|", true},
		{"character below range", "_p~iF~ps|U !", false},
		{"character above range", "_p~iF\x7f", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := polyline.Decode(tt.encoded)
			if err == nil {
				t.Fatal("Decode() error = nil")
			}
			if got := errors.Is(err, polyline.ErrTruncated); got != tt.truncated {
				t.Errorf("errors.Is(err, ErrTruncated) = %v, want %v (err %v)", got, tt.truncated, err)
			}
		})
	}
}

func TestEncodeRing_CaliforniaOutline(t *testing.T) {
	ring := orb.Ring{
		{-120.0091050, 41.9727325},
		{-124.6045661, 41.8898826},
		{-120.4462801, 33.9044735},
		{-117.1073262, 32.6184122},
		{-120.0091050, 41.9727325},
	}

	decoded, err := polyline.Decode(polyline.EncodeRing(ring))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(decoded) != len(ring) {
		t.Fatalf("decoded %d points, want %d", len(decoded), len(ring))
	}
	for i := range ring {
		if !near(decoded[i], ring[i]) {
			t.Errorf("point %d = %v, want %v", i, decoded[i], ring[i])
		}
	}
	if decoded[0] != decoded[len(decoded)-1] {
		t.Error("ring no longer closed after round trip")
	}
}

func BenchmarkEncodeRing(b *testing.B) {
	ring := make(orb.Ring, 0, 500)
	for i := 0; i < 500; i++ {
		angle := float64(i) / 500 * 2 * math.Pi
		ring = append(ring, orb.Point{-119.4 + 3*math.Cos(angle), 37.2 + 4*math.Sin(angle)})
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = polyline.EncodeRing(ring)
	}
}
