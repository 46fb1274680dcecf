package mercator

import (
	"math"
	"testing"

	"github.com/jobrunner/limes/internal/domain"
)

var testZooms = []float64{0, 2, 8, 14, 18}

func TestClampLatitude(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"inside", 45, 45},
		{"limit", domain.MaxLatitude, domain.MaxLatitude},
		{"north pole", 90, domain.MaxLatitude},
		{"south pole", -90, domain.MinLatitude},
		{"huge", 1e300, domain.MaxLatitude},
		{"negative infinity", math.Inf(-1), domain.MinLatitude},
		{"NaN", math.NaN(), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampLatitude(tt.in); got != tt.want {
				t.Errorf("ClampLatitude(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestClampLatitudeIdempotent(t *testing.T) {
	for x := -1000.0; x <= 1000; x += 0.37 {
		once := ClampLatitude(x)
		if twice := ClampLatitude(once); twice != once {
			t.Fatalf("ClampLatitude not idempotent at %v: %v != %v", x, twice, once)
		}
	}
}

func TestGeoToWorldKnownValues(t *testing.T) {
	tests := []struct {
		name         string
		lat, lng     float64
		zoom         float64
		wantX, wantY float64
	}{
		{"origin z0", 0, 0, 0, 128, 128},
		{"north-west corner z0", domain.MaxLatitude, -180, 0, 0, 0},
		{"south-east corner z1", domain.MinLatitude, 180, 1, 512, 512},
		{"origin z3", 0, 0, 3, 1024, 1024},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := GeoToWorld(tt.lat, tt.lng, tt.zoom)
			if math.Abs(x-tt.wantX) > 1e-6 || math.Abs(y-tt.wantY) > 1e-6 {
				t.Errorf("GeoToWorld() = (%v, %v), want (%v, %v)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestGeoToWorldBeyondPoleIsFinite(t *testing.T) {
	for _, lat := range []float64{90, -90, 89.999, math.Inf(1)} {
		x, y := GeoToWorld(lat, 0, 4)
		if math.IsNaN(y) || math.IsInf(y, 0) || math.IsNaN(x) {
			t.Errorf("GeoToWorld(%v) = (%v, %v), want finite", lat, x, y)
		}
	}
}

func TestWorldRoundTrip(t *testing.T) {
	for _, z := range testZooms {
		for lat := -85.0; lat <= 85; lat += 5 {
			for lng := -180.0; lng < 180; lng += 15 {
				x, y := GeoToWorld(lat, lng, z)
				gotLat, gotLng := WorldToGeo(x, y, z)
				if math.Abs(gotLat-lat) > 1e-9 || math.Abs(gotLng-lng) > 1e-9 {
					t.Fatalf("z=%v (%v, %v) round-tripped to (%v, %v)", z, lat, lng, gotLat, gotLng)
				}
			}
		}
	}
}

func TestWrapLongitude(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0, 0},
		{180, 180},
		{-180, -180},
		{190, -170},
		{-190, 170},
		{540, -180},
		{725, 5},
	}

	for _, tt := range tests {
		if got := WrapLongitude(tt.in); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("WrapLongitude(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestTileOf(t *testing.T) {
	tests := []struct {
		name     string
		lat, lng float64
		z        int
		wantX    int
		wantY    int
	}{
		{"z0", 10, 10, 0, 0, 0},
		{"z1 north-east", 10, 10, 1, 1, 0},
		{"z1 south-west", -10, -10, 1, 0, 1},
		{"clamped east edge", 0, 180, 2, 3, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := TileOf(tt.lat, tt.lng, tt.z)
			if x != tt.wantX || y != tt.wantY {
				t.Errorf("TileOf() = (%d, %d), want (%d, %d)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}
