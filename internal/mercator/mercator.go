// Package mercator implements the spherical Web Mercator projection (EPSG:3857)
// with 256 pixel tiles, and the pixel/geo bridge bound to a viewport snapshot.
package mercator

import (
	"math"

	"github.com/jobrunner/limes/internal/domain"
)

// TileSize is the edge length of one map tile in pixels.
const TileSize = 256.0

const (
	degToRad = math.Pi / 180.0
	radToDeg = 180.0 / math.Pi
)

// ClampLatitude clamps lat to the Web Mercator limit. NaN maps to 0 so that a
// degenerate input still projects.
func ClampLatitude(lat float64) float64 {
	switch {
	case math.IsNaN(lat):
		return 0
	case lat > domain.MaxLatitude:
		return domain.MaxLatitude
	case lat < domain.MinLatitude:
		return domain.MinLatitude
	}
	return lat
}

// WrapLongitude normalizes lng into [-180, 180].
func WrapLongitude(lng float64) float64 {
	if lng >= domain.MinLongitude && lng <= domain.MaxLongitude {
		return lng
	}
	if math.IsNaN(lng) || math.IsInf(lng, 0) {
		return 0
	}
	w := math.Mod(lng+180, 360)
	if w < 0 {
		w += 360
	}
	return w - 180
}

// Scale returns the world size in pixels at zoom.
func Scale(zoom float64) float64 {
	return TileSize * math.Exp2(zoom)
}

// GeoToWorld projects a geographic position to world pixels at zoom. The
// latitude is clamped first, so the result is always finite.
func GeoToWorld(lat, lng, zoom float64) (x, y float64) {
	scale := Scale(zoom)
	phi := ClampLatitude(lat) * degToRad

	x = (lng + 180) / 360 * scale
	mercY := math.Log(math.Tan(math.Pi/4 + phi/2))
	y = (1 - mercY/math.Pi) / 2 * scale
	return x, y
}

// WorldToGeo is the exact inverse of GeoToWorld. Positions above or below the
// square world produce latitudes beyond the Mercator limit; callers validate.
func WorldToGeo(x, y, zoom float64) (lat, lng float64) {
	scale := Scale(zoom)

	lng = x/scale*360 - 180
	phi := 2*math.Atan(math.Exp(math.Pi*(1-2*y/scale))) - math.Pi/2
	return phi * radToDeg, lng
}

// TileOf returns the tile containing the geographic position at integer zoom z.
func TileOf(lat, lng float64, z int) (x, y int) {
	wx, wy := GeoToWorld(lat, lng, float64(z))
	n := int(math.Exp2(float64(z)))
	x = clampInt(int(math.Floor(wx/TileSize)), 0, n-1)
	y = clampInt(int(math.Floor(wy/TileSize)), 0, n-1)
	return x, y
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
