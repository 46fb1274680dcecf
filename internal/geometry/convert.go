package geometry

import (
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"

	"github.com/jobrunner/limes/internal/domain"
)

// orb stores points as [lng, lat]; every conversion goes through these two.

func toOrbPoint(g domain.GeoPoint) orb.Point {
	return orb.Point{g.Lng, g.Lat}
}

func fromOrbPoint(p orb.Point) domain.GeoPoint {
	return domain.GeoPoint{Lat: p.Lat(), Lng: p.Lon()}
}

// ToOrbRing converts p to an explicitly closed orb ring.
func ToOrbRing(p []domain.GeoPoint) orb.Ring {
	closed := CloseRing(domain.Polygon(p))
	ring := make(orb.Ring, len(closed))
	for i, v := range closed {
		ring[i] = toOrbPoint(v)
	}
	return ring
}

// FromOrbRing converts r to an implicitly closed polygon.
func FromOrbRing(r orb.Ring) domain.Polygon {
	p := make(domain.Polygon, len(r))
	for i, pt := range r {
		p[i] = fromOrbPoint(pt)
	}
	return OpenRing(p)
}

// ToOrbMultiPolygon converts m into an orb multipolygon with one outer ring
// per part.
func ToOrbMultiPolygon(m domain.MultiPolygon) orb.MultiPolygon {
	out := make(orb.MultiPolygon, len(m))
	for i, part := range m {
		out[i] = orb.Polygon{ToOrbRing(part)}
	}
	return out
}

// ToOrbGeometry returns an orb.Polygon for simple shapes and an
// orb.MultiPolygon otherwise.
func ToOrbGeometry(m domain.MultiPolygon, multi bool) orb.Geometry {
	if !multi && len(m) == 1 {
		return orb.Polygon{ToOrbRing(m[0])}
	}
	return ToOrbMultiPolygon(m)
}

// RuleToOrb converts a polygon with holes.
func RuleToOrb(rp domain.RulePolygon) orb.Polygon {
	out := make(orb.Polygon, len(rp))
	for i, ring := range rp {
		out[i] = ToOrbRing(ring)
	}
	return out
}

// RuleFromOrb converts an orb polygon (outer ring plus holes).
func RuleFromOrb(p orb.Polygon) domain.RulePolygon {
	out := make(domain.RulePolygon, len(p))
	for i, ring := range p {
		out[i] = domain.Ring(FromOrbRing(ring))
	}
	return out
}

// Contains reports whether g lies inside the outer ring of rp and outside
// all of its holes.
func Contains(rp domain.RulePolygon, g domain.GeoPoint) bool {
	if len(rp) == 0 {
		return false
	}
	return planar.PolygonContains(RuleToOrb(rp), toOrbPoint(g))
}

// PolygonContains reports whether g lies inside p.
func PolygonContains(p domain.Polygon, g domain.GeoPoint) bool {
	if len(p) < domain.MinVertices {
		return false
	}
	return planar.PolygonContains(orb.Polygon{ToOrbRing(p)}, toOrbPoint(g))
}

// Area returns the planar area of p in square degrees.
func Area(p domain.Polygon) float64 {
	if len(p) < domain.MinVertices {
		return 0
	}
	return math.Abs(planar.Area(orb.Polygon{ToOrbRing(p)}))
}

// ParseWKT parses a POLYGON or MULTIPOLYGON. Interior rings are not
// supported for annotated polygons and are rejected. The returned flag is
// true for MULTIPOLYGON input.
func ParseWKT(s string) (domain.MultiPolygon, bool, error) {
	geom, err := wkt.Unmarshal(strings.TrimSpace(s))
	if err != nil {
		return nil, false, &domain.ValidationError{
			Field:      "wkt",
			Value:      truncate(s, 64),
			Constraint: "POLYGON or MULTIPOLYGON",
			Message:    fmt.Sprintf("invalid WKT: %v", err),
			Err:        domain.ErrInvalidGeometry,
		}
	}

	var (
		polys []orb.Polygon
		multi bool
	)
	switch g := geom.(type) {
	case orb.Polygon:
		polys = []orb.Polygon{g}
	case orb.MultiPolygon:
		polys = g
		multi = true
	default:
		return nil, false, &domain.ValidationError{
			Field:      "wkt",
			Value:      geom.GeoJSONType(),
			Constraint: "POLYGON or MULTIPOLYGON",
			Message:    "only polygons can be imported",
			Err:        domain.ErrInvalidGeometry,
		}
	}

	out := make(domain.MultiPolygon, 0, len(polys))
	for _, poly := range polys {
		if len(poly) != 1 {
			return nil, false, &domain.ValidationError{
				Field:      "wkt",
				Value:      len(poly),
				Constraint: "1 ring per polygon",
				Message:    "polygons with holes cannot be imported",
				Err:        domain.ErrInvalidGeometry,
			}
		}
		out = append(out, FromOrbRing(poly[0]))
	}
	if err := out.Validate(); err != nil {
		return nil, false, err
	}
	return out, multi, nil
}

// FormatWKT renders m as POLYGON or MULTIPOLYGON with closed rings.
func FormatWKT(m domain.MultiPolygon, multi bool) string {
	return wkt.MarshalString(ToOrbGeometry(m, multi))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
