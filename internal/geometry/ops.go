// Package geometry provides pure operations on polygon coordinates. No
// function modifies its input; every result is a fresh slice, so callers can
// keep the previous value for undo or discard.
package geometry

import (
	"fmt"

	"github.com/jobrunner/limes/internal/domain"
)

// AutoDensifyLimit is the vertex count from which AutoDensify leaves a
// polygon alone.
const AutoDensifyLimit = 10

// Midpoint returns the linear lat/lng mean of a and b. It is not a
// great-circle midpoint; long edges across many degrees of longitude (or the
// antimeridian) are approximated.
func Midpoint(a, b domain.GeoPoint) domain.GeoPoint {
	return domain.GeoPoint{Lat: (a.Lat + b.Lat) / 2, Lng: (a.Lng + b.Lng) / 2}
}

// EdgeMidpoints returns the midpoint of every edge, edge i running from
// vertex i to vertex i+1 and the last edge closing the ring.
func EdgeMidpoints(p domain.Polygon) []domain.GeoPoint {
	if len(p) < 2 {
		return nil
	}
	out := make([]domain.GeoPoint, len(p))
	for i := range p {
		out[i] = Midpoint(p[i], p[(i+1)%len(p)])
	}
	return out
}

// AppendVertex returns p with v appended. Out of bounds points are rejected.
func AppendVertex(p domain.Polygon, v domain.GeoPoint) (domain.Polygon, error) {
	if err := v.Validate(); err != nil {
		return nil, err
	}
	out := make(domain.Polygon, len(p), len(p)+1)
	copy(out, p)
	return append(out, v), nil
}

// MoveVertex returns p with vertex i replaced by v.
func MoveVertex(p domain.Polygon, i int, v domain.GeoPoint) (domain.Polygon, error) {
	if err := checkIndex(p, i); err != nil {
		return nil, err
	}
	if err := v.Validate(); err != nil {
		return nil, err
	}
	out := p.Clone()
	out[i] = v
	return out, nil
}

// InsertMidpoint inserts the midpoint of the edge starting at afterIndex
// directly after it. The edge after the last vertex closes the ring.
func InsertMidpoint(p domain.Polygon, afterIndex int) (domain.Polygon, error) {
	if err := checkIndex(p, afterIndex); err != nil {
		return nil, err
	}
	mid := Midpoint(p[afterIndex], p[(afterIndex+1)%len(p)])

	out := make(domain.Polygon, 0, len(p)+1)
	out = append(out, p[:afterIndex+1]...)
	out = append(out, mid)
	out = append(out, p[afterIndex+1:]...)
	return out, nil
}

// DeleteVertex removes vertex i. A polygon with 3 or fewer vertices is left
// untouched and ErrMinVertices is returned.
func DeleteVertex(p domain.Polygon, i int) (domain.Polygon, error) {
	if len(p) <= domain.MinVertices {
		return nil, &domain.ValidationError{
			Field:      "polygon",
			Value:      len(p),
			Constraint: "> 3 vertices",
			Message:    "a polygon cannot have fewer than 3 vertices",
			Err:        domain.ErrMinVertices,
		}
	}
	if err := checkIndex(p, i); err != nil {
		return nil, err
	}

	out := make(domain.Polygon, 0, len(p)-1)
	out = append(out, p[:i]...)
	return append(out, p[i+1:]...), nil
}

// Densify inserts an edge midpoint after every vertex, doubling the count.
func Densify(p domain.Polygon) domain.Polygon {
	out := make(domain.Polygon, 0, 2*len(p))
	for i := range p {
		out = append(out, p[i], Midpoint(p[i], p[(i+1)%len(p)]))
	}
	return out
}

// AutoDensify densifies p unless it already has AutoDensifyLimit vertices
// or more. It reports whether anything changed. Use it wherever densify runs
// without an explicit user request, so repeated runs cannot grow a polygon
// without bound.
func AutoDensify(p domain.Polygon) (domain.Polygon, bool) {
	if len(p) >= AutoDensifyLimit {
		return p.Clone(), false
	}
	return Densify(p), true
}

// Decimate keeps every vertex with an even index. It is rejected when the
// result would have fewer than 3 vertices.
func Decimate(p domain.Polygon) (domain.Polygon, error) {
	out := make(domain.Polygon, 0, (len(p)+1)/2)
	for i := 0; i < len(p); i += 2 {
		out = append(out, p[i])
	}
	if len(out) < domain.MinVertices {
		return nil, &domain.ValidationError{
			Field:      "polygon",
			Value:      len(p),
			Constraint: ">= 5 vertices",
			Message:    "too few vertices to simplify",
			Err:        domain.ErrMinVertices,
		}
	}
	return out, nil
}

// Translate shifts every vertex by (dLat, dLng). Bounds are not checked; see
// TranslateShape.
func Translate(p domain.Polygon, dLat, dLng float64) domain.Polygon {
	out := make(domain.Polygon, len(p))
	for i, v := range p {
		out[i] = v.Add(dLat, dLng)
	}
	return out
}

// CloseRing appends a copy of the first vertex unless the ring is already
// explicitly closed.
func CloseRing(p domain.Polygon) domain.Polygon {
	out := p.Clone()
	if len(p) == 0 || p[0].Equal(p[len(p)-1]) {
		return out
	}
	return append(out, p[0])
}

// OpenRing drops an explicit closing vertex, the inverse of CloseRing.
func OpenRing(p domain.Polygon) domain.Polygon {
	if len(p) > 1 && p[0].Equal(p[len(p)-1]) {
		return p[:len(p)-1].Clone()
	}
	return p.Clone()
}

func checkIndex(p domain.Polygon, i int) error {
	if i < 0 || i >= len(p) {
		return &domain.ValidationError{
			Field:      "vertex",
			Value:      i,
			Constraint: fmt.Sprintf("[0, %d)", len(p)),
			Message:    "no such vertex",
			Err:        domain.ErrVertexIndex,
		}
	}
	return nil
}
