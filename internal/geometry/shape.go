package geometry

import (
	"fmt"

	"github.com/jobrunner/limes/internal/domain"
)

// MoveShapeVertex moves the vertex addressed by ref.
func MoveShapeVertex(m domain.MultiPolygon, ref domain.VertexRef, v domain.GeoPoint) (domain.MultiPolygon, error) {
	return replacePart(m, ref.Part, func(p domain.Polygon) (domain.Polygon, error) {
		return MoveVertex(p, ref.Vertex, v)
	})
}

// InsertShapeMidpoint inserts the midpoint of the edge starting at ref.
func InsertShapeMidpoint(m domain.MultiPolygon, ref domain.VertexRef) (domain.MultiPolygon, error) {
	return replacePart(m, ref.Part, func(p domain.Polygon) (domain.Polygon, error) {
		return InsertMidpoint(p, ref.Vertex)
	})
}

// DeleteShapeVertex removes the vertex addressed by ref. The minimum vertex
// count applies to the addressed part only.
func DeleteShapeVertex(m domain.MultiPolygon, ref domain.VertexRef) (domain.MultiPolygon, error) {
	return replacePart(m, ref.Part, func(p domain.Polygon) (domain.Polygon, error) {
		return DeleteVertex(p, ref.Vertex)
	})
}

// TranslateShape shifts every vertex of every part by the same delta. The
// move is rejected if any vertex would leave the valid bounds.
func TranslateShape(m domain.MultiPolygon, dLat, dLng float64) (domain.MultiPolygon, error) {
	out := make(domain.MultiPolygon, len(m))
	for i, part := range m {
		moved := Translate(part, dLat, dLng)
		if err := moved.ValidateBounds(); err != nil {
			return nil, err
		}
		out[i] = moved
	}
	return out, nil
}

// DensifyShape densifies every part.
func DensifyShape(m domain.MultiPolygon) domain.MultiPolygon {
	out := make(domain.MultiPolygon, len(m))
	for i, part := range m {
		out[i] = Densify(part)
	}
	return out
}

// AutoDensifyShape applies AutoDensify to every part and reports whether any
// part changed.
func AutoDensifyShape(m domain.MultiPolygon) (domain.MultiPolygon, bool) {
	out := make(domain.MultiPolygon, len(m))
	changed := false
	for i, part := range m {
		var ok bool
		out[i], ok = AutoDensify(part)
		changed = changed || ok
	}
	return out, changed
}

// DecimateShape decimates every part. If any part cannot be decimated the
// whole operation is rejected.
func DecimateShape(m domain.MultiPolygon) (domain.MultiPolygon, error) {
	out := make(domain.MultiPolygon, len(m))
	for i, part := range m {
		d, err := Decimate(part)
		if err != nil {
			return nil, err
		}
		out[i] = d
	}
	return out, nil
}

// ValidateShape checks every part of m.
func ValidateShape(m domain.MultiPolygon) error {
	return m.Validate()
}

func replacePart(m domain.MultiPolygon, part int, fn func(domain.Polygon) (domain.Polygon, error)) (domain.MultiPolygon, error) {
	if part < 0 || part >= len(m) {
		return nil, &domain.ValidationError{
			Field:      "part",
			Value:      part,
			Constraint: fmt.Sprintf("[0, %d)", len(m)),
			Message:    "no such polygon part",
			Err:        domain.ErrVertexIndex,
		}
	}
	replaced, err := fn(m[part])
	if err != nil {
		return nil, err
	}
	out := m.Clone()
	out[part] = replaced
	return out, nil
}
