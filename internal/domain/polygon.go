package domain

import "fmt"

// MinVertices is the smallest vertex count a committed polygon may have.
const MinVertices = 3

// Polygon is an implicitly closed ring of vertices. The closing duplicate of
// the first vertex is only added at serialization boundaries (see CloseRing
// in package geometry).
type Polygon []GeoPoint

// Clone returns a copy that shares no memory with p.
func (p Polygon) Clone() Polygon {
	if p == nil {
		return nil
	}
	out := make(Polygon, len(p))
	copy(out, p)
	return out
}

// Validate checks the vertex count and the bounds of every vertex.
func (p Polygon) Validate() error {
	if len(p) < MinVertices {
		return &ValidationError{
			Field:      "polygon",
			Value:      len(p),
			Constraint: ">= 3 vertices",
			Message:    "a polygon needs at least 3 points",
			Err:        ErrTooFewPoints,
		}
	}
	return p.ValidateBounds()
}

// ValidateBounds checks only that every vertex lies in the valid range.
func (p Polygon) ValidateBounds() error {
	for _, v := range p {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// BBox returns the bounding box of the polygon.
func (p Polygon) BBox() BBox {
	if len(p) == 0 {
		return BBox{}
	}
	b := BBox{North: p[0].Lat, South: p[0].Lat, East: p[0].Lng, West: p[0].Lng}
	for _, v := range p[1:] {
		if v.Lat > b.North {
			b.North = v.Lat
		}
		if v.Lat < b.South {
			b.South = v.Lat
		}
		if v.Lng > b.East {
			b.East = v.Lng
		}
		if v.Lng < b.West {
			b.West = v.Lng
		}
	}
	return b
}

// MultiPolygon is an ordered list of independently valid polygon parts.
type MultiPolygon []Polygon

// Clone returns a deep copy of m.
func (m MultiPolygon) Clone() MultiPolygon {
	if m == nil {
		return nil
	}
	out := make(MultiPolygon, len(m))
	for i, part := range m {
		out[i] = part.Clone()
	}
	return out
}

// Validate checks every part.
func (m MultiPolygon) Validate() error {
	if len(m) == 0 {
		return &ValidationError{
			Field:      "coordinates",
			Value:      0,
			Constraint: ">= 1 part",
			Message:    "geometry has no parts",
			Err:        ErrInvalidGeometry,
		}
	}
	for _, part := range m {
		if err := part.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// VertexCount returns the total number of vertices across all parts.
func (m MultiPolygon) VertexCount() int {
	n := 0
	for _, part := range m {
		n += len(part)
	}
	return n
}

// Vertex returns the vertex addressed by ref.
func (m MultiPolygon) Vertex(ref VertexRef) (GeoPoint, bool) {
	if ref.Part < 0 || ref.Part >= len(m) {
		return GeoPoint{}, false
	}
	part := m[ref.Part]
	if ref.Vertex < 0 || ref.Vertex >= len(part) {
		return GeoPoint{}, false
	}
	return part[ref.Vertex], true
}

// VertexRef addresses one vertex of a (multi)polygon.
type VertexRef struct {
	Part   int `json:"part"`
	Vertex int `json:"vertex"`
}

// String returns a string representation of the reference.
func (r VertexRef) String() string {
	return fmt.Sprintf("%d/%d", r.Part, r.Vertex)
}

// Ring is a closed sequence of points used for rule polygons that may carry
// holes: the first ring of a RulePolygon is the outer boundary, the rest are
// holes.
type Ring []GeoPoint

// RulePolygon is a polygon with optional inner holes.
type RulePolygon []Ring
