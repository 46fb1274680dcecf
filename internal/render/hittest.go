package render

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/jobrunner/limes/internal/editor"
	"github.com/jobrunner/limes/internal/mercator"
)

// Handle sizes in pixels. Hit radii are the drawn radii.
const (
	VertexRadius   = 6.0
	MidpointRadius = 4.5
)

// HitTest resolves what lies under px. Vertex handles win over midpoint
// handles, which win over polygon bodies; later polygons are on top. An
// inverted polygon is hit inside its rings, not in the shaded outside.
func HitTest(s Scene, px mercator.Pixel) editor.Target {
	for i := len(s.Polygons) - 1; i >= 0; i-- {
		d := s.Polygons[i]
		for _, h := range d.Vertices {
			if h.Pos.Dist(px) <= VertexRadius {
				return editor.Target{Kind: editor.TargetVertex, PolygonID: d.PolygonID, Ref: h.Ref}
			}
		}
	}
	for i := len(s.Polygons) - 1; i >= 0; i-- {
		d := s.Polygons[i]
		for _, h := range d.Midpoints {
			if h.Pos.Dist(px) <= MidpointRadius {
				return editor.Target{Kind: editor.TargetMidpoint, PolygonID: d.PolygonID, Ref: h.Ref}
			}
		}
	}

	pt := orb.Point{px.X, px.Y}
	for i := len(s.Polygons) - 1; i >= 0; i-- {
		d := s.Polygons[i]
		for _, ring := range d.Outline {
			if len(ring) >= 3 && planar.RingContains(pixelRing(ring), pt) {
				return editor.Target{Kind: editor.TargetPolygon, PolygonID: d.PolygonID}
			}
		}
	}
	return editor.Target{Kind: editor.TargetMap}
}

func pixelRing(r Ring) orb.Ring {
	out := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		out = append(out, orb.Point{p.X, p.Y})
	}
	return append(out, out[0])
}
