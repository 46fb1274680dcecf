// Package render turns polygons into pixel-space draw instructions for one
// viewport snapshot. It never mutates polygons.
package render

import (
	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/geometry"
	"github.com/jobrunner/limes/internal/mercator"
)

// InvertedMargin is how far the outer rectangle of an inverted polygon
// extends past every edge of the viewport.
const InvertedMargin = 1e6

// FillRule selects how overlapping rings are filled.
type FillRule string

// Fill rules, named as in SVG.
const (
	FillNonZero FillRule = "nonzero"
	FillEvenOdd FillRule = "evenodd"
)

// Ring is a closed ring in pixel space without the closing duplicate.
type Ring []mercator.Pixel

// Path is a filled shape made of one or more rings.
type Path struct {
	Rings    []Ring   `json:"rings"`
	FillRule FillRule `json:"fillRule"`
}

// Handle is a draggable vertex or midpoint marker.
type Handle struct {
	Pos mercator.Pixel   `json:"pos"`
	Ref domain.VertexRef `json:"ref"`
}

// Drawing is the paint of one polygon.
type Drawing struct {
	PolygonID string   `json:"polygonId,omitempty"`
	RuleID    string   `json:"ruleId,omitempty"`
	Body      Path     `json:"body"`
	Outline   []Ring   `json:"outline"`
	Vertices  []Handle `json:"vertices,omitempty"`
	Midpoints []Handle `json:"midpoints,omitempty"`
	Inverted  bool     `json:"inverted,omitempty"`
	Editing   bool     `json:"editing,omitempty"`
	Style     Style    `json:"style"`
}

// Polyline is an open line, used for the polygon being drawn.
type Polyline struct {
	Points []mercator.Pixel `json:"points"`
	Style  Style            `json:"style"`
}

// Flags control per-polygon decorations.
type Flags struct {
	// Editing adds vertex and midpoint handles.
	Editing bool
	// Coordinates replaces the polygon's own coordinates, for drag previews.
	Coordinates domain.MultiPolygon
}

// Polygon projects one annotated polygon.
func Polygon(ap domain.AnnotatedPolygon, proj mercator.Projector, flags Flags) Drawing {
	coords := ap.Coordinates
	if flags.Coordinates != nil {
		coords = flags.Coordinates
	}

	rings := make([]Ring, 0, len(coords))
	for _, part := range coords {
		rings = append(rings, projectRing(part, proj))
	}

	d := Drawing{
		PolygonID: ap.ID,
		Outline:   rings,
		Inverted:  ap.Inverted,
		Editing:   flags.Editing,
	}
	if ap.Inverted {
		d.Body = InvertedPath(rings, proj.Viewport())
		d.Style = invertedStyle(ap.Annotation)
	} else {
		d.Body = Path{Rings: rings, FillRule: FillNonZero}
		d.Style = ColorFor(ap.Annotation)
	}

	if flags.Editing {
		for pi, part := range coords {
			for vi := range part {
				d.Vertices = append(d.Vertices, Handle{
					Pos: rings[pi][vi],
					Ref: domain.VertexRef{Part: pi, Vertex: vi},
				})
			}
			for vi, m := range geometry.EdgeMidpoints(part) {
				d.Midpoints = append(d.Midpoints, Handle{
					Pos: proj.GeoToPixel(m),
					Ref: domain.VertexRef{Part: pi, Vertex: vi},
				})
			}
		}
	}
	return d
}

// InvertedPath builds the fill of an inverted polygon: a rectangle strictly
// larger than the viewport with the polygon rings as holes. The rings keep
// their original winding; the even-odd rule makes them holes regardless.
func InvertedPath(rings []Ring, vp domain.Viewport) Path {
	outer := Ring{
		{X: -InvertedMargin, Y: -InvertedMargin},
		{X: vp.Width + InvertedMargin, Y: -InvertedMargin},
		{X: vp.Width + InvertedMargin, Y: vp.Height + InvertedMargin},
		{X: -InvertedMargin, Y: vp.Height + InvertedMargin},
	}
	out := make([]Ring, 0, len(rings)+1)
	out = append(out, outer)
	out = append(out, rings...)
	return Path{Rings: out, FillRule: FillEvenOdd}
}

// Rule projects an annotation rule. Each polygon of the rule may carry holes,
// so the body uses the even-odd rule.
func Rule(r domain.AnnotationRule, proj mercator.Projector) Drawing {
	var rings []Ring
	for _, poly := range r.Polygons {
		for _, ring := range poly {
			rings = append(rings, projectRing(domain.Polygon(ring), proj))
		}
	}
	return Drawing{
		RuleID:  r.ID,
		Body:    Path{Rings: rings, FillRule: FillEvenOdd},
		Outline: rings,
		Style:   ruleStyle(r.Annotation),
	}
}

// Draft projects the polygon being drawn, ending at the cursor if known.
func Draft(points domain.Polygon, cursor *domain.GeoPoint, proj mercator.Projector) Polyline {
	line := Polyline{Style: draftStyle()}
	for _, p := range points {
		line.Points = append(line.Points, proj.GeoToPixel(p))
	}
	if cursor != nil && len(points) > 0 {
		line.Points = append(line.Points, proj.GeoToPixel(*cursor))
	}
	return line
}

func projectRing(p domain.Polygon, proj mercator.Projector) Ring {
	out := make(Ring, len(p))
	for i, v := range p {
		out[i] = proj.GeoToPixel(v)
	}
	return out
}
