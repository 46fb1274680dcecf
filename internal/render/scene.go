package render

import (
	"math"
	"strconv"
	"strings"

	svg "github.com/ajstarks/svgo"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/editor"
	"github.com/jobrunner/limes/internal/mercator"
)

// Scene is one paint: everything in it was projected with the same viewport.
type Scene struct {
	Viewport domain.Viewport `json:"viewport"`
	Rules    []Drawing       `json:"rules,omitempty"`
	Polygons []Drawing       `json:"polygons"`
	Draft    *Polyline       `json:"draft,omitempty"`
	Rubber   *Drawing        `json:"rubberBand,omitempty"`
}

// Build paints the committed polygons, the rule overlays and the editor
// state. A drag preview replaces the committed coordinates of its polygon.
func Build(proj mercator.Projector, polygons []domain.AnnotatedPolygon, rules []domain.AnnotationRule, view editor.View) Scene {
	s := Scene{
		Viewport: proj.Viewport(),
		Polygons: make([]Drawing, 0, len(polygons)),
	}
	for _, r := range rules {
		s.Rules = append(s.Rules, Rule(r, proj))
	}
	for _, ap := range polygons {
		flags := Flags{Editing: ap.ID == view.EditingID}
		if view.PreviewID == ap.ID && view.Preview != nil {
			flags.Coordinates = view.Preview
		}
		s.Polygons = append(s.Polygons, Polygon(ap, proj, flags))
	}

	if len(view.Draft) > 0 && view.Mode != editor.ModeRectangle {
		d := Draft(view.Draft, view.Cursor, proj)
		if view.Mode == editor.ModeLatBand {
			d.Points = append(d.Points, d.Points[0])
		}
		s.Draft = &d
	}
	if len(view.Rubber) > 0 {
		rubber := projectRing(view.Rubber, proj)
		s.Rubber = &Drawing{
			Body:    Path{Rings: []Ring{rubber}, FillRule: FillNonZero},
			Outline: []Ring{rubber},
			Style:   draftStyle(),
		}
	}
	return s
}

// SVG serialises the scene as a standalone SVG document the size of the
// viewport. Handle and draft positions are rounded to whole pixels.
func (s Scene) SVG() string {
	var b strings.Builder
	w, h := int(math.Ceil(s.Viewport.Width)), int(math.Ceil(s.Viewport.Height))

	canvas := svg.New(&b)
	canvas.Startview(w, h, 0, 0, w, h)
	for _, d := range s.Rules {
		writeDrawing(canvas, d, "rule")
	}
	for _, d := range s.Polygons {
		writeDrawing(canvas, d, "polygon")
	}
	if s.Rubber != nil {
		writeDrawing(canvas, *s.Rubber, "rubber")
	}
	if s.Draft != nil && len(s.Draft.Points) > 0 {
		xs := make([]int, len(s.Draft.Points))
		ys := make([]int, len(s.Draft.Points))
		for i, p := range s.Draft.Points {
			xs[i], ys[i] = pixel(p.X), pixel(p.Y)
		}
		canvas.Polyline(xs, ys, append([]string{`class="draft"`}, styleAttrs(s.Draft.Style)...)...)
	}
	canvas.End()
	return b.String()
}

func writeDrawing(canvas *svg.SVG, d Drawing, class string) {
	id := d.PolygonID
	if id == "" {
		id = d.RuleID
	}
	if id == "" {
		id = "draft"
	}
	canvas.Gid(class + "-" + id)

	fill := d.Style
	fill.StrokeWidth = 0
	canvas.Path(pathData(d.Body.Rings), append([]string{
		`class="` + class + `"`,
		`fill-rule="` + string(d.Body.FillRule) + `"`,
	}, styleAttrs(fill)...)...)

	// Inverted bodies have their edge off screen, so the outline is always
	// stroked separately.
	outline := []string{
		`fill="none"`,
		`stroke="` + d.Style.Stroke + `"`,
		`stroke-width="` + num(d.Style.StrokeWidth) + `"`,
	}
	if d.Style.Dashed {
		outline = append(outline, `stroke-dasharray="6 4"`)
	}
	canvas.Path(pathData(d.Outline), outline...)

	for _, m := range d.Midpoints {
		canvas.Circle(pixel(m.Pos.X), pixel(m.Pos.Y), pixel(MidpointRadius),
			`class="midpoint"`, `fill="#ffffff"`, `fill-opacity="0.7"`, `stroke="`+d.Style.Stroke+`"`)
	}
	for _, v := range d.Vertices {
		canvas.Circle(pixel(v.Pos.X), pixel(v.Pos.Y), pixel(VertexRadius),
			`class="vertex"`, `fill="#ffffff"`, `stroke="`+d.Style.Stroke+`"`, `stroke-width="2"`)
	}
	canvas.Gend()
}

func styleAttrs(s Style) []string {
	attrs := []string{`fill="` + s.Fill + `"`}
	if s.Fill != "none" {
		attrs = append(attrs, `fill-opacity="`+num(s.FillOpacity)+`"`)
	}
	if s.StrokeWidth > 0 {
		attrs = append(attrs, `stroke="`+s.Stroke+`"`, `stroke-width="`+num(s.StrokeWidth)+`"`)
		if s.Dashed {
			attrs = append(attrs, `stroke-dasharray="6 4"`)
		}
	}
	return attrs
}

// pathData writes every ring as a closed subpath.
func pathData(rings []Ring) string {
	var b strings.Builder
	for _, r := range rings {
		if len(r) == 0 {
			continue
		}
		for i, p := range r {
			if i == 0 {
				b.WriteString("M")
			} else {
				b.WriteString(" L")
			}
			b.WriteString(num(p.X) + " " + num(p.Y))
		}
		b.WriteString(" Z ")
	}
	return strings.TrimSpace(b.String())
}

func num(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

func pixel(f float64) int {
	return int(math.Round(f))
}
