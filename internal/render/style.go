package render

import (
	colorful "github.com/lucasb-eyer/go-colorful"

	"github.com/jobrunner/limes/internal/domain"
)

// Style is the paint of one drawing.
type Style struct {
	Stroke      string  `json:"stroke"`
	Fill        string  `json:"fill"`
	FillOpacity float64 `json:"fillOpacity"`
	StrokeWidth float64 `json:"strokeWidth"`
	Dashed      bool    `json:"dashed,omitempty"`
}

var (
	annotationColors = map[domain.Annotation]colorful.Color{
		domain.AnnotationSuspicious: mustHex("#e53935"),
		domain.AnnotationNative:     mustHex("#43a047"),
		domain.AnnotationManaged:    mustHex("#1e88e5"),
		domain.AnnotationFormer:     mustHex("#fb8c00"),
		domain.AnnotationVagrant:    mustHex("#8e24aa"),
	}
	defaultColor = mustHex("#9e9e9e")
	white        = colorful.Color{R: 1, G: 1, B: 1}
)

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

// ColorFor returns the style of an annotation. Unknown annotations are grey.
func ColorFor(a domain.Annotation) Style {
	c, ok := annotationColors[a]
	if !ok {
		c = defaultColor
	}
	return Style{
		Stroke:      c.Hex(),
		Fill:        c.BlendLab(white, 0.25).Clamped().Hex(),
		FillOpacity: 0.35,
		StrokeWidth: 2,
	}
}

// invertedStyle darkens the world outside an inverted polygon a bit more
// than a regular fill.
func invertedStyle(a domain.Annotation) Style {
	s := ColorFor(a)
	s.FillOpacity = 0.5
	return s
}

func ruleStyle(a domain.Annotation) Style {
	s := ColorFor(a)
	s.FillOpacity = 0.15
	s.StrokeWidth = 1
	s.Dashed = true
	return s
}

func draftStyle() Style {
	return Style{
		Stroke:      defaultColor.Hex(),
		Fill:        "none",
		StrokeWidth: 2,
		Dashed:      true,
	}
}
