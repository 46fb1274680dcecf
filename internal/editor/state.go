package editor

import (
	"time"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/mercator"
)

// Mode selects what a drawing interaction produces.
type Mode string

// Drawing modes.
const (
	ModePolygon   Mode = "polygon"
	ModeRectangle Mode = "rectangle"
	ModeLatBand   Mode = "latband"
)

// ParseMode parses a drawing mode name.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(s); m {
	case ModePolygon, ModeRectangle, ModeLatBand:
		return m, nil
	}
	return "", &domain.ValidationError{
		Field:      "mode",
		Value:      s,
		Constraint: "polygon|rectangle|latband",
		Message:    "unknown drawing mode",
	}
}

// State is the active interaction. Exactly one state is active at a time.
type State interface {
	Name() string
	isState()
}

// Idle means no interaction is in progress.
type Idle struct{}

// Drawing collects the points of a new shape.
type Drawing struct {
	Mode   Mode
	Points domain.Polygon
	Upper  float64 // latband only
	Lower  float64 // latband only
}

// DraggingVertex moves one vertex of the polygon in edit mode.
type DraggingVertex struct {
	TargetID string
	Ref      domain.VertexRef
}

// DraggingPolygon moves the whole polygon in edit mode.
type DraggingPolygon struct {
	TargetID    string
	StartPos    mercator.Pixel
	StartCoords domain.MultiPolygon
}

// Investigating shows the results of an area search around Point.
type Investigating struct {
	Point         domain.GeoPoint
	RadiusKm      float64
	Investigation *domain.Investigation
}

// Name implements State.
func (Idle) Name() string { return "idle" }

// Name implements State.
func (Drawing) Name() string { return "drawing" }

// Name implements State.
func (DraggingVertex) Name() string { return "dragging-vertex" }

// Name implements State.
func (DraggingPolygon) Name() string { return "dragging-polygon" }

// Name implements State.
func (Investigating) Name() string { return "investigating" }

func (Idle) isState()            {}
func (Drawing) isState()         {}
func (DraggingVertex) isState()  {}
func (DraggingPolygon) isState() {}
func (Investigating) isState()   {}

// TargetKind is what a pointer event hit.
type TargetKind string

// Target kinds, from the base map up to editing handles.
const (
	TargetMap      TargetKind = "map"
	TargetPolygon  TargetKind = "polygon"
	TargetMidpoint TargetKind = "midpoint"
	TargetVertex   TargetKind = "vertex"
)

// Target identifies the element under the pointer. For midpoints, Ref
// addresses the vertex the edge starts at.
type Target struct {
	Kind      TargetKind       `json:"kind"`
	PolygonID string           `json:"polygonId,omitempty"`
	Ref       domain.VertexRef `json:"ref"`
}

// Button is a pointer button.
type Button int

// Pointer buttons.
const (
	ButtonPrimary Button = iota
	ButtonSecondary
)

// PointerEvent is a pointer down/move/up/leave event in viewport pixels.
type PointerEvent struct {
	Pos    mercator.Pixel
	At     time.Time
	Target Target
	Button Button
}

// press tracks one pointer-down until its release.
type press struct {
	start    mercator.Pixel
	last     mercator.Pixel
	at       time.Time
	moved    float64
	startGeo domain.GeoPoint
	target   Target
	button   Button
}
