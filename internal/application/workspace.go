package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/editor"
	"github.com/jobrunner/limes/internal/mapview"
	"github.com/jobrunner/limes/internal/mercator"
	"github.com/jobrunner/limes/internal/render"
)

// PointerKind is the type of a pointer input.
type PointerKind string

// Pointer input kinds.
const (
	PointerDown  PointerKind = "down"
	PointerMove  PointerKind = "move"
	PointerUp    PointerKind = "up"
	PointerLeave PointerKind = "leave"
	DoubleClick  PointerKind = "dblclick"
	ContextMenu  PointerKind = "contextmenu"
)

// PointerInput is a pointer event in viewport pixels. Without a Target the
// element under the pointer is resolved against the current scene.
type PointerInput struct {
	Kind   PointerKind    `json:"type"`
	X      float64        `json:"x"`
	Y      float64        `json:"y"`
	Button editor.Button  `json:"button"`
	Target *editor.Target `json:"target,omitempty"`
}

// WorkspaceConfig holds the density tile settings of the workspace.
type WorkspaceConfig struct {
	TileBaseURL string
	TileStyle   string
}

// Workspace binds one editor to its camera, the polygon store and the rule
// overlays. Every event runs under one lock, so a paint never sees half of
// a pan and half of a drag.
type Workspace struct {
	mu sync.Mutex

	editor *editor.Editor
	camera *mapview.Camera
	store  *PolygonStore
	rules  *RuleRegistry
	cfg    WorkspaceConfig
	logger *slog.Logger
	now    func() time.Time
}

var _ mapview.Navigator = (*Workspace)(nil)

// NewWorkspace creates a workspace. investigator may be nil, which disables
// area searches.
func NewWorkspace(
	editorCfg editor.Config,
	camera *mapview.Camera,
	store *PolygonStore,
	investigator editor.Investigator,
	rules *RuleRegistry,
	cfg WorkspaceConfig,
	logger *slog.Logger,
) *Workspace {
	return &Workspace{
		editor: editor.New(editorCfg, store, camera, investigator, logger.With("component", "editor")),
		camera: camera,
		store:  store,
		rules:  rules,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Pointer feeds one pointer input to the editor and returns the target it
// was resolved against.
func (w *Workspace) Pointer(ctx context.Context, in PointerInput) (editor.Target, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	pos := mercator.Pixel{X: in.X, Y: in.Y}
	var target editor.Target
	if in.Target != nil {
		target = *in.Target
	} else {
		target = render.HitTest(w.scene(), pos)
	}
	ev := editor.PointerEvent{Pos: pos, At: w.now(), Target: target, Button: in.Button}

	var err error
	switch in.Kind {
	case PointerDown:
		err = w.editor.PointerDown(ctx, ev)
	case PointerMove:
		err = w.editor.PointerMove(ctx, ev)
	case PointerUp:
		err = w.editor.PointerUp(ctx, ev)
	case PointerLeave:
		err = w.editor.PointerLeave(ctx)
	case DoubleClick:
		err = w.editor.DoubleClick(ctx)
	case ContextMenu:
		err = w.editor.ContextMenu(ctx, target)
	default:
		err = &domain.ValidationError{
			Field:      "type",
			Value:      in.Kind,
			Constraint: "down|move|up|leave|dblclick|contextmenu",
			Message:    "unknown pointer event",
		}
	}
	return target, err
}

// StartDrawing begins a new shape.
func (w *Workspace) StartDrawing(ctx context.Context, mode editor.Mode) error {
	return w.do(func() error { return w.editor.StartDrawing(ctx, mode) })
}

// Finish completes the shape being drawn.
func (w *Workspace) Finish(ctx context.Context) (domain.AnnotatedPolygon, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editor.Finish(ctx)
}

// Cancel aborts the active interaction.
func (w *Workspace) Cancel(ctx context.Context) error {
	return w.do(func() error { return w.editor.Cancel(ctx) })
}

// SetLatBand changes the latitude band being drawn.
func (w *Workspace) SetLatBand(upper, lower float64) error {
	return w.do(func() error { return w.editor.SetLatBand(upper, lower) })
}

// EnterEditMode selects a polygon for editing.
func (w *Workspace) EnterEditMode(ctx context.Context, id string) error {
	return w.do(func() error { return w.editor.EnterEditMode(ctx, id) })
}

// ExitEditMode leaves edit mode.
func (w *Workspace) ExitEditMode() error {
	return w.do(w.editor.ExitEditMode)
}

// SetMoveTool toggles whole-polygon dragging.
func (w *Workspace) SetMoveTool(on bool) error {
	return w.do(func() error { return w.editor.SetMoveTool(on) })
}

// SetInvestigateMode toggles area search on click.
func (w *Workspace) SetInvestigateMode(on bool) {
	_ = w.do(func() error {
		w.editor.SetInvestigateMode(on)
		return nil
	})
}

// CloseInvestigation dismisses the investigation results.
func (w *Workspace) CloseInvestigation() error {
	return w.do(w.editor.CloseInvestigation)
}

// Densify doubles the vertices of the polygon in edit mode.
func (w *Workspace) Densify(ctx context.Context) error {
	return w.do(func() error { return w.editor.Densify(ctx) })
}

// Decimate halves the vertices of the polygon in edit mode.
func (w *Workspace) Decimate(ctx context.Context) error {
	return w.do(func() error { return w.editor.Decimate(ctx) })
}

// ToggleInvert flips the inverted flag of a polygon.
func (w *Workspace) ToggleInvert(ctx context.Context, id string) error {
	return w.do(func() error { return w.editor.ToggleInvert(ctx, id) })
}

// Delete removes a polygon.
func (w *Workspace) Delete(ctx context.Context, id string) error {
	return w.do(func() error { return w.editor.Delete(ctx, id) })
}

// ViewportChanged reports a pan or zoom step of the base map.
func (w *Workspace) ViewportChanged(center domain.GeoPoint, zoom float64) error {
	return w.do(func() error { return w.camera.ViewportChanged(center, zoom) })
}

// Resize changes the viewport size.
func (w *Workspace) Resize(width, height float64) error {
	return w.do(func() error { return w.camera.Resize(width, height) })
}

// NavigateTo moves the camera.
func (w *Workspace) NavigateTo(lat, lng float64, zoom *float64) error {
	return w.do(func() error { return w.camera.NavigateTo(lat, lng, zoom) })
}

// Settle ends a camera animation.
func (w *Workspace) Settle() {
	_ = w.do(func() error {
		w.camera.Settle()
		return nil
	})
}

// Locate moves the camera to the center of a polygon.
func (w *Workspace) Locate(id string) error {
	p, err := w.store.Get(id)
	if err != nil {
		return err
	}
	var box domain.BBox
	for i, part := range p.Coordinates {
		b := part.BBox()
		if i == 0 {
			box = b
			continue
		}
		box.North = max(box.North, b.North)
		box.South = min(box.South, b.South)
		box.East = max(box.East, b.East)
		box.West = min(box.West, b.West)
	}
	c := box.Center()
	if err := w.NavigateTo(c.Lat, c.Lng, nil); err != nil {
		return fmt.Errorf("locate %s: %w", id, err)
	}
	return nil
}

// Scene paints the current state.
func (w *Workspace) Scene() render.Scene {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.scene()
}

// View returns the editor state.
func (w *Workspace) View() editor.View {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.editor.Snapshot()
}

// Viewport returns the live viewport.
func (w *Workspace) Viewport() domain.Viewport {
	return w.camera.Viewport()
}

// Tiles returns the density tiles for the selected species.
func (w *Workspace) Tiles() []mapview.Tile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.camera.OverlayTiles(mapview.DensityTiles{
		BaseURL:  w.cfg.TileBaseURL,
		Style:    w.cfg.TileStyle,
		TaxonKey: w.store.SpeciesKey(),
	})
}

// scene must be called with w.mu held.
func (w *Workspace) scene() render.Scene {
	var rules []domain.AnnotationRule
	if w.rules != nil {
		rules = w.rules.RulesFor(w.store.SpeciesKey())
	}
	return render.Build(w.camera.Projector(), w.store.List(), rules, w.editor.Snapshot())
}

func (w *Workspace) do(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn()
}
