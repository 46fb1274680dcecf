// Package editor implements the interactive polygon editing state machine.
// It turns pointer events and commands into mutation proposals; the shell
// owns the polygon collection and commits them.
package editor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/geometry"
	"github.com/jobrunner/limes/internal/mercator"
)

// Shell is the owner of the authoritative polygon collection.
type Shell interface {
	// Lookup returns the current version of a committed polygon.
	Lookup(id string) (domain.AnnotatedPolygon, bool)
	// PolygonChanged reports the in-progress polygon; nil clears it.
	PolygonChanged(p domain.Polygon)
	AutoSave(ctx context.Context, p domain.Polygon) (domain.AnnotatedPolygon, error)
	UpdatePolygon(ctx context.Context, id string, coords domain.MultiPolygon) error
	ToggleInvert(ctx context.Context, id string) error
	DeletePolygon(ctx context.Context, id string) error
}

// Investigator runs area searches.
type Investigator interface {
	Investigate(ctx context.Context, point domain.GeoPoint) (*domain.Investigation, error)
	Close(inv *domain.Investigation)
}

// ViewSource supplies the viewport snapshot used to interpret one event.
type ViewSource interface {
	Projector() mercator.Projector
}

// Config holds the interaction thresholds.
type Config struct {
	ClickMaxMovePx   float64       // pointer travel below which a press is a click
	ClickMaxDuration time.Duration // press duration below which a press is a click
	RectMinDragPx    float64       // minimum drag for a rectangle gesture
	DensifyOnEdit    bool          // densify sparse polygons when entering edit mode
	RadiusKm         float64       // investigation radius
}

// DefaultConfig returns the default thresholds.
func DefaultConfig() Config {
	return Config{
		ClickMaxMovePx:   10,
		ClickMaxDuration: 200 * time.Millisecond,
		RectMinDragPx:    5,
		DensifyOnEdit:    true,
		RadiusKm:         10,
	}
}

// Editor is the interaction state machine. It is not safe for concurrent
// use; callers serialise events.
type Editor struct {
	cfg          Config
	shell        Shell
	view         ViewSource
	investigator Investigator
	logger       *slog.Logger

	state           State
	editingID       string
	moveTool        bool
	investigateMode bool

	press   *press
	cursor  *domain.GeoPoint
	preview domain.MultiPolygon
	rubber  domain.Polygon
}

// New creates an idle editor.
func New(cfg Config, shell Shell, view ViewSource, investigator Investigator, logger *slog.Logger) *Editor {
	return &Editor{
		cfg:          cfg,
		shell:        shell,
		view:         view,
		investigator: investigator,
		logger:       logger,
		state:        Idle{},
	}
}

// State returns the active interaction.
func (e *Editor) State() State {
	return e.state
}

// EditingID returns the id of the polygon in edit mode, or "".
func (e *Editor) EditingID() string {
	return e.editingID
}

// StartDrawing begins a new shape. A latitude band is created immediately
// with the default bounds and stays editable until finished or cancelled.
func (e *Editor) StartDrawing(ctx context.Context, mode Mode) error {
	if err := e.ensureFree(ctx); err != nil {
		return err
	}
	e.exitEditMode()

	switch mode {
	case ModePolygon, ModeRectangle:
		e.state = Drawing{Mode: mode}
	case ModeLatBand:
		band, err := geometry.LatBand(geometry.LatBandDefaultUpper, geometry.LatBandDefaultLower)
		if err != nil {
			return err
		}
		e.state = Drawing{Mode: mode, Points: band, Upper: geometry.LatBandDefaultUpper, Lower: geometry.LatBandDefaultLower}
		e.shell.PolygonChanged(band.Clone())
	default:
		_, err := ParseMode(string(mode))
		return err
	}

	e.logger.Debug("drawing started", "mode", mode)
	return nil
}

// SetLatBand regenerates the latitude band being drawn.
func (e *Editor) SetLatBand(upper, lower float64) error {
	d, ok := e.state.(Drawing)
	if !ok || d.Mode != ModeLatBand {
		return domain.ErrNotDrawing
	}
	band, err := geometry.LatBand(upper, lower)
	if err != nil {
		return err
	}
	d.Points, d.Upper, d.Lower = band, upper, lower
	e.state = d
	e.shell.PolygonChanged(band.Clone())
	return nil
}

// Finish completes the shape being drawn and hands it to the shell. With
// fewer than 3 points the request is rejected and drawing continues.
func (e *Editor) Finish(ctx context.Context) (domain.AnnotatedPolygon, error) {
	d, ok := e.state.(Drawing)
	if !ok {
		return domain.AnnotatedPolygon{}, domain.ErrNotDrawing
	}
	if err := d.Points.Validate(); err != nil {
		return domain.AnnotatedPolygon{}, err
	}
	return e.complete(ctx, d.Mode, d.Points)
}

// Cancel aborts the active interaction. Drag previews are discarded and a
// published in-progress shape is cleared.
func (e *Editor) Cancel(ctx context.Context) error {
	switch s := e.state.(type) {
	case Drawing:
		if len(s.Points) > 0 || s.Mode == ModeLatBand {
			e.shell.PolygonChanged(nil)
		}
	case DraggingVertex, DraggingPolygon:
		e.preview = nil
	case Investigating:
		e.closeInvestigation(s)
	}
	e.toIdle()
	e.logger.Debug("interaction cancelled")
	return nil
}

// EnterEditMode selects a committed polygon for editing.
func (e *Editor) EnterEditMode(ctx context.Context, id string) error {
	if err := e.ensureFree(ctx); err != nil {
		return err
	}
	ap, ok := e.shell.Lookup(id)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrPolygonNotFound, id)
	}

	e.editingID = id
	e.moveTool = false

	if e.cfg.DensifyOnEdit {
		if dense, changed := geometry.AutoDensifyShape(ap.Coordinates); changed {
			if err := e.shell.UpdatePolygon(ctx, id, dense); err != nil {
				e.logger.Warn("auto densify failed", "id", id, "error", err)
			}
		}
	}
	return nil
}

// ExitEditMode leaves edit mode. It is rejected during a drag.
func (e *Editor) ExitEditMode() error {
	if e.dragging() {
		return domain.ErrBusy
	}
	e.exitEditMode()
	return nil
}

// SetMoveTool enables or disables whole-polygon dragging.
func (e *Editor) SetMoveTool(on bool) error {
	if e.editingID == "" {
		return domain.ErrNotEditing
	}
	if e.dragging() {
		return domain.ErrBusy
	}
	e.moveTool = on
	return nil
}

// SetInvestigateMode enables or disables area search on click.
func (e *Editor) SetInvestigateMode(on bool) {
	e.investigateMode = on
	if s, ok := e.state.(Investigating); ok && !on {
		e.closeInvestigation(s)
		e.toIdle()
	}
}

// CloseInvestigation dismisses the results surface.
func (e *Editor) CloseInvestigation() error {
	s, ok := e.state.(Investigating)
	if !ok {
		return nil
	}
	e.closeInvestigation(s)
	e.toIdle()
	return nil
}

// Densify doubles the vertex count of the polygon in edit mode.
func (e *Editor) Densify(ctx context.Context) error {
	ap, err := e.editable()
	if err != nil {
		return err
	}
	return e.shell.UpdatePolygon(ctx, ap.ID, geometry.DensifyShape(ap.Coordinates))
}

// Decimate halves the vertex count of the polygon in edit mode.
func (e *Editor) Decimate(ctx context.Context) error {
	ap, err := e.editable()
	if err != nil {
		return err
	}
	coords, err := geometry.DecimateShape(ap.Coordinates)
	if err != nil {
		return err
	}
	return e.shell.UpdatePolygon(ctx, ap.ID, coords)
}

// ToggleInvert proposes flipping the inverted flag of a polygon.
func (e *Editor) ToggleInvert(ctx context.Context, id string) error {
	if e.draggingTarget(id) {
		return domain.ErrBusy
	}
	return e.shell.ToggleInvert(ctx, id)
}

// Delete proposes deleting a polygon. Deleting the polygon in edit mode
// leaves edit mode first.
func (e *Editor) Delete(ctx context.Context, id string) error {
	if e.draggingTarget(id) {
		return domain.ErrBusy
	}
	if err := e.shell.DeletePolygon(ctx, id); err != nil {
		return err
	}
	if e.editingID == id {
		e.exitEditMode()
	}
	return nil
}

// complete saves a finished shape and returns to idle.
func (e *Editor) complete(ctx context.Context, mode Mode, p domain.Polygon) (domain.AnnotatedPolygon, error) {
	saved, err := e.shell.AutoSave(ctx, p.Clone())
	if err != nil {
		return domain.AnnotatedPolygon{}, err
	}
	e.shell.PolygonChanged(nil)
	e.toIdle()
	e.logger.Info("shape completed", "mode", mode, "id", saved.ID, "vertices", len(p))
	return saved, nil
}

// ensureFree rejects a new interaction while a drawing or drag is active. An
// open investigation is closed instead.
func (e *Editor) ensureFree(_ context.Context) error {
	switch s := e.state.(type) {
	case Idle:
		return nil
	case Investigating:
		e.closeInvestigation(s)
		e.toIdle()
		return nil
	}
	return domain.ErrBusy
}

func (e *Editor) editable() (domain.AnnotatedPolygon, error) {
	if e.editingID == "" {
		return domain.AnnotatedPolygon{}, domain.ErrNotEditing
	}
	if e.dragging() {
		return domain.AnnotatedPolygon{}, domain.ErrBusy
	}
	ap, ok := e.shell.Lookup(e.editingID)
	if !ok {
		e.exitEditMode()
		return domain.AnnotatedPolygon{}, fmt.Errorf("%w: %s", domain.ErrPolygonNotFound, e.editingID)
	}
	return ap, nil
}

func (e *Editor) dragging() bool {
	switch e.state.(type) {
	case DraggingVertex, DraggingPolygon:
		return true
	}
	return false
}

func (e *Editor) draggingTarget(id string) bool {
	switch s := e.state.(type) {
	case DraggingVertex:
		return s.TargetID == id
	case DraggingPolygon:
		return s.TargetID == id
	}
	return false
}

func (e *Editor) exitEditMode() {
	e.editingID = ""
	e.moveTool = false
}

func (e *Editor) closeInvestigation(s Investigating) {
	if e.investigator != nil && s.Investigation != nil {
		e.investigator.Close(s.Investigation)
	}
}

func (e *Editor) toIdle() {
	e.state = Idle{}
	e.press = nil
	e.preview = nil
	e.rubber = nil
	e.cursor = nil
}
