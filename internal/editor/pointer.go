package editor

import (
	"context"
	"fmt"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/geometry"
)

// PointerDown starts tracking a press. On a vertex or (with the move tool)
// the body of the polygon in edit mode it starts a drag; on an edge
// midpoint it inserts a vertex right away.
func (e *Editor) PointerDown(ctx context.Context, ev PointerEvent) error {
	proj := e.view.Projector()
	e.press = &press{
		start:    ev.Pos,
		last:     ev.Pos,
		at:       ev.At,
		startGeo: proj.PixelToGeo(ev.Pos),
		target:   ev.Target,
		button:   ev.Button,
	}

	if ev.Button != ButtonPrimary {
		return nil
	}
	if _, idle := e.state.(Idle); !idle || e.editingID == "" || ev.Target.PolygonID != e.editingID {
		return nil
	}

	ap, ok := e.shell.Lookup(e.editingID)
	if !ok {
		e.exitEditMode()
		return fmt.Errorf("%w: %s", domain.ErrPolygonNotFound, ev.Target.PolygonID)
	}

	switch ev.Target.Kind {
	case TargetVertex:
		if _, ok := ap.Coordinates.Vertex(ev.Target.Ref); !ok {
			return domain.ErrVertexIndex
		}
		e.state = DraggingVertex{TargetID: ap.ID, Ref: ev.Target.Ref}
		e.preview = ap.Coordinates.Clone()
		e.logger.Debug("vertex drag started", "id", ap.ID, "vertex", ev.Target.Ref.String())

	case TargetMidpoint:
		e.press = nil
		coords, err := geometry.InsertShapeMidpoint(ap.Coordinates, ev.Target.Ref)
		if err != nil {
			return err
		}
		return e.shell.UpdatePolygon(ctx, ap.ID, coords)

	case TargetPolygon:
		if !e.moveTool {
			return nil
		}
		e.state = DraggingPolygon{TargetID: ap.ID, StartPos: ev.Pos, StartCoords: ap.Coordinates.Clone()}
		e.preview = ap.Coordinates.Clone()
		e.logger.Debug("polygon drag started", "id", ap.ID)
	}
	return nil
}

// PointerMove updates drag previews, the rectangle rubber band and the
// cursor used to draw the pending edge. A move that would take a vertex out
// of bounds leaves the previous preview in place.
func (e *Editor) PointerMove(_ context.Context, ev PointerEvent) error {
	proj := e.view.Projector()
	geo := proj.PixelToGeo(ev.Pos)

	if e.press != nil {
		e.press.moved += e.press.last.Dist(ev.Pos)
		e.press.last = ev.Pos
	}

	switch s := e.state.(type) {
	case DraggingVertex:
		moved, err := geometry.MoveShapeVertex(e.preview, s.Ref, geo)
		if err != nil {
			return err
		}
		e.preview = moved

	case DraggingPolygon:
		dLat, dLng := proj.GeoDelta(s.StartPos, ev.Pos)
		moved, err := geometry.TranslateShape(s.StartCoords, dLat, dLng)
		if err != nil {
			return err
		}
		e.preview = moved

	case Drawing:
		if geo.IsValid() {
			e.cursor = &geo
		} else {
			e.cursor = nil
		}
		if s.Mode == ModeRectangle {
			e.rubber = nil
			corner, ok := e.rectangleAnchor(s)
			if ok && geo.IsValid() {
				if r, err := geometry.Rectangle(corner, geo); err == nil {
					e.rubber = r
				}
			}
		}
	}
	return nil
}

// PointerUp ends a press. Drags are committed through the shell; a press
// that qualifies as a click adds a drawing point, places a rectangle corner
// or starts an investigation. Anything else was a map pan and has no effect.
func (e *Editor) PointerUp(ctx context.Context, ev PointerEvent) error {
	pr := e.press
	e.press = nil

	if e.dragging() {
		return e.commitDrag(ctx)
	}
	if pr == nil {
		return nil
	}
	pr.moved += pr.last.Dist(ev.Pos)

	proj := e.view.Projector()
	geo := proj.PixelToGeo(ev.Pos)
	click := pr.moved < e.cfg.ClickMaxMovePx && ev.At.Sub(pr.at) < e.cfg.ClickMaxDuration

	switch s := e.state.(type) {
	case Drawing:
		// Only the primary button places points; the secondary one opens
		// the context menu.
		if pr.button != ButtonPrimary {
			return nil
		}
		switch s.Mode {
		case ModePolygon:
			if !click {
				return nil
			}
			return e.appendPoint(s, geo)
		case ModeRectangle:
			if pr.start.Dist(ev.Pos) >= e.cfg.RectMinDragPx {
				_, err := e.completeRectangle(ctx, s, pr.startGeo, geo)
				return err
			}
			if !click {
				return nil
			}
			return e.placeCorner(ctx, s, geo)
		}

	case Idle, Investigating:
		if click && e.investigateMode && ev.Button == ButtonPrimary {
			return e.investigate(ctx, geo)
		}
	}
	return nil
}

// PointerLeave cleans up like PointerUp when the pointer leaves the
// viewport, so no drag can get stuck. A pending press is not a click.
func (e *Editor) PointerLeave(ctx context.Context) error {
	e.press = nil
	e.cursor = nil
	e.rubber = nil
	if e.dragging() {
		return e.commitDrag(ctx)
	}
	return nil
}

// DoubleClick finishes a polygon being drawn.
func (e *Editor) DoubleClick(ctx context.Context) error {
	d, ok := e.state.(Drawing)
	if !ok || d.Mode != ModePolygon {
		return nil
	}
	_, err := e.Finish(ctx)
	return err
}

// ContextMenu deletes a vertex of the polygon in edit mode unless that would
// leave its part with fewer than 3 vertices.
func (e *Editor) ContextMenu(ctx context.Context, target Target) error {
	if _, idle := e.state.(Idle); !idle {
		return nil
	}
	if target.Kind != TargetVertex || e.editingID == "" || target.PolygonID != e.editingID {
		return nil
	}
	ap, err := e.editable()
	if err != nil {
		return err
	}
	coords, err := geometry.DeleteShapeVertex(ap.Coordinates, target.Ref)
	if err != nil {
		return err
	}
	return e.shell.UpdatePolygon(ctx, ap.ID, coords)
}

func (e *Editor) appendPoint(d Drawing, geo domain.GeoPoint) error {
	points, err := geometry.AppendVertex(d.Points, geo)
	if err != nil {
		return err
	}
	d.Points = points
	e.state = d
	e.shell.PolygonChanged(points.Clone())
	return nil
}

func (e *Editor) placeCorner(ctx context.Context, d Drawing, geo domain.GeoPoint) error {
	if err := geo.Validate(); err != nil {
		return err
	}
	if len(d.Points) == 0 {
		d.Points = domain.Polygon{geo}
		e.state = d
		e.shell.PolygonChanged(d.Points.Clone())
		return nil
	}
	_, err := e.completeRectangle(ctx, d, d.Points[0], geo)
	return err
}

func (e *Editor) completeRectangle(ctx context.Context, d Drawing, a, b domain.GeoPoint) (domain.AnnotatedPolygon, error) {
	rect, err := geometry.Rectangle(a, b)
	if err != nil {
		return domain.AnnotatedPolygon{}, err
	}
	return e.complete(ctx, d.Mode, rect)
}

// rectangleAnchor returns the fixed corner of the rubber band: the first
// placed corner, or the start of the running press.
func (e *Editor) rectangleAnchor(d Drawing) (domain.GeoPoint, bool) {
	if len(d.Points) > 0 {
		return d.Points[0], true
	}
	if e.press != nil && e.press.button == ButtonPrimary && e.press.startGeo.IsValid() {
		return e.press.startGeo, true
	}
	return domain.GeoPoint{}, false
}

func (e *Editor) commitDrag(ctx context.Context) error {
	var id string
	switch s := e.state.(type) {
	case DraggingVertex:
		id = s.TargetID
	case DraggingPolygon:
		id = s.TargetID
	}
	preview := e.preview
	e.toIdle()

	if preview == nil {
		return nil
	}
	if ap, ok := e.shell.Lookup(id); ok && sameCoords(ap.Coordinates, preview) {
		return nil
	}
	e.logger.Debug("drag committed", "id", id)
	return e.shell.UpdatePolygon(ctx, id, preview)
}

func (e *Editor) investigate(ctx context.Context, geo domain.GeoPoint) error {
	if err := geo.Validate(); err != nil {
		return err
	}
	if e.investigator == nil {
		return domain.ErrUnsupported
	}
	prev, open := e.state.(Investigating)
	if open && prev.Investigation != nil && prev.Investigation.Status() == domain.InvestigationSearching {
		return domain.ErrSearchInFlight
	}

	inv, err := e.investigator.Investigate(ctx, geo)
	if err != nil {
		return err
	}
	if open {
		e.closeInvestigation(prev)
	}
	e.state = Investigating{Point: geo, RadiusKm: inv.RadiusKm, Investigation: inv}
	e.logger.Debug("investigation started", "lat", geo.Lat, "lng", geo.Lng, "generation", inv.Generation)
	return nil
}

func sameCoords(a, b domain.MultiPolygon) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i]) != len(b[i]) {
			return false
		}
		for j := range a[i] {
			if !a[i][j].Equal(b[i][j]) {
				return false
			}
		}
	}
	return true
}
