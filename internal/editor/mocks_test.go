package editor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/mercator"
)

// mockShell implements Shell with an in-memory collection.
type mockShell struct {
	polygons map[string]domain.AnnotatedPolygon
	changed  []domain.Polygon
	saved    []domain.Polygon
	updates  int
	saveErr  error
	nextID   int
}

func newMockShell() *mockShell {
	return &mockShell{polygons: make(map[string]domain.AnnotatedPolygon)}
}

func (m *mockShell) add(id string, p domain.Polygon) {
	m.polygons[id] = domain.NewAnnotatedPolygon(id, p, domain.AnnotationNative, nil, time.Unix(0, 0))
}

func (m *mockShell) Lookup(id string) (domain.AnnotatedPolygon, bool) {
	ap, ok := m.polygons[id]
	if !ok {
		return domain.AnnotatedPolygon{}, false
	}
	return ap.Clone(), true
}

func (m *mockShell) PolygonChanged(p domain.Polygon) {
	m.changed = append(m.changed, p)
}

func (m *mockShell) lastChanged() domain.Polygon {
	if len(m.changed) == 0 {
		return nil
	}
	return m.changed[len(m.changed)-1]
}

func (m *mockShell) AutoSave(_ context.Context, p domain.Polygon) (domain.AnnotatedPolygon, error) {
	if m.saveErr != nil {
		return domain.AnnotatedPolygon{}, m.saveErr
	}
	m.nextID++
	id := fmt.Sprintf("p%d", m.nextID)
	m.add(id, p)
	m.saved = append(m.saved, p)
	return m.polygons[id], nil
}

func (m *mockShell) UpdatePolygon(_ context.Context, id string, coords domain.MultiPolygon) error {
	ap, ok := m.polygons[id]
	if !ok {
		return domain.ErrPolygonNotFound
	}
	if err := coords.Validate(); err != nil {
		return err
	}
	ap.Coordinates = coords.Clone()
	m.polygons[id] = ap
	m.updates++
	return nil
}

func (m *mockShell) ToggleInvert(_ context.Context, id string) error {
	ap, ok := m.polygons[id]
	if !ok {
		return domain.ErrPolygonNotFound
	}
	ap.Inverted = !ap.Inverted
	m.polygons[id] = ap
	return nil
}

func (m *mockShell) DeletePolygon(_ context.Context, id string) error {
	if _, ok := m.polygons[id]; !ok {
		return domain.ErrPolygonNotFound
	}
	delete(m.polygons, id)
	return nil
}

// mockView returns a fixed projector.
type mockView struct {
	proj mercator.Projector
}

func (m *mockView) Projector() mercator.Projector {
	return m.proj
}

// mockInvestigator hands out investigations that stay in the searching
// state until the test finishes them.
type mockInvestigator struct {
	generation uint64
	started    []*domain.Investigation
	closed     int
	err        error
}

func (m *mockInvestigator) Investigate(_ context.Context, point domain.GeoPoint) (*domain.Investigation, error) {
	if m.err != nil {
		return nil, m.err
	}
	m.generation++
	inv := domain.NewInvestigation(m.generation, point, 10, 0, time.Unix(0, 0))
	m.started = append(m.started, inv)
	return inv, nil
}

func (m *mockInvestigator) Close(inv *domain.Investigation) {
	inv.Close()
	m.closed++
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
