// Package application contains the application services.
package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/geometry"
	"github.com/jobrunner/limes/internal/ports/output"
)

// PolygonStore is the single owner of the annotated polygon collection. It
// commits the mutations the editor proposes and writes them through to the
// repository; the in-memory collection only changes after a successful save.
type PolygonStore struct {
	mu       sync.RWMutex
	polygons []domain.AnnotatedPolygon
	draft    domain.Polygon

	annotation domain.Annotation
	species    *domain.SpeciesRef

	repo    output.PolygonRepository
	metrics output.MetricsCollector
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string
}

// NewPolygonStore creates an empty store. New polygons get annotation until
// the selection is changed.
func NewPolygonStore(
	repo output.PolygonRepository,
	metrics output.MetricsCollector,
	logger *slog.Logger,
	annotation domain.Annotation,
) *PolygonStore {
	if !annotation.IsValid() {
		annotation = domain.AnnotationSuspicious
	}
	return &PolygonStore{
		annotation: annotation,
		repo:       repo,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Load replaces the collection with the repository contents.
func (s *PolygonStore) Load(ctx context.Context) error {
	polygons, err := s.repo.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.polygons = polygons
	s.mu.Unlock()

	s.metrics.SetPolygons(len(polygons))
	s.logger.Info("polygons loaded", "count", len(polygons))
	return nil
}

// List returns a copy of the collection.
func (s *PolygonStore) List() []domain.AnnotatedPolygon {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AnnotatedPolygon, len(s.polygons))
	for i, p := range s.polygons {
		out[i] = p.Clone()
	}
	return out
}

// Count returns the number of polygons.
func (s *PolygonStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.polygons)
}

// Get returns one polygon.
func (s *PolygonStore) Get(id string) (domain.AnnotatedPolygon, error) {
	p, ok := s.Lookup(id)
	if !ok {
		return domain.AnnotatedPolygon{}, fmt.Errorf("%w: %s", domain.ErrPolygonNotFound, id)
	}
	return p, nil
}

// Lookup implements editor.Shell.
func (s *PolygonStore) Lookup(id string) (domain.AnnotatedPolygon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexOf(id); i >= 0 {
		return s.polygons[i].Clone(), true
	}
	return domain.AnnotatedPolygon{}, false
}

// PolygonChanged implements editor.Shell.
func (s *PolygonStore) PolygonChanged(p domain.Polygon) {
	s.mu.Lock()
	s.draft = p.Clone()
	s.mu.Unlock()
}

// Draft returns the in-progress polygon, nil when nothing is being drawn.
func (s *PolygonStore) Draft() domain.Polygon {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.draft.Clone()
}

// Selection returns the annotation and species given to new polygons.
func (s *PolygonStore) Selection() (domain.Annotation, *domain.SpeciesRef) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var species *domain.SpeciesRef
	if s.species != nil {
		sp := *s.species
		species = &sp
	}
	return s.annotation, species
}

// SpeciesKey returns the taxon key of the selected species, 0 if none.
func (s *PolygonStore) SpeciesKey() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.species == nil {
		return 0
	}
	return s.species.Key
}

// SetSelection changes the annotation and species given to new polygons. A
// nil species clears the selection.
func (s *PolygonStore) SetSelection(annotation domain.Annotation, species *domain.SpeciesRef) error {
	if !annotation.IsValid() {
		_, err := domain.ParseAnnotation(string(annotation))
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.annotation = annotation
	s.species = nil
	if species != nil {
		sp := *species
		s.species = &sp
	}
	return nil
}

// AutoSave implements editor.Shell. It stores a finished shape as a new
// simple polygon with the current selection.
func (s *PolygonStore) AutoSave(ctx context.Context, p domain.Polygon) (domain.AnnotatedPolygon, error) {
	annotation, species := s.Selection()
	ap := domain.NewAnnotatedPolygon(s.newID(), p, annotation, species, s.now().UTC())
	if err := s.insert(ctx, ap); err != nil {
		return domain.AnnotatedPolygon{}, err
	}
	s.logger.Info("polygon saved", "id", ap.ID, "annotation", ap.Annotation, "vertices", len(p))
	return ap.Clone(), nil
}

// Import stores a polygon or multipolygon given as WKT.
func (s *PolygonStore) Import(ctx context.Context, wkt string) (domain.AnnotatedPolygon, error) {
	coords, multi, err := geometry.ParseWKT(wkt)
	if err != nil {
		return domain.AnnotatedPolygon{}, err
	}
	annotation, species := s.Selection()
	ap := domain.AnnotatedPolygon{
		ID:             s.newID(),
		Coordinates:    coords,
		IsMultiPolygon: multi,
		Species:        species,
		Annotation:     annotation,
		Timestamp:      s.now().UTC(),
	}
	if err := s.insert(ctx, ap); err != nil {
		return domain.AnnotatedPolygon{}, err
	}
	s.logger.Info("polygon imported", "id", ap.ID, "multi", multi, "parts", len(coords))
	return ap.Clone(), nil
}

// UpdatePolygon implements editor.Shell.
func (s *PolygonStore) UpdatePolygon(ctx context.Context, id string, coords domain.MultiPolygon) error {
	return s.update(ctx, "update", id, func(p *domain.AnnotatedPolygon) error {
		if !p.IsMultiPolygon && len(coords) != 1 {
			return &domain.ValidationError{
				Field:      "coordinates",
				Value:      len(coords),
				Constraint: "1 part",
				Message:    "a simple polygon must have exactly one part",
				Err:        domain.ErrInvalidGeometry,
			}
		}
		p.Coordinates = coords.Clone()
		return nil
	})
}

// ToggleInvert implements editor.Shell.
func (s *PolygonStore) ToggleInvert(ctx context.Context, id string) error {
	return s.update(ctx, "invert", id, func(p *domain.AnnotatedPolygon) error {
		p.Inverted = !p.Inverted
		return nil
	})
}

// SetAnnotation changes the annotation of a stored polygon.
func (s *PolygonStore) SetAnnotation(ctx context.Context, id string, annotation domain.Annotation) error {
	return s.update(ctx, "annotate", id, func(p *domain.AnnotatedPolygon) error {
		p.Annotation = annotation
		return nil
	})
}

// SetSpecies changes the species of a stored polygon; nil clears it.
func (s *PolygonStore) SetSpecies(ctx context.Context, id string, species *domain.SpeciesRef) error {
	return s.update(ctx, "species", id, func(p *domain.AnnotatedPolygon) error {
		p.Species = nil
		if species != nil {
			sp := *species
			p.Species = &sp
		}
		return nil
	})
}

// DeletePolygon implements editor.Shell.
func (s *PolygonStore) DeletePolygon(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrPolygonNotFound, id)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		s.metrics.IncPolygonMutations("delete", false)
		return err
	}
	s.polygons = append(s.polygons[:i:i], s.polygons[i+1:]...)

	s.metrics.IncPolygonMutations("delete", true)
	s.metrics.SetPolygons(len(s.polygons))
	s.logger.Info("polygon deleted", "id", id)
	return nil
}

// ExportGeoJSON returns the collection as a GeoJSON FeatureCollection.
func (s *PolygonStore) ExportGeoJSON() ([]byte, error) {
	return json.Marshal(geometry.FeatureCollection(s.List()))
}

// ExportWKT returns one polygon as WKT.
func (s *PolygonStore) ExportWKT(id string) (string, error) {
	p, err := s.Get(id)
	if err != nil {
		return "", err
	}
	return geometry.FormatWKT(p.Coordinates, p.IsMultiPolygon), nil
}

func (s *PolygonStore) insert(ctx context.Context, ap domain.AnnotatedPolygon) error {
	if err := ap.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.Save(ctx, ap); err != nil {
		s.metrics.IncPolygonMutations("create", false)
		return err
	}
	s.polygons = append(s.polygons, ap.Clone())

	s.metrics.IncPolygonMutations("create", true)
	s.metrics.SetPolygons(len(s.polygons))
	return nil
}

// update applies fn to a copy of the polygon and commits it if it is still
// valid and the repository accepted it.
func (s *PolygonStore) update(ctx context.Context, op, id string, fn func(*domain.AnnotatedPolygon) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", domain.ErrPolygonNotFound, id)
	}

	next := s.polygons[i].Clone()
	if err := fn(&next); err != nil {
		return err
	}
	if err := next.Validate(); err != nil {
		return err
	}
	next.Timestamp = s.now().UTC()

	if err := s.repo.Save(ctx, next); err != nil {
		s.metrics.IncPolygonMutations(op, false)
		return err
	}
	s.polygons[i] = next

	s.metrics.IncPolygonMutations(op, true)
	s.logger.Debug("polygon updated", "id", id, "operation", op)
	return nil
}

func (s *PolygonStore) indexOf(id string) int {
	for i := range s.polygons {
		if s.polygons[i].ID == id {
			return i
		}
	}
	return -1
}
