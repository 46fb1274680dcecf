package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Annotation is the categorical label attached to a polygon.
type Annotation string

// Annotation values.
const (
	AnnotationSuspicious Annotation = "SUSPICIOUS"
	AnnotationNative     Annotation = "NATIVE"
	AnnotationManaged    Annotation = "MANAGED"
	AnnotationFormer     Annotation = "FORMER"
	AnnotationVagrant    Annotation = "VAGRANT"
)

// Annotations lists all known annotation values in display order.
var Annotations = []Annotation{
	AnnotationSuspicious,
	AnnotationNative,
	AnnotationManaged,
	AnnotationFormer,
	AnnotationVagrant,
}

// ParseAnnotation parses an annotation case-insensitively.
func ParseAnnotation(s string) (Annotation, error) {
	a := Annotation(strings.ToUpper(strings.TrimSpace(s)))
	if a.IsValid() {
		return a, nil
	}
	return "", &ValidationError{
		Field:      "annotation",
		Value:      s,
		Constraint: "SUSPICIOUS|NATIVE|MANAGED|FORMER|VAGRANT",
		Message:    "unknown annotation",
		Err:        ErrInvalidAnnotation,
	}
}

// IsValid returns true for the five known annotation values.
func (a Annotation) IsValid() bool {
	for _, known := range Annotations {
		if a == known {
			return true
		}
	}
	return false
}

// SpeciesRef identifies a GBIF taxon.
type SpeciesRef struct {
	Key            int    `json:"key"`
	ScientificName string `json:"scientificName,omitempty"`
}

// AnnotatedPolygon is the persisted unit. Coordinates always holds at least
// one part; a simple polygon is stored as a single part with IsMultiPolygon
// false and serialized as number[][].
type AnnotatedPolygon struct {
	ID             string
	Coordinates    MultiPolygon
	IsMultiPolygon bool
	Species        *SpeciesRef
	Annotation     Annotation
	Inverted       bool
	Timestamp      time.Time
}

// NewAnnotatedPolygon creates a simple (single part) annotated polygon.
func NewAnnotatedPolygon(id string, p Polygon, annotation Annotation, species *SpeciesRef, now time.Time) AnnotatedPolygon {
	return AnnotatedPolygon{
		ID:          id,
		Coordinates: MultiPolygon{p.Clone()},
		Species:     species,
		Annotation:  annotation,
		Timestamp:   now,
	}
}

// Validate checks the coordinates and the annotation.
func (a *AnnotatedPolygon) Validate() error {
	if a.ID == "" {
		return &ValidationError{Field: "id", Value: a.ID, Constraint: "non-empty", Message: "polygon id is required"}
	}
	if !a.IsMultiPolygon && len(a.Coordinates) != 1 {
		return &ValidationError{
			Field:      "coordinates",
			Value:      len(a.Coordinates),
			Constraint: "1 part",
			Message:    "a simple polygon must have exactly one part",
			Err:        ErrInvalidGeometry,
		}
	}
	if err := a.Coordinates.Validate(); err != nil {
		return err
	}
	if !a.Annotation.IsValid() {
		_, err := ParseAnnotation(string(a.Annotation))
		return err
	}
	return nil
}

// Clone returns a deep copy.
func (a AnnotatedPolygon) Clone() AnnotatedPolygon {
	out := a
	out.Coordinates = a.Coordinates.Clone()
	if a.Species != nil {
		s := *a.Species
		out.Species = &s
	}
	return out
}

// Outer returns the first part, the polygon itself for simple polygons.
func (a AnnotatedPolygon) Outer() Polygon {
	if len(a.Coordinates) == 0 {
		return nil
	}
	return a.Coordinates[0]
}

type annotatedPolygonJSON struct {
	ID             string          `json:"id"`
	Coordinates    json.RawMessage `json:"coordinates"`
	IsMultiPolygon bool            `json:"isMultiPolygon"`
	Species        *SpeciesRef     `json:"species"`
	Annotation     Annotation      `json:"annotation"`
	Inverted       bool            `json:"inverted"`
	Timestamp      time.Time       `json:"timestamp"`
}

// MarshalJSON writes coordinates as number[][] for simple polygons and
// number[][][] for multipolygons, each pair being [lat, lng].
func (a AnnotatedPolygon) MarshalJSON() ([]byte, error) {
	var coords interface{} = a.Coordinates
	if !a.IsMultiPolygon {
		coords = a.Outer()
	}
	raw, err := json.Marshal(coords)
	if err != nil {
		return nil, err
	}
	return json.Marshal(annotatedPolygonJSON{
		ID:             a.ID,
		Coordinates:    raw,
		IsMultiPolygon: a.IsMultiPolygon,
		Species:        a.Species,
		Annotation:     a.Annotation,
		Inverted:       a.Inverted,
		Timestamp:      a.Timestamp,
	})
}

// UnmarshalJSON accepts both coordinate layouts regardless of the
// isMultiPolygon flag and derives the flag from the nesting depth.
func (a *AnnotatedPolygon) UnmarshalJSON(data []byte) error {
	var aux annotatedPolygonJSON
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	coords, multi, err := decodeCoordinates(aux.Coordinates)
	if err != nil {
		return err
	}

	*a = AnnotatedPolygon{
		ID:             aux.ID,
		Coordinates:    coords,
		IsMultiPolygon: multi,
		Species:        aux.Species,
		Annotation:     aux.Annotation,
		Inverted:       aux.Inverted,
		Timestamp:      aux.Timestamp,
	}
	return nil
}

// DecodeCoordinates parses number[][] or number[][][] into a MultiPolygon.
func DecodeCoordinates(raw []byte) (MultiPolygon, bool, error) {
	return decodeCoordinates(raw)
}

func decodeCoordinates(raw json.RawMessage) (MultiPolygon, bool, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false, nil
	}

	var multi MultiPolygon
	if err := json.Unmarshal(raw, &multi); err == nil {
		return multi, true, nil
	}

	var single Polygon
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, false, fmt.Errorf("decoding coordinates: %w", err)
	}
	return MultiPolygon{single}, false, nil
}
