package geometry

import (
	"fmt"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/jobrunner/limes/internal/domain"
)

// Feature converts an annotated polygon to a GeoJSON feature.
func Feature(ap domain.AnnotatedPolygon) *geojson.Feature {
	f := geojson.NewFeature(ToOrbGeometry(ap.Coordinates, ap.IsMultiPolygon))
	f.ID = ap.ID
	f.Properties["annotation"] = string(ap.Annotation)
	f.Properties["inverted"] = ap.Inverted
	if !ap.Timestamp.IsZero() {
		f.Properties["timestamp"] = ap.Timestamp.UTC().Format(time.RFC3339)
	}
	if ap.Species != nil {
		f.Properties["speciesKey"] = ap.Species.Key
		if ap.Species.ScientificName != "" {
			f.Properties["scientificName"] = ap.Species.ScientificName
		}
	}
	return f
}

// FeatureCollection exports annotated polygons as GeoJSON.
func FeatureCollection(polygons []domain.AnnotatedPolygon) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, ap := range polygons {
		fc.Append(Feature(ap))
	}
	return fc
}

// DecodeRules parses a GeoJSON FeatureCollection of annotation rules. Each
// feature needs a Polygon or MultiPolygon geometry and an "annotation"
// property; "name", "speciesKey" and "id" are optional.
func DecodeRules(data []byte) ([]domain.AnnotationRule, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("decoding rule collection: %w", err)
	}

	rules := make([]domain.AnnotationRule, 0, len(fc.Features))
	for i, f := range fc.Features {
		rule, err := decodeRule(i, f)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func decodeRule(i int, f *geojson.Feature) (domain.AnnotationRule, error) {
	annotation, err := domain.ParseAnnotation(f.Properties.MustString("annotation", ""))
	if err != nil {
		return domain.AnnotationRule{}, fmt.Errorf("rule %d: %w", i, err)
	}

	id := fmt.Sprintf("%d", i)
	switch v := f.ID.(type) {
	case string:
		if v != "" {
			id = v
		}
	case float64:
		id = fmt.Sprintf("%.0f", v)
	}

	rule := domain.AnnotationRule{
		ID:         id,
		Name:       f.Properties.MustString("name", id),
		Annotation: annotation,
		SpeciesKey: f.Properties.MustInt("speciesKey", 0),
	}

	switch g := f.Geometry.(type) {
	case orb.Polygon:
		rule.Polygons = []domain.RulePolygon{RuleFromOrb(g)}
	case orb.MultiPolygon:
		for _, poly := range g {
			rule.Polygons = append(rule.Polygons, RuleFromOrb(poly))
		}
	default:
		return domain.AnnotationRule{}, &domain.ValidationError{
			Field:      "geometry",
			Value:      fmt.Sprintf("%T", f.Geometry),
			Constraint: "Polygon or MultiPolygon",
			Message:    fmt.Sprintf("rule %s has no polygon geometry", id),
			Err:        domain.ErrInvalidGeometry,
		}
	}
	return rule, nil
}

// RuleContains reports whether any polygon of r contains g.
func RuleContains(r domain.AnnotationRule, g domain.GeoPoint) bool {
	for _, poly := range r.Polygons {
		if Contains(poly, g) {
			return true
		}
	}
	return false
}
