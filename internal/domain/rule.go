package domain

import "time"

// AnnotationRule is a reference annotation loaded from a rule file. Its
// polygons may carry holes and are displayed as overlays; a point inside
// any of them (and outside its holes) matches the rule.
type AnnotationRule struct {
	ID         string        // Unique within its rule set
	Name       string        // Display name
	Annotation Annotation    // Annotation the rule asserts
	SpeciesKey int           // GBIF taxon key, 0 matches every species
	Polygons   []RulePolygon // Outer ring followed by holes, per polygon
}

// AppliesTo reports whether the rule is relevant for speciesKey.
func (r *AnnotationRule) AppliesTo(speciesKey int) bool {
	return r.SpeciesKey == 0 || speciesKey == 0 || r.SpeciesKey == speciesKey
}

// BBox returns the bounding box of every outer ring of the rule.
func (r *AnnotationRule) BBox() BBox {
	var box BBox
	first := true
	for _, poly := range r.Polygons {
		if len(poly) == 0 {
			continue
		}
		b := Polygon(poly[0]).BBox()
		if first {
			box = b
			first = false
			continue
		}
		if b.North > box.North {
			box.North = b.North
		}
		if b.South < box.South {
			box.South = b.South
		}
		if b.East > box.East {
			box.East = b.East
		}
		if b.West < box.West {
			box.West = b.West
		}
	}
	return box
}

// RuleSet is one loaded rule file.
type RuleSet struct {
	ID          string           // Unique identifier (derived from filename)
	Name        string           // Display name
	Path        string           // Source path or object key
	Size        int64            // File size in bytes
	Rules       []AnnotationRule // Parsed rules
	Attribution string           // Optional attribution of the source
	LoadedAt    time.Time        // Load timestamp
	LastMatched time.Time        // Last match timestamp
}

// RuleCount returns the number of rules.
func (s *RuleSet) RuleCount() int {
	return len(s.Rules)
}

// ForSpecies returns the rules that apply to speciesKey.
func (s *RuleSet) ForSpecies(speciesKey int) []AnnotationRule {
	var out []AnnotationRule
	for _, r := range s.Rules {
		if r.AppliesTo(speciesKey) {
			out = append(out, r)
		}
	}
	return out
}

// RuleSetStatus represents the status of a rule set.
type RuleSetStatus string

const (
	RuleSetLoading   RuleSetStatus = "loading"
	RuleSetReady     RuleSetStatus = "ready"
	RuleSetError     RuleSetStatus = "error"
	RuleSetUnloading RuleSetStatus = "unloading"
)

// RuleMatch is a rule that contains a queried point.
type RuleMatch struct {
	RuleSetID  string     `json:"ruleSet"`
	RuleID     string     `json:"rule"`
	Name       string     `json:"name"`
	Annotation Annotation `json:"annotation"`
	SpeciesKey int        `json:"speciesKey,omitempty"`
}

// MatchResult is the answer to a rule match query.
type MatchResult struct {
	Point          GeoPoint      `json:"point"`
	SpeciesKey     int           `json:"speciesKey,omitempty"`
	Matches        []RuleMatch   `json:"matches"`
	RuleSetsTested int           `json:"ruleSetsTested"`
	ProcessingTime time.Duration `json:"processingTimeNs"`
}
