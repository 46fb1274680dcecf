package geometry

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jobrunner/limes/internal/domain"
)

func TestParseWKT(t *testing.T) {
	tests := []struct {
		name      string
		wkt       string
		wantParts int
		wantMulti bool
		wantFirst domain.GeoPoint
		wantErr   error
	}{
		{
			name:      "polygon",
			wkt:       "POLYGON((10 0, 20 0, 15 10, 10 0))",
			wantParts: 1,
			wantFirst: pt(0, 10),
		},
		{
			name:      "multipolygon",
			wkt:       "MULTIPOLYGON(((0 0, 10 0, 5 5, 0 0)), ((20 20, 30 20, 25 25, 20 20)))",
			wantParts: 2,
			wantMulti: true,
			wantFirst: pt(0, 0),
		},
		{
			name:    "point",
			wkt:     "POINT(1 2)",
			wantErr: domain.ErrInvalidGeometry,
		},
		{
			name:    "garbage",
			wkt:     "not wkt",
			wantErr: domain.ErrInvalidGeometry,
		},
		{
			name:    "polygon with hole",
			wkt:     "POLYGON((0 0, 10 0, 10 10, 0 10, 0 0), (2 2, 4 2, 4 4, 2 2))",
			wantErr: domain.ErrInvalidGeometry,
		},
		{
			name:    "degenerate",
			wkt:     "POLYGON((0 0, 10 0, 0 0))",
			wantErr: domain.ErrTooFewPoints,
		},
		{
			name:    "beyond mercator limit",
			wkt:     "POLYGON((0 0, 10 0, 5 89, 0 0))",
			wantErr: domain.ErrOutOfBounds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, multi, err := ParseWKT(tt.wkt)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ParseWKT() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseWKT() error = %v", err)
			}
			if len(got) != tt.wantParts || multi != tt.wantMulti {
				t.Errorf("ParseWKT() = %d parts multi=%v", len(got), multi)
			}
			if len(got[0]) != 3 {
				t.Errorf("closing vertex should be dropped, got %v", got[0])
			}
			if !got[0][0].Equal(tt.wantFirst) {
				t.Errorf("first vertex = %v, want %v", got[0][0], tt.wantFirst)
			}
		})
	}
}

func TestFormatWKTRoundTrip(t *testing.T) {
	m := domain.MultiPolygon{square(), triangle()}

	s := FormatWKT(m, true)
	if !strings.HasPrefix(s, "MULTIPOLYGON") {
		t.Errorf("FormatWKT(multi) = %s", s)
	}
	back, multi, err := ParseWKT(s)
	if err != nil || !multi || len(back) != 2 || !equalPolygons(back[1], triangle()) {
		t.Errorf("ParseWKT(FormatWKT()) = %v, %v, %v", back, multi, err)
	}

	single := FormatWKT(domain.MultiPolygon{square()}, false)
	if !strings.HasPrefix(single, "POLYGON") {
		t.Errorf("FormatWKT(simple) = %s", single)
	}
}

func TestContainsWithHole(t *testing.T) {
	rp := domain.RulePolygon{
		domain.Ring(square()),
		domain.Ring{pt(4, 4), pt(4, 6), pt(6, 6), pt(6, 4)},
	}

	tests := []struct {
		name  string
		point domain.GeoPoint
		want  bool
	}{
		{"inside outer", pt(2, 2), true},
		{"inside hole", pt(5, 5), false},
		{"outside", pt(20, 20), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Contains(rp, tt.point); got != tt.want {
				t.Errorf("Contains(%v) = %v, want %v", tt.point, got, tt.want)
			}
		})
	}

	if !PolygonContains(triangle(), pt(3, 5)) {
		t.Error("PolygonContains() should contain interior point")
	}
	if a := Area(square()); a != 100 {
		t.Errorf("Area(square) = %v, want 100", a)
	}
}

func TestFeatureCollection(t *testing.T) {
	polys := []domain.AnnotatedPolygon{
		domain.NewAnnotatedPolygon("a", square(), domain.AnnotationNative,
			&domain.SpeciesRef{Key: 5219173, ScientificName: "Canis lupus"},
			time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)),
		{
			ID:             "b",
			Coordinates:    domain.MultiPolygon{square(), triangle()},
			IsMultiPolygon: true,
			Annotation:     domain.AnnotationVagrant,
			Inverted:       true,
		},
	}

	data, err := json.Marshal(FeatureCollection(polys))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	for _, want := range []string{`"Polygon"`, `"MultiPolygon"`, `"annotation":"NATIVE"`, `"speciesKey":5219173`, `"inverted":true`} {
		if !strings.Contains(s, want) {
			t.Errorf("FeatureCollection JSON missing %s: %s", want, s)
		}
	}
	// GeoJSON uses [lng, lat]; the square's second vertex is (lat 0, lng 10).
	if !strings.Contains(s, "[[[0,0],[10,0],[10,10],[0,10],[0,0]]]") {
		t.Errorf("unexpected ring order or closure: %s", s)
	}
}

func TestDecodeRules(t *testing.T) {
	data := []byte(`{
	  "type": "FeatureCollection",
	  "features": [
	    {
	      "type": "Feature",
	      "id": "alps",
	      "properties": {"name": "Alps", "annotation": "native", "speciesKey": 5219173},
	      "geometry": {"type": "Polygon", "coordinates": [
	        [[0,0],[10,0],[10,10],[0,10],[0,0]],
	        [[4,4],[6,4],[6,6],[4,6],[4,4]]
	      ]}
	    },
	    {
	      "type": "Feature",
	      "properties": {"annotation": "SUSPICIOUS"},
	      "geometry": {"type": "MultiPolygon", "coordinates": [
	        [[[20,20],[30,20],[25,25],[20,20]]],
	        [[[40,40],[50,40],[45,45],[40,40]]]
	      ]}
	    }
	  ]
	}`)

	rules, err := DecodeRules(data)
	if err != nil {
		t.Fatalf("DecodeRules() error = %v", err)
	}
	if len(rules) != 2 {
		t.Fatalf("DecodeRules() = %d rules, want 2", len(rules))
	}

	alps := rules[0]
	if alps.ID != "alps" || alps.Name != "Alps" || alps.Annotation != domain.AnnotationNative || alps.SpeciesKey != 5219173 {
		t.Errorf("rule 0 = %+v", alps)
	}
	if len(alps.Polygons) != 1 || len(alps.Polygons[0]) != 2 {
		t.Errorf("rule 0 should have one polygon with a hole, got %+v", alps.Polygons)
	}
	if !RuleContains(alps, pt(2, 2)) || RuleContains(alps, pt(5, 5)) {
		t.Error("rule 0 containment is wrong")
	}

	if rules[1].ID != "1" || len(rules[1].Polygons) != 2 {
		t.Errorf("rule 1 = %+v", rules[1])
	}
	if !RuleContains(rules[1], pt(42, 45)) {
		t.Error("rule 1 should contain a point in its second polygon")
	}
}

func TestDecodeRulesRejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"bad annotation", `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"annotation":"X"},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`},
		{"point geometry", `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"annotation":"NATIVE"},"geometry":{"type":"Point","coordinates":[0,0]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := DecodeRules([]byte(tt.data)); err == nil {
				t.Error("DecodeRules() should fail")
			}
		})
	}
}
