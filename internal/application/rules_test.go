package application

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/jobrunner/limes/internal/domain"
)

func writeRuleFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRuleRegistry_LoadRuleSet(t *testing.T) {
	registry := newTestRuleRegistry(t, &mockStorage{})
	ctx := context.Background()
	path := writeRuleFile(t, t.TempDir(), "europe.geojson", ruleFile)

	if err := registry.LoadRuleSet(ctx, path); err != nil {
		t.Fatalf("LoadRuleSet() error = %v", err)
	}

	set, err := registry.GetRuleSet(ctx, "europe")
	if err != nil {
		t.Fatalf("GetRuleSet() error = %v", err)
	}
	if set.RuleCount() != 2 {
		t.Errorf("RuleCount() = %d, want 2", set.RuleCount())
	}
	if set.Size != int64(len(ruleFile)) {
		t.Errorf("Size = %d, want %d", set.Size, len(ruleFile))
	}
	status, _ := registry.GetRuleSetStatus(ctx, "europe")
	if status != domain.RuleSetReady {
		t.Errorf("status = %s, want ready", status)
	}
}

func TestRuleRegistry_LoadRuleSetErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "POLYGON((0 0, 1 0, 1 1, 0 0))"},
		{name: "missing annotation", content: `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]}}]}`},
		{name: "point geometry", content: `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{"annotation":"NATIVE"},"geometry":{"type":"Point","coordinates":[0,0]}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := newTestRuleRegistry(t, &mockStorage{})
			ctx := context.Background()
			path := writeRuleFile(t, t.TempDir(), "bad.geojson", tt.content)

			if err := registry.LoadRuleSet(ctx, path); err == nil {
				t.Fatal("expected error")
			}
			status, err := registry.GetRuleSetStatus(ctx, "bad")
			if err != nil {
				t.Fatalf("GetRuleSetStatus() error = %v", err)
			}
			if status != domain.RuleSetError {
				t.Errorf("status = %s, want error", status)
			}
			if len(registry.ReadyRuleSets()) != 0 {
				t.Error("failed set must not be ready")
			}
		})
	}
}

func TestRuleRegistry_MissingFile(t *testing.T) {
	registry := newTestRuleRegistry(t, &mockStorage{})

	err := registry.LoadRuleSet(context.Background(), filepath.Join(t.TempDir(), "gone.geojson"))
	var serr *domain.StorageError
	if !errors.As(err, &serr) {
		t.Errorf("LoadRuleSet() error = %v, want StorageError", err)
	}
}

func TestRuleRegistry_UnloadRuleSet(t *testing.T) {
	registry := newTestRuleRegistry(t, &mockStorage{})
	ctx := context.Background()
	path := writeRuleFile(t, t.TempDir(), "europe.geojson", ruleFile)
	_ = registry.LoadRuleSet(ctx, path)

	if err := registry.UnloadRuleSet(ctx, "europe"); err != nil {
		t.Fatalf("UnloadRuleSet() error = %v", err)
	}
	if registry.IsLoaded("europe") {
		t.Error("europe still loaded")
	}
	if err := registry.UnloadRuleSet(ctx, "europe"); !errors.Is(err, domain.ErrRuleNotFound) {
		t.Errorf("second UnloadRuleSet() error = %v, want not found", err)
	}
	if _, err := registry.GetRuleSet(ctx, "europe"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("GetRuleSet() error = %v, want not found", err)
	}
}

func TestRuleRegistry_RulesFor(t *testing.T) {
	registry := newTestRuleRegistry(t, &mockStorage{})
	path := writeRuleFile(t, t.TempDir(), "europe.geojson", ruleFile)
	_ = registry.LoadRuleSet(context.Background(), path)

	tests := []struct {
		name       string
		speciesKey int
		want       int
	}{
		{name: "no species shows every rule", speciesKey: 0, want: 2},
		{name: "matching species", speciesKey: 42, want: 2},
		{name: "other species sees only generic rules", speciesKey: 7, want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := len(registry.RulesFor(tt.speciesKey)); got != tt.want {
				t.Errorf("RulesFor(%d) returned %d rules, want %d", tt.speciesKey, got, tt.want)
			}
		})
	}
}

func TestRuleRegistry_ListRuleSetsSorted(t *testing.T) {
	registry := newTestRuleRegistry(t, &mockStorage{})
	ctx := context.Background()
	dir := t.TempDir()
	for _, name := range []string{"zeta.geojson", "alpha.json", "mid.geojson"} {
		if err := registry.LoadRuleSet(ctx, writeRuleFile(t, dir, name, ruleFile)); err != nil {
			t.Fatal(err)
		}
	}

	sets, _ := registry.ListRuleSets(ctx)
	var ids []string
	for _, s := range sets {
		ids = append(ids, s.ID)
	}
	want := []string{"alpha", "mid", "zeta"}
	if len(ids) != len(want) {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids = %v, want %v", ids, want)
			break
		}
	}
}

func TestRuleSetID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"europe.geojson", "europe"},
		{"/data/rules/alps.json", "alps"},
		{"nested/dir/file.v2.geojson", "file.v2"},
		{"noext", "noext"},
	}
	for _, tt := range tests {
		if got := RuleSetID(tt.path); got != tt.want {
			t.Errorf("RuleSetID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
