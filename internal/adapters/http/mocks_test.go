package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/ports/output"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// memoryRepo implements output.PolygonRepository in memory.
type memoryRepo struct {
	mu    sync.Mutex
	rows  map[string]domain.AnnotatedPolygon
	order []string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[string]domain.AnnotatedPolygon)}
}

func (m *memoryRepo) List(_ context.Context) ([]domain.AnnotatedPolygon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.AnnotatedPolygon, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id].Clone())
	}
	return out, nil
}

func (m *memoryRepo) Save(_ context.Context, p domain.AnnotatedPolygon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.rows[p.ID] = p.Clone()
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return domain.ErrPolygonNotFound
	}
	delete(m.rows, id)
	for i, o := range m.order {
		if o == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

func (m *memoryRepo) Close() error { return nil }

// memoryStorage implements output.ObjectStorage over a map of file contents.
type memoryStorage struct {
	files map[string]string
}

func (m *memoryStorage) List(_ context.Context) ([]output.StorageObject, error) {
	objects := make([]output.StorageObject, 0, len(m.files))
	for key, content := range m.files {
		objects = append(objects, output.StorageObject{Key: key, Size: int64(len(content))})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *memoryStorage) Download(_ context.Context, key, dest string) error {
	content, ok := m.files[key]
	if !ok {
		return domain.ErrNotFound
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(content), 0o644)
}

func (m *memoryStorage) GetReader(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := m.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (m *memoryStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.files[key]
	return ok, nil
}

// mockSpecies implements output.SpeciesLookup.
type mockSpecies struct {
	species []domain.SpeciesRef
	err     error
}

func (m *mockSpecies) SuggestSpecies(_ context.Context, query string, limit int) ([]domain.SpeciesRef, error) {
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.SpeciesRef
	for _, sp := range m.species {
		if strings.HasPrefix(strings.ToLower(sp.ScientificName), strings.ToLower(query)) {
			out = append(out, sp)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockSpecies) GetSpecies(_ context.Context, key int) (domain.SpeciesRef, error) {
	if m.err != nil {
		return domain.SpeciesRef{}, m.err
	}
	for _, sp := range m.species {
		if sp.Key == key {
			return sp, nil
		}
	}
	return domain.SpeciesRef{}, domain.ErrNotFound
}

const alpsRules = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "alps",
      "properties": {"annotation": "NATIVE", "name": "Alps", "speciesKey": 42},
      "geometry": {"type": "Polygon", "coordinates": [[[5,44],[16,44],[16,48],[5,48],[5,44]]]}
    }
  ]
}`
