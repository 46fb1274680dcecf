package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/ports/output"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// mockPolygonRepo implements output.PolygonRepository in memory.
type mockPolygonRepo struct {
	mu       sync.Mutex
	rows     map[string]domain.AnnotatedPolygon
	order    []string
	saveErr  error
	listErr  error
	saves    int
	deletes  int
	closeErr error
}

func newMockPolygonRepo() *mockPolygonRepo {
	return &mockPolygonRepo{rows: make(map[string]domain.AnnotatedPolygon)}
}

func (m *mockPolygonRepo) List(_ context.Context) ([]domain.AnnotatedPolygon, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]domain.AnnotatedPolygon, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.rows[id].Clone())
	}
	return out, nil
}

func (m *mockPolygonRepo) Save(_ context.Context, p domain.AnnotatedPolygon) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if _, ok := m.rows[p.ID]; !ok {
		m.order = append(m.order, p.ID)
	}
	m.rows[p.ID] = p.Clone()
	m.saves++
	return nil
}

func (m *mockPolygonRepo) Delete(_ context.Context, id string) error {
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
	m.deletes++
	return nil
}

func (m *mockPolygonRepo) Close() error {
	return m.closeErr
}

// mockStorage implements output.ObjectStorage with in-memory file contents.
type mockStorage struct {
	files       map[string]string
	downloadErr error
	listErr     error
}

func (m *mockStorage) List(_ context.Context) ([]output.StorageObject, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	objects := make([]output.StorageObject, 0, len(m.files))
	for key, content := range m.files {
		objects = append(objects, output.StorageObject{Key: key, Size: int64(len(content))})
	}
	sort.Slice(objects, func(i, j int) bool { return objects[i].Key < objects[j].Key })
	return objects, nil
}

func (m *mockStorage) Download(_ context.Context, key, dest string) error {
	if m.downloadErr != nil {
		return m.downloadErr
	}
	content, ok := m.files[key]
	if !ok {
		return domain.ErrNotFound
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dest, []byte(content), 0o644)
}

func (m *mockStorage) GetReader(_ context.Context, key string) (io.ReadCloser, error) {
	content, ok := m.files[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(content)), nil
}

func (m *mockStorage) Exists(_ context.Context, key string) (bool, error) {
	_, ok := m.files[key]
	return ok, nil
}

// mockSearcher implements output.OccurrenceSearcher. When release is set,
// searches block until it is closed.
type mockSearcher struct {
	mu          sync.Mutex
	occurrences []domain.Occurrence
	datasets    map[string]domain.Dataset
	searchErr   error
	release     chan struct{}
	searches    int
	lookups     int
	lastBBox    domain.BBox
	lastSpecies int
}

func (m *mockSearcher) SearchOccurrences(ctx context.Context, speciesKey int, bbox domain.BBox, limit int) ([]domain.Occurrence, error) {
	m.mu.Lock()
	m.searches++
	m.lastBBox = bbox
	m.lastSpecies = speciesKey
	release := m.release
	m.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if len(m.occurrences) > limit {
		return m.occurrences[:limit], nil
	}
	return m.occurrences, nil
}

func (m *mockSearcher) GetDataset(_ context.Context, key string) (domain.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	ds, ok := m.datasets[key]
	if !ok {
		return domain.Dataset{}, errors.New("dataset service unreachable")
	}
	return ds, nil
}

// mockCache implements output.DatasetCache.
type mockCache struct {
	mu      sync.Mutex
	entries map[string]domain.Dataset
}

func (m *mockCache) Get(_ context.Context, key string) (domain.Dataset, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.entries[key]
	return ds, ok, nil
}

func (m *mockCache) Set(_ context.Context, ds domain.Dataset, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]domain.Dataset)
	}
	m.entries[ds.Key] = ds
	return nil
}

const ruleFile = `{
  "type": "FeatureCollection",
  "features": [
    {
      "type": "Feature",
      "id": "alps",
      "properties": {"annotation": "NATIVE", "name": "Alps", "speciesKey": 42},
      "geometry": {"type": "Polygon", "coordinates": [[[5,44],[16,44],[16,48],[5,48],[5,44]]]}
    },
    {
      "type": "Feature",
      "id": "ring",
      "properties": {"annotation": "SUSPICIOUS"},
      "geometry": {"type": "Polygon", "coordinates": [
        [[0,0],[10,0],[10,10],[0,10],[0,0]],
        [[4,4],[6,4],[6,6],[4,6],[4,4]]
      ]}
    }
  ]
}`
