package watcher

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestFsnotifyOpToOperation(t *testing.T) {
	tests := []struct {
		name     string
		op       fsnotify.Op
		expected Operation
	}{
		{
			name:     "Remove returns OpDelete",
			op:       fsnotify.Remove,
			expected: OpDelete,
		},
		{
			name:     "Rename returns OpDelete",
			op:       fsnotify.Rename,
			expected: OpDelete,
		},
		{
			name:     "Create returns OpCreate",
			op:       fsnotify.Create,
			expected: OpCreate,
		},
		{
			name:     "Write returns OpModify",
			op:       fsnotify.Write,
			expected: OpModify,
		},
		{
			name:     "Chmod returns OpModify",
			op:       fsnotify.Chmod,
			expected: OpModify,
		},
		{
			name:     "Remove takes precedence over Write",
			op:       fsnotify.Remove | fsnotify.Write,
			expected: OpDelete,
		},
		{
			name:     "Create takes precedence over Write",
			op:       fsnotify.Create | fsnotify.Write,
			expected: OpCreate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fsnotifyOpToOperation(tt.op); got != tt.expected {
				t.Errorf("fsnotifyOpToOperation(%v) = %v, want %v", tt.op, got, tt.expected)
			}
		})
	}
}

func TestOperationString(t *testing.T) {
	tests := []struct {
		op       Operation
		expected string
	}{
		{OpCreate, "create"},
		{OpModify, "modify"},
		{OpDelete, "delete"},
		{Operation(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if got := tt.op.String(); got != tt.expected {
				t.Errorf("Operation.String() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestIsRuleFile(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{"europe.geojson", true},
		{"EUROPE.GEOJSON", true},
		{"/path/to/rules.json", true},
		{"/path/to/.limes-123456", false},
		{"/path/to/.hidden.geojson", false},
		{"test.shp", false},
		{"rules.geojson.bak", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := isRuleFile(tt.path); got != tt.expected {
				t.Errorf("isRuleFile(%q) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}
}

func TestMergeOperations(t *testing.T) {
	tests := []struct {
		name          string
		pending, next Operation
		want          Operation
	}{
		{"delete wins over modify", OpModify, OpDelete, OpDelete},
		{"recreate after delete", OpDelete, OpCreate, OpCreate},
		{"write after delete", OpDelete, OpModify, OpCreate},
		{"modify keeps create", OpCreate, OpModify, OpCreate},
		{"modify after modify", OpModify, OpModify, OpModify},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mergeOperations(tt.pending, tt.next); got != tt.want {
				t.Errorf("mergeOperations(%v, %v) = %v, want %v", tt.pending, tt.next, got, tt.want)
			}
		})
	}
}

func TestSettledDebounces(t *testing.T) {
	w := &Watcher{debounce: time.Second, pending: make(map[string]*pendingEvent)}
	start := time.Unix(1000, 0)

	w.record("/rules/b.geojson", OpCreate, start)
	w.record("/rules/a.geojson", OpModify, start)
	w.record("/rules/notes.txt", OpModify, start)
	w.record("/rules/b.geojson", OpModify, start.Add(500*time.Millisecond))

	if got := w.settled(start.Add(900 * time.Millisecond)); len(got) != 0 {
		t.Fatalf("settled too early: %+v", got)
	}

	got := w.settled(start.Add(1200 * time.Millisecond))
	if len(got) != 1 || got[0].Path != "/rules/a.geojson" {
		t.Fatalf("settled = %+v, want only a.geojson", got)
	}

	got = w.settled(start.Add(2 * time.Second))
	if len(got) != 1 || got[0].Path != "/rules/b.geojson" || got[0].Operation != OpCreate {
		t.Fatalf("settled = %+v, want b.geojson create", got)
	}
}

func TestWatcherDeliversChanges(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	var (
		mu     sync.Mutex
		events []Event
	)
	w, err := New(Config{Paths: []string{dir}, Debounce: 50 * time.Millisecond}, func(_ context.Context, e Event) error {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
		return nil
	}, logger)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer func() { _ = w.Stop() }()

	if err := os.WriteFile(filepath.Join(dir, "alps.geojson"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := len(events)
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(events) == 0 {
		t.Fatal("no event delivered")
	}
	if filepath.Base(events[0].Path) != "alps.geojson" {
		t.Errorf("event path = %q", events[0].Path)
	}
}
