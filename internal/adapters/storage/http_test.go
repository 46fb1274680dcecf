package storage

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jobrunner/limes/internal/domain"
)

func newRuleServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/rules/index.txt", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, ok := r.BasicAuth(); !ok || user != "curator" || pass != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("# rule files\n\neurope.geojson 17\nasia.json\nreadme.md\n"))
	})
	mux.HandleFunc("/rules/europe.geojson", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"features":[]}`))
	})
	return httptest.NewServer(mux)
}

func TestHTTPStorageList(t *testing.T) {
	srv := newRuleServer(t)
	defer srv.Close()

	storage := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL + "/rules/", Username: "curator", Password: "secret"})
	objects, err := storage.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(objects) != 2 {
		t.Fatalf("List() = %+v, want 2 objects", objects)
	}
	if objects[0].Key != "europe.geojson" || objects[0].Size != 17 {
		t.Errorf("objects[0] = %+v", objects[0])
	}
	if objects[1].Key != "asia.json" || objects[1].Size != 0 {
		t.Errorf("objects[1] = %+v", objects[1])
	}
}

func TestHTTPStorageListUnauthorized(t *testing.T) {
	srv := newRuleServer(t)
	defer srv.Close()

	storage := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL + "/rules"})
	if _, err := storage.List(context.Background()); err == nil {
		t.Error("List() without credentials should fail")
	}
}

func TestHTTPStorageDownload(t *testing.T) {
	srv := newRuleServer(t)
	defer srv.Close()

	storage := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL + "/rules"})
	dest := filepath.Join(t.TempDir(), "europe.geojson")

	if err := storage.Download(context.Background(), "europe.geojson", dest); err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, _ := os.ReadFile(dest)
	if string(data) != `{"features":[]}` {
		t.Errorf("content = %q", data)
	}

	err := storage.Download(context.Background(), "missing.geojson", filepath.Join(t.TempDir(), "x.geojson"))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Download(missing) error = %v, want not found", err)
	}
}

func TestHTTPStorageExists(t *testing.T) {
	srv := newRuleServer(t)
	defer srv.Close()

	storage := NewHTTPStorage(HTTPConfig{BaseURL: srv.URL + "/rules"})
	ok, err := storage.Exists(context.Background(), "europe.geojson")
	if err != nil || !ok {
		t.Errorf("Exists(europe) = %v, %v", ok, err)
	}
	ok, err = storage.Exists(context.Background(), "missing.geojson")
	if err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
}

func TestParseIndexInvalidSize(t *testing.T) {
	if _, err := parseIndex(strings.NewReader("a.geojson big\n")); err == nil {
		t.Error("expected error for a non-numeric size")
	}
}
