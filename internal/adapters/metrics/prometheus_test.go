package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jobrunner/limes/internal/ports/output"
)

var _ output.MetricsCollector = (*Collector)(nil)

func TestCollectorCounters(t *testing.T) {
	c := NewCollector("test")

	c.IncSearchCount(true)
	c.IncSearchCount(true)
	c.IncSearchCount(false)
	c.IncRuleMatches("alps", true)
	c.IncPolygonMutations("save", false)
	c.SetRuleSetsLoaded(3)
	c.SetPolygons(7)
	c.ObserveStorageDuration("sqlite_save", 5*time.Millisecond)

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"search success", testutil.ToFloat64(c.searchCounter.WithLabelValues("success")), 2},
		{"search error", testutil.ToFloat64(c.searchCounter.WithLabelValues("error")), 1},
		{"rule hit", testutil.ToFloat64(c.ruleMatches.WithLabelValues("alps", "hit")), 1},
		{"mutation error", testutil.ToFloat64(c.polygonMutations.WithLabelValues("save", "error")), 1},
		{"rule sets", testutil.ToFloat64(c.ruleSetsLoaded), 3},
		{"polygons", testutil.ToFloat64(c.polygons), 7},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollectorsAreIndependent(t *testing.T) {
	a := NewCollector("test")
	b := NewCollector("test")
	a.SetPolygons(1)
	if got := testutil.ToFloat64(b.polygons); got != 0 {
		t.Errorf("second collector sees %v polygons", got)
	}
}

func TestMiddlewareUsesRouteTemplate(t *testing.T) {
	c := NewCollector("test")

	r := mux.NewRouter()
	r.Use(c.Middleware)
	r.HandleFunc("/api/v1/polygons/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/polygons/"+id, nil))
	}

	got := testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/api/v1/polygons/{id}", "4xx"))
	if got != 3 {
		t.Errorf("requests for template = %v, want 3", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	c := NewCollector("test")
	c.SetPolygons(2)

	srv := httptest.NewServer(c.NewServer("", "/metrics").Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), "test_polygons 2") {
		t.Errorf("metrics output missing polygons gauge:\n%s", body)
	}
}

func TestStatusToString(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"}, {304, "3xx"}, {422, "4xx"}, {503, "5xx"}, {100, "unknown"},
	}
	for _, tt := range tests {
		if got := statusToString(tt.code); got != tt.want {
			t.Errorf("statusToString(%d) = %q, want %q", tt.code, got, tt.want)
		}
	}
}
