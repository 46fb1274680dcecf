package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jobrunner/limes/internal/config"
)

func TestMatchOrigin(t *testing.T) {
	tests := []struct {
		origin, pattern string
		want            bool
	}{
		{"https://limes.example.org", "https://limes.example.org", true},
		{"http://limes.example.org", "https://limes.example.org", false},
		{"https://limes.example.org:8443", "https://limes.example.org:9443", false},
		{"https://app.example.org", "*.example.org", true},
		{"https://deep.app.example.org:3000", "*.example.org", true},
		{"https://example.org", "*.example.org", false},
		{"https://notexample.org", "*.example.org", false},
		{"http://sub.localhost", "*.localhost", true},
		{"", "https://limes.example.org", false},
		{"https://limes.example.org", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin+"~"+tt.pattern, func(t *testing.T) {
			if got := matchOrigin(tt.origin, tt.pattern); got != tt.want {
				t.Errorf("matchOrigin(%q, %q) = %v, want %v", tt.origin, tt.pattern, got, tt.want)
			}
		})
	}
}

func TestExtractHost(t *testing.T) {
	tests := map[string]string{
		"https://example.org":           "example.org",
		"https://example.org:8080/path": "example.org",
		"http://192.168.1.1:8080":       "192.168.1.1",
		"example.org":                   "example.org",
	}
	for origin, want := range tests {
		if got := extractHost(origin); got != want {
			t.Errorf("extractHost(%q) = %q, want %q", origin, got, want)
		}
	}
}

func TestCORSMiddleware(t *testing.T) {
	tests := []struct {
		name        string
		allowed     []string
		origin      string
		method      string
		wantStatus  int
		wantHeaders bool
		wantNext    bool
	}{
		{"allowed GET", []string{"https://limes.example.org"}, "https://limes.example.org", http.MethodGet, http.StatusOK, true, true},
		{"allowed wildcard PUT", []string{"*.example.org"}, "https://app.example.org", http.MethodPut, http.StatusOK, true, true},
		{"preflight", []string{"https://limes.example.org"}, "https://limes.example.org", http.MethodOptions, http.StatusNoContent, true, false},
		{"foreign origin", []string{"https://limes.example.org"}, "https://evil.example.com", http.MethodGet, http.StatusOK, false, true},
		{"no origin", []string{"https://limes.example.org"}, "", http.MethodGet, http.StatusOK, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})
			s := &Server{config: config.ServerConfig{CORS: config.CORSConfig{AllowedOrigins: tt.allowed}}}

			req := httptest.NewRequest(tt.method, "/api/v1/polygons", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			rr := httptest.NewRecorder()
			s.corsMiddleware(next).ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if nextCalled != tt.wantNext {
				t.Errorf("next called = %v, want %v", nextCalled, tt.wantNext)
			}

			got := rr.Header().Get("Access-Control-Allow-Origin")
			if !tt.wantHeaders {
				if got != "" {
					t.Errorf("unexpected Access-Control-Allow-Origin %q", got)
				}
				return
			}
			if got != tt.origin {
				t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, tt.origin)
			}
			if m := rr.Header().Get("Access-Control-Allow-Methods"); m != "GET, POST, PUT, PATCH, DELETE, OPTIONS" {
				t.Errorf("Access-Control-Allow-Methods = %q", m)
			}
			if v := rr.Header().Get("Vary"); v != "Origin" {
				t.Errorf("Vary = %q", v)
			}
		})
	}
}

func TestCORSConfigEnabled(t *testing.T) {
	if (&config.CORSConfig{}).Enabled() {
		t.Error("empty CORS config reported enabled")
	}
	if !(&config.CORSConfig{AllowedOrigins: []string{"*.example.org"}}).Enabled() {
		t.Error("configured CORS reported disabled")
	}
}
