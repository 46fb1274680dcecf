// Package metrics provides Prometheus metrics collection.
package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector implements the MetricsCollector port using Prometheus.
type Collector struct {
	registry *prometheus.Registry

	searchCounter       *prometheus.CounterVec
	searchDuration      prometheus.Histogram
	ruleMatches         *prometheus.CounterVec
	matchDuration       prometheus.Histogram
	ruleSetsLoaded      prometheus.Gauge
	polygons            prometheus.Gauge
	polygonMutations    *prometheus.CounterVec
	storageOperations   *prometheus.CounterVec
	storageDuration     *prometheus.HistogramVec
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewCollector creates a new Prometheus metrics collector with its own
// registry. Go runtime and process collectors are registered as well.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "limes"
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,

		searchCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "occurrence_searches_total",
				Help:      "Total number of occurrence searches",
			},
			[]string{"status"},
		),

		searchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "investigation_duration_seconds",
				Help:      "Duration of an area investigation including dataset enrichment",
				Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
			},
		),

		ruleMatches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rule_matches_total",
				Help:      "Total number of rule set evaluations",
			},
			[]string{"rule_set", "result"},
		),

		matchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "match_duration_seconds",
				Help:      "Rule matching duration in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
			},
		),

		ruleSetsLoaded: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rule_sets_loaded",
				Help:      "Number of loaded annotation rule sets",
			},
		),

		polygons: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "polygons",
				Help:      "Number of stored annotated polygons",
			},
		),

		polygonMutations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "polygon_mutations_total",
				Help:      "Total number of committed polygon edits",
			},
			[]string{"operation", "status"},
		),

		storageOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "storage_operations_total",
				Help:      "Total number of storage operations",
			},
			[]string{"operation", "status"},
		),

		storageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "storage_duration_seconds",
				Help:      "Storage operation duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"operation"},
		),

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),

		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
	}
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// IncSearchCount increments the occurrence search counter.
func (c *Collector) IncSearchCount(success bool) {
	c.searchCounter.WithLabelValues(statusLabel(success)).Inc()
}

// ObserveSearchDuration records how long an investigation took.
func (c *Collector) ObserveSearchDuration(duration time.Duration) {
	c.searchDuration.Observe(duration.Seconds())
}

// IncRuleMatches increments the rule match counter.
func (c *Collector) IncRuleMatches(ruleSetID string, matched bool) {
	result := "miss"
	if matched {
		result = "hit"
	}
	c.ruleMatches.WithLabelValues(ruleSetID, result).Inc()
}

// ObserveMatchDuration records rule matching duration.
func (c *Collector) ObserveMatchDuration(duration time.Duration) {
	c.matchDuration.Observe(duration.Seconds())
}

// SetRuleSetsLoaded sets the number of loaded rule sets.
func (c *Collector) SetRuleSetsLoaded(count int) {
	c.ruleSetsLoaded.Set(float64(count))
}

// SetPolygons sets the number of stored polygons.
func (c *Collector) SetPolygons(count int) {
	c.polygons.Set(float64(count))
}

// IncPolygonMutations increments the counter of committed edits.
func (c *Collector) IncPolygonMutations(operation string, success bool) {
	c.polygonMutations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// IncStorageOperations increments storage operation counter.
func (c *Collector) IncStorageOperations(operation string, success bool) {
	c.storageOperations.WithLabelValues(operation, statusLabel(success)).Inc()
}

// ObserveStorageDuration records storage operation duration.
func (c *Collector) ObserveStorageDuration(operation string, duration time.Duration) {
	c.storageDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// IncHTTPRequests increments the HTTP request counter.
func (c *Collector) IncHTTPRequests(method, path, status string) {
	c.httpRequestsTotal.WithLabelValues(method, path, status).Inc()
}

// ObserveHTTPDuration records HTTP request duration.
func (c *Collector) ObserveHTTPDuration(method, path string, duration time.Duration) {
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// Registry returns the registry the collector's metrics live in.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler returns the Prometheus HTTP handler for this collector.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// NewServer returns a server exposing the metrics on their own address.
func (c *Collector) NewServer(addr, path string) *http.Server {
	if path == "" {
		path = "/metrics"
	}
	m := http.NewServeMux()
	m.Handle(path, c.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           m,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// Middleware returns HTTP middleware for metrics collection.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &statusResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		path := normalizePath(r)
		status := statusToString(wrapped.statusCode)

		c.IncHTTPRequests(r.Method, path, status)
		c.ObserveHTTPDuration(r.Method, path, duration)
	})
}

type statusResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// normalizePath returns the route template so polygon IDs and tile
// coordinates do not become label values.
func normalizePath(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

// statusToString converts HTTP status code to string category.
func statusToString(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
