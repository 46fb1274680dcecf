// Package http provides the HTTP API of the annotation workspace.
package http //nolint:revive // package name conflicts with stdlib but is acceptable in this context

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/jobrunner/limes/internal/application"
	"github.com/jobrunner/limes/internal/config"
	"github.com/jobrunner/limes/internal/ports/input"
	"github.com/jobrunner/limes/internal/ports/output"
)

// Services bundles what the handlers drive. Investigations, Species and
// Sync are optional; their routes answer 404 when nil.
type Services struct {
	Workspace      *application.Workspace
	Store          *application.PolygonStore
	Rules          *application.RuleRegistry
	Matcher        input.RuleMatcher
	Health         *application.HealthService
	Investigations *application.InvestigationService
	Species        output.SpeciesLookup
	Sync           *application.SyncService
}

// MetricsOptions mounts request metrics and the scrape endpoint. A nil
// Handler leaves scraping to a dedicated metrics server.
type MetricsOptions struct {
	Middleware mux.MiddlewareFunc
	Handler    http.Handler
	Path       string
}

// Server routes HTTP requests to the application services.
type Server struct {
	router   *mux.Router
	services Services
	metrics  MetricsOptions
	logger   *slog.Logger
	config   config.ServerConfig
}

// NewServer creates a new HTTP server.
func NewServer(cfg config.ServerConfig, services Services, metrics MetricsOptions, logger *slog.Logger) *Server {
	s := &Server{
		services: services,
		metrics:  metrics,
		logger:   logger,
		config:   cfg,
	}
	s.router = s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() *mux.Router {
	r := mux.NewRouter()

	// Add middleware
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	if s.metrics.Middleware != nil {
		r.Use(s.metrics.Middleware)
	}

	// Health endpoints
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/health/live", s.handleLiveness).Methods(http.MethodGet)
	r.HandleFunc("/health/ready", s.handleReadiness).Methods(http.MethodGet)

	if s.metrics.Handler != nil {
		r.Handle(s.metrics.Path, s.metrics.Handler).Methods(http.MethodGet)
	}

	// API v1
	api := r.PathPrefix("/api/v1").Subrouter()

	// Polygon collection
	api.HandleFunc("/polygons", s.handleListPolygons).Methods(http.MethodGet)
	api.HandleFunc("/polygons/import", s.handleImportPolygon).Methods(http.MethodPost)
	api.HandleFunc("/polygons/export", s.handleExportPolygons).Methods(http.MethodGet)
	api.HandleFunc("/polygons/{id}", s.handleGetPolygon).Methods(http.MethodGet)
	api.HandleFunc("/polygons/{id}", s.handleDeletePolygon).Methods(http.MethodDelete)
	api.HandleFunc("/polygons/{id}", s.handlePatchPolygon).Methods(http.MethodPatch)
	api.HandleFunc("/polygons/{id}/coordinates", s.handleSetCoordinates).Methods(http.MethodPut)
	api.HandleFunc("/polygons/{id}/invert", s.handleInvertPolygon).Methods(http.MethodPost)
	api.HandleFunc("/polygons/{id}/locate", s.handleLocatePolygon).Methods(http.MethodPost)
	api.HandleFunc("/polygons/{id}/wkt", s.handlePolygonWKT).Methods(http.MethodGet)

	// Annotation and species given to new polygons
	api.HandleFunc("/selection", s.handleGetSelection).Methods(http.MethodGet)
	api.HandleFunc("/selection", s.handleSetSelection).Methods(http.MethodPut)
	api.HandleFunc("/species", s.handleSuggestSpecies).Methods(http.MethodGet)
	api.HandleFunc("/species/{key:[0-9]+}", s.handleGetSpecies).Methods(http.MethodGet)

	// Interaction
	api.HandleFunc("/editor", s.handleEditorView).Methods(http.MethodGet)
	api.HandleFunc("/editor/pointer", s.handlePointer).Methods(http.MethodPost)
	api.HandleFunc("/editor/draw", s.handleStartDrawing).Methods(http.MethodPost)
	api.HandleFunc("/editor/finish", s.handleFinish).Methods(http.MethodPost)
	api.HandleFunc("/editor/cancel", s.handleCancel).Methods(http.MethodPost)
	api.HandleFunc("/editor/latband", s.handleSetLatBand).Methods(http.MethodPut)
	api.HandleFunc("/editor/edit/{id}", s.handleEnterEditMode).Methods(http.MethodPost)
	api.HandleFunc("/editor/edit", s.handleExitEditMode).Methods(http.MethodDelete)
	api.HandleFunc("/editor/densify", s.handleDensify).Methods(http.MethodPost)
	api.HandleFunc("/editor/decimate", s.handleDecimate).Methods(http.MethodPost)
	api.HandleFunc("/editor/move-tool", s.handleMoveTool).Methods(http.MethodPut)
	api.HandleFunc("/editor/investigate", s.handleInvestigateMode).Methods(http.MethodPut)
	api.HandleFunc("/investigation", s.handleGetInvestigation).Methods(http.MethodGet)
	api.HandleFunc("/investigation", s.handleCloseInvestigation).Methods(http.MethodDelete)

	// Map view
	api.HandleFunc("/viewport", s.handleGetViewport).Methods(http.MethodGet)
	api.HandleFunc("/viewport", s.handleSetViewport).Methods(http.MethodPut)
	api.HandleFunc("/viewport/size", s.handleResize).Methods(http.MethodPut)
	api.HandleFunc("/viewport/navigate", s.handleNavigate).Methods(http.MethodPost)
	api.HandleFunc("/viewport/settle", s.handleSettle).Methods(http.MethodPost)
	api.HandleFunc("/scene", s.handleScene).Methods(http.MethodGet)
	api.HandleFunc("/scene.svg", s.handleSceneSVG).Methods(http.MethodGet)
	api.HandleFunc("/tiles", s.handleTiles).Methods(http.MethodGet)

	// Annotation rules
	api.HandleFunc("/rules", s.handleListRuleSets).Methods(http.MethodGet)
	api.HandleFunc("/rules/{id}", s.handleGetRuleSet).Methods(http.MethodGet)
	api.HandleFunc("/match", s.handleMatch).Methods(http.MethodGet)

	// Sync endpoint (only if sync service is configured)
	if s.services.Sync != nil {
		api.HandleFunc("/sync", s.handleSync).Methods(http.MethodPost)
	}

	// OpenAPI spec
	r.HandleFunc("/openapi.json", s.handleOpenAPI).Methods(http.MethodGet)

	// Annotation page
	if s.config.FrontendEnabled {
		r.HandleFunc("/", s.handleFrontend).Methods(http.MethodGet)
	}

	return r
}

// Router returns the mux router.
func (s *Server) Router() *mux.Router {
	return s.router
}

// Handler returns the root handler, with CORS applied when configured.
func (s *Server) Handler() http.Handler {
	if s.config.CORS.Enabled() {
		return s.corsMiddleware(s.router)
	}
	return s.router
}

// loggingMiddleware logs incoming requests.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Wrap response writer to capture status code
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.statusCode,
			"duration", time.Since(start),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// recoveryMiddleware recovers from panics.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.Error("panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
