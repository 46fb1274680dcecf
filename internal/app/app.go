// Package app provides application initialization and wiring.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/jobrunner/limes/internal/adapters/cache"
	"github.com/jobrunner/limes/internal/adapters/gbif"
	httpAdapter "github.com/jobrunner/limes/internal/adapters/http"
	"github.com/jobrunner/limes/internal/adapters/metrics"
	"github.com/jobrunner/limes/internal/adapters/sqlite"
	"github.com/jobrunner/limes/internal/adapters/storage"
	tlsAdapter "github.com/jobrunner/limes/internal/adapters/tls"
	"github.com/jobrunner/limes/internal/adapters/watcher"
	"github.com/jobrunner/limes/internal/application"
	"github.com/jobrunner/limes/internal/config"
	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/editor"
	"github.com/jobrunner/limes/internal/mapview"
	"github.com/jobrunner/limes/internal/ports/output"
)

// App holds all application components.
type App struct {
	Config         *config.Config
	Logger         *slog.Logger
	Storage        output.ObjectStorage
	Repository     *sqlite.Repository
	Registry       *application.RuleRegistry
	Store          *application.PolygonStore
	Workspace      *application.Workspace
	Investigations *application.InvestigationService
	MatchService   *application.MatchService
	HealthService  *application.HealthService
	SyncService    *application.SyncService
	HTTPServer     *httpAdapter.Server
	Server         *tlsAdapter.Server
	Watcher        *watcher.Watcher
	Metrics        *metrics.Collector
	MetricsServer  *http.Server

	valkey *cache.Valkey
	loaded atomic.Bool
}

// New creates and initializes a new application.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	var metricsCollector output.MetricsCollector = &output.NoOpMetrics{}
	if cfg.Metrics.Enabled {
		app.Metrics = metrics.NewCollector("limes")
		metricsCollector = app.Metrics
		if addr := cfg.MetricsAddress(); addr != "" {
			app.MetricsServer = app.Metrics.NewServer(addr, cfg.Metrics.Path)
		}
	}

	// Polygon database
	repo, err := sqlite.NewRepository(ctx, cfg.Database.Path, metricsCollector)
	if err != nil {
		return nil, fmt.Errorf("opening polygon database: %w", err)
	}
	app.Repository = repo

	// Rule files
	ruleStorage, err := initStorage(ctx, cfg.Storage)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	app.Storage = ruleStorage

	// Local rule files are parsed in place, remote ones are copied first.
	rulesDir := cfg.Rules.LocalPath
	if cfg.Storage.Type == "local" {
		rulesDir = cfg.Storage.LocalPath
	}
	app.Registry = application.NewRuleRegistry(ruleStorage, metricsCollector, logger.With("component", "rules"), rulesDir)
	if cfg.Storage.Type != "local" {
		app.SyncService = application.NewSyncService(app.Registry, cfg.Rules.SyncInterval, logger.With("component", "sync"))
	}

	annotation, err := domain.ParseAnnotation(cfg.Editor.DefaultAnnotation)
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("editor.default_annotation: %w", err)
	}
	app.Store = application.NewPolygonStore(repo, metricsCollector, logger.With("component", "polygons"), annotation)

	// Occurrence search
	var species output.SpeciesLookup
	var investigator editor.Investigator
	if cfg.GBIF.Enabled {
		client := gbif.NewClient(gbif.Config{
			BaseURL:   cfg.GBIF.APIURL,
			Timeout:   cfg.GBIF.Timeout,
			UserAgent: cfg.GBIF.UserAgent,
		})
		species = client

		datasets, err := app.initCache(ctx, cfg.Cache)
		if err != nil {
			_ = repo.Close()
			return nil, fmt.Errorf("initializing cache: %w", err)
		}

		app.Investigations = application.NewInvestigationService(
			client,
			datasets,
			app.Store.SpeciesKey,
			metricsCollector,
			logger.With("component", "investigate"),
			application.InvestigationConfig{
				RadiusKm:   cfg.Investigate.RadiusKm,
				Limit:      cfg.Investigate.Limit,
				Timeout:    cfg.Investigate.Timeout,
				DatasetTTL: cfg.Cache.TTL,
			},
		)
		investigator = app.Investigations
	}

	camera, err := mapview.NewCamera(cfg.Viewport.Viewport())
	if err != nil {
		_ = repo.Close()
		return nil, fmt.Errorf("viewport: %w", err)
	}

	app.Workspace = application.NewWorkspace(
		editor.Config{
			ClickMaxMovePx:   cfg.Editor.ClickMaxMovePx,
			ClickMaxDuration: cfg.Editor.ClickMaxDuration,
			RectMinDragPx:    cfg.Editor.RectMinDragPx,
			DensifyOnEdit:    cfg.Editor.DensifyOnEdit,
			RadiusKm:         cfg.Investigate.RadiusKm,
		},
		camera,
		app.Store,
		investigator,
		app.Registry,
		application.WorkspaceConfig{
			TileBaseURL: cfg.GBIF.TileURL,
			TileStyle:   cfg.GBIF.TileStyle,
		},
		logger,
	)

	app.MatchService = application.NewMatchService(
		app.Registry,
		metricsCollector,
		logger.With("component", "match"),
		application.MatchServiceConfig{MaxMatches: cfg.Rules.MaxMatches},
	)

	app.HealthService = application.NewHealthService(app.Registry, app.Store, app.loaded.Load)

	// HTTP API
	var metricsOpts httpAdapter.MetricsOptions
	if app.Metrics != nil {
		metricsOpts.Middleware = app.Metrics.Middleware
		if app.MetricsServer == nil {
			metricsOpts.Handler = app.Metrics.Handler()
			metricsOpts.Path = cfg.Metrics.Path
		}
	}
	app.HTTPServer = httpAdapter.NewServer(
		cfg.Server,
		httpAdapter.Services{
			Workspace:      app.Workspace,
			Store:          app.Store,
			Rules:          app.Registry,
			Matcher:        app.MatchService,
			Health:         app.HealthService,
			Investigations: app.Investigations,
			Species:        species,
			Sync:           app.SyncService,
		},
		metricsOpts,
		logger,
	)

	server, err := tlsAdapter.NewServer(
		tlsAdapter.Config{
			Enabled:  cfg.TLS.Enabled,
			Domains:  cfg.TLS.Domains,
			Email:    cfg.TLS.Email,
			CacheDir: cfg.TLS.CacheDir,
			Staging:  cfg.TLS.Staging,
			DNS: tlsAdapter.DNSConfig{
				SubscriptionID:    cfg.TLS.DNS.SubscriptionID,
				ResourceGroupName: cfg.TLS.DNS.ResourceGroupName,
				ClientID:          cfg.TLS.DNS.ClientID,
			},
		},
		app.HTTPServer.Handler(),
		tlsAdapter.Timeouts{
			Read:  cfg.Server.ReadTimeout,
			Write: cfg.Server.WriteTimeout,
			Idle:  60 * time.Second,
		},
		logger,
	)
	if err != nil {
		app.closeStores()
		return nil, fmt.Errorf("initializing TLS: %w", err)
	}
	app.Server = server

	// Hot reload of local rule files
	if cfg.Storage.Type == "local" && cfg.Rules.Watch {
		w, err := watcher.New(
			watcher.Config{
				Paths:    []string{cfg.Storage.LocalPath},
				Debounce: cfg.Rules.WatchDebounce,
			},
			app.handleFileEvent,
			logger.With("component", "watcher"),
		)
		if err != nil {
			logger.Warn("failed to initialize file watcher", "error", err)
		} else {
			app.Watcher = w
		}
	}

	return app, nil
}

// Start loads the polygons and rule sets and serves until the server is
// shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Store.Load(ctx); err != nil {
		return fmt.Errorf("loading polygons: %w", err)
	}
	a.loaded.Store(true)

	if err := a.Registry.LoadAll(ctx); err != nil {
		a.Logger.Warn("failed to load rule sets", "error", err)
	}

	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Logger.Warn("failed to start file watcher", "error", err)
		}
	}

	if a.SyncService != nil {
		a.SyncService.Start(ctx)
	}

	if a.MetricsServer != nil {
		go func() {
			a.Logger.Info("metrics server listening", "address", a.MetricsServer.Addr)
			if err := a.MetricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.Logger.Error("metrics server error", "error", err)
			}
		}()
	}

	return a.Server.ListenAndServe(a.Config.Server.Address())
}

// Shutdown gracefully shuts down all components.
func (a *App) Shutdown(ctx context.Context) error {
	a.Logger.Info("shutting down application")

	if a.Watcher != nil {
		_ = a.Watcher.Stop()
	}
	if a.SyncService != nil {
		a.SyncService.Stop()
	}

	if a.MetricsServer != nil {
		if err := a.MetricsServer.Shutdown(ctx); err != nil {
			a.Logger.Error("metrics server shutdown error", "error", err)
		}
	}

	var shutdownErr error
	if err := a.Server.Shutdown(ctx); err != nil {
		a.Logger.Error("HTTP server shutdown error", "error", err)
		shutdownErr = err
	}

	if a.Investigations != nil {
		if inv := a.Investigations.Current(); inv != nil {
			a.Investigations.Close(inv)
		}
		a.Investigations.Wait()
	}

	a.closeStores()
	return shutdownErr
}

func (a *App) closeStores() {
	if a.valkey != nil {
		a.valkey.Close()
	}
	if err := a.Repository.Close(); err != nil {
		a.Logger.Error("failed to close polygon database", "error", err)
	}
}

// handleFileEvent applies a settled rule file change to the registry.
func (a *App) handleFileEvent(ctx context.Context, event watcher.Event) error {
	a.Logger.Info("rule file changed", "path", event.Path, "operation", event.Operation.String())

	switch event.Operation {
	case watcher.OpCreate, watcher.OpModify:
		return a.Registry.LoadRuleSet(ctx, filepath.Clean(event.Path))

	case watcher.OpDelete:
		id := application.RuleSetID(event.Path)
		if err := a.Registry.UnloadRuleSet(ctx, id); err != nil && !errors.Is(err, domain.ErrNotFound) {
			a.Logger.Warn("failed to unload deleted rule set", "id", id, "error", err)
		}
	}
	return nil
}

// initCache returns the dataset cache, nil when caching is disabled.
func (a *App) initCache(ctx context.Context, cfg config.CacheConfig) (output.DatasetCache, error) {
	switch cfg.Type {
	case "", "memory":
		return cache.NewMemory(cfg.Capacity, cfg.TTL), nil

	case "valkey":
		v, err := cache.NewValkey(cfg.Address, cfg.Password)
		if err != nil {
			return nil, err
		}
		if err := v.Ping(ctx); err != nil {
			a.Logger.Warn("valkey not reachable, dataset lookups will not be cached until it is", "address", cfg.Address, "error", err)
		}
		a.valkey = v
		return v, nil

	case "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}

// initStorage initializes the appropriate storage adapter.
func initStorage(ctx context.Context, cfg config.StorageConfig) (output.ObjectStorage, error) {
	switch cfg.Type {
	case "local":
		return storage.NewLocalStorage(cfg.LocalPath), nil

	case "s3":
		return storage.NewS3Storage(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Prefix:          cfg.S3.Prefix,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
		})

	case "azure":
		return storage.NewAzureStorage(storage.AzureConfig{
			Container:        cfg.Azure.Container,
			AccountName:      cfg.Azure.AccountName,
			AccountKey:       cfg.Azure.AccountKey,
			ConnectionString: cfg.Azure.ConnectionString,
			Prefix:           cfg.Azure.Prefix,
		})

	case "http":
		return storage.NewHTTPStorage(storage.HTTPConfig{
			BaseURL:   cfg.HTTP.BaseURL,
			IndexFile: cfg.HTTP.IndexFile,
			Timeout:   cfg.HTTP.Timeout,
			Username:  cfg.HTTP.Username,
			Password:  cfg.HTTP.Password,
		}), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
