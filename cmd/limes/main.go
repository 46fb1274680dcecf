// Package main provides the entry point for the Limes annotation service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jobrunner/limes/internal/app"
	"github.com/jobrunner/limes/internal/config"
	"github.com/jobrunner/limes/internal/domain"
	"github.com/jobrunner/limes/internal/mercator"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var cfgFile string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "limes",
	Short: "Limes - range polygon annotation for GBIF occurrences",
	Long: `Limes serves a polygon annotation workspace for GBIF species occurrences.

Polygons are drawn on a Web Mercator map, labelled with an annotation
(SUSPICIOUS, NATIVE, MANAGED, FORMER, VAGRANT) and a species, and exported
as GeoJSON or WKT.

Features:
  - Polygon, rectangle and latitude band drawing
  - Vertex editing, densify and decimate
  - Occurrence search around a clicked point
  - Reference annotation rules with hot reload
  - Rule storage backends (local, AWS S3, Azure, HTTP)
  - TLS with automatic certificate management
  - Prometheus metrics`,
	RunE: runServer,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(_ *cobra.Command, _ []string) {
		fmt.Printf("Limes %s\n", version)
		fmt.Printf("  Commit:     %s\n", commit)
		fmt.Printf("  Build Date: %s\n", buildDate)
	},
}

var projectCmd = &cobra.Command{
	Use:   "project LAT LNG",
	Short: "Project a geographic position to viewport pixels",
	Long: `Project prints the pixel position of LAT LNG in a viewport, the
world pixel at the viewport zoom and the map tile containing it.

The viewport defaults to the configured initial view.`,
	Args: cobra.ExactArgs(2),
	RunE: runProject,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "json", "log format (json, text)")

	// Server flags
	rootCmd.Flags().String("host", "0.0.0.0", "server host")
	rootCmd.Flags().Int("port", 8080, "server port")
	rootCmd.Flags().Bool("tls", false, "enable TLS")
	rootCmd.Flags().StringSlice("tls-domains", nil, "TLS domains")
	rootCmd.Flags().String("tls-email", "", "TLS email for Let's Encrypt")
	rootCmd.Flags().StringSlice("cors", nil, "allowed CORS origins (e.g., https://example.com,*.sub.domain.tld)")

	// Data flags
	rootCmd.Flags().String("db", "./data/limes.db", "polygon database path")
	rootCmd.Flags().String("storage-type", "local", "rule storage type (local, s3, azure, http)")
	rootCmd.Flags().String("storage-path", "./rules", "local rule directory")
	rootCmd.Flags().Bool("no-gbif", false, "disable occurrence search and species lookup")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("server.host", rootCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", rootCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("tls.enabled", rootCmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("tls.domains", rootCmd.Flags().Lookup("tls-domains"))
	_ = viper.BindPFlag("tls.email", rootCmd.Flags().Lookup("tls-email"))
	_ = viper.BindPFlag("server.cors.allowed_origins", rootCmd.Flags().Lookup("cors"))
	_ = viper.BindPFlag("database.path", rootCmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("storage.type", rootCmd.Flags().Lookup("storage-type"))
	_ = viper.BindPFlag("storage.local_path", rootCmd.Flags().Lookup("storage-path"))

	// Projection flags
	projectCmd.Flags().Float64("center-lat", 0, "viewport center latitude")
	projectCmd.Flags().Float64("center-lng", 0, "viewport center longitude")
	projectCmd.Flags().Float64("zoom", 0, "viewport zoom")
	projectCmd.Flags().Float64("width", 0, "viewport width in pixels")
	projectCmd.Flags().Float64("height", 0, "viewport height in pixels")
	_ = viper.BindPFlag("viewport.lat", projectCmd.Flags().Lookup("center-lat"))
	_ = viper.BindPFlag("viewport.lng", projectCmd.Flags().Lookup("center-lng"))
	_ = viper.BindPFlag("viewport.zoom", projectCmd.Flags().Lookup("zoom"))
	_ = viper.BindPFlag("viewport.width", projectCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("viewport.height", projectCmd.Flags().Lookup("height"))

	rootCmd.AddCommand(versionCmd, projectCmd)
}

func initConfig() {
	config.Defaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

func runServer(cmd *cobra.Command, _ []string) error {
	if noGBIF, _ := cmd.Flags().GetBool("no-gbif"); noGBIF {
		viper.Set("gbif.enabled", false)
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Setup logger
	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)

	logger.Info("starting Limes",
		"version", version,
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"database", cfg.Database.Path,
		"storage_type", cfg.Storage.Type,
		"gbif", cfg.GBIF.Enabled,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server listening", "address", cfg.Server.Address())
		if err := application.Start(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case runErr = <-serverErr:
		logger.Error("server error", "error", runErr)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		return err
	}

	logger.Info("server stopped")
	return runErr
}

func runProject(_ *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid latitude %q: %w", args[0], err)
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid longitude %q: %w", args[1], err)
	}
	point := domain.GeoPoint{Lat: lat, Lng: lng}
	if err := point.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	vp := cfg.Viewport.Viewport()
	if err := vp.Validate(); err != nil {
		return err
	}

	px := mercator.NewProjector(vp).GeoToPixel(point)
	wx, wy := mercator.GeoToWorld(lat, lng, vp.Zoom)
	z := int(vp.Zoom)
	tx, ty := mercator.TileOf(lat, lng, z)

	fmt.Printf("viewport  center=%s zoom=%g size=%gx%g\n", vp.Center, vp.Zoom, vp.Width, vp.Height)
	fmt.Printf("pixel     x=%.2f y=%.2f\n", px.X, px.Y)
	fmt.Printf("world     x=%.2f y=%.2f\n", wx, wy)
	fmt.Printf("tile      z=%d x=%d y=%d\n", z, tx, ty)
	return nil
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().UTC().Format(time.RFC3339))
			}
			return a
		},
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
