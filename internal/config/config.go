// Package config provides configuration management using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/jobrunner/limes/internal/domain"
)

// Config holds all application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Storage     StorageConfig     `mapstructure:"storage"`
	Rules       RulesConfig       `mapstructure:"rules"`
	GBIF        GBIFConfig        `mapstructure:"gbif"`
	Investigate InvestigateConfig `mapstructure:"investigate"`
	Editor      EditorConfig      `mapstructure:"editor"`
	Viewport    ViewportConfig    `mapstructure:"viewport"`
	Cache       CacheConfig       `mapstructure:"cache"`
	TLS         TLSConfig         `mapstructure:"tls"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
	FrontendEnabled bool          `mapstructure:"frontend_enabled"`
	CORS            CORSConfig    `mapstructure:"cors"`
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"` // e.g., ["https://example.com", "*.sub.domain.tld"]
}

// Enabled returns true if CORS is configured with at least one allowed origin.
func (c *CORSConfig) Enabled() bool {
	return len(c.AllowedOrigins) > 0
}

// DatabaseConfig holds the polygon database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"` // sqlite file, ":memory:" for a throwaway store
}

// StorageConfig holds the rule file source configuration.
type StorageConfig struct {
	Type      string      `mapstructure:"type"` // s3, azure, http, local
	LocalPath string      `mapstructure:"local_path"`
	S3        S3Config    `mapstructure:"s3"`
	Azure     AzureConfig `mapstructure:"azure"`
	HTTP      HTTPConfig  `mapstructure:"http"`
}

// S3Config holds AWS S3 configuration.
type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Region          string `mapstructure:"region"`
	Prefix          string `mapstructure:"prefix"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// AzureConfig holds Azure Blob Storage configuration.
type AzureConfig struct {
	Container        string `mapstructure:"container"`
	AccountName      string `mapstructure:"account_name"`
	AccountKey       string `mapstructure:"account_key"`
	ConnectionString string `mapstructure:"connection_string"`
	Prefix           string `mapstructure:"prefix"`
}

// HTTPConfig holds HTTP download configuration.
type HTTPConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	IndexFile string        `mapstructure:"index_file"` // default: index.txt
	Timeout   time.Duration `mapstructure:"timeout"`
	Username  string        `mapstructure:"username"`
	Password  string        `mapstructure:"password"`
}

// RulesConfig holds annotation rule configuration.
type RulesConfig struct {
	LocalPath     string        `mapstructure:"local_path"` // where remote rule files are downloaded to
	SyncInterval  time.Duration `mapstructure:"sync_interval"`
	Watch         bool          `mapstructure:"watch"`
	WatchDebounce time.Duration `mapstructure:"watch_debounce"`
	MaxMatches    int           `mapstructure:"max_matches"`
}

// GBIFConfig holds the occurrence service configuration.
type GBIFConfig struct {
	APIURL    string        `mapstructure:"api_url"`
	TileURL   string        `mapstructure:"tile_url"`
	TileStyle string        `mapstructure:"tile_style"`
	Timeout   time.Duration `mapstructure:"timeout"`
	UserAgent string        `mapstructure:"user_agent"`
	Enabled   bool          `mapstructure:"enabled"`
}

// InvestigateConfig holds area search configuration.
type InvestigateConfig struct {
	RadiusKm float64       `mapstructure:"radius_km"`
	Limit    int           `mapstructure:"limit"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// EditorConfig holds pointer gesture thresholds.
type EditorConfig struct {
	ClickMaxMovePx    float64       `mapstructure:"click_max_move_px"`
	ClickMaxDuration  time.Duration `mapstructure:"click_max_duration"`
	RectMinDragPx     float64       `mapstructure:"rect_min_drag_px"`
	DensifyOnEdit     bool          `mapstructure:"densify_on_edit"`
	DefaultAnnotation string        `mapstructure:"default_annotation"`
}

// ViewportConfig holds the initial map view.
type ViewportConfig struct {
	Lat    float64 `mapstructure:"lat"`
	Lng    float64 `mapstructure:"lng"`
	Zoom   float64 `mapstructure:"zoom"`
	Width  float64 `mapstructure:"width"`
	Height float64 `mapstructure:"height"`
}

// Viewport returns the configured viewport.
func (c ViewportConfig) Viewport() domain.Viewport {
	return domain.Viewport{
		Center: domain.GeoPoint{Lat: c.Lat, Lng: c.Lng},
		Zoom:   c.Zoom,
		Width:  c.Width,
		Height: c.Height,
	}
}

// CacheConfig holds the dataset metadata cache configuration.
type CacheConfig struct {
	Type     string        `mapstructure:"type"` // memory, valkey, none
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	TTL      time.Duration `mapstructure:"ttl"`
	Capacity int           `mapstructure:"capacity"`
}

// TLSConfig holds TLS/CertMagic configuration.
type TLSConfig struct {
	Enabled  bool         `mapstructure:"enabled"`
	Domains  []string     `mapstructure:"domains"`
	Email    string       `mapstructure:"email"`
	CacheDir string       `mapstructure:"cache_dir"`
	Staging  bool         `mapstructure:"staging"` // Use Let's Encrypt staging
	DNS      TLSDNSConfig `mapstructure:"dns"`
}

// TLSDNSConfig holds the Azure DNS settings for DNS-01 challenges.
type TLSDNSConfig struct {
	SubscriptionID    string `mapstructure:"subscription_id"`
	ResourceGroupName string `mapstructure:"resource_group"`
	ClientID          string `mapstructure:"client_id"`
}

// MetricsConfig holds Prometheus metrics configuration.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"` // 0 serves metrics on the API port
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json, text
}

// Defaults sets the default configuration values.
func Defaults() {
	// Server defaults
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30*time.Second)
	viper.SetDefault("server.write_timeout", 30*time.Second)
	viper.SetDefault("server.shutdown_timeout", 10*time.Second)
	viper.SetDefault("server.max_body_bytes", 4<<20)
	viper.SetDefault("server.frontend_enabled", true)
	viper.SetDefault("server.cors.allowed_origins", []string{})

	viper.SetDefault("database.path", "./data/limes.db")

	// Storage defaults
	viper.SetDefault("storage.type", "local")
	viper.SetDefault("storage.local_path", "./rules")
	viper.SetDefault("storage.http.index_file", "index.txt")
	viper.SetDefault("storage.http.timeout", 5*time.Minute)

	viper.SetDefault("rules.local_path", "./data/rules")
	viper.SetDefault("rules.sync_interval", 0)
	viper.SetDefault("rules.watch", true)
	viper.SetDefault("rules.watch_debounce", 500*time.Millisecond)
	viper.SetDefault("rules.max_matches", 1000)

	viper.SetDefault("gbif.enabled", true)
	viper.SetDefault("gbif.api_url", "https://api.gbif.org/v1")
	viper.SetDefault("gbif.tile_url", "https://api.gbif.org/v2/map/occurrence/density")
	viper.SetDefault("gbif.tile_style", "purpleYellow.point")
	viper.SetDefault("gbif.timeout", 30*time.Second)
	viper.SetDefault("gbif.user_agent", "limes")

	viper.SetDefault("investigate.radius_km", 10.0)
	viper.SetDefault("investigate.limit", 50)
	viper.SetDefault("investigate.timeout", 30*time.Second)

	viper.SetDefault("editor.click_max_move_px", 10.0)
	viper.SetDefault("editor.click_max_duration", 200*time.Millisecond)
	viper.SetDefault("editor.rect_min_drag_px", 5.0)
	viper.SetDefault("editor.densify_on_edit", true)
	viper.SetDefault("editor.default_annotation", string(domain.AnnotationSuspicious))

	viper.SetDefault("viewport.lat", 51.0)
	viper.SetDefault("viewport.lng", 10.0)
	viper.SetDefault("viewport.zoom", 5.0)
	viper.SetDefault("viewport.width", 1024.0)
	viper.SetDefault("viewport.height", 768.0)

	viper.SetDefault("cache.type", "memory")
	viper.SetDefault("cache.ttl", 24*time.Hour)
	viper.SetDefault("cache.capacity", 1024)

	// TLS defaults
	viper.SetDefault("tls.enabled", false)
	viper.SetDefault("tls.cache_dir", "./.certmagic")
	viper.SetDefault("tls.staging", false)

	// Metrics defaults
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.path", "/metrics")
	viper.SetDefault("metrics.port", 0)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
}

// Load loads configuration from environment and config file.
func Load(configPath string) (*Config, error) {
	Defaults()

	// Environment variable binding
	viper.SetEnvPrefix("LIMES")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Config file
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("/etc/limes")
	}

	// Try to read config file (not required)
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return &domain.ConfigError{Field: "server.port", Message: fmt.Sprintf("invalid port %d", c.Server.Port)}
	}
	if c.Metrics.Port < 0 || c.Metrics.Port > 65535 {
		return &domain.ConfigError{Field: "metrics.port", Message: fmt.Sprintf("invalid port %d", c.Metrics.Port)}
	}
	if c.Metrics.Port != 0 && c.Metrics.Port == c.Server.Port {
		return &domain.ConfigError{Field: "metrics.port", Message: "must differ from server.port"}
	}

	if c.TLS.Enabled {
		if len(c.TLS.Domains) == 0 {
			return &domain.ConfigError{Field: "tls.domains", Message: "TLS enabled but no domains specified"}
		}
		if c.TLS.Email == "" {
			return &domain.ConfigError{Field: "tls.email", Message: "TLS enabled but no email specified"}
		}
	}

	if c.Database.Path == "" {
		return &domain.ConfigError{Field: "database.path", Message: "database path is required"}
	}

	if err := c.validateStorage(); err != nil {
		return err
	}

	if c.Investigate.RadiusKm <= 0 {
		return &domain.ConfigError{Field: "investigate.radius_km", Message: "must be positive"}
	}
	if c.Investigate.Limit <= 0 {
		return &domain.ConfigError{Field: "investigate.limit", Message: "must be positive"}
	}

	if c.Editor.ClickMaxMovePx < 0 || c.Editor.RectMinDragPx < 0 {
		return &domain.ConfigError{Field: "editor", Message: "pixel thresholds must not be negative"}
	}
	if c.Editor.DefaultAnnotation != "" && !domain.Annotation(c.Editor.DefaultAnnotation).IsValid() {
		return &domain.ConfigError{Field: "editor.default_annotation", Message: "unknown annotation " + c.Editor.DefaultAnnotation}
	}

	if err := c.Viewport.Viewport().Validate(); err != nil {
		return &domain.ConfigError{Field: "viewport", Message: err.Error()}
	}

	switch c.Cache.Type {
	case "", "none", "memory":
	case "valkey":
		if c.Cache.Address == "" {
			return &domain.ConfigError{Field: "cache.address", Message: "valkey address is required"}
		}
	default:
		return &domain.ConfigError{Field: "cache.type", Message: "unknown cache type " + c.Cache.Type}
	}

	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalPath == "" {
			return &domain.ConfigError{Field: "storage.local_path", Message: "local storage path is required"}
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return &domain.ConfigError{Field: "storage.s3.bucket", Message: "S3 bucket is required"}
		}
		if c.Storage.S3.Region == "" {
			return &domain.ConfigError{Field: "storage.s3.region", Message: "S3 region is required"}
		}
	case "azure":
		if c.Storage.Azure.Container == "" {
			return &domain.ConfigError{Field: "storage.azure.container", Message: "azure container is required"}
		}
		if c.Storage.Azure.AccountName == "" && c.Storage.Azure.ConnectionString == "" {
			return &domain.ConfigError{Field: "storage.azure", Message: "azure account name or connection string is required"}
		}
	case "http":
		if c.Storage.HTTP.BaseURL == "" {
			return &domain.ConfigError{Field: "storage.http.base_url", Message: "HTTP base URL is required"}
		}
	default:
		return &domain.ConfigError{Field: "storage.type", Message: "unknown storage type " + c.Storage.Type}
	}

	if c.Storage.Type != "local" && c.Rules.LocalPath == "" {
		return &domain.ConfigError{Field: "rules.local_path", Message: "a download directory is required for remote rule storage"}
	}
	return nil
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// MetricsAddress returns the address of the dedicated metrics server, empty
// when metrics are served on the API port.
func (c *Config) MetricsAddress() string {
	if c.Metrics.Port == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Metrics.Port)
}
