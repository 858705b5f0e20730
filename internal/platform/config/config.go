// Package config loads and validates quotebook settings with koanf.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Defaults other packages and tests refer to. The rest live in defaults().
const (
	DefaultServerPort     = 8080
	DefaultMaxRequestSize = 1 << 20

	DefaultClientRetryMaxAttempts     = 3
	DefaultClientCircuitHalfOpenLimit = 3

	// The remote collection is polled once a minute and at most five of its
	// items are considered per pass.
	DefaultSyncInterval = time.Minute
	DefaultSyncMaxItems = 5
	DefaultSyncCategory = "Server"

	DefaultNotificationTTL      = 5 * time.Second
	DefaultNotificationCapacity = 20
	DefaultSessionTTL           = 30 * time.Minute
)

// Storage drivers.
const (
	StorageDriverSQLite = "sqlite"
	StorageDriverFile   = "file"
	StorageDriverMemory = "memory"
)

// Config is the root configuration structure.
type Config struct {
	App           AppConfig          `koanf:"app"           validate:"required"`
	Server        ServerConfig       `koanf:"server"        validate:"required"`
	Log           LogConfig          `koanf:"log"           validate:"required"`
	Telemetry     TelemetryConfig    `koanf:"telemetry"`
	Client        ClientConfig       `koanf:"client"        validate:"required"`
	Services      ServicesConfig     `koanf:"services"      validate:"required"`
	Storage       StorageConfig      `koanf:"storage"       validate:"required"`
	Session       SessionConfig      `koanf:"session"       validate:"required"`
	Sync          SyncConfig         `koanf:"sync"          validate:"required"`
	Notifications NotificationConfig `koanf:"notifications" validate:"required"`
	Import        ImportConfig       `koanf:"import"`
	Features      map[string]bool    `koanf:"features"`
}

// AppConfig contains application-level settings.
type AppConfig struct {
	Name        string `koanf:"name"        validate:"required"`
	Version     string `koanf:"version"     validate:"required"`
	Environment string `koanf:"environment" validate:"required,oneof=local dev qa prod test"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port            int           `koanf:"port"             validate:"required,min=1,max=65535"`
	Host            string        `koanf:"host"             validate:"required"`
	ReadTimeout     time.Duration `koanf:"read_timeout"     validate:"required,min=1s"`
	WriteTimeout    time.Duration `koanf:"write_timeout"    validate:"required,min=1s"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"     validate:"required,min=1s"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"required,min=1s"`
	RequestTimeout  time.Duration `koanf:"request_timeout"  validate:"required,min=1s"`
	MaxRequestSize  int64         `koanf:"max_request_size" validate:"required,min=1"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string        `koanf:"level"  validate:"required,oneof=trace debug info warn error"`
	Format string        `koanf:"format" validate:"required,oneof=json text pretty"`
	File   LogFileConfig `koanf:"file"`
}

// LogFileConfig contains rolling log file settings.
type LogFileConfig struct {
	Enabled    bool   `koanf:"enabled"`
	Path       string `koanf:"path"        validate:"required_if=Enabled true"`
	MaxSizeMB  int    `koanf:"max_size"    validate:"omitempty,min=1,max=1024"`
	MaxBackups int    `koanf:"max_backups" validate:"omitempty,min=0,max=100"`
	MaxAgeDays int    `koanf:"max_age"     validate:"omitempty,min=0,max=365"`
	Compress   bool   `koanf:"compress"`
}

// TelemetryConfig contains OpenTelemetry settings.
type TelemetryConfig struct {
	Enabled      bool    `koanf:"enabled"`
	Endpoint     string  `koanf:"endpoint"      validate:"required_if=Enabled true,omitempty,url"`
	ServiceName  string  `koanf:"service_name"  validate:"required_if=Enabled true"`
	SamplingRate float64 `koanf:"sampling_rate" validate:"min=0,max=1"`
}

// ClientConfig contains HTTP client settings for the remote quote endpoint.
type ClientConfig struct {
	Timeout        time.Duration        `koanf:"timeout"         validate:"required,min=100ms"`
	Retry          RetryConfig          `koanf:"retry"           validate:"required"`
	CircuitBreaker CircuitBreakerConfig `koanf:"circuit_breaker" validate:"required"`
	Transport      TransportConfig      `koanf:"transport"       validate:"required"`
}

// RetryConfig contains retry settings for HTTP clients.
type RetryConfig struct {
	MaxAttempts     int           `koanf:"max_attempts"     validate:"required,min=1,max=10"`
	InitialInterval time.Duration `koanf:"initial_interval" validate:"required,min=10ms"`
	MaxInterval     time.Duration `koanf:"max_interval"     validate:"required,min=100ms"`
	Multiplier      float64       `koanf:"multiplier"       validate:"required,min=1.1,max=10"`
	JitterFactor    float64       `koanf:"jitter_factor"    validate:"min=0,max=1"`
}

// CircuitBreakerConfig contains circuit breaker settings for HTTP clients.
type CircuitBreakerConfig struct {
	MaxFailures   int           `koanf:"max_failures"    validate:"required,min=1"`
	Timeout       time.Duration `koanf:"timeout"         validate:"required,min=1s"`
	HalfOpenLimit int           `koanf:"half_open_limit" validate:"required,min=1"`
}

// TransportConfig contains HTTP transport pool settings.
type TransportConfig struct {
	MaxIdleConns        int           `koanf:"max_idle_conns"          validate:"required,min=1"`
	MaxIdleConnsPerHost int           `koanf:"max_idle_conns_per_host" validate:"required,min=1"`
	IdleConnTimeout     time.Duration `koanf:"idle_conn_timeout"       validate:"required,min=1s"`
}

// ServicesConfig contains configuration for downstream services.
type ServicesConfig struct {
	Quote ServiceEndpointConfig `koanf:"quote" validate:"required"`
}

// ServiceEndpointConfig describes the remote quote collection endpoint.
type ServiceEndpointConfig struct {
	BaseURL   string `koanf:"base_url"   validate:"required,url"`
	Name      string `koanf:"name"       validate:"required"`
	ReadPath  string `koanf:"read_path"  validate:"required,startswith=/"`
	WritePath string `koanf:"write_path" validate:"required,startswith=/"`
}

// StorageConfig selects and configures the durable key-value store.
type StorageConfig struct {
	Driver string `koanf:"driver" validate:"required,oneof=sqlite file memory"`
	Path   string `koanf:"path"   validate:"required_unless=Driver memory"`
}

// SessionConfig configures per-session state such as the last displayed quote.
type SessionConfig struct {
	TTL        time.Duration `koanf:"ttl"         validate:"required,min=1s"`
	Header     string        `koanf:"header"      validate:"required"`
	CookieName string        `koanf:"cookie_name" validate:"required"`
}

// SyncConfig configures periodic reconciliation with the remote collection.
type SyncConfig struct {
	Enabled  bool          `koanf:"enabled"`
	Interval time.Duration `koanf:"interval"  validate:"required,min=1s"`
	MaxItems int           `koanf:"max_items" validate:"min=0"`
	Category string        `koanf:"category"  validate:"required"`
}

// NotificationConfig configures the transient notification feed.
type NotificationConfig struct {
	TTL      time.Duration `koanf:"ttl"      validate:"required,min=100ms"`
	Capacity int           `koanf:"capacity" validate:"required,min=1,max=1000"`
}

// ImportConfig configures the drop-folder importer. An empty WatchDir disables it.
type ImportConfig struct {
	WatchDir string `koanf:"watch_dir"`
	MaxBytes int64  `koanf:"max_bytes" validate:"omitempty,min=1"`
}

type tree = map[string]any

// defaults is the bottom layer of Load: a configuration that runs on a
// laptop with no files and no environment.
func defaults() tree {
	return tree{
		"app": tree{"name": "quotebook", "version": "dev", "environment": "local"},
		"server": tree{
			"port":             DefaultServerPort,
			"host":             "0.0.0.0",
			"read_timeout":     "30s",
			"write_timeout":    "30s",
			"idle_timeout":     "2m",
			"shutdown_timeout": "10s",
			"request_timeout":  "30s",
			"max_request_size": DefaultMaxRequestSize,
		},
		"log": tree{
			"level":  "info",
			"format": "json",
			"file": tree{
				"enabled":     false,
				"path":        "./logs/quotebook.log",
				"max_size":    100,
				"max_backups": 3,
				"max_age":     28,
				"compress":    true,
			},
		},
		"telemetry": tree{"enabled": false, "endpoint": "", "service_name": "quotebook", "sampling_rate": 1.0},
		"client": tree{
			"timeout": "10s",
			"retry": tree{
				"max_attempts":     DefaultClientRetryMaxAttempts,
				"initial_interval": "100ms",
				"max_interval":     "5s",
				"multiplier":       2.0,
				"jitter_factor":    0.25,
			},
			"circuit_breaker": tree{
				"max_failures":    5,
				"timeout":         "30s",
				"half_open_limit": DefaultClientCircuitHalfOpenLimit,
			},
			"transport": tree{
				"max_idle_conns":          16,
				"max_idle_conns_per_host": 4,
				"idle_conn_timeout":       "90s",
			},
		},
		"services": tree{
			"quote": tree{
				"base_url":   "https://jsonplaceholder.typicode.com",
				"name":       "quote-api",
				"read_path":  "/posts",
				"write_path": "/posts",
			},
		},
		"storage":       tree{"driver": StorageDriverSQLite, "path": "./data/quotebook.db"},
		"session":       tree{"ttl": DefaultSessionTTL.String(), "header": "X-Session-ID", "cookie_name": "quotebook_session"},
		"notifications": tree{"ttl": DefaultNotificationTTL.String(), "capacity": DefaultNotificationCapacity},
		"sync": tree{
			"enabled":   true,
			"interval":  DefaultSyncInterval.String(),
			"max_items": DefaultSyncMaxItems,
			"category":  DefaultSyncCategory,
		},
		"import":   tree{"watch_dir": "", "max_bytes": DefaultMaxRequestSize},
		"features": tree{"import-deduplicate": false},
	}
}

// Load layers, lowest first: defaults, configs/base.yaml,
// configs/{profile}.yaml, then APP_* environment variables where "__"
// separates nesting (APP_SYNC__MAX_ITEMS sets sync.max_items). Missing files
// are skipped; unreadable or malformed ones fail the load.
func Load(profile string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), ""), nil); err != nil {
		return nil, fmt.Errorf("loading defaults: %w", err)
	}

	files := []string{"configs/base.yaml"}
	if profile != "" {
		files = append(files, filepath.Join("configs", profile+".yaml"))
	}

	for _, path := range files {
		if err := loadOptional(k, path); err != nil {
			return nil, fmt.Errorf("loading %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("APP_", ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading environment: %w", err)
	}

	cfg := new(Config)
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}

	return cfg, nil
}

func envKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(name, "APP_")), "__", ".")
}

func loadOptional(k *koanf.Koanf, path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return k.Load(file.Provider(path), yaml.Parser())
}
