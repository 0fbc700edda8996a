// Package config defines service configuration and its loading.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers an optional YAML file and the environment over the defaults.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"fmt"
	"runtime"
	"strings"
	"time"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreBadger = "badger"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is json or pretty.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// ModelPath points at the trained artifact.
	ModelPath string `koanf:"model_path"`

	// CatalogPath is a JSON array of colleges used to seed the store.
	CatalogPath string `koanf:"catalog_path"`

	// StoreDriver selects the catalog store: memory or badger.
	StoreDriver string `koanf:"store_driver"`
	BadgerDir   string `koanf:"badger_dir"`

	// RedisURL enables the recommendation cache when set.
	RedisURL        string `koanf:"redis_url"`
	CacheTTLSeconds int    `koanf:"cache_ttl_seconds"`

	// BreakerMaxFailures consecutive cache failures open the breaker for
	// BreakerTimeoutSeconds.
	BreakerMaxFailures    int `koanf:"breaker_max_failures"`
	BreakerTimeoutSeconds int `koanf:"breaker_timeout_seconds"`

	// WorkerCount sets the number of batch prediction workers.
	WorkerCount int `koanf:"worker_count"`

	// QueueSize bounds the batch job queue.
	QueueSize int `koanf:"queue_size"`

	// MaxRecommendations caps the list returned over HTTP.
	MaxRecommendations int `koanf:"max_recommendations"`

	// MaxBatchSize caps POST /v1/predict/batch.
	MaxBatchSize int `koanf:"max_batch_size"`

	// CORSAllowedOrigins is a comma-separated list; "*" allows any origin.
	CORSAllowedOrigins string `koanf:"cors_allowed_origins"`

	// RateLimitRequests per RateLimitWindowSeconds per client IP. Zero disables.
	RateLimitRequests      int `koanf:"rate_limit_requests"`
	RateLimitWindowSeconds int `koanf:"rate_limit_window_seconds"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:               "info",
		LogFormat:              "json",
		Addr:                   ":9080",
		ModelPath:              "data/svm-prediction-model.json",
		CatalogPath:            "data/colleges.json",
		StoreDriver:            StoreMemory,
		BadgerDir:              "data/badger",
		CacheTTLSeconds:        600,
		BreakerMaxFailures:     5,
		BreakerTimeoutSeconds:  30,
		WorkerCount:            runtime.NumCPU(),
		QueueSize:              4096,
		MaxRecommendations:     50,
		MaxBatchSize:           500,
		CORSAllowedOrigins:     "*",
		RateLimitRequests:      300,
		RateLimitWindowSeconds: 60,
	}
}

// Origins splits CORSAllowedOrigins.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// CacheTTL returns the cache entry lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// BreakerTimeout returns how long an open breaker stays open.
func (c *Config) BreakerTimeout() time.Duration {
	return time.Duration(c.BreakerTimeoutSeconds) * time.Second
}

// RateLimitWindow returns the rate limiting window.
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case strings.TrimSpace(c.ModelPath) == "":
		return fmt.Errorf("%w: model_path must not be empty", ErrInvalidConfig)
	case c.MaxRecommendations <= 0:
		return fmt.Errorf("%w: max_recommendations must be positive", ErrInvalidConfig)
	case c.MaxBatchSize <= 0:
		return fmt.Errorf("%w: max_batch_size must be positive", ErrInvalidConfig)
	case c.StoreDriver != StoreMemory && c.StoreDriver != StoreBadger:
		return fmt.Errorf("%w: store_driver must be %q or %q", ErrInvalidConfig, StoreMemory, StoreBadger)
	case c.StoreDriver == StoreBadger && strings.TrimSpace(c.BadgerDir) == "":
		return fmt.Errorf("%w: badger_dir is required for the badger store", ErrInvalidConfig)
	case c.RateLimitRequests > 0 && c.RateLimitWindowSeconds <= 0:
		return fmt.Errorf("%w: rate_limit_window_seconds must be positive", ErrInvalidConfig)
	}
	return nil
}
