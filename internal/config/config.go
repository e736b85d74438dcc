// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage and persistence provider names accepted in config.
const (
	ProviderMemory   = "memory"
	ProviderLocal    = "local"
	ProviderGCS      = "gcs"
	ProviderPostgres = "postgres"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Scraper ScraperConfig `mapstructure:"scraper"`
	Browser BrowserConfig `mapstructure:"browser"`
	Images  ImagesConfig  `mapstructure:"images"`
	Storage StorageConfig `mapstructure:"storage"`
	DB      DBConfig      `mapstructure:"db"`
	PubSub  PubSubConfig  `mapstructure:"pubsub"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// ScraperConfig governs job execution and request pacing.
type ScraperConfig struct {
	MaxConcurrent   int     `mapstructure:"max_concurrent"`
	MaxFinishedJobs int     `mapstructure:"max_finished_jobs"`
	MinDelaySeconds float64 `mapstructure:"min_delay_seconds"`
	MaxDelaySeconds float64 `mapstructure:"max_delay_seconds"`
	MaxRetries      int     `mapstructure:"max_retries"`
	RetryBackoff    float64 `mapstructure:"retry_backoff"`
	UserAgent       string  `mapstructure:"user_agent"`
	Topic           string  `mapstructure:"topic"`
}

// BrowserConfig configures the headless rendering subsystem.
type BrowserConfig struct {
	Headless      bool `mapstructure:"headless"`
	MaxParallel   int  `mapstructure:"max_parallel"`
	NavTimeoutSec int  `mapstructure:"nav_timeout_seconds"`
}

// ImagesConfig controls image download and normalization.
type ImagesConfig struct {
	Enabled         bool    `mapstructure:"enabled"`
	MaxDimension    int     `mapstructure:"max_dimension"`
	JPEGQuality     int     `mapstructure:"jpeg_quality"`
	FetchTimeoutSec int     `mapstructure:"fetch_timeout_seconds"`
	PerHostRPS      float64 `mapstructure:"per_host_rps"`
}

// StorageConfig selects and parameterizes the image blob store.
type StorageConfig struct {
	Provider  string `mapstructure:"provider"`
	BaseDir   string `mapstructure:"base_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

// DBConfig selects and parameterizes post persistence.
type DBConfig struct {
	Provider string `mapstructure:"provider"`
	DSN      string `mapstructure:"dsn"`
	Table    string `mapstructure:"table"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// PubSubConfig holds metadata for job completion notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SCRAPER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("scraper.max_concurrent", 3)
	v.SetDefault("scraper.max_finished_jobs", 100)
	v.SetDefault("scraper.min_delay_seconds", 2)
	v.SetDefault("scraper.max_delay_seconds", 5)
	v.SetDefault("scraper.max_retries", 3)
	v.SetDefault("scraper.retry_backoff", 2.0)
	v.SetDefault("scraper.user_agent", "naver-blog-scraper/0.1")
	v.SetDefault("scraper.topic", "scrape-jobs")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.max_parallel", 3)
	v.SetDefault("browser.nav_timeout_seconds", 10)
	v.SetDefault("images.enabled", true)
	v.SetDefault("images.max_dimension", 1920)
	v.SetDefault("images.jpeg_quality", 85)
	v.SetDefault("images.fetch_timeout_seconds", 10)
	v.SetDefault("images.per_host_rps", 4)
	v.SetDefault("storage.provider", ProviderMemory)
	v.SetDefault("db.provider", ProviderMemory)
	v.SetDefault("db.table", "posts")
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Scraper.MaxConcurrent <= 0 {
		return fmt.Errorf("scraper.max_concurrent must be > 0")
	}
	if c.Scraper.MinDelaySeconds < 0 || c.Scraper.MaxDelaySeconds < c.Scraper.MinDelaySeconds {
		return fmt.Errorf("scraper delay bounds must satisfy 0 <= min <= max")
	}
	if c.Browser.MaxParallel <= 0 {
		return fmt.Errorf("browser.max_parallel must be > 0")
	}
	if c.Browser.NavTimeoutSec <= 0 {
		return fmt.Errorf("browser.nav_timeout_seconds must be > 0")
	}
	switch c.Storage.Provider {
	case ProviderMemory:
	case ProviderLocal:
		if c.Storage.BaseDir == "" {
			return fmt.Errorf("storage.base_dir must be set for the local provider")
		}
	case ProviderGCS:
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("storage.gcs_bucket must be set for the gcs provider")
		}
	default:
		return fmt.Errorf("unknown storage.provider %q", c.Storage.Provider)
	}
	switch c.DB.Provider {
	case ProviderMemory:
	case ProviderPostgres:
		if c.DB.DSN == "" {
			return fmt.Errorf("db.dsn must be set for the postgres provider")
		}
	default:
		return fmt.Errorf("unknown db.provider %q", c.DB.Provider)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.TopicName == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic_name must be set when pubsub is enabled")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	return nil
}

// MinDelay returns the lower pacing bound as a duration.
func (c Config) MinDelay() time.Duration {
	return time.Duration(c.Scraper.MinDelaySeconds * float64(time.Second))
}

// MaxDelay returns the upper pacing bound as a duration.
func (c Config) MaxDelay() time.Duration {
	return time.Duration(c.Scraper.MaxDelaySeconds * float64(time.Second))
}

// NavTimeout returns the per-navigation timeout as a duration.
func (c Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSec) * time.Second
}

// ImageFetchTimeout returns the per-image timeout as a duration.
func (c Config) ImageFetchTimeout() time.Duration {
	return time.Duration(c.Images.FetchTimeoutSec) * time.Second
}
