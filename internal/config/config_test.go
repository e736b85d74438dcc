package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Scraper.MaxConcurrent != 3 || cfg.Scraper.MaxFinishedJobs != 100 {
		t.Fatalf("unexpected scraper defaults: %+v", cfg.Scraper)
	}
	if cfg.MinDelay() != 2*time.Second || cfg.MaxDelay() != 5*time.Second {
		t.Fatalf("unexpected delay bounds: %v..%v", cfg.MinDelay(), cfg.MaxDelay())
	}
	if cfg.NavTimeout() != 10*time.Second {
		t.Fatalf("expected nav timeout 10s, got %v", cfg.NavTimeout())
	}
	if cfg.Images.MaxDimension != 1920 || cfg.Images.JPEGQuality != 85 {
		t.Fatalf("unexpected image defaults: %+v", cfg.Images)
	}
	if cfg.Storage.Provider != ProviderMemory || cfg.DB.Provider != ProviderMemory {
		t.Fatalf("expected memory providers by default")
	}
}

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
server:
  port: 9090
auth:
  enabled: true
  api_key: secret
scraper:
  max_concurrent: 5
  min_delay_seconds: 1
  max_delay_seconds: 3
  user_agent: scraper-agent
browser:
  headless: false
  max_parallel: 2
  nav_timeout_seconds: 20
images:
  enabled: false
storage:
  provider: local
  base_dir: /tmp/images
db:
  provider: postgres
  dsn: postgres://localhost/scraper
logging:
  development: false
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if !cfg.Auth.Enabled || cfg.Auth.APIKey != "secret" {
		t.Fatalf("expected auth enabled with secret key")
	}
	if cfg.Scraper.MaxConcurrent != 5 || cfg.Scraper.UserAgent != "scraper-agent" {
		t.Fatalf("expected scraper overrides to apply: %+v", cfg.Scraper)
	}
	if cfg.Browser.Headless || cfg.NavTimeout() != 20*time.Second {
		t.Fatalf("expected browser overrides to apply: %+v", cfg.Browser)
	}
	if cfg.Storage.Provider != ProviderLocal || cfg.Storage.BaseDir != "/tmp/images" {
		t.Fatalf("expected local storage config: %+v", cfg.Storage)
	}
	if cfg.DB.Provider != ProviderPostgres {
		t.Fatalf("expected postgres db config: %+v", cfg.DB)
	}
	if cfg.Logging.Development {
		t.Fatalf("expected production logging")
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Scraper: ScraperConfig{MaxConcurrent: 3, MinDelaySeconds: 2, MaxDelaySeconds: 5},
		Browser: BrowserConfig{Headless: true, MaxParallel: 3, NavTimeoutSec: 10},
		Storage: StorageConfig{Provider: ProviderMemory},
		DB:      DBConfig{Provider: ProviderMemory},
	}

	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "invalid port",
			cfg: func() Config {
				c := base
				c.Server.Port = 0
				return c
			}(),
			want: "server.port",
		},
		{
			name: "invalid concurrency",
			cfg: func() Config {
				c := base
				c.Scraper.MaxConcurrent = 0
				return c
			}(),
			want: "scraper.max_concurrent",
		},
		{
			name: "inverted delay bounds",
			cfg: func() Config {
				c := base
				c.Scraper.MinDelaySeconds = 5
				c.Scraper.MaxDelaySeconds = 2
				return c
			}(),
			want: "delay bounds",
		},
		{
			name: "browser missing max parallel",
			cfg: func() Config {
				c := base
				c.Browser.MaxParallel = 0
				return c
			}(),
			want: "browser.max_parallel",
		},
		{
			name: "local storage missing base dir",
			cfg: func() Config {
				c := base
				c.Storage.Provider = ProviderLocal
				return c
			}(),
			want: "storage.base_dir",
		},
		{
			name: "gcs storage missing bucket",
			cfg: func() Config {
				c := base
				c.Storage.Provider = ProviderGCS
				return c
			}(),
			want: "storage.gcs_bucket",
		},
		{
			name: "unknown storage provider",
			cfg: func() Config {
				c := base
				c.Storage.Provider = "s3"
				return c
			}(),
			want: "storage.provider",
		},
		{
			name: "postgres missing dsn",
			cfg: func() Config {
				c := base
				c.DB.Provider = ProviderPostgres
				return c
			}(),
			want: "db.dsn",
		},
		{
			name: "pubsub missing topic",
			cfg: func() Config {
				c := base
				c.PubSub.Enabled = true
				c.PubSub.ProjectID = "proj"
				return c
			}(),
			want: "pubsub",
		},
		{
			name: "auth missing api key",
			cfg: func() Config {
				c := base
				c.Auth.Enabled = true
				return c
			}(),
			want: "auth.api_key",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
