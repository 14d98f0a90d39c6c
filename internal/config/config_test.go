package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var envVars = []string{
	"VANTAGE_PORT", "VANTAGE_METRICS_PORT", "VANTAGE_ADMIN_TOKEN", "VANTAGE_CORS_ORIGINS",
	"VANTAGE_HERMES_URL", "VANTAGE_STORE_BACKEND", "VANTAGE_STORE_PATH", "VANTAGE_DATABASE_URL",
	"VANTAGE_DATASETS_SOURCE", "VANTAGE_DATASETS_DIR", "VANTAGE_DATASETS_BUCKET", "VANTAGE_DATASETS_REGION",
	"VANTAGE_PLACES_API_KEY", "VANTAGE_PLACES_BASE_URL", "VANTAGE_MERCHANT_ENABLED",
	"VANTAGE_MERCHANT_USER_ID", "VANTAGE_MERCHANT_PASSWORD", "VANTAGE_CACHE_BACKEND",
	"VANTAGE_REDIS_ADDR", "VANTAGE_REDIS_PASSWORD", "VANTAGE_CACHE_TTL_SECONDS",
	"VANTAGE_ANALYSIS_TIMEOUT_MS", "VANTAGE_SWEEP_INTERVAL_MS", "VANTAGE_ANTHROPIC_API_KEY",
	"VANTAGE_INSIGHTS_MODEL", "VANTAGE_LOG_LEVEL", "VANTAGE_LOG_FORMAT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8700 {
		t.Errorf("expected port 8700, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected metrics port 8701, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Hermes.URL != "" {
		t.Errorf("expected in-process bus by default, got %s", cfg.Hermes.URL)
	}
	if cfg.Store.Backend != "file" || cfg.Store.Path != "data/results.json" {
		t.Errorf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Cache.Backend != "memory" || cfg.Cache.MaxEntries != 1024 {
		t.Errorf("unexpected cache defaults: %+v", cfg.Cache)
	}
	if cfg.Places.RadiusMeters != 1000 {
		t.Errorf("expected places radius 1000, got %d", cfg.Places.RadiusMeters)
	}
	if cfg.Merchant.Enabled {
		t.Error("expected merchant enrichment disabled by default")
	}

	lw := cfg.Pipeline.LocationWeights
	if lw.FootTraffic != 0.40 || lw.Transit != 0.60 {
		t.Errorf("unexpected location weights: %+v", lw)
	}
	cw := cfg.Pipeline.CompositeWeights
	if cw.Location != 0.40 || cw.Competitor != 0.30 || cw.Revenue != 0.30 {
		t.Errorf("unexpected composite weights: %+v", cw)
	}

	// Duration helpers
	if cfg.AnalysisTimeout() != time.Minute {
		t.Errorf("expected AnalysisTimeout 1m, got %v", cfg.AnalysisTimeout())
	}
	if cfg.SweepInterval() != 5*time.Second {
		t.Errorf("expected SweepInterval 5s, got %v", cfg.SweepInterval())
	}
	if cfg.LookupTimeout() != 15*time.Second {
		t.Errorf("expected LookupTimeout 15s, got %v", cfg.LookupTimeout())
	}
	if cfg.CacheTTL() != 24*time.Hour {
		t.Errorf("expected CacheTTL 24h, got %v", cfg.CacheTTL())
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("unexpected logging defaults: %+v", cfg.Logging)
	}
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("VANTAGE_PORT", "9000")
	t.Setenv("VANTAGE_ADMIN_TOKEN", "secret-token")
	t.Setenv("VANTAGE_CORS_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("VANTAGE_HERMES_URL", "nats://nats:4222")
	t.Setenv("VANTAGE_STORE_BACKEND", "postgres")
	t.Setenv("VANTAGE_DATABASE_URL", "postgres://localhost/vantage_test")
	t.Setenv("VANTAGE_MERCHANT_ENABLED", "true")
	t.Setenv("VANTAGE_CACHE_BACKEND", "redis")
	t.Setenv("VANTAGE_ANALYSIS_TIMEOUT_MS", "2000")
	t.Setenv("VANTAGE_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.AdminToken != "secret-token" {
		t.Errorf("expected admin token, got '%s'", cfg.Server.AdminToken)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "https://b.example" {
		t.Errorf("unexpected cors origins: %v", cfg.Server.CORSOrigins)
	}
	if cfg.Hermes.URL != "nats://nats:4222" {
		t.Errorf("expected hermes URL, got '%s'", cfg.Hermes.URL)
	}
	if cfg.Store.Backend != "postgres" || cfg.Store.DatabaseURL != "postgres://localhost/vantage_test" {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if !cfg.Merchant.Enabled {
		t.Error("expected merchant enabled")
	}
	if cfg.Cache.Backend != "redis" {
		t.Errorf("expected redis cache, got %s", cfg.Cache.Backend)
	}
	if cfg.AnalysisTimeout() != 2*time.Second {
		t.Errorf("expected AnalysisTimeout 2s, got %v", cfg.AnalysisTimeout())
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level 'debug', got '%s'", cfg.Logging.Level)
	}
}

func TestLoadFromFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "vantage.yaml")
	yml := `
server:
  port: 8800
store:
  backend: sqlite
  path: /tmp/vantage.db
pipeline:
  composite_weights:
    location: 0.5
    competitor: 0.25
    revenue: 0.25
`
	if err := os.WriteFile(path, []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Port != 8800 {
		t.Errorf("expected port 8800, got %d", cfg.Server.Port)
	}
	if cfg.Server.MetricsPort != 8701 {
		t.Errorf("expected default metrics port to survive, got %d", cfg.Server.MetricsPort)
	}
	if cfg.Store.Backend != "sqlite" {
		t.Errorf("expected sqlite backend, got %s", cfg.Store.Backend)
	}
	if cfg.Pipeline.CompositeWeights.Location != 0.5 {
		t.Errorf("expected location weight 0.5, got %f", cfg.Pipeline.CompositeWeights.Location)
	}
	if cfg.Pipeline.LocationWeights.Transit != 0.60 {
		t.Errorf("expected default transit weight, got %f", cfg.Pipeline.LocationWeights.Transit)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearEnv(t)
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"unknown store", func(c *Config) { c.Store.Backend = "mongo" }, "unknown store backend"},
		{"postgres without url", func(c *Config) { c.Store.Backend = "postgres" }, "database_url"},
		{"s3 without bucket", func(c *Config) { c.Datasets.Source = "s3" }, "datasets.bucket"},
		{"unknown cache", func(c *Config) { c.Cache.Backend = "memcached" }, "unknown cache backend"},
		{"zero timeout", func(c *Config) { c.Pipeline.AnalysisTimeoutMs = 0 }, "analysis_timeout_ms"},
		{"bad weights", func(c *Config) { c.Pipeline.CompositeWeights.Revenue = 0.5 }, "composite_weights"},
		{"negative weight", func(c *Config) {
			c.Pipeline.LocationWeights.FootTraffic = -0.2
			c.Pipeline.LocationWeights.Transit = 1.2
		}, "negative"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
