package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/Vantage/internal/scoring"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Hermes   HermesConfig   `yaml:"hermes"`
	Store    StoreConfig    `yaml:"store"`
	Datasets DatasetsConfig `yaml:"datasets"`
	Places   PlacesConfig   `yaml:"places"`
	Merchant MerchantConfig `yaml:"merchant"`
	Cache    CacheConfig    `yaml:"cache"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Insights InsightsConfig `yaml:"insights"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Port        int      `yaml:"port"`
	MetricsPort int      `yaml:"metrics_port"`
	AdminToken  string   `yaml:"admin_token"`
	CORSOrigins []string `yaml:"cors_origins"`

	// RequestsPerMinute is per remote address; 0 disables limiting.
	RequestsPerMinute int `yaml:"requests_per_minute"`
}

// HermesConfig selects the message bus. An empty URL runs the pipeline on
// an in-process bus.
type HermesConfig struct {
	URL string `yaml:"url"`
}

type StoreConfig struct {
	Backend     string `yaml:"backend"` // file, postgres or sqlite
	Path        string `yaml:"path"`
	DatabaseURL string `yaml:"database_url"`
}

type DatasetsConfig struct {
	Source        string `yaml:"source"` // file or s3
	Dir           string `yaml:"dir"`
	PedestrianKey string `yaml:"pedestrian_key"`
	TransitKey    string `yaml:"transit_key"`
	Bucket        string `yaml:"bucket"`
	Prefix        string `yaml:"prefix"`
	Region        string `yaml:"region"`
}

type PlacesConfig struct {
	APIKey            string  `yaml:"api_key"`
	BaseURL           string  `yaml:"base_url"`
	RadiusMeters      int     `yaml:"radius_meters"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type MerchantConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BaseURL      string `yaml:"base_url"`
	UserID       string `yaml:"user_id"`
	Password     string `yaml:"password"`
	RadiusMeters int    `yaml:"radius_meters"`
}

type CacheConfig struct {
	Backend       string `yaml:"backend"` // memory or redis
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	TTLSeconds    int    `yaml:"ttl_seconds"`
	MaxEntries    int    `yaml:"max_entries"`
}

type PipelineConfig struct {
	AnalysisTimeoutMs int                      `yaml:"analysis_timeout_ms"`
	SweepIntervalMs   int                      `yaml:"sweep_interval_ms"`
	LookupTimeoutMs   int                      `yaml:"lookup_timeout_ms"`
	LocationWeights   scoring.LocationWeights  `yaml:"location_weights"`
	CompositeWeights  scoring.CompositeWeights `yaml:"composite_weights"`
}

type InsightsConfig struct {
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	Model           string `yaml:"model"`
	MaxTokens       int    `yaml:"max_tokens"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func (c *Config) AnalysisTimeout() time.Duration {
	return time.Duration(c.Pipeline.AnalysisTimeoutMs) * time.Millisecond
}

func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.Pipeline.SweepIntervalMs) * time.Millisecond
}

func (c *Config) LookupTimeout() time.Duration {
	return time.Duration(c.Pipeline.LookupTimeoutMs) * time.Millisecond
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// Defaults returns the configuration used when no file or environment
// overrides are present.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8700,
			MetricsPort:       8701,
			CORSOrigins:       []string{"http://localhost:3000"},
			RequestsPerMinute: 120,
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    "data/results.json",
		},
		Datasets: DatasetsConfig{
			Source:        "file",
			Dir:           "data",
			PedestrianKey: "pedestrian_counts.json",
			TransitKey:    "subway_stations.json",
			Region:        "us-east-1",
		},
		Places: PlacesConfig{
			RadiusMeters:      scoring.DefaultSearchRadiusMeters,
			RequestsPerSecond: 5,
		},
		Merchant: MerchantConfig{
			RadiusMeters: 500,
		},
		Cache: CacheConfig{
			Backend:    "memory",
			RedisAddr:  "localhost:6379",
			TTLSeconds: 86400,
			MaxEntries: 1024,
		},
		Pipeline: PipelineConfig{
			AnalysisTimeoutMs: 60000,
			SweepIntervalMs:   5000,
			LookupTimeoutMs:   15000,
			LocationWeights:   scoring.DefaultLocationWeights(),
			CompositeWeights:  scoring.DefaultCompositeWeights(),
		},
		Insights: InsightsConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 1500,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	switch c.Store.Backend {
	case "file":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the file backend"))
		}
	case "sqlite":
		if c.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for the sqlite backend"))
		}
	case "postgres":
		if c.Store.DatabaseURL == "" {
			errs = append(errs, errors.New("store.database_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}
	switch c.Datasets.Source {
	case "file":
	case "s3":
		if c.Datasets.Bucket == "" {
			errs = append(errs, errors.New("datasets.bucket is required for the s3 source"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown dataset source %q", c.Datasets.Source))
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown cache backend %q", c.Cache.Backend))
	}
	if c.Pipeline.AnalysisTimeoutMs <= 0 {
		errs = append(errs, errors.New("pipeline.analysis_timeout_ms must be positive"))
	}
	if c.Pipeline.SweepIntervalMs <= 0 {
		errs = append(errs, errors.New("pipeline.sweep_interval_ms must be positive"))
	}
	if err := c.Pipeline.LocationWeights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.location_weights: %w", err))
	}
	if err := c.Pipeline.CompositeWeights.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("pipeline.composite_weights: %w", err))
	}
	return errors.Join(errs...)
}

func applyEnv(cfg *Config) {
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}

	setInt("VANTAGE_PORT", &cfg.Server.Port)
	setInt("VANTAGE_METRICS_PORT", &cfg.Server.MetricsPort)
	setString("VANTAGE_ADMIN_TOKEN", &cfg.Server.AdminToken)
	if v := os.Getenv("VANTAGE_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	setString("VANTAGE_HERMES_URL", &cfg.Hermes.URL)

	setString("VANTAGE_STORE_BACKEND", &cfg.Store.Backend)
	setString("VANTAGE_STORE_PATH", &cfg.Store.Path)
	setString("VANTAGE_DATABASE_URL", &cfg.Store.DatabaseURL)

	setString("VANTAGE_DATASETS_SOURCE", &cfg.Datasets.Source)
	setString("VANTAGE_DATASETS_DIR", &cfg.Datasets.Dir)
	setString("VANTAGE_DATASETS_BUCKET", &cfg.Datasets.Bucket)
	setString("VANTAGE_DATASETS_REGION", &cfg.Datasets.Region)

	setString("VANTAGE_PLACES_API_KEY", &cfg.Places.APIKey)
	setString("VANTAGE_PLACES_BASE_URL", &cfg.Places.BaseURL)

	if v := os.Getenv("VANTAGE_MERCHANT_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Merchant.Enabled = b
		}
	}
	setString("VANTAGE_MERCHANT_USER_ID", &cfg.Merchant.UserID)
	setString("VANTAGE_MERCHANT_PASSWORD", &cfg.Merchant.Password)

	setString("VANTAGE_CACHE_BACKEND", &cfg.Cache.Backend)
	setString("VANTAGE_REDIS_ADDR", &cfg.Cache.RedisAddr)
	setString("VANTAGE_REDIS_PASSWORD", &cfg.Cache.RedisPassword)
	setInt("VANTAGE_CACHE_TTL_SECONDS", &cfg.Cache.TTLSeconds)

	setInt("VANTAGE_ANALYSIS_TIMEOUT_MS", &cfg.Pipeline.AnalysisTimeoutMs)
	setInt("VANTAGE_SWEEP_INTERVAL_MS", &cfg.Pipeline.SweepIntervalMs)

	setString("VANTAGE_ANTHROPIC_API_KEY", &cfg.Insights.AnthropicAPIKey)
	setString("VANTAGE_INSIGHTS_MODEL", &cfg.Insights.Model)

	setString("VANTAGE_LOG_LEVEL", &cfg.Logging.Level)
	setString("VANTAGE_LOG_FORMAT", &cfg.Logging.Format)
}
