package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/MikeSquared-Agency/Vantage/internal/api"
	"github.com/MikeSquared-Agency/Vantage/internal/broker"
	"github.com/MikeSquared-Agency/Vantage/internal/cache"
	"github.com/MikeSquared-Agency/Vantage/internal/config"
	"github.com/MikeSquared-Agency/Vantage/internal/dataset"
	"github.com/MikeSquared-Agency/Vantage/internal/hermes"
	"github.com/MikeSquared-Agency/Vantage/internal/insights"
	"github.com/MikeSquared-Agency/Vantage/internal/merchant"
	"github.com/MikeSquared-Agency/Vantage/internal/places"
	"github.com/MikeSquared-Agency/Vantage/internal/scouts"
	"github.com/MikeSquared-Agency/Vantage/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	envFile := flag.String("env", ".env", "path to .env file (ignored if missing)")
	flag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load %s: %v\n", *envFile, err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging, os.Stdout)
	slog.SetDefault(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Result store
	results, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		logger.Error("failed to open result store", "backend", cfg.Store.Backend, "error", err)
		os.Exit(1)
	}
	defer results.Close()
	logger.Info("result store ready", "backend", cfg.Store.Backend)

	// Spatial datasets, loaded once
	src, err := datasetSource(ctx, cfg.Datasets, logger)
	if err != nil {
		logger.Error("failed to configure dataset source", "error", err)
		os.Exit(1)
	}
	ds, err := dataset.Load(ctx, src, cfg.Datasets.PedestrianKey, cfg.Datasets.TransitKey, logger)
	if err != nil {
		logger.Error("failed to load datasets", "error", err)
		os.Exit(1)
	}

	// Lookup cache
	lookupCache, closeCache := openCache(ctx, cfg.Cache, logger)
	defer closeCache()

	// External lookups
	var placesClient places.Client
	if cfg.Places.APIKey != "" {
		opts := []places.Option{places.WithRateLimit(cfg.Places.RequestsPerSecond)}
		if cfg.Places.BaseURL != "" {
			opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
		}
		placesClient = places.NewCachedClient(places.NewHTTPClient(cfg.Places.APIKey, opts...), lookupCache, cfg.CacheTTL(), logger)
	} else {
		logger.Warn("places api key not configured, competitor analysis will see no competitors")
	}

	var merchantClient merchant.Client
	if cfg.Merchant.Enabled {
		var opts []merchant.Option
		if cfg.Merchant.BaseURL != "" {
			opts = append(opts, merchant.WithBaseURL(cfg.Merchant.BaseURL))
		}
		merchantClient = merchant.NewCachedClient(
			merchant.NewHTTPClient(cfg.Merchant.UserID, cfg.Merchant.Password, opts...),
			lookupCache, cfg.CacheTTL(), logger)
		logger.Info("merchant enrichment enabled")
	}

	// Hermes: NATS when configured, otherwise in-process
	var hermesClient hermes.Client
	if cfg.Hermes.URL != "" {
		hc, err := hermes.NewNATSClient(ctx, cfg.Hermes.URL, logger)
		if err != nil {
			logger.Error("failed to connect to hermes", "error", err)
			os.Exit(1)
		}
		hermesClient = hc
		logger.Info("connected to hermes")
	} else {
		hermesClient = hermes.NewLocalClient()
		logger.Info("using in-process message bus")
	}
	defer hermesClient.Close()

	// Scouts
	sc := scouts.New(hermesClient, scouts.Options{
		Datasets:             ds,
		Weights:              cfg.Pipeline.LocationWeights,
		Places:               placesClient,
		Merchant:             merchantClient,
		SearchRadiusMeters:   cfg.Places.RadiusMeters,
		MerchantRadiusMeters: cfg.Merchant.RadiusMeters,
		LookupTimeout:        cfg.LookupTimeout(),
	}, logger)
	if err := sc.SetupSubscriptions(); err != nil {
		logger.Error("failed to subscribe scouts", "error", err)
		os.Exit(1)
	}

	// Broker
	b := broker.New(results, hermesClient, cfg, logger)
	if err := b.SetupSubscriptions(); err != nil {
		logger.Error("failed to subscribe broker", "error", err)
		os.Exit(1)
	}
	b.Start(ctx)
	defer b.Stop()
	logger.Info("broker started", "analysis_timeout", cfg.AnalysisTimeout(), "sweep_interval", cfg.SweepInterval())

	// Insights
	var gen insights.Generator = insights.RuleGenerator{}
	if cfg.Insights.AnthropicAPIKey != "" {
		gen = insights.NewClaudeGenerator(cfg.Insights.AnthropicAPIKey, cfg.Insights.Model, cfg.Insights.MaxTokens, logger)
	}

	// API server
	router := api.NewRouter(results, b, api.Options{
		AdminToken:        cfg.Server.AdminToken,
		CORSOrigins:       cfg.Server.CORSOrigins,
		RequestsPerMinute: cfg.Server.RequestsPerMinute,
		AnalysisWait:      cfg.AnalysisTimeout() + cfg.SweepInterval(),
		Weights:           cfg.Pipeline.CompositeWeights,
		Insights:          gen,
	}, logger)
	apiServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// Metrics server
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.MetricsPort),
		Handler: api.NewMetricsRouter(),
	}

	go func() {
		logger.Info("API server starting", "port", cfg.Server.Port)
		if err := apiServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("API server error", "error", err)
		}
	}()

	go func() {
		logger.Info("metrics server starting", "port", cfg.Server.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = apiServer.Shutdown(shutdownCtx)
	_ = metricsServer.Shutdown(shutdownCtx)

	logger.Info("shutdown complete")
}

func newLogger(cfg config.LoggingConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (store.Store, error) {
	switch cfg.Backend {
	case "postgres":
		pg, err := store.NewPostgresStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := pg.Migrate(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		return pg, nil
	case "sqlite":
		lite, err := store.NewSQLiteStore(cfg.Path, logger)
		if err != nil {
			return nil, err
		}
		if err := lite.Migrate(ctx); err != nil {
			lite.Close()
			return nil, err
		}
		return lite, nil
	default:
		return store.NewFileStore(cfg.Path, logger), nil
	}
}

func datasetSource(ctx context.Context, cfg config.DatasetsConfig, logger *slog.Logger) (dataset.Source, error) {
	local := dataset.FileSource{Dir: cfg.Dir}
	if cfg.Source != "s3" {
		return local, nil
	}
	remote, err := dataset.NewS3Source(ctx, cfg.Region, cfg.Bucket, cfg.Prefix)
	if err != nil {
		return nil, err
	}
	return dataset.FallbackSource{Primary: remote, Fallback: local, Logger: logger}, nil
}

// openCache falls back to the memory cache when redis is unreachable.
func openCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (cache.Cache, func()) {
	memory := cache.NewMemoryCache(cfg.MaxEntries)
	if cfg.Backend != "redis" {
		return memory, func() {}
	}
	rc := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := rc.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using in-memory lookup cache", "addr", cfg.RedisAddr, "error", err)
		rc.Close()
		return memory, func() {}
	}
	logger.Info("connected to redis", "addr", cfg.RedisAddr)
	return rc, func() { rc.Close() }
}
