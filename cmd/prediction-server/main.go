package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ruslanbaba/battery-health-service/internal/cache"
	"github.com/ruslanbaba/battery-health-service/internal/config"
	"github.com/ruslanbaba/battery-health-service/internal/features"
	"github.com/ruslanbaba/battery-health-service/internal/health"
	"github.com/ruslanbaba/battery-health-service/internal/insight"
	"github.com/ruslanbaba/battery-health-service/internal/metrics"
	"github.com/ruslanbaba/battery-health-service/internal/model"
	"github.com/ruslanbaba/battery-health-service/internal/recommend"
	"github.com/ruslanbaba/battery-health-service/internal/server"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Initialize structured logging
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	// Initialize metrics
	metricsRegistry := prometheus.NewRegistry()
	metricsCollector := metrics.NewCollector()
	metricsRegistry.MustRegister(metricsCollector)

	ctx := context.Background()

	// Resolve the artifact store: Cloud Storage when a bucket is
	// configured, local directory otherwise.
	var store model.Store
	if cfg.Model.Bucket != "" {
		storageClient, err := storage.NewClient(ctx)
		if err != nil {
			logger.Fatal("Failed to create storage client", zap.Error(err))
		}
		defer storageClient.Close()

		store, err = model.NewGCSStore(ctx, storageClient, cfg.Model.Bucket, cfg.Model.Prefix, logger.Named("artifacts"))
		if err != nil {
			logger.Fatal("Failed to open artifact bucket", zap.Error(err))
		}
	} else {
		store = model.NewLocalStore(cfg.Model.Dir)
	}

	// Load the trained artifact once at startup. A missing or malformed
	// artifact refuses to serve rather than deferring the failure to the
	// first request.
	artifact, err := model.LoadArtifact(ctx, store, cfg.Model.MaxRUL, logger.Named("model"))
	if err != nil {
		logger.Fatal("Failed to load model artifact", zap.Error(err))
	}

	runtime, err := model.NewRuntime(artifact, logger.Named("inference"))
	if err != nil {
		logger.Fatal("Failed to build model runtime", zap.Error(err))
	}

	// Feature statistics: prefer the medians shipped with the artifact,
	// fall back to deriving them from the training dataset.
	stats := model.NewStatistics(artifact.Medians)
	if stats == nil && cfg.Model.DatasetPath != "" {
		stats, err = model.LoadStatisticsFromCSV(cfg.Model.DatasetPath, logger.Named("statistics"))
		if err != nil {
			logger.Fatal("Failed to derive feature statistics", zap.Error(err))
		}
	}
	if stats == nil {
		logger.Warn("No feature statistics available, engineered features outside the input mapping will fail requests")
	}

	preparer := features.NewPreparer(runtime.FeatureList(), stats, logger.Named("features"))
	converter := health.NewConverter(runtime.MaxRUL())

	// Optional shared Redis cache tier
	var redisClient *redis.Client
	if cfg.Cache.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("Redis unreachable, continuing with the in-memory cache only", zap.Error(err))
			redisClient = nil
		}
		cancel()
	}

	cacheService := cache.NewService(
		cache.Config{TTL: cfg.Cache.TTL, CleanupInterval: cfg.Cache.CleanupInterval},
		redisClient,
		logger.Named("cache"),
		metricsCollector,
	)

	cacheCtx, stopCache := context.WithCancel(ctx)
	defer stopCache()
	go cacheService.Start(cacheCtx)

	// Select the insight provider once from configuration
	var provider insight.Provider
	switch cfg.Insight.Provider {
	case insight.ProviderExternalLLM:
		provider = insight.NewExternalLLMProvider(insight.LLMConfig{
			APIKey:    cfg.Insight.APIKey,
			BaseURL:   cfg.Insight.BaseURL,
			ModelName: cfg.Insight.ModelName,
			Timeout:   cfg.Insight.Timeout,
		})
	case insight.ProviderLocalRule:
		provider = insight.NewLocalRuleProvider()
	default:
		provider = insight.Disabled{}
	}

	insightService := insight.NewService(provider, cacheService, logger.Named("insight"), metricsCollector)
	recommender := recommend.NewEngine(cacheService, logger.Named("recommend"))

	srv := server.New(
		runtime,
		preparer,
		converter,
		insightService,
		recommender,
		metricsRegistry,
		logger.Named("http"),
		metricsCollector,
		version,
	)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	go func() {
		logger.Info("Starting prediction server",
			zap.Int("port", cfg.Server.Port),
			zap.String("insight_provider", cfg.Insight.Provider),
			zap.String("version", version),
			zap.String("commit", commit),
			zap.String("date", date),
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to serve HTTP", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Forcing server shutdown", zap.Error(err))
		httpServer.Close()
	} else {
		logger.Info("Server stopped gracefully")
	}
}
