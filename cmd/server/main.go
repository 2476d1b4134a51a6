// cmd/server/main.go
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"compliance-agent/internal/clients/exa"
	"compliance-agent/internal/clients/gemini"
	"compliance-agent/internal/common/auth"
	"compliance-agent/internal/common/config"
	"compliance-agent/internal/common/database"
	"compliance-agent/internal/common/health"
	commonhttp "compliance-agent/internal/common/http"
	"compliance-agent/internal/common/logger"
	"compliance-agent/internal/common/observability"
	"compliance-agent/internal/common/ratelimit"
	"compliance-agent/internal/compliance"
	"compliance-agent/internal/history"
	"compliance-agent/internal/knowledge"
	"compliance-agent/internal/notify"
	"compliance-agent/internal/pipeline"
	"compliance-agent/internal/server"
	"compliance-agent/internal/stages/contentgen"
	"compliance-agent/internal/stages/factcheck"
	"compliance-agent/internal/stages/ragsearch"
	"compliance-agent/internal/stages/reflection"
	"compliance-agent/internal/stages/review"
	"compliance-agent/internal/stages/topic"
	"compliance-agent/internal/templates"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting compliance agent",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		Enabled:        cfg.Tracing.Enabled,
		ServiceName:    cfg.App.Name,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
	})
	if err != nil {
		zapLog.Fatal("tracing init failed", zap.Error(err))
	}

	ctx := context.Background()
	tracker := health.NewTracker()

	// Postgres and Elasticsearch back query history. Both are
	// optional: the API stays up without them.
	var db *sql.DB
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Warn("postgres unavailable, query history disabled", zap.Error(err))
		tracker.SetUnavailable("postgres", err)
	} else {
		db = pg.DB
		defer pg.Close()
		tracker.SetAvailable("postgres")
		zapLog.Info("PostgreSQL connected successfully")
	}

	var indexer history.Indexer
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		return esClient.Ping()
	}, 5, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Warn("elasticsearch unavailable, search indexing disabled", zap.Error(err))
		tracker.SetUnavailable("elasticsearch", err)
	} else {
		indexer = esClient
		tracker.SetAvailable("elasticsearch")
		zapLog.Info("Elasticsearch connected successfully")
	}

	// Redis backs the rate limiter when configured; without it the
	// limiter degrades to per-replica in-memory counting.
	var limiter server.RateLimiter
	if cfg.RateLimit.Enabled {
		window := config.GetDuration(cfg.RateLimit.WindowSec * 1000)
		if cfg.Database.Redis.Address != "" {
			var redisClient *database.RedisClient
			err = retryWithBackoff(func() error {
				var err error
				redisClient, err = database.NewRedis(cfg.Database.Redis)
				if err != nil {
					return err
				}
				return redisClient.Ping(ctx)
			}, 10, 2*time.Second, zapLog, "Redis connection")
			if err != nil {
				zapLog.Warn("redis unavailable, rate limiting falls back to in-memory", zap.Error(err))
				tracker.SetUnavailable("redis", err)
				limiter = ratelimit.NewMemoryLimiter(window)
			} else {
				defer redisClient.Close()
				tracker.SetAvailable("redis")
				limiter = ratelimit.NewLimiter(redisClient.GetClient(), window)
				zapLog.Info("Redis connected successfully")
			}
		} else {
			limiter = ratelimit.NewMemoryLimiter(window)
		}
	}

	// --- External clients ---
	geminiClient := gemini.NewClient(cfg.APIs.Gemini, tracker, log)
	exaClient := exa.NewClient(cfg.APIs.Exa, commonhttp.NewClient(config.GetDuration(cfg.APIs.Exa.Timeout)), log)

	notifier, err := notify.NewNotifier(ctx, cfg.Notifications, log)
	if err != nil {
		zapLog.Fatal("notifier init failed", zap.Error(err))
	}

	// --- Domain wiring ---
	store := knowledge.NewStore()

	renderer, err := templates.NewRenderer()
	if err != nil {
		zapLog.Fatal("template init failed", zap.Error(err))
	}

	runner := pipeline.NewRunner(
		topic.NewHandler(geminiClient, exaClient, renderer, log),
		ragsearch.NewHandler(store, exaClient, cfg.Pipeline.MaxSearchHits, cfg.Pipeline.MaxCrawlURLs, log),
		factcheck.NewHandler(geminiClient, exaClient, renderer, log),
		contentgen.NewHandler(geminiClient, exaClient, renderer, log),
		review.NewHandler(geminiClient, renderer, log),
		reflection.NewHandler(geminiClient, renderer, log),
		obs,
		renderer,
		config.GetDuration(cfg.Pipeline.OverallTimeout),
		log,
	)

	srv := server.New(server.Dependencies{
		Config:    cfg,
		Analyzer:  compliance.NewAnalyzer(store, exaClient, geminiClient, log),
		Pipeline:  runner,
		Knowledge: store,
		Tools:     compliance.NewRegistry(store),
		History:   history.NewStore(db, indexer, log),
		Notifier:  notifier,
		Verifier:  auth.NewVerifier(cfg.Auth.APIKeyHash, db),
		Limiter:   limiter,
		Health:    tracker,
		Logger:    log,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      srv.Handler(),
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("http shutdown failed", zap.Error(err))
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		zapLog.Error("tracing shutdown failed", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
