package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geodecay/internal/config"
	"github.com/kailas-cloud/geodecay/internal/db"
	"github.com/kailas-cloud/geodecay/internal/db/memory"
	dbRedis "github.com/kailas-cloud/geodecay/internal/db/redis"
	"github.com/kailas-cloud/geodecay/internal/index"
	logpkg "github.com/kailas-cloud/geodecay/internal/logger"
	"github.com/kailas-cloud/geodecay/internal/metrics"
	collectionrepo "github.com/kailas-cloud/geodecay/internal/repository/collection"
	documentrepo "github.com/kailas-cloud/geodecay/internal/repository/document"
	"github.com/kailas-cloud/geodecay/internal/repository/keyspace"
	"github.com/kailas-cloud/geodecay/internal/repository/resultcache"
	"github.com/kailas-cloud/geodecay/internal/tracing"
	chiTransport "github.com/kailas-cloud/geodecay/internal/transport/chi"
	batchuc "github.com/kailas-cloud/geodecay/internal/usecase/batch"
	collectionuc "github.com/kailas-cloud/geodecay/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/geodecay/internal/usecase/document"
	healthuc "github.com/kailas-cloud/geodecay/internal/usecase/health"
	searchuc "github.com/kailas-cloud/geodecay/internal/usecase/search"
	"github.com/kailas-cloud/geodecay/internal/version"
)

const (
	restoreRetryMin = 500 * time.Millisecond
	restoreRetryMax = 30 * time.Second
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load(".env")

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting geodecay API server",
		zap.String("version", version.String()),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Metrics are registered explicitly (no init()).
	metrics.RegisterHTTPMetrics()
	metrics.RegisterSearchMetrics()

	tp, err := tracing.NewProvider(tracing.Config{
		Enabled:      cfg.Tracing.Enabled,
		ServiceName:  "geodecay",
		Version:      version.Version,
		Environment:  env,
		Endpoint:     cfg.Tracing.Endpoint,
		SamplingRate: cfg.Tracing.SamplingRate,
		Insecure:     cfg.Tracing.Insecure,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to create tracing provider", zap.Error(err))
	}

	keys := keyspace.New(cfg.Storage.KeyPrefix)
	collRepo := collectionrepo.New(store, keys)
	docRepo := documentrepo.New(store, keys)

	// Pass a nil interface (not a typed nil pointer) when caching is off.
	var cache searchuc.ResultCache
	if cfg.Search.CacheTTLSec > 0 {
		cache = resultcache.New(store, keys,
			time.Duration(cfg.Search.CacheTTLSec)*time.Second, metrics.ResultCacheTotal, logger)
	}

	indexes := index.NewRegistry(cfg.Index.SearchWorkers)
	collSvc := collectionuc.New(collRepo, docRepo, indexes, logger).
		WithDefaultSegmentSize(cfg.Index.SegmentSize)
	docSvc := documentuc.New(docRepo, collSvc)
	searchSvc := searchuc.New(collSvc, cache).
		WithSizeLimits(cfg.Search.DefaultSize, cfg.Search.MaxSize)
	batchSvc := batchuc.New(docRepo, docRepo, collSvc).
		WithMaxBatchSize(cfg.Index.MaxBatchSize)
	healthSvc := healthuc.New(store, collSvc)

	server := chiTransport.NewServer(collSvc, docSvc, searchSvc, batchSvc, healthSvc)
	router := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:      cfg.Auth.APIKeys,
		MaxBodyBytes: int64(cfg.HTTP.MaxBodyBytes),
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Indexes are rebuilt while the server already answers /health with 503.
	restoreCtx, stopRestore := context.WithCancel(ctx)
	defer stopRestore()
	go func() {
		start := time.Now()
		if err := collSvc.RestoreWithRetry(restoreCtx, restoreRetryMin, restoreRetryMax); err != nil {
			logger.Error("Failed to restore indexes", zap.Error(err))
			return
		}
		logger.Info("Indexes restored",
			zap.Strings("collections", indexes.Names()),
			zap.Duration("took", time.Since(start)),
		)
	}()

	<-quit
	logger.Info("Received shutdown signal")
	stopRestore()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error flushing traces", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverRedis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.Addrs,
			Username:   cfg.Username,
			Password:   cfg.Password,
			DB:         cfg.DB,
			ClientName: "geodecay",
		})
		if err != nil {
			return nil, fmt.Errorf("redis store: %w", err)
		}
		return s, nil
	case config.DriverMemory:
		s, err := memory.NewStore()
		if err != nil {
			return nil, fmt.Errorf("memory store: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}
