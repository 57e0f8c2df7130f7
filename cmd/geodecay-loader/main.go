// Command geodecay-loader bulk-loads places from parquet files into a
// geodecay collection.
//
// Usage:
//
//	geodecay-loader -data-dir ./data -collection places -workers 8
//
// Files must carry latitude and longitude columns; id, name and category are
// optional. Storage settings come from config/{ENV}.yaml like the server.
// A running server picks the documents up on restart or on
// POST /collections/{collection}/reload.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geodecay/internal/config"
	dbRedis "github.com/kailas-cloud/geodecay/internal/db/redis"
	logpkg "github.com/kailas-cloud/geodecay/internal/logger"
	collectionrepo "github.com/kailas-cloud/geodecay/internal/repository/collection"
	documentrepo "github.com/kailas-cloud/geodecay/internal/repository/document"
	"github.com/kailas-cloud/geodecay/internal/repository/keyspace"
	"github.com/kailas-cloud/geodecay/internal/version"
)

type flags struct {
	dataDir     string
	collection  string
	segmentSize int
	batchSize   int
	workers     int
	maxRows     int
	logEvery    int
	showVersion bool
}

func parseFlags() flags {
	var f flags
	flag.StringVar(&f.dataDir, "data-dir", "./data", "directory with *.parquet files")
	flag.StringVar(&f.collection, "collection", "places", "target collection")
	flag.IntVar(&f.segmentSize, "segment-size", 0, "segment size when the collection is created (0 = default)")
	flag.IntVar(&f.batchSize, "batch-size", 500, "documents per pipelined batch")
	flag.IntVar(&f.workers, "workers", 4, "batches written concurrently")
	flag.IntVar(&f.maxRows, "max-rows", 0, "stop after this many rows (0 = all)")
	flag.IntVar(&f.logEvery, "log-every", 100_000, "log progress every N rows")
	flag.BoolVar(&f.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return f
}

func main() {
	f := parseFlags()
	if f.showVersion {
		fmt.Println("geodecay-loader", version.String())
		return
	}

	_ = godotenv.Load(".env")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, f); err != nil {
		cancel()
		fmt.Fprintln(os.Stderr, "geodecay-loader:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, f flags) error {
	env := config.GetEnv()
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Database.Driver != config.DriverRedis {
		return fmt.Errorf("loader needs the %q driver, config has %q", config.DriverRedis, cfg.Database.Driver)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	files, err := listParquetFiles(f.dataDir)
	if err != nil {
		return err
	}
	logger.Info("Starting geodecay loader",
		zap.String("version", version.String()),
		zap.String("collection", f.collection),
		zap.Int("files", len(files)),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:      cfg.Database.Addrs,
		Username:   cfg.Database.Username,
		Password:   cfg.Database.Password,
		DB:         cfg.Database.DB,
		ClientName: "geodecay-loader",
	})
	if err != nil {
		return fmt.Errorf("create store: %w", err)
	}
	defer store.Close()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}

	keys := keyspace.New(cfg.Storage.KeyPrefix)
	segmentSize := f.segmentSize
	if segmentSize == 0 {
		segmentSize = cfg.Index.SegmentSize
	}
	in := newIngester(collectionrepo.New(store, keys), documentrepo.New(store, keys), ingestOptions{
		collection:  f.collection,
		segmentSize: segmentSize,
		batchSize:   f.batchSize,
		workers:     f.workers,
		maxRows:     f.maxRows,
		logEvery:    f.logEvery,
	}, logger)

	if err := in.run(ctx, files); err != nil {
		return err
	}
	logger.Info("Load finished",
		zap.Int64("written", in.stats.written.Load()),
		zap.Int64("skipped", in.stats.skipped.Load()),
	)
	return nil
}
