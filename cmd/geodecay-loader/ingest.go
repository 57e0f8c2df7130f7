package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/geodecay/internal/domain"
	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	"github.com/kailas-cloud/geodecay/internal/domain/collection/field"
	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

// Collection schema written by the loader.
const (
	locationField = "location"
	nameField     = "name"
	categoryField = "category"
)

type collectionStore interface {
	Create(ctx context.Context, col domcol.Collection) error
	Get(ctx context.Context, name string) (domcol.Collection, error)
}

type bulkWriter interface {
	BatchUpsert(ctx context.Context, collectionName string, docs []domdoc.Document) ([]domdoc.Document, []bool, error)
}

type ingestOptions struct {
	collection  string
	segmentSize int
	batchSize   int
	workers     int
	maxRows     int
	logEvery    int
}

type ingestStats struct {
	read    atomic.Int64
	written atomic.Int64
	created atomic.Int64
	skipped atomic.Int64
}

type ingester struct {
	cols   collectionStore
	docs   bulkWriter
	opts   ingestOptions
	logger *zap.Logger
	stats  ingestStats
}

func newIngester(cols collectionStore, docs bulkWriter, opts ingestOptions, logger *zap.Logger) *ingester {
	if opts.batchSize <= 0 {
		opts.batchSize = 100
	}
	if opts.workers <= 0 {
		opts.workers = 1
	}
	return &ingester{cols: cols, docs: docs, opts: opts, logger: logger}
}

func placesSchema() []field.Field {
	return []field.Field{
		field.Reconstruct(locationField, field.GeoPoint),
		field.Reconstruct(nameField, field.Tag),
		field.Reconstruct(categoryField, field.Tag),
	}
}

// ensureCollection creates the target collection, or checks that an existing
// one can hold places.
func (in *ingester) ensureCollection(ctx context.Context) error {
	col, err := domcol.New(in.opts.collection, placesSchema(), in.opts.segmentSize)
	if err != nil {
		return fmt.Errorf("collection %q: %w", in.opts.collection, err)
	}
	err = in.cols.Create(ctx, col)
	if err == nil {
		in.logger.Info("collection created", zap.String("collection", col.Name()))
		return nil
	}
	if !errors.Is(err, domain.ErrAlreadyExists) {
		return fmt.Errorf("create collection: %w", err)
	}

	existing, err := in.cols.Get(ctx, in.opts.collection)
	if err != nil {
		return fmt.Errorf("get collection: %w", err)
	}
	for _, f := range placesSchema() {
		if !existing.HasField(f.Name(), f.FieldType()) {
			return fmt.Errorf("collection %q has no %s field %q: %w",
				existing.Name(), f.FieldType(), f.Name(), domain.ErrInvalidSchema)
		}
	}
	in.logger.Info("collection exists, appending", zap.String("collection", existing.Name()))
	return nil
}

// run reads every file and writes documents in batches, with up to
// opts.workers batches in flight.
func (in *ingester) run(ctx context.Context, files []string) error {
	if err := in.ensureCollection(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.opts.workers)

	start := time.Now()
	batch := make([]domdoc.Document, 0, in.opts.batchSize)
	flush := func() {
		docs := batch
		batch = make([]domdoc.Document, 0, in.opts.batchSize)
		g.Go(func() error { return in.write(gctx, docs) })
	}

	for _, path := range files {
		err := readPlaces(path, func(row placeRow) bool {
			if gctx.Err() != nil || in.limitReached() {
				return false
			}
			n := in.stats.read.Add(1)

			doc, ok := toDocument(row)
			if !ok {
				in.stats.skipped.Add(1)
				return true
			}
			batch = append(batch, doc)
			if len(batch) == in.opts.batchSize {
				flush()
			}
			if in.opts.logEvery > 0 && n%int64(in.opts.logEvery) == 0 {
				in.logProgress(start)
			}
			return true
		})
		if err != nil {
			_ = g.Wait()
			return fmt.Errorf("read %s: %w", path, err)
		}
		if gctx.Err() != nil || in.limitReached() {
			break
		}
	}
	if len(batch) > 0 {
		flush()
	}

	if err := g.Wait(); err != nil {
		return err //nolint:wrapcheck // already wrapped by write
	}
	in.logProgress(start)
	return nil
}

func (in *ingester) limitReached() bool {
	return in.opts.maxRows > 0 && in.stats.read.Load() >= int64(in.opts.maxRows)
}

func (in *ingester) write(ctx context.Context, docs []domdoc.Document) error {
	_, created, err := in.docs.BatchUpsert(ctx, in.opts.collection, docs)
	if err != nil {
		return fmt.Errorf("batch upsert %d documents: %w", len(docs), err)
	}
	in.stats.written.Add(int64(len(docs)))
	for _, c := range created {
		if c {
			in.stats.created.Add(1)
		}
	}
	return nil
}

func (in *ingester) logProgress(start time.Time) {
	elapsed := time.Since(start)
	written := in.stats.written.Load()
	rate := 0.0
	if elapsed > 0 {
		rate = float64(written) / elapsed.Seconds()
	}
	in.logger.Info("ingest progress",
		zap.Int64("read", in.stats.read.Load()),
		zap.Int64("written", written),
		zap.Int64("created", in.stats.created.Load()),
		zap.Int64("skipped", in.stats.skipped.Load()),
		zap.Float64("docs_per_sec", rate),
		zap.Duration("elapsed", elapsed),
	)
}

// toDocument converts a parquet row. Rows without coordinates, or with
// coordinates out of bounds, are skipped. A missing or unusable id is replaced
// by a name-based UUID so reloading the same file is idempotent.
func toDocument(row placeRow) (domdoc.Document, bool) {
	if row.Latitude == nil || row.Longitude == nil {
		return domdoc.Document{}, false
	}
	p := geo.NewPoint(*row.Latitude, *row.Longitude)

	id := row.ID
	if domdoc.ValidateID(id) != nil {
		key := row.ID + "|" + row.Name + "|" +
			strconv.FormatFloat(p.Lat, 'f', -1, 64) + "|" + strconv.FormatFloat(p.Lon, 'f', -1, 64)
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
	}

	tags := make(map[string]string, 2)
	if row.Name != "" {
		tags[nameField] = truncate(row.Name, domdoc.MaxTagLength)
	}
	if row.Category != "" {
		tags[categoryField] = truncate(row.Category, domdoc.MaxTagLength)
	}

	doc, err := domdoc.New(id, map[string]geo.Point{locationField: p}, tags)
	if err != nil {
		return domdoc.Document{}, false
	}
	return doc, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return strings.ToValidUTF8(s[:n], "")
}
