package collection

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/geodecay/internal/domain"
	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	"github.com/kailas-cloud/geodecay/internal/domain/collection/field"
	"github.com/kailas-cloud/geodecay/internal/index"
	"github.com/kailas-cloud/geodecay/internal/metrics"
)

// Info is a collection together with the state of its index.
type Info struct {
	Collection domcol.Collection
	Stats      index.Stats
}

// Service handles collection CRUD operations and owns the lifecycle of the
// in-memory indexes.
type Service struct {
	repo    Repository
	docs    DocumentLister
	indexes *index.Registry
	loads   singleflight.Group
	ready   atomic.Bool
	logger  *zap.Logger

	defaultSegmentSize int
}

// New creates a collection service.
func New(repo Repository, docs DocumentLister, indexes *index.Registry, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{repo: repo, docs: docs, indexes: indexes, logger: logger}
}

// WithDefaultSegmentSize sets the segment size of collections created without one.
func (s *Service) WithDefaultSegmentSize(size int) *Service {
	if size > 0 {
		s.defaultSegmentSize = size
	}
	return s
}

// Create validates and stores a new collection and opens an empty index for it.
func (s *Service) Create(ctx context.Context, name string, fields []field.Field, segmentSize int) (domcol.Collection, error) {
	if segmentSize == 0 {
		segmentSize = s.defaultSegmentSize
	}
	col, err := domcol.New(name, fields, segmentSize)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("validate collection: %w: %w", domain.ErrInvalidSchema, err)
	}

	if err := s.repo.Create(ctx, col); err != nil {
		return domcol.Collection{}, fmt.Errorf("create collection: %w", err)
	}

	s.indexes.Put(s.indexes.Build(col))
	metrics.IndexedDocuments.WithLabelValues(name).Set(0)
	return col, nil
}

// Get retrieves a collection by name.
func (s *Service) Get(ctx context.Context, name string) (domcol.Collection, error) {
	col, err := s.repo.Get(ctx, name)
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("get collection: %w", err)
	}
	return col, nil
}

// Describe returns a collection with its index statistics, loading the index if needed.
func (s *Service) Describe(ctx context.Context, name string) (Info, error) {
	col, ix, err := s.Index(ctx, name)
	if err != nil {
		return Info{}, err
	}
	return Info{Collection: col, Stats: ix.Stats()}, nil
}

// List returns all collections.
func (s *Service) List(ctx context.Context) ([]domcol.Collection, error) {
	cols, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	return cols, nil
}

// Delete removes a collection, its documents and its index.
func (s *Service) Delete(ctx context.Context, name string) error {
	if err := s.repo.Delete(ctx, name); err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}
	s.forget(name)
	return nil
}

// Index returns a collection and its in-memory index. A missing index, or one
// built for an earlier collection of the same name, is rebuilt from storage.
// Concurrent callers share one load.
func (s *Service) Index(ctx context.Context, name string) (domcol.Collection, *index.Index, error) {
	col, err := s.repo.Get(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.forget(name)
		}
		return domcol.Collection{}, nil, fmt.Errorf("get collection: %w", err)
	}

	if ix, ok := s.indexes.Get(name); ok && ix.Collection().CreatedAt() == col.CreatedAt() {
		return col, ix, nil
	}

	ix, err := s.load(ctx, col)
	if err != nil {
		return domcol.Collection{}, nil, err
	}
	return col, ix, nil
}

// Reload rebuilds the index of a collection from storage and swaps it in.
func (s *Service) Reload(ctx context.Context, name string) (Info, error) {
	col, err := s.repo.Get(ctx, name)
	if err != nil {
		return Info{}, fmt.Errorf("get collection: %w", err)
	}
	ix, err := s.load(ctx, col)
	if err != nil {
		return Info{}, err
	}
	return Info{Collection: col, Stats: ix.Stats()}, nil
}

// Restore builds the index of every stored collection. A collection that
// fails to load is logged and skipped; it is retried lazily on first use.
func (s *Service) Restore(ctx context.Context) error {
	cols, err := s.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	for _, col := range cols {
		ix, err := s.load(ctx, col)
		if err != nil {
			s.logger.Warn("restore index failed", zap.String("collection", col.Name()), zap.Error(err))
			continue
		}
		s.logger.Info("index restored",
			zap.String("collection", col.Name()),
			zap.Int("documents", ix.Len()),
		)
	}
	s.ready.Store(true)
	return nil
}

// RestoreWithRetry calls Restore until it succeeds or ctx ends. Attempts
// are spaced by a delay that doubles from minDelay up to maxDelay.
func (s *Service) RestoreWithRetry(ctx context.Context, minDelay, maxDelay time.Duration) error {
	delay := minDelay
	for attempt := 1; ; attempt++ {
		err := s.Restore(ctx)
		if err == nil {
			return nil
		}
		s.logger.Warn("restore failed, retrying",
			zap.Int("attempt", attempt),
			zap.Duration("retry_in", delay),
			zap.Error(err),
		)
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return errors.Join(ctx.Err(), err)
		case <-t.C:
		}
		delay = min(delay*2, maxDelay)
	}
}

// Ready reports domain.ErrIndexNotReady until Restore has completed.
func (s *Service) Ready(_ context.Context) error {
	if !s.ready.Load() {
		return domain.ErrIndexNotReady
	}
	return nil
}

func (s *Service) load(ctx context.Context, col domcol.Collection) (*index.Index, error) {
	key := fmt.Sprintf("%s@%d", col.Name(), col.CreatedAt())
	v, err, _ := s.loads.Do(key, func() (any, error) {
		// Shared by every waiter, so one caller's cancellation must not fail the rest.
		docs, err := s.docs.List(context.WithoutCancel(ctx), col.Name())
		if err != nil {
			return nil, fmt.Errorf("load documents of %s: %w", col.Name(), err)
		}
		ix := s.indexes.Build(col)
		for i := range docs {
			ix.Upsert(&docs[i])
		}
		s.indexes.Put(ix)
		metrics.IndexedDocuments.WithLabelValues(col.Name()).Set(float64(ix.Len()))
		return ix, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*index.Index), nil
}

func (s *Service) forget(name string) {
	s.indexes.Drop(name)
	metrics.IndexedDocuments.DeleteLabelValues(name)
}
