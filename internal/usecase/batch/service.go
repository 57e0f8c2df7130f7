package batch

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/geodecay/internal/domain"
	dombatch "github.com/kailas-cloud/geodecay/internal/domain/batch"
	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/index"
	"github.com/kailas-cloud/geodecay/internal/metrics"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 100

// Service handles batch document operations with per-item error reporting.
type Service struct {
	docs         BulkUpserter
	del          DocumentDeleter
	colls        Indexer
	maxBatchSize int
}

// New creates a batch service.
func New(docs BulkUpserter, del DocumentDeleter, colls Indexer) *Service {
	return &Service{docs: docs, del: del, colls: colls, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// MaxBatchSize returns the configured limit.
func (s *Service) MaxBatchSize() int { return s.maxBatchSize }

// Upsert validates every item against the collection schema and stores the
// valid ones in a single pipeline. Invalid items fail individually.
func (s *Service) Upsert(ctx context.Context, collectionName string, items []domdoc.Document) []dombatch.Result {
	if len(items) > s.maxBatchSize {
		return failAll(ids(items), fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidSchema))
	}

	col, ix, err := s.colls.Index(ctx, collectionName)
	if err != nil {
		return failAll(ids(items), fmt.Errorf("get collection: %w", err))
	}

	results := make([]dombatch.Result, len(items))
	valid := make([]domdoc.Document, 0, len(items))
	validIdx := make([]int, 0, len(items))

	for i := range items {
		if err := col.ValidateDocument(items[i].Points(), items[i].Tags()); err != nil {
			results[i] = dombatch.NewError(items[i].ID(), fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err))
			continue
		}
		valid = append(valid, items[i])
		validIdx = append(validIdx, i)
	}

	if len(valid) == 0 {
		return results
	}

	stored, created, err := s.docs.BatchUpsert(ctx, collectionName, valid)
	if err != nil {
		for _, i := range validIdx {
			results[i] = dombatch.NewError(items[i].ID(), fmt.Errorf("batch upsert: %w", err))
		}
		return results
	}

	for j, i := range validIdx {
		ix.Upsert(&stored[j])
		results[i] = dombatch.NewUpserted(items[i].ID(), created[j])
	}
	observe(ix)
	return results
}

// Delete removes documents by ID in batch.
func (s *Service) Delete(ctx context.Context, collectionName string, docIDs []string) []dombatch.Result {
	if len(docIDs) > s.maxBatchSize {
		return failAll(docIDs, fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidSchema))
	}

	_, ix, err := s.colls.Index(ctx, collectionName)
	if err != nil {
		return failAll(docIDs, fmt.Errorf("get collection: %w", err))
	}

	results := make([]dombatch.Result, len(docIDs))
	for i, id := range docIDs {
		if err := s.del.Delete(ctx, collectionName, id); err != nil {
			results[i] = dombatch.NewError(id, fmt.Errorf("delete: %w", err))
			continue
		}
		ix.Delete(id)
		results[i] = dombatch.NewDeleted(id)
	}
	observe(ix)
	return results
}

func ids(items []domdoc.Document) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ID()
	}
	return out
}

func failAll(docIDs []string, err error) []dombatch.Result {
	results := make([]dombatch.Result, len(docIDs))
	for i, id := range docIDs {
		results[i] = dombatch.NewError(id, err)
	}
	return results
}

func observe(ix *index.Index) {
	metrics.IndexedDocuments.WithLabelValues(ix.Name()).Set(float64(ix.Len()))
}
