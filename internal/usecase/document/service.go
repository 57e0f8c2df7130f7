package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/geodecay/internal/domain"
	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/domain/document/patch"
	"github.com/kailas-cloud/geodecay/internal/index"
	"github.com/kailas-cloud/geodecay/internal/metrics"
)

// Service handles document CRUD. Every write goes to storage first and is
// then applied to the collection's index.
type Service struct {
	repo  Repository
	colls Collections
}

// New creates a document service.
func New(repo Repository, colls Collections) *Service {
	return &Service{repo: repo, colls: colls}
}

// Upsert creates or replaces a document.
// Returns the stored document and true if it was created, false if updated.
func (s *Service) Upsert(ctx context.Context, collectionName string, doc *domdoc.Document) (domdoc.Document, bool, error) {
	col, ix, err := s.colls.Index(ctx, collectionName)
	if err != nil {
		return domdoc.Document{}, false, err
	}

	if err := col.ValidateDocument(doc.Points(), doc.Tags()); err != nil {
		return domdoc.Document{}, false, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}

	stored, created, err := s.repo.Upsert(ctx, collectionName, doc)
	if err != nil {
		return domdoc.Document{}, false, fmt.Errorf("upsert document: %w", err)
	}

	ix.Upsert(&stored)
	observe(ix)
	return stored, created, nil
}

// Get retrieves a document by collection and ID.
func (s *Service) Get(ctx context.Context, collectionName, id string) (domdoc.Document, error) {
	if _, err := s.colls.Get(ctx, collectionName); err != nil {
		return domdoc.Document{}, fmt.Errorf("get collection: %w", err)
	}

	doc, err := s.repo.Get(ctx, collectionName, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}
	return doc, nil
}

// Patch applies a partial update to a stored document. The result must still
// carry at least one point and fit the collection schema.
func (s *Service) Patch(ctx context.Context, collectionName, id string, p patch.Patch) (domdoc.Document, error) {
	col, ix, err := s.colls.Index(ctx, collectionName)
	if err != nil {
		return domdoc.Document{}, err
	}

	current, err := s.repo.Get(ctx, collectionName, id)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("get document: %w", err)
	}

	points, tags := p.Apply(current.Points(), current.Tags())
	next, err := domdoc.New(id, points, tags)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}
	if err := col.ValidateDocument(next.Points(), next.Tags()); err != nil {
		return domdoc.Document{}, fmt.Errorf("%w: %w", domain.ErrInvalidSchema, err)
	}

	stored, _, err := s.repo.Upsert(ctx, collectionName, &next)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("patch document: %w", err)
	}

	ix.Upsert(&stored)
	observe(ix)
	return stored, nil
}

// Delete removes a document from storage and clears its live bit.
func (s *Service) Delete(ctx context.Context, collectionName, id string) error {
	_, ix, err := s.colls.Index(ctx, collectionName)
	if err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, collectionName, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	ix.Delete(id)
	observe(ix)
	return nil
}

// Count returns the number of stored documents in a collection.
func (s *Service) Count(ctx context.Context, collectionName string) (int, error) {
	if _, err := s.colls.Get(ctx, collectionName); err != nil {
		return 0, fmt.Errorf("get collection: %w", err)
	}
	count, err := s.repo.Count(ctx, collectionName)
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return count, nil
}

func observe(ix *index.Index) {
	metrics.IndexedDocuments.WithLabelValues(ix.Name()).Set(float64(ix.Len()))
}
