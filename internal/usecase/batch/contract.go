package batch

import (
	"context"

	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/index"
)

// BulkUpserter writes many documents in one pipeline.
type BulkUpserter interface {
	BatchUpsert(ctx context.Context, collectionName string, docs []domdoc.Document) (stored []domdoc.Document, created []bool, err error)
}

// DocumentDeleter deletes a document from storage.
type DocumentDeleter interface {
	Delete(ctx context.Context, collectionName, id string) error
}

// Indexer resolves a collection and its in-memory index.
type Indexer interface {
	Index(ctx context.Context, name string) (domcol.Collection, *index.Index, error)
}
