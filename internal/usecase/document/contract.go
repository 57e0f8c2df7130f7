package document

import (
	"context"

	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/index"
)

// Repository defines the storage contract for documents.
type Repository interface {
	Upsert(ctx context.Context, collectionName string, doc *domdoc.Document) (stored domdoc.Document, created bool, err error)
	Get(ctx context.Context, collectionName, id string) (domdoc.Document, error)
	Delete(ctx context.Context, collectionName, id string) error
	Count(ctx context.Context, collectionName string) (int, error)
}

// Collections resolves collections and their in-memory indexes.
type Collections interface {
	Get(ctx context.Context, name string) (domcol.Collection, error)
	Index(ctx context.Context, name string) (domcol.Collection, *index.Index, error)
}
