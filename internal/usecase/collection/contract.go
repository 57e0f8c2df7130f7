package collection

import (
	"context"

	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
)

// Repository defines the storage contract for collections.
type Repository interface {
	Create(ctx context.Context, col domcol.Collection) error
	Get(ctx context.Context, name string) (domcol.Collection, error)
	List(ctx context.Context) ([]domcol.Collection, error)
	Delete(ctx context.Context, name string) error
}

// DocumentLister reads every stored document of a collection to build its index.
type DocumentLister interface {
	List(ctx context.Context, collectionName string) ([]domdoc.Document, error)
}
