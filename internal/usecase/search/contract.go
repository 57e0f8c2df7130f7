package search

import (
	"context"

	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	"github.com/kailas-cloud/geodecay/internal/index"
)

// Indexer resolves a collection and its in-memory index.
type Indexer interface {
	Index(ctx context.Context, name string) (domcol.Collection, *index.Index, error)
}

// ResultCache stores finished results keyed by query and index version.
type ResultCache interface {
	Key(collection, version string, q index.Query) string
	Get(ctx context.Context, key string) (index.SearchResult, bool)
	Put(ctx context.Context, key string, res index.SearchResult)
}
