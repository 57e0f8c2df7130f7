package collection

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/kailas-cloud/geodecay/internal/domain"
	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	"github.com/kailas-cloud/geodecay/internal/repository/keyspace"
)

// deleteChunk bounds the number of keys per DEL during cascade deletes.
const deleteChunk = 500

// store is the consumer interface for collections (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Repo implements usecase/collection.Repository.
type Repo struct {
	store store
	keys  keyspace.Keyspace
}

// New creates a collection repository.
func New(s store, keys keyspace.Keyspace) *Repo {
	return &Repo{store: s, keys: keys}
}

// Create stores collection metadata.
func (r *Repo) Create(ctx context.Context, col domcol.Collection) error {
	name := col.Name()

	metaKey := r.keys.Collection(name)
	exists, err := r.store.Exists(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}

	hashData, err := collectionToHash(col)
	if err != nil {
		return err
	}
	if err := r.store.HSet(ctx, metaKey, hashData); err != nil {
		return fmt.Errorf("hset collection %s: %w", name, err)
	}
	return nil
}

// Get retrieves a collection by name.
func (r *Repo) Get(ctx context.Context, name string) (domcol.Collection, error) {
	m, err := r.store.HGetAll(ctx, r.keys.Collection(name))
	if err != nil {
		return domcol.Collection{}, fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(m) == 0 {
		return domcol.Collection{}, domain.ErrNotFound
	}

	return collectionFromHash(m)
}

// List returns all collections sorted by CreatedAt.
func (r *Repo) List(ctx context.Context) ([]domcol.Collection, error) {
	keys, err := r.store.Scan(ctx, r.keys.Collections())
	if err != nil {
		return nil, fmt.Errorf("scan collections: %w", err)
	}
	if len(keys) == 0 {
		return []domcol.Collection{}, nil
	}

	results, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("hgetall multi collections: %w", err)
	}

	collections := make([]domcol.Collection, 0, len(results))
	for i, m := range results {
		if len(m) == 0 {
			continue
		}
		col, err := collectionFromHash(m)
		if err != nil {
			return nil, fmt.Errorf("parse collection %s: %w", keys[i], err)
		}
		collections = append(collections, col)
	}

	sort.Slice(collections, func(i, j int) bool {
		return collections[i].CreatedAt() < collections[j].CreatedAt()
	})

	return collections, nil
}

// Delete removes a collection and every document it owns.
// Metadata goes first; if the cascade fails the metadata is restored so the
// collection stays reachable for a retry.
func (r *Repo) Delete(ctx context.Context, name string) error {
	metaKey := r.keys.Collection(name)

	metaBackup, err := r.store.HGetAll(ctx, metaKey)
	if err != nil {
		return fmt.Errorf("hgetall collection %s: %w", name, err)
	}
	if len(metaBackup) == 0 {
		return domain.ErrNotFound
	}

	if err := r.store.Del(ctx, metaKey); err != nil {
		return fmt.Errorf("del collection %s: %w", name, err)
	}

	if err := r.deleteDocuments(ctx, name); err != nil {
		cleanupErr := r.store.HSet(ctx, metaKey, metaBackup)
		return errors.Join(err, cleanupErr)
	}

	return nil
}

func (r *Repo) deleteDocuments(ctx context.Context, name string) error {
	ids, err := r.store.SMembers(ctx, r.keys.IDs(name))
	if err != nil {
		return fmt.Errorf("list documents of %s: %w", name, err)
	}

	for start := 0; start < len(ids); start += deleteChunk {
		end := min(start+deleteChunk, len(ids))
		keys := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			keys = append(keys, r.keys.Document(name, id))
		}
		if err := r.store.Del(ctx, keys...); err != nil {
			return fmt.Errorf("del documents of %s: %w", name, err)
		}
	}

	if err := r.store.Del(ctx, r.keys.IDs(name)); err != nil {
		return fmt.Errorf("del id set of %s: %w", name, err)
	}
	return nil
}
