package document

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/geodecay/internal/db"
	"github.com/kailas-cloud/geodecay/internal/domain"
	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/repository/keyspace"
)

// loadChunk bounds the number of hashes fetched per pipeline in List.
const loadChunk = 500

// store is the consumer interface for documents (ISP).
type store interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// Repo implements usecase/document.Repository.
type Repo struct {
	store store
	keys  keyspace.Keyspace
}

// New creates a document repository.
func New(s store, keys keyspace.Keyspace) *Repo {
	return &Repo{store: s, keys: keys}
}

// Upsert creates or replaces a document and returns the stored version.
// The revision is bumped on every write.
func (r *Repo) Upsert(ctx context.Context, collectionName string, doc *domdoc.Document) (domdoc.Document, bool, error) {
	key := r.keys.Document(collectionName, doc.ID())

	prev, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, false, fmt.Errorf("hgetall %s: %w", key, err)
	}
	rev := revisionOf(prev) + 1

	item := db.HashSetItem{Key: key, Fields: buildHashFields(doc, rev), Replace: true}
	if err := r.store.HSetMulti(ctx, []db.HashSetItem{item}); err != nil {
		return domdoc.Document{}, false, fmt.Errorf("hset %s: %w", key, err)
	}
	if err := r.store.SAdd(ctx, r.keys.IDs(collectionName), doc.ID()); err != nil {
		return domdoc.Document{}, false, fmt.Errorf("register %s: %w", key, err)
	}

	return doc.WithRevision(rev), len(prev) == 0, nil
}

// BatchUpsert writes many documents with one read and one write pipeline.
// It returns the stored versions and per-document created flags.
func (r *Repo) BatchUpsert(
	ctx context.Context, collectionName string, docs []domdoc.Document,
) ([]domdoc.Document, []bool, error) {
	if len(docs) == 0 {
		return nil, nil, nil
	}

	keys := make([]string, len(docs))
	ids := make([]string, len(docs))
	for i := range docs {
		keys[i] = r.keys.Document(collectionName, docs[i].ID())
		ids[i] = docs[i].ID()
	}

	prev, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("hgetall multi %s: %w", collectionName, err)
	}

	// A repeated id in one batch must see the revision written by its predecessor.
	revs := make(map[string]int, len(docs))
	stored := make([]domdoc.Document, len(docs))
	created := make([]bool, len(docs))
	items := make([]db.HashSetItem, len(docs))
	for i := range docs {
		last, seen := revs[ids[i]]
		if !seen {
			last = revisionOf(prev[i])
			created[i] = last == 0
		}
		rev := last + 1
		revs[ids[i]] = rev
		items[i] = db.HashSetItem{Key: keys[i], Fields: buildHashFields(&docs[i], rev), Replace: true}
		stored[i] = docs[i].WithRevision(rev)
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return nil, nil, fmt.Errorf("hset multi %s: %w", collectionName, err)
	}
	if err := r.store.SAdd(ctx, r.keys.IDs(collectionName), ids...); err != nil {
		return nil, nil, fmt.Errorf("register documents of %s: %w", collectionName, err)
	}

	return stored, created, nil
}

// Get returns a document by ID.
func (r *Repo) Get(ctx context.Context, collectionName, id string) (domdoc.Document, error) {
	key := r.keys.Document(collectionName, id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domdoc.Document{}, domain.ErrDocumentNotFound
	}
	return parseHashFields(id, m)
}

// List loads every document of a collection. Ids whose hash is gone are skipped.
func (r *Repo) List(ctx context.Context, collectionName string) ([]domdoc.Document, error) {
	ids, err := r.store.SMembers(ctx, r.keys.IDs(collectionName))
	if err != nil {
		return nil, fmt.Errorf("list ids of %s: %w", collectionName, err)
	}

	docs := make([]domdoc.Document, 0, len(ids))
	for start := 0; start < len(ids); start += loadChunk {
		chunk := ids[start:min(start+loadChunk, len(ids))]
		keys := make([]string, len(chunk))
		for i, id := range chunk {
			keys[i] = r.keys.Document(collectionName, id)
		}

		hashes, err := r.store.HGetAllMulti(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("hgetall multi %s: %w", collectionName, err)
		}
		for i, m := range hashes {
			if len(m) == 0 {
				continue
			}
			doc, err := parseHashFields(chunk[i], m)
			if err != nil {
				return nil, err
			}
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

// Count returns the number of documents in a collection.
func (r *Repo) Count(ctx context.Context, collectionName string) (int, error) {
	n, err := r.store.SCard(ctx, r.keys.IDs(collectionName))
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collectionName, err)
	}
	return int(n), nil
}

// Delete removes a document.
func (r *Repo) Delete(ctx context.Context, collectionName, id string) error {
	key := r.keys.Document(collectionName, id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrDocumentNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if err := r.store.SRem(ctx, r.keys.IDs(collectionName), id); err != nil {
		return fmt.Errorf("unregister %s: %w", key, err)
	}
	return nil
}
