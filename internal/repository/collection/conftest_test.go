package collection

import (
	"context"
	"testing"

	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	"github.com/kailas-cloud/geodecay/internal/domain/collection/field"
	"github.com/kailas-cloud/geodecay/internal/repository/keyspace"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn         func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn      func(ctx context.Context, key string) (map[string]string, error)
	hgetAllMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
	delFn          func(ctx context.Context, keys ...string) error
	existsFn       func(ctx context.Context, key string) (bool, error)
	scanFn         func(ctx context.Context, pattern string) ([]string, error)
	smembersFn     func(ctx context.Context, key string) ([]string, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return map[string]string{}, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetAllMultiFn != nil {
		return m.hgetAllMultiFn(ctx, keys)
	}
	return nil, nil
}

func (m *mockStore) Del(ctx context.Context, keys ...string) error {
	if m.delFn != nil {
		return m.delFn(ctx, keys...)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) Scan(ctx context.Context, pattern string) ([]string, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, pattern)
	}
	return nil, nil
}

func (m *mockStore) SMembers(ctx context.Context, key string) ([]string, error) {
	if m.smembersFn != nil {
		return m.smembersFn(ctx, key)
	}
	return nil, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, keyspace.New("")), ms
}

func testCollection(t *testing.T, name string) domcol.Collection {
	t.Helper()
	loc, err := field.New("location", field.GeoPoint)
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	cat, err := field.New("category", field.Tag)
	if err != nil {
		t.Fatalf("field: %v", err)
	}
	col, err := domcol.New(name, []field.Field{loc, cat}, 256)
	if err != nil {
		t.Fatalf("collection: %v", err)
	}
	return col
}

func testHash(name, createdAt string) map[string]string {
	return map[string]string{
		"name":         name,
		"fields_json":  `[{"name":"location","type":"geo_point"},{"name":"category","type":"tag"}]`,
		"segment_size": "256",
		"created_at":   createdAt,
		"revision":     "1",
	}
}
