package resultcache

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geodecay/internal/db"
	"github.com/kailas-cloud/geodecay/internal/domain/decay"
	"github.com/kailas-cloud/geodecay/internal/domain/decay/curve"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
	"github.com/kailas-cloud/geodecay/internal/index"
	"github.com/kailas-cloud/geodecay/internal/repository/keyspace"
)

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCache(t *testing.T) (*Cache, *mockKVStore, *prometheus.CounterVec) {
	t.Helper()
	ms := &mockKVStore{}
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"result"})
	return New(ms, keyspace.New(""), time.Minute, counter, zap.NewNop()), ms, counter
}

func testQuery(t *testing.T, c curve.Curve) index.Query {
	t.Helper()
	d, err := decay.NewDescriptor("location", geo.Point{Lat: 52.52, Lon: 13.405}, 5000, c, 1)
	if err != nil {
		t.Fatalf("descriptor: %v", err)
	}
	return index.Query{Descriptor: d, Size: 10}
}
