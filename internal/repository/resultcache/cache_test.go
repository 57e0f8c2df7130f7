package resultcache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/geodecay/internal/domain/decay/curve"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
	"github.com/kailas-cloud/geodecay/internal/domain/search/result"
	"github.com/kailas-cloud/geodecay/internal/index"
)

func TestKey_CoversQueryAndVersion(t *testing.T) {
	base := Key("places", "v.1", testQuery(t, curve.Linear))
	if base != Key("places", "v.1", testQuery(t, curve.Linear)) {
		t.Fatal("key must be deterministic")
	}

	others := map[string]string{
		"version":    Key("places", "v.2", testQuery(t, curve.Linear)),
		"collection": Key("shops", "v.1", testQuery(t, curve.Linear)),
		// Descriptors differing only in curve are Equal, the cache key must still differ.
		"curve": Key("places", "v.1", testQuery(t, curve.Cosine)),
	}
	sized := testQuery(t, curve.Linear)
	sized.Size = 20
	others["size"] = Key("places", "v.1", sized)

	for name, k := range others {
		if k == base {
			t.Errorf("changing %s must change the key", name)
		}
	}
}

func TestPutThenGet(t *testing.T) {
	c, ms, counter := newTestCache(t)
	ctx := context.Background()

	var stored []byte
	ms.setFn = func(_ context.Context, key string, value []byte, ttl time.Duration) error {
		if !strings.HasPrefix(key, "geodecay:cache:") {
			t.Errorf("unexpected key: %s", key)
		}
		if ttl != time.Minute {
			t.Errorf("unexpected ttl: %s", ttl)
		}
		stored = value
		return nil
	}
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return stored, nil }

	in := index.SearchResult{
		Hits: []result.Result{
			result.New("a", 0.9, 120, geo.Point{Lat: 1, Lon: 2}, map[string]string{"category": "cafe"}).WithPosition(1, 5),
		},
		Total:    3,
		Scanned:  10,
		Failures: 1,
		Version:  "v.1",
	}
	c.Put(ctx, "k", in)

	out, ok := c.Get(ctx, "k")
	if !ok {
		t.Fatal("expected hit")
	}
	if len(out.Hits) != 1 || out.Hits[0].ID() != "a" || out.Hits[0].Score() != 0.9 {
		t.Fatalf("unexpected hits: %v", out.Hits)
	}
	if out.Hits[0].Point().Lon != 2 || out.Hits[0].Tags()["category"] != "cafe" {
		t.Errorf("point/tags not restored: %v", out.Hits[0])
	}
	if out.Hits[0].Segment() != 1 || out.Hits[0].Ordinal() != 5 {
		t.Errorf("position not restored: %d/%d", out.Hits[0].Segment(), out.Hits[0].Ordinal())
	}
	if out.Total != 3 || out.Scanned != 10 || out.Failures != 1 {
		t.Errorf("counters not restored: %+v", out)
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("hit")); got != 1 {
		t.Errorf("hit counter = %f", got)
	}
}

func TestGet_Miss(t *testing.T) {
	c, _, counter := newTestCache(t)
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatal("expected miss")
	}
	if got := testutil.ToFloat64(counter.WithLabelValues("miss")); got != 1 {
		t.Errorf("miss counter = %f", got)
	}
}

func TestGet_StoreErrorIsMiss(t *testing.T) {
	c, ms, _ := newTestCache(t)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return nil, errors.New("timeout") }
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatal("expected miss")
	}
}

func TestGet_CorruptEntryIsMiss(t *testing.T) {
	c, ms, _ := newTestCache(t)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) { return []byte("{not json"), nil }
	if _, ok := c.Get(context.Background(), "k"); ok {
		t.Fatal("expected miss")
	}
}

func TestPut_StoreErrorIsIgnored(t *testing.T) {
	c, ms, _ := newTestCache(t)
	ms.setFn = func(_ context.Context, _ string, _ []byte, _ time.Duration) error { return errors.New("READONLY") }
	c.Put(context.Background(), "k", index.SearchResult{})
}
