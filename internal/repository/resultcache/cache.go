// Package resultcache stores finished search results in a key-value store.
// Keys embed the index version, so any write to a collection makes its old
// entries unreachable and they simply expire.
package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geodecay/internal/db"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
	"github.com/kailas-cloud/geodecay/internal/domain/search/result"
	"github.com/kailas-cloud/geodecay/internal/index"
	"github.com/kailas-cloud/geodecay/internal/repository/keyspace"
)

// store is the consumer interface for the result cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Cache reads and writes cached search results.
type Cache struct {
	store      store
	keys       keyspace.Keyspace
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a result cache.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	s store,
	keys keyspace.Keyspace,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	return &Cache{store: s, keys: keys, ttl: ttl, cacheTotal: cacheTotal, logger: logger}
}

// Key derives the cache key of a query against one index version.
func Key(collection, version string, q index.Query) string {
	d := xxhash.New()
	for _, part := range []string{
		collection,
		version,
		q.Descriptor.CacheKey(),
		strconv.Itoa(q.Size),
		strconv.FormatFloat(q.MinScore, 'g', -1, 64),
		q.Filter.String(),
	} {
		_, _ = d.WriteString(part)
		_, _ = d.Write([]byte{0})
	}
	return strconv.FormatUint(d.Sum64(), 16)
}

// Key derives the cache key of a query against one index version.
func (c *Cache) Key(collection, version string, q index.Query) string {
	return Key(collection, version, q)
}

// Get returns a cached result. Store failures count as misses.
func (c *Cache) Get(ctx context.Context, key string) (index.SearchResult, bool) {
	data, err := c.store.Get(ctx, c.keys.Cache(key))
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached result", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return index.SearchResult{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse cached result", zap.String("key", key), zap.Error(err))
		c.inc("miss")
		return index.SearchResult{}, false
	}

	c.inc("hit")
	return e.toResult(), true
}

// Put stores a result. Failures are logged and otherwise ignored.
func (c *Cache) Put(ctx context.Context, key string, res index.SearchResult) {
	data, err := json.Marshal(fromResult(res))
	if err != nil {
		c.logger.Warn("Failed to encode result for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, c.keys.Cache(key), data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache result", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

type entryHit struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Distance float64           `json:"distance"`
	Lat      float64           `json:"lat"`
	Lon      float64           `json:"lon"`
	Tags     map[string]string `json:"tags,omitempty"`
	Segment  int               `json:"seg"`
	Ordinal  int               `json:"ord"`
}

type entry struct {
	Hits     []entryHit       `json:"hits"`
	Total    int              `json:"total"`
	Scanned  int64            `json:"scanned"`
	Failures int64            `json:"failures"`
	Reasons  map[string]int64 `json:"reasons,omitempty"`
	Segments int              `json:"segments"`
	Version  string           `json:"version"`
}

func fromResult(res index.SearchResult) entry {
	e := entry{
		Hits:     make([]entryHit, len(res.Hits)),
		Total:    res.Total,
		Scanned:  res.Scanned,
		Failures: res.Failures,
		Reasons:  res.FailuresByReason,
		Segments: res.Segments,
		Version:  res.Version,
	}
	for i := range res.Hits {
		h := &res.Hits[i]
		p := h.Point()
		e.Hits[i] = entryHit{
			ID: h.ID(), Score: h.Score(), Distance: h.Distance(),
			Lat: p.Lat, Lon: p.Lon, Tags: h.Tags(),
			Segment: h.Segment(), Ordinal: h.Ordinal(),
		}
	}
	return e
}

// toResult restores a result. Failure samples are not cached.
func (e entry) toResult() index.SearchResult {
	res := index.SearchResult{
		Hits:             make([]result.Result, len(e.Hits)),
		Total:            e.Total,
		Scanned:          e.Scanned,
		Failures:         e.Failures,
		FailuresByReason: e.Reasons,
		Segments:         e.Segments,
		Version:          e.Version,
	}
	for i, h := range e.Hits {
		res.Hits[i] = result.New(h.ID, h.Score, h.Distance, geo.Point{Lat: h.Lat, Lon: h.Lon}, h.Tags).
			WithPosition(h.Segment, h.Ordinal)
	}
	return res
}
