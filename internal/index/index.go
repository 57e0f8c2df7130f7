// Package index is the in-memory geo index that hosts decay scoring. Each
// collection owns one Index made of fixed-size append-only segments; a
// search scores the segments concurrently and merges a global top-K.
package index

import (
	"strconv"
	"sync"

	"github.com/google/uuid"

	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

type location struct {
	seg int
	ord int
}

// Index holds the searchable state of one collection.
type Index struct {
	mu          sync.RWMutex
	col         domcol.Collection
	epoch       string
	segmentSize int
	geoFields   []string
	segments    []*segment
	locs        map[string]location
	generation  uint64
	workers     int
}

// New creates an empty index for a collection. workers bounds the number of
// segments scored at once by a single search.
func New(col domcol.Collection, workers int) *Index {
	if workers <= 0 {
		workers = 1
	}
	return &Index{
		col:         col,
		epoch:       uuid.NewString(),
		segmentSize: col.SegmentSize(),
		geoFields:   col.GeoFields(),
		locs:        make(map[string]location),
		workers:     workers,
	}
}

// Name returns the collection name.
func (ix *Index) Name() string { return ix.col.Name() }

// Collection returns the collection the index was built for.
func (ix *Index) Collection() domcol.Collection { return ix.col }

// Upsert indexes a document. An existing document with the same id is
// deleted first and the new version is appended at the tail.
func (ix *Index) Upsert(doc *domdoc.Document) {
	encoded := make(map[string]geo.EncodedPoint, len(doc.Points()))
	for f, p := range doc.Points() {
		encoded[f] = geo.Encode(p)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	ix.removeLocked(doc.ID())
	tail := ix.tailLocked()
	ord := tail.add(doc.ID(), encoded, doc.Tags())
	ix.locs[doc.ID()] = location{seg: len(ix.segments) - 1, ord: ord}
	ix.generation++
}

// Delete clears the live bit of a document. It reports whether the id was indexed.
func (ix *Index) Delete(id string) bool {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.removeLocked(id) {
		return false
	}
	ix.generation++
	return true
}

func (ix *Index) removeLocked(id string) bool {
	loc, ok := ix.locs[id]
	if !ok {
		return false
	}
	ix.segments[loc.seg].remove(loc.ord)
	delete(ix.locs, id)
	return true
}

func (ix *Index) tailLocked() *segment {
	if n := len(ix.segments); n > 0 && ix.segments[n-1].size() < ix.segmentSize {
		return ix.segments[n-1]
	}
	s := newSegment(ix.geoFields, ix.segmentSize)
	ix.segments = append(ix.segments, s)
	return s
}

// Len returns the number of live documents.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.locs)
}

// Contains reports whether id is indexed.
func (ix *Index) Contains(id string) bool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	_, ok := ix.locs[id]
	return ok
}

// Stats describes the index layout.
type Stats struct {
	Segments   int
	Ordinals   int
	Live       int
	Generation uint64
}

// Stats returns a consistent layout summary.
func (ix *Index) Stats() Stats {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	st := Stats{Segments: len(ix.segments), Live: len(ix.locs), Generation: ix.generation}
	for _, s := range ix.segments {
		st.Ordinals += s.size()
	}
	return st
}

// Version identifies the current contents. It changes on every mutation and
// differs between index instances, so it is safe to embed in cache keys.
func (ix *Index) Version() string {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.epoch + "." + strconv.FormatUint(ix.generation, 10)
}

// snapshot captures every segment that still has live documents, together
// with the version the views correspond to.
func (ix *Index) snapshot() ([]*segmentView, string) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	views := make([]*segmentView, 0, len(ix.segments))
	for i, s := range ix.segments {
		if s.liveCount == 0 {
			continue
		}
		views = append(views, s.view(i))
	}
	return views, ix.epoch + "." + strconv.FormatUint(ix.generation, 10)
}
