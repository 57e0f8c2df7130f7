package index

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/geodecay/internal/domain/decay"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
	"github.com/kailas-cloud/geodecay/internal/domain/search/filter"
	"github.com/kailas-cloud/geodecay/internal/domain/search/result"
)

const (
	// cancelCheckInterval is how many documents a worker visits between
	// context checks.
	cancelCheckInterval = 1024
	// maxFailureSamples bounds the scoring faults kept for logging.
	maxFailureSamples = 5
)

// Failure reasons reported in SearchResult.FailuresByReason.
const (
	ReasonNoValue   = "no_value"
	ReasonMalformed = "malformed"
	ReasonOther     = "other"
)

// Query is what the index needs to run a decay search.
type Query struct {
	Descriptor decay.Descriptor
	Size       int
	MinScore   float64
	Filter     filter.Expression
}

// SearchResult is the merged outcome of scoring every segment.
type SearchResult struct {
	Hits []result.Result
	// Total counts documents that passed min_score and the filter.
	Total int
	// Scanned counts live documents visited.
	Scanned int64
	// Failures counts documents whose score could not be computed.
	Failures         int64
	FailuresByReason map[string]int64
	FailureSamples   []*decay.ScoreError
	Segments         int
	Version          string
}

type hit struct {
	score float64
	seg   int
	ord   int
}

// better orders hits by score desc, then segment asc, then ordinal asc.
func better(a, b hit) bool {
	if a.score != b.score {
		return a.score > b.score
	}
	if a.seg != b.seg {
		return a.seg < b.seg
	}
	return a.ord < b.ord
}

// hitHeap keeps the worst retained hit at the root.
type hitHeap []hit

func (h hitHeap) Len() int           { return len(h) }
func (h hitHeap) Less(i, j int) bool { return better(h[j], h[i]) }
func (h hitHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *hitHeap) Push(x any)        { *h = append(*h, x.(hit)) }
func (h *hitHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// offer adds a candidate, keeping at most k hits.
func (h *hitHeap) offer(c hit, k int) {
	if h.Len() < k {
		heap.Push(h, c)
		return
	}
	if better(c, (*h)[0]) {
		(*h)[0] = c
		heap.Fix(h, 0)
	}
}

type segmentResult struct {
	hits     []hit
	matched  int
	scanned  int64
	failures map[string]int64
	samples  []*decay.ScoreError
}

// Search scores every live document against q and returns the top q.Size hits.
func (ix *Index) Search(ctx context.Context, q Query) (SearchResult, error) {
	if q.Size <= 0 {
		return SearchResult{}, fmt.Errorf("size must be positive")
	}
	views, version := ix.snapshot()

	results := make([]segmentResult, len(views))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, v := range views {
		g.Go(func() error {
			r, err := scoreSegment(gctx, q, v)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return SearchResult{}, fmt.Errorf("search %s: %w", ix.Name(), err)
	}

	out := SearchResult{
		FailuresByReason: make(map[string]int64),
		Segments:         len(views),
		Version:          version,
	}
	var all []hit
	for _, r := range results {
		all = append(all, r.hits...)
		out.Total += r.matched
		out.Scanned += r.scanned
		for reason, n := range r.failures {
			out.FailuresByReason[reason] += n
			out.Failures += n
		}
		for _, s := range r.samples {
			if len(out.FailureSamples) < maxFailureSamples {
				out.FailureSamples = append(out.FailureSamples, s)
			}
		}
	}
	sort.Slice(all, func(i, j int) bool { return better(all[i], all[j]) })
	if len(all) > q.Size {
		all = all[:q.Size]
	}

	bySeg := make(map[int]*segmentView, len(views))
	for _, v := range views {
		bySeg[v.num] = v
	}
	query := q.Descriptor.Point()
	out.Hits = make([]result.Result, 0, len(all))
	for _, h := range all {
		v := bySeg[h.seg]
		// Hits only come from documents whose point decoded during scoring.
		p, _ := v.columns[q.Descriptor.Field()].values[h.ord].Decode()
		r := result.New(v.ids[h.ord], h.score, geo.Distance(query, p), p, v.tags[h.ord])
		out.Hits = append(out.Hits, r.WithPosition(h.seg, h.ord))
	}
	return out, nil
}

func scoreSegment(ctx context.Context, q Query, v *segmentView) (segmentResult, error) {
	var (
		r    segmentResult
		top  = make(hitHeap, 0, q.Size)
		sc   = q.Descriptor.Scorer(v)
		tags = !q.Filter.IsEmpty()
	)
	for doc := sc.NextDoc(); doc != decay.NoMoreDocs; doc = sc.NextDoc() {
		r.scanned++
		if r.scanned%cancelCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return segmentResult{}, err
			}
		}
		score, err := sc.Score()
		if err != nil {
			var se *decay.ScoreError
			if !errors.As(err, &se) {
				return segmentResult{}, err
			}
			if r.failures == nil {
				r.failures = make(map[string]int64)
			}
			r.failures[failureReason(se)]++
			if len(r.samples) < maxFailureSamples {
				r.samples = append(r.samples, &decay.ScoreError{Doc: se.Doc, Err: fmt.Errorf("segment %d: %w", v.num, se.Err)})
			}
			continue
		}
		if score < q.MinScore {
			continue
		}
		if tags && !q.Filter.Matches(v.tags[doc]) {
			continue
		}
		r.matched++
		top.offer(hit{score: score, seg: v.num, ord: doc}, q.Size)
	}
	r.hits = top
	return r, ctx.Err()
}

func failureReason(se *decay.ScoreError) string {
	switch {
	case errors.Is(se.Err, decay.ErrNoValue):
		return ReasonNoValue
	case errors.Is(se.Err, geo.ErrMalformedPoint):
		return ReasonMalformed
	default:
		return ReasonOther
	}
}
