package result

import "github.com/kailas-cloud/geodecay/internal/domain/geo"

// Result is a single search hit.
type Result struct {
	id       string
	score    float64
	distance float64
	point    geo.Point
	tags     map[string]string
	segment  int
	ordinal  int
}

// New creates a search result.
func New(id string, score, distance float64, point geo.Point, tags map[string]string) Result {
	return Result{id: id, score: score, distance: distance, point: point, tags: tags}
}

// WithPosition returns a copy located at ordinal ord of segment seg.
func (r Result) WithPosition(seg, ord int) Result {
	r.segment, r.ordinal = seg, ord
	return r
}

// ID returns the document identifier.
func (r *Result) ID() string { return r.id }

// Score returns the decay score.
func (r *Result) Score() float64 { return r.score }

// Distance returns the distance from the query point in meters.
func (r *Result) Distance() float64 { return r.distance }

// Point returns the matched point as stored (encoding precision).
func (r *Result) Point() geo.Point { return r.point }

// Tags returns the document tags.
func (r *Result) Tags() map[string]string { return r.tags }

// Segment returns the index segment the hit was scored in.
func (r *Result) Segment() int { return r.segment }

// Ordinal returns the document ordinal within its segment.
func (r *Result) Ordinal() int { return r.ordinal }
