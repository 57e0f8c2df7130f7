package decay

import (
	"math"

	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

var _ ScoreSource = (*Scorer)(nil)

// Scorer visits every live document of a segment. It is not safe for
// concurrent use; build one per segment per goroutine.
type Scorer struct {
	desc   Descriptor
	seg    Segment
	live   LiveDocs
	maxDoc int
	doc    int
	points PointLookup
}

// NewScorer positions a scorer before the first document of seg.
func NewScorer(d Descriptor, seg Segment) *Scorer {
	return &Scorer{
		desc:   d,
		seg:    seg,
		live:   seg.LiveDocs(),
		maxDoc: seg.MaxDoc(),
		doc:    -1,
	}
}

// DocID returns the current ordinal.
func (s *Scorer) DocID() int { return s.doc }

// NextDoc moves to the next live ordinal.
func (s *Scorer) NextDoc() int {
	if s.doc == NoMoreDocs {
		return NoMoreDocs
	}
	for {
		s.doc++
		if s.doc >= s.maxDoc {
			s.doc = NoMoreDocs
			return s.doc
		}
		if s.live == nil || s.live.IsLive(s.doc) {
			return s.doc
		}
	}
}

// Advance moves to the first live ordinal >= target.
func (s *Scorer) Advance(target int) int {
	if target >= s.maxDoc {
		s.doc = NoMoreDocs
		return s.doc
	}
	s.doc = target - 1
	return s.NextDoc()
}

// Cost is the number of ordinals the scorer may visit.
func (s *Scorer) Cost() int64 { return int64(s.maxDoc) }

// Score computes the decay score of the current document. Faults come back as
// *ScoreError and leave the iteration state unchanged.
func (s *Scorer) Score() (float64, error) {
	if s.doc < 0 || s.doc == NoMoreDocs {
		return 0, ErrNotPositioned
	}
	if s.points == nil {
		points, err := s.seg.PointValues(s.desc.field)
		if err != nil {
			return 0, &ScoreError{Doc: s.doc, Err: err}
		}
		s.points = points
	}
	encoded, err := s.points.EncodedPoint(s.doc)
	if err != nil {
		return 0, &ScoreError{Doc: s.doc, Err: err}
	}
	p, err := encoded.Decode()
	if err != nil {
		return 0, &ScoreError{Doc: s.doc, Err: err}
	}
	ratio := math.Abs(geo.Distance(s.desc.point, p) / s.desc.maxDistance)
	return Apply(ratio, s.desc.curve, s.desc.boost), nil
}
