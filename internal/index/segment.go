package index

import (
	"fmt"

	"github.com/kailas-cloud/geodecay/internal/domain/decay"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

// column holds one geo field's encoded points in ordinal order.
type column struct {
	values  []geo.EncodedPoint
	present []bool
}

// segment is an append-only partition of an index. Ordinals never move;
// deletes only clear the live bit.
type segment struct {
	ids       []string
	tags      []map[string]string
	live      []bool
	liveCount int
	columns   map[string]*column
}

func newSegment(fields []string, capacity int) *segment {
	cols := make(map[string]*column, len(fields))
	for _, f := range fields {
		cols[f] = &column{
			values:  make([]geo.EncodedPoint, 0, capacity),
			present: make([]bool, 0, capacity),
		}
	}
	return &segment{
		ids:     make([]string, 0, capacity),
		tags:    make([]map[string]string, 0, capacity),
		live:    make([]bool, 0, capacity),
		columns: cols,
	}
}

func (s *segment) size() int { return len(s.ids) }

// add appends a document and returns its ordinal. Fields without a point are
// recorded as absent.
func (s *segment) add(id string, points map[string]geo.EncodedPoint, tags map[string]string) int {
	ord := len(s.ids)
	s.ids = append(s.ids, id)
	s.tags = append(s.tags, tags)
	s.live = append(s.live, true)
	s.liveCount++
	for name, col := range s.columns {
		p, ok := points[name]
		col.values = append(col.values, p)
		col.present = append(col.present, ok)
	}
	return ord
}

func (s *segment) remove(ord int) {
	if s.live[ord] {
		s.live[ord] = false
		s.liveCount--
	}
}

// view captures the segment as of now. Later appends land beyond the
// captured length and later deletes do not touch the copied live bits.
func (s *segment) view(num int) *segmentView {
	n := len(s.ids)
	live := make(liveBits, n)
	copy(live, s.live)
	cols := make(map[string]columnView, len(s.columns))
	for name, col := range s.columns {
		cols[name] = columnView{values: col.values[:n:n], present: col.present[:n:n]}
	}
	return &segmentView{
		num:     num,
		ids:     s.ids[:n:n],
		tags:    s.tags[:n:n],
		live:    live,
		columns: cols,
	}
}

type liveBits []bool

func (l liveBits) IsLive(doc int) bool { return l[doc] }

type columnView struct {
	values  []geo.EncodedPoint
	present []bool
}

func (c columnView) EncodedPoint(doc int) (geo.EncodedPoint, error) {
	if !c.present[doc] {
		return 0, decay.ErrNoValue
	}
	return c.values[doc], nil
}

// segmentView is the immutable read side handed to scorers.
type segmentView struct {
	num     int
	ids     []string
	tags    []map[string]string
	live    liveBits
	columns map[string]columnView
}

var _ decay.Segment = (*segmentView)(nil)

func (v *segmentView) MaxDoc() int { return len(v.ids) }

func (v *segmentView) LiveDocs() decay.LiveDocs { return v.live }

func (v *segmentView) PointValues(field string) (decay.PointLookup, error) {
	col, ok := v.columns[field]
	if !ok {
		return nil, fmt.Errorf("no point values for field [%s]", field)
	}
	return col, nil
}
