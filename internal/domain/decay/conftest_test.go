package decay

import (
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

type liveSet map[int]bool

func (l liveSet) IsLive(doc int) bool { return l[doc] }

type pointMap map[int]geo.EncodedPoint

func (m pointMap) EncodedPoint(doc int) (geo.EncodedPoint, error) {
	e, ok := m[doc]
	if !ok {
		return 0, ErrNoValue
	}
	return e, nil
}

type fakeSegment struct {
	maxDoc  int
	live    liveSet
	fields  map[string]pointMap
	bindErr error
	binds   int
}

func (f *fakeSegment) MaxDoc() int { return f.maxDoc }

func (f *fakeSegment) LiveDocs() LiveDocs {
	if f.live == nil {
		return nil
	}
	return f.live
}

func (f *fakeSegment) PointValues(field string) (PointLookup, error) {
	f.binds++
	if f.bindErr != nil {
		return nil, f.bindErr
	}
	return f.fields[field], nil
}

func drain(s ScoreSource) []int {
	var docs []int
	for doc := s.NextDoc(); doc != NoMoreDocs; doc = s.NextDoc() {
		docs = append(docs, doc)
	}
	return docs
}
