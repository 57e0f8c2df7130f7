// Package decay scores documents by how far their stored point lies from a
// query point, bending the distance through a decay curve.
package decay

import (
	"errors"
	"fmt"
	"math"

	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

// NoMoreDocs is returned by iteration once a segment is exhausted.
const NoMoreDocs = math.MaxInt32

var (
	// ErrNoValue signals a document without a stored point for the field.
	ErrNoValue = errors.New("document has no point value")
	// ErrNotPositioned signals Score called before NextDoc/Advance or after exhaustion.
	ErrNotPositioned = errors.New("scorer is not positioned on a document")
)

// ScoreError is a per-document scoring fault. Iteration may continue past it.
type ScoreError struct {
	Doc int
	Err error
}

func (e *ScoreError) Error() string {
	return fmt.Sprintf("score doc %d: %v", e.Doc, e.Err)
}

func (e *ScoreError) Unwrap() error { return e.Err }

// ScoreSource walks the live documents of one segment in ascending order and
// scores the current one.
type ScoreSource interface {
	// DocID is -1 before the first call to NextDoc/Advance, NoMoreDocs once exhausted.
	DocID() int
	NextDoc() int
	// Advance moves to the first live document at or after target.
	Advance(target int) int
	Score() (float64, error)
	Cost() int64
}

// LiveDocs reports deletions. A nil LiveDocs means every ordinal is live.
type LiveDocs interface {
	IsLive(doc int) bool
}

// PointLookup resolves a document ordinal to its stored point.
type PointLookup interface {
	EncodedPoint(doc int) (geo.EncodedPoint, error)
}

// Segment is the read view a scorer needs from one partition of the index.
type Segment interface {
	MaxDoc() int
	LiveDocs() LiveDocs
	PointValues(field string) (PointLookup, error)
}
