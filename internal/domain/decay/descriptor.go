package decay

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/kailas-cloud/geodecay/internal/domain/decay/curve"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

// Descriptor is an immutable geo decay query. It is shared read-only by the
// scorers built from it.
type Descriptor struct {
	field       string
	point       geo.Point
	maxDistance float64
	curve       curve.Curve
	boost       float64
}

// NewDescriptor validates and creates a Descriptor.
// maxDistance is in meters and must be finite and positive. boost must be
// finite and non-negative; zero leaves scores unscaled.
func NewDescriptor(field string, point geo.Point, maxDistance float64, c curve.Curve, boost float64) (Descriptor, error) {
	if field == "" {
		return Descriptor{}, fmt.Errorf("field is required")
	}
	if !c.IsValid() {
		return Descriptor{}, fmt.Errorf("invalid curve %d", int(c))
	}
	if math.IsNaN(maxDistance) || math.IsInf(maxDistance, 0) || maxDistance <= 0 {
		return Descriptor{}, fmt.Errorf("distance must be a positive finite number, got %g", maxDistance)
	}
	if math.IsNaN(boost) || math.IsInf(boost, 0) || boost < 0 {
		return Descriptor{}, fmt.Errorf("boost must be a non-negative finite number, got %g", boost)
	}
	if math.IsNaN(point.Lat) || math.IsNaN(point.Lon) {
		return Descriptor{}, fmt.Errorf("point %v is not a number", point)
	}
	return Descriptor{
		field:       field,
		point:       point,
		maxDistance: maxDistance,
		curve:       c,
		boost:       boost,
	}, nil
}

// Field returns the geo field name.
func (d Descriptor) Field() string { return d.field }

// Point returns the query origin.
func (d Descriptor) Point() geo.Point { return d.point }

// MaxDistance returns the decay radius in meters.
func (d Descriptor) MaxDistance() float64 { return d.maxDistance }

// Curve returns the decay curve.
func (d Descriptor) Curve() curve.Curve { return d.curve }

// Boost returns the score multiplier.
func (d Descriptor) Boost() float64 { return d.boost }

// Equal compares field, point and boost. Curve and distance do not take part;
// use CacheKey where those must be told apart.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.field == o.field && d.point == o.point && d.boost == o.boost
}

// Hash is consistent with Equal.
func (d Descriptor) Hash() uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(d.field)
	var buf [24]byte
	binary.LittleEndian.PutUint64(buf[0:], hashBits(d.point.Lat))
	binary.LittleEndian.PutUint64(buf[8:], hashBits(d.point.Lon))
	binary.LittleEndian.PutUint64(buf[16:], hashBits(d.boost))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write(buf[:])
	return h.Sum64()
}

// hashBits folds -0 into +0 so values that compare equal hash alike.
func hashBits(v float64) uint64 {
	if v == 0 {
		v = 0
	}
	return math.Float64bits(v)
}

// CacheKey identifies the query by all five parameters.
func (d Descriptor) CacheKey() string {
	return d.field + "|" +
		strconv.FormatFloat(d.point.Lat, 'g', -1, 64) + "|" +
		strconv.FormatFloat(d.point.Lon, 'g', -1, 64) + "|" +
		strconv.FormatFloat(d.maxDistance, 'g', -1, 64) + "|" +
		d.curve.String() + "|" +
		strconv.FormatFloat(d.boost, 'g', -1, 64)
}

// String renders "field,[lat, lon]" with a "^boost" suffix when boost is not 1.
func (d Descriptor) String() string {
	s := d.field + "," + d.point.String()
	if d.boost != 1 {
		s += "^" + strconv.FormatFloat(d.boost, 'g', -1, 64)
	}
	return s
}

// Scorer creates a scorer over one segment.
func (d Descriptor) Scorer(seg Segment) *Scorer {
	return NewScorer(d, seg)
}

// Apply turns a distance ratio into a final score. A zero boost leaves the
// curve output unscaled.
func Apply(ratio float64, c curve.Curve, boost float64) float64 {
	s := c.Score(ratio)
	if boost != 0 {
		s *= boost
	}
	return s
}
