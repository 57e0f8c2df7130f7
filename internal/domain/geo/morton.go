package geo

import (
	"errors"
	"fmt"
	"math"
)

// ErrMalformedPoint is returned when an encoded point has bits set outside
// the 62-bit interleaved range.
var ErrMalformedPoint = errors.New("malformed encoded point")

// EncodedPoint is a latitude/longitude pair packed into one integer:
// 31-bit scaled longitude on the even bits, 31-bit scaled latitude on the odd bits.
type EncodedPoint uint64

const (
	pointBits = 31
	maxScaled = 1<<pointBits - 1

	minLon = -180.0
	minLat = -90.0

	lonScale = float64(uint64(1)<<pointBits) / 360.0
	latScale = float64(uint64(1)<<pointBits) / 180.0

	// EncodeTolerance is the round-trip precision of Encode/Decode in degrees.
	EncodeTolerance = 1e-6

	usedBitsMask = uint64(1)<<(2*pointBits) - 1
)

var magic = [...]uint64{
	0x5555555555555555, 0x3333333333333333,
	0x0F0F0F0F0F0F0F0F, 0x00FF00FF00FF00FF,
	0x0000FFFF0000FFFF, 0x00000000FFFFFFFF,
}

var shift = [...]uint{1, 2, 4, 8, 16}

// Encode packs p into an EncodedPoint. Coordinates are expected in bounds;
// out-of-range values are clamped to the nearest edge.
func Encode(p Point) EncodedPoint {
	return EncodedPoint(interleave(scale(p.Lon, minLon, lonScale), scale(p.Lat, minLat, latScale)))
}

// Decode unpacks the point. Fails with ErrMalformedPoint if e uses more than 62 bits.
func (e EncodedPoint) Decode() (Point, error) {
	if uint64(e)&^usedBitsMask != 0 {
		return Point{}, fmt.Errorf("%w: %#x", ErrMalformedPoint, uint64(e))
	}
	lon := float64(deinterleave(uint64(e)))/lonScale + minLon
	lat := float64(deinterleave(uint64(e)>>1))/latScale + minLat
	return Point{Lat: lat, Lon: lon}, nil
}

func scale(v, lowest, factor float64) uint64 {
	s := (v - lowest) * factor
	if s <= 0 || math.IsNaN(s) {
		return 0
	}
	if s >= maxScaled {
		return maxScaled
	}
	return uint64(s)
}

// interleave spreads even's bits over the even positions and odd's over the odd ones.
func interleave(even, odd uint64) uint64 {
	return spread(odd)<<1 | spread(even)
}

func spread(v uint64) uint64 {
	v = (v | v<<shift[4]) & magic[4]
	v = (v | v<<shift[3]) & magic[3]
	v = (v | v<<shift[2]) & magic[2]
	v = (v | v<<shift[1]) & magic[1]
	v = (v | v<<shift[0]) & magic[0]
	return v
}

// deinterleave collects the even bits of b.
func deinterleave(b uint64) uint64 {
	b &= magic[0]
	b = (b ^ b>>shift[0]) & magic[1]
	b = (b ^ b>>shift[1]) & magic[2]
	b = (b ^ b>>shift[2]) & magic[3]
	b = (b ^ b>>shift[3]) & magic[4]
	b = (b ^ b>>shift[4]) & magic[5]
	return b
}
