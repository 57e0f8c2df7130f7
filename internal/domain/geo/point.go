package geo

import (
	"math"
	"strconv"
)

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// NewPoint creates a Point from latitude and longitude in degrees.
func NewPoint(lat, lon float64) Point {
	return Point{Lat: lat, Lon: lon}
}

// String renders the point as "[lat, lon]".
func (p Point) String() string {
	return "[" + strconv.FormatFloat(p.Lat, 'g', -1, 64) + ", " +
		strconv.FormatFloat(p.Lon, 'g', -1, 64) + "]"
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Valid reports whether the point lies inside the coordinate bounds.
func (p Point) Valid() bool {
	return ValidateCoordinates(p.Lat, p.Lon)
}

// Normalize wraps out-of-range coordinates back into bounds.
// A latitude past a pole is reflected and the longitude is moved to the
// opposite meridian; longitude wraps modulo 360.
func (p Point) Normalize() Point {
	lat, lon := p.Lat, p.Lon
	normLat := lat > 90 || lat < -90
	normLon := lon > 180 || lon < -180

	if normLat {
		lat = centeredModulus(lat, 360)
		shift := true
		switch {
		case lat < -90:
			lat = -180 - lat
		case lat > 90:
			lat = 180 - lat
		default:
			shift = false
		}
		if shift {
			if normLon {
				lon += 180
			} else if centeredModulus(lon, 360) > 0 {
				lon -= 180
			} else {
				lon += 180
			}
		}
	}
	if normLon {
		lon = centeredModulus(lon, 360)
	}
	return Point{Lat: lat, Lon: lon}
}

// centeredModulus maps dividend into (-divisor/2, divisor/2].
func centeredModulus(dividend, divisor float64) float64 {
	rtn := math.Mod(dividend, divisor)
	if rtn <= 0 {
		rtn += divisor
	}
	if rtn > divisor/2 {
		rtn -= divisor
	}
	return rtn
}
