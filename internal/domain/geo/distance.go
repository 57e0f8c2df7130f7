package geo

import "math"

// WGS-84 ellipsoid axes in meters.
const (
	EarthSemiMajorAxis = 6_378_137.0
	EarthSemiMinorAxis = 6_356_752.314245
	// EarthMeanRadius is the WGS-84 mean radius, used for unit conversions.
	EarthMeanRadius = 6_371_008.7714
)

// EarthDiameter returns the diameter in meters of the sphere that best fits
// the WGS-84 ellipsoid at the given latitude (degrees).
func EarthDiameter(latDeg float64) float64 {
	return 2 * EarthRadius(latDeg)
}

// EarthRadius returns the geocentric radius of the WGS-84 ellipsoid at latDeg.
func EarthRadius(latDeg float64) float64 {
	const (
		a = EarthSemiMajorAxis
		b = EarthSemiMinorAxis
	)
	lat := latDeg * math.Pi / 180
	cos, sin := math.Cos(lat), math.Sin(lat)

	num := (a*a*cos)*(a*a*cos) + (b*b*sin)*(b*b*sin)
	den := (a*cos)*(a*cos) + (b*sin)*(b*sin)
	return math.Sqrt(num / den)
}

// CentralAngle returns the great-circle angle in radians between two points
// (haversine). It is exactly symmetric in its arguments.
func CentralAngle(p1, p2 Point) float64 {
	lat1 := p1.Lat * math.Pi / 180
	lat2 := p2.Lat * math.Pi / 180
	dLat := (p2.Lat - p1.Lat) * math.Pi / 180
	dLon := (p2.Lon - p1.Lon) * math.Pi / 180

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	cosProd := math.Cos(lat1) * math.Cos(lat2)

	a := sinLat*sinLat + cosProd*(sinLon*sinLon)
	// Rounding can push a just past 1 for near-antipodal points.
	if a > 1 {
		a = 1
	}
	return 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// Distance returns the great-circle distance in meters from p1 to p2.
// The sphere radius is taken at p1's latitude, so every distance measured
// from the same origin uses the same radius.
func Distance(p1, p2 Point) float64 {
	return EarthDiameter(p1.Lat) / 2 * CentralAngle(p1, p2)
}
