package geo

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Unit is a distance unit.
type Unit struct {
	meters float64
	names  []string
}

// Distance units. Suffix matching in ParseDistance follows this order,
// so "nmi" resolves to nautical miles before miles.
var (
	Inch          = Unit{meters: 0.0254, names: []string{"in", "inch"}}
	Yard          = Unit{meters: 0.9144, names: []string{"yd", "yards"}}
	Feet          = Unit{meters: 0.3048, names: []string{"ft", "feet"}}
	Kilometers    = Unit{meters: 1000, names: []string{"km", "kilometers"}}
	NauticalMiles = Unit{meters: 1852, names: []string{"NM", "nmi", "nauticalmiles"}}
	Millimeters   = Unit{meters: 0.001, names: []string{"mm", "millimeters"}}
	Centimeters   = Unit{meters: 0.01, names: []string{"cm", "centimeters"}}
	Miles         = Unit{meters: 1609.344, names: []string{"mi", "miles"}}
	Meters        = Unit{meters: 1, names: []string{"m", "meters"}}

	// DefaultUnit is the engine-native distance unit.
	DefaultUnit = Meters
)

var units = []Unit{Inch, Yard, Feet, Kilometers, NauticalMiles, Millimeters, Centimeters, Miles, Meters}

// String returns the short unit name.
func (u Unit) String() string { return u.names[0] }

// ToMeters converts value expressed in u to meters.
func (u Unit) ToMeters(value float64) float64 { return value * u.meters }

// Convert converts value expressed in from into u.
func (u Unit) Convert(value float64, from Unit) float64 {
	return value * from.meters / u.meters
}

// EarthRadius returns the mean earth radius expressed in u.
func (u Unit) EarthRadius() float64 { return EarthMeanRadius / u.meters }

// ParseUnit resolves a unit by any of its names.
func ParseUnit(name string) (Unit, error) {
	for _, u := range units {
		for _, n := range u.names {
			if n == name {
				return u, nil
			}
		}
	}
	return Unit{}, fmt.Errorf("no distance unit match [%s]", name)
}

// ParseDistance parses a distance such as "12km" or "500" into the target
// unit. A value without a recognised suffix is read in defaultUnit.
func ParseDistance(s string, defaultUnit, target Unit) (float64, error) {
	s = strings.TrimSpace(s)
	for _, u := range units {
		for _, n := range u.names {
			if strings.HasSuffix(s, n) {
				v, err := parseNumber(strings.TrimSpace(s[:len(s)-len(n)]))
				if err != nil {
					return 0, fmt.Errorf("invalid distance %q: %w", s, err)
				}
				return target.Convert(v, u), nil
			}
		}
	}
	v, err := parseNumber(s)
	if err != nil {
		return 0, fmt.Errorf("invalid distance %q: %w", s, err)
	}
	return target.Convert(v, defaultUnit), nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, fmt.Errorf("not a finite number")
	}
	return v, nil
}

// DistanceType names the great-circle variant requested by the caller.
// It is carried through the request for compatibility and does not change scoring.
type DistanceType string

// Distance type constants.
const (
	DistanceArc       DistanceType = "arc"
	DistanceSloppyArc DistanceType = "sloppy_arc"
	DistancePlane     DistanceType = "plane"
	DistanceFactor    DistanceType = "factor"

	// DefaultDistanceType is used when the request does not specify one.
	DefaultDistanceType = DistanceSloppyArc
)

// ParseDistanceType resolves a distance type name (case-insensitive).
func ParseDistanceType(s string) (DistanceType, error) {
	switch t := DistanceType(strings.ToLower(s)); t {
	case DistanceArc, DistanceSloppyArc, DistancePlane, DistanceFactor:
		return t, nil
	default:
		return "", fmt.Errorf("no geo distance type match [%s]", s)
	}
}
