// Package curve holds the decay curves that turn a distance ratio into a
// relevance factor.
package curve

import (
	"fmt"
	"math"
	"strings"
)

// Curve selects the decay shape.
type Curve int

const (
	// Linear decays as 1 - ratio.
	Linear Curve = iota
	// Cosine decays as cos(pi/2 * ratio) inside the radius.
	Cosine
	// Quadratic decays as (ratio - 1)^2 inside the radius.
	Quadratic
)

// Default is used when a request names no curve.
const Default = Linear

// Floor thresholds and numerators. Once the raw value drops below the
// threshold the score switches to numerator/ratio.
const (
	linearFloor        = 0.1
	linearNumerator    = 0.1
	cosineFloor        = 0.1
	cosineNumerator    = 0.0935
	quadraticFloor     = 0.04
	quadraticNumerator = 0.032
)

var names = map[string]Curve{
	"linear":    Linear,
	"cosinus":   Cosine,
	"cosine":    Cosine,
	"x2":        Quadratic,
	"quadratic": Quadratic,
}

// Parse resolves a request name. Matching is case-insensitive and an empty
// name yields Default.
func Parse(name string) (Curve, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return Default, nil
	}
	c, ok := names[name]
	if !ok {
		return 0, fmt.Errorf("unknown curve %q (supported: linear, cosinus, x2)", name)
	}
	return c, nil
}

// IsValid reports whether c is one of the defined curves.
func (c Curve) IsValid() bool {
	return c >= Linear && c <= Quadratic
}

// String returns the canonical request name.
func (c Curve) String() string {
	switch c {
	case Linear:
		return "linear"
	case Cosine:
		return "cosinus"
	case Quadratic:
		return "x2"
	default:
		return fmt.Sprintf("curve(%d)", int(c))
	}
}

// Raw is the curve value before the floor correction.
func (c Curve) Raw(ratio float64) float64 {
	switch c {
	case Linear:
		return 1 - ratio
	case Cosine:
		if ratio < 1 {
			return math.Cos(math.Pi / 2 * ratio)
		}
		return 0
	case Quadratic:
		if ratio < 1 {
			d := ratio - 1
			return d * d
		}
		return 0
	default:
		return 0
	}
}

// Score applies the curve and its floor. Beyond the floor the result falls
// off as numerator/ratio, so it stays positive for any finite ratio.
func (c Curve) Score(ratio float64) float64 {
	raw := c.Raw(ratio)
	switch c {
	case Linear:
		if raw < linearFloor {
			return linearNumerator / ratio
		}
	case Cosine:
		if raw < cosineFloor {
			return cosineNumerator / ratio
		}
	case Quadratic:
		if raw < quadraticFloor {
			return quadraticNumerator / ratio
		}
	}
	return raw
}

// MarshalText implements encoding.TextMarshaler.
func (c Curve) MarshalText() ([]byte, error) {
	if !c.IsValid() {
		return nil, fmt.Errorf("invalid curve %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Curve) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
