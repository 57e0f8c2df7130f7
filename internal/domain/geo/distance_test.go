package geo

import (
	"math"
	"testing"
)

func almost(a, b, eps float64) bool {
	if a > b {
		return a-b < eps
	}
	return b-a < eps
}

func TestEarthRadius_EquatorAndPoles(t *testing.T) {
	if r := EarthRadius(0); !almost(r, EarthSemiMajorAxis, 1e-6) {
		t.Fatalf("equator: want %f, got %f", EarthSemiMajorAxis, r)
	}
	if r := EarthRadius(90); !almost(r, EarthSemiMinorAxis, 1e-6) {
		t.Fatalf("north pole: want %f, got %f", EarthSemiMinorAxis, r)
	}
	if r := EarthRadius(-90); !almost(r, EarthSemiMinorAxis, 1e-6) {
		t.Fatalf("south pole: want %f, got %f", EarthSemiMinorAxis, r)
	}
}

func TestEarthRadius_DecreasesTowardsPole(t *testing.T) {
	prev := EarthRadius(0)
	for lat := 5.0; lat <= 90; lat += 5 {
		r := EarthRadius(lat)
		if r >= prev {
			t.Fatalf("radius at %.0f (%f) should be below radius at %.0f (%f)", lat, r, lat-5, prev)
		}
		prev = r
	}
}

func TestEarthDiameter_IsTwiceRadius(t *testing.T) {
	for _, lat := range []float64{-60, -12.5, 0, 33.3, 89} {
		if d := EarthDiameter(lat); d != 2*EarthRadius(lat) {
			t.Errorf("EarthDiameter(%f) = %f, want %f", lat, d, 2*EarthRadius(lat))
		}
	}
}

func TestDistance_SamePoint(t *testing.T) {
	points := []Point{
		{0, 0},
		{40.7128, -74.0060},
		{-33.8688, 151.2093},
		{90, 0},
		{-90, 123},
		{12.5, 180},
	}
	for _, p := range points {
		if d := Distance(p, p); d != 0 {
			t.Errorf("Distance(%v, %v) = %f, want 0", p, p, d)
		}
	}
}

func TestDistance_NewYork_London(t *testing.T) {
	// NYC to London: ~5,570 km
	d := Distance(Point{40.7128, -74.0060}, Point{51.5074, -0.1278})
	expected := 5_570_000.0
	if !almost(d, expected, 30_000) {
		t.Fatalf("want ~%.0fm, got %.0fm", expected, d)
	}
}

func TestDistance_EquatorQuarter(t *testing.T) {
	d := Distance(Point{0, 0}, Point{0, 90})
	expected := EarthSemiMajorAxis * math.Pi / 2
	if !almost(d, expected, 1e-6) {
		t.Fatalf("want %f, got %f", expected, d)
	}
}

func TestDistance_Antipodal(t *testing.T) {
	d := Distance(Point{0, 0}, Point{0, 180})
	expected := math.Pi * EarthSemiMajorAxis
	if !almost(d, expected, 1e-3) {
		t.Fatalf("want ~%.0fm, got %.0fm", expected, d)
	}
}

func TestDistance_NonNegative(t *testing.T) {
	pairs := [][2]Point{
		{{10, 10}, {-10, -10}},
		{{-45, 170}, {45, -170}},
		{{89.9, 0}, {-89.9, 180}},
		{{0, -180}, {0, 180}},
	}
	for _, p := range pairs {
		if d := Distance(p[0], p[1]); d < 0 || math.IsNaN(d) {
			t.Errorf("Distance(%v, %v) = %f, want >= 0", p[0], p[1], d)
		}
	}
}

func TestCentralAngle_Symmetric(t *testing.T) {
	pairs := [][2]Point{
		{{52.52, 13.405}, {48.8566, 2.3522}},
		{{-33.8688, 151.2093}, {35.6762, 139.6503}},
		{{0, 0}, {0.0001, -0.0001}},
		{{89, 45}, {-89, -135}},
	}
	for _, p := range pairs {
		a, b := CentralAngle(p[0], p[1]), CentralAngle(p[1], p[0])
		if a != b {
			t.Errorf("CentralAngle not symmetric for %v/%v: %v vs %v", p[0], p[1], a, b)
		}
	}
}

func TestDistance_SymmetricOnSameLatitude(t *testing.T) {
	pairs := [][2]Point{
		{{52.52, 13.405}, {52.52, -0.12}},
		{{-10, 170}, {-10, -170}},
		{{0, 0}, {0, 45}},
	}
	for _, p := range pairs {
		a, b := Distance(p[0], p[1]), Distance(p[1], p[0])
		if a != b {
			t.Errorf("Distance not symmetric for %v/%v: %v vs %v", p[0], p[1], a, b)
		}
	}
}

func TestDistance_SymmetricWithinFlattening(t *testing.T) {
	// The radius follows the origin latitude, so swapping points can only
	// change the result by the ellipsoid's radius spread (a/b - 1 ~ 0.34%).
	bound := EarthSemiMajorAxis/EarthSemiMinorAxis - 1
	pairs := [][2]Point{
		{{52.52, 13.405}, {48.8566, 2.3522}},
		{{-33.8688, 151.2093}, {35.6762, 139.6503}},
		{{0, 0}, {89, 0}},
	}
	for _, p := range pairs {
		a, b := Distance(p[0], p[1]), Distance(p[1], p[0])
		if rel := math.Abs(a-b) / math.Max(a, b); rel > bound {
			t.Errorf("relative asymmetry %g for %v/%v exceeds %g", rel, p[0], p[1], bound)
		}
	}
}
