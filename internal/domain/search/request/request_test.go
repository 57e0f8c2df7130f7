package request

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/kailas-cloud/geodecay/internal/domain/collection"
	"github.com/kailas-cloud/geodecay/internal/domain/collection/field"
	"github.com/kailas-cloud/geodecay/internal/domain/decay/curve"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
	"github.com/kailas-cloud/geodecay/internal/domain/search/filter"
)

var schema = collection.Reconstruct("places", []field.Field{
	field.Reconstruct("location", field.GeoPoint),
	field.Reconstruct("category", field.Tag),
}, 0, 0, 1)

func parse(t *testing.T, body string) Query {
	t.Helper()
	q, err := ParseQuery(json.RawMessage(body), schema)
	if err != nil {
		t.Fatalf("ParseQuery(%s): %v", body, err)
	}
	return q
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-6 }

func TestParseQuery_PointForms(t *testing.T) {
	tests := []struct {
		name string
		body string
		want geo.Point
	}{
		{"object", `{"location": {"lat": 52.52, "lon": 13.405}, "distance": 1000}`, geo.Point{Lat: 52.52, Lon: 13.405}},
		{"object with strings", `{"location": {"lat": "52.52", "lon": "13.405"}, "distance": 1000}`, geo.Point{Lat: 52.52, Lon: 13.405}},
		{"array lon lat", `{"location": [13.405, 52.52], "distance": 1000}`, geo.Point{Lat: 52.52, Lon: 13.405}},
		{"string lat,lon", `{"location": "52.52,13.405", "distance": 1000}`, geo.Point{Lat: 52.52, Lon: 13.405}},
		{"suffix keys", `{"location.lat": 52.52, "location.lon": 13.405, "distance": 1000}`, geo.Point{Lat: 52.52, Lon: 13.405}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := parse(t, tc.body)
			d := q.Descriptor()
			if d.Field() != "location" {
				t.Errorf("Field() = %q", d.Field())
			}
			if !near(d.Point().Lat, tc.want.Lat) || !near(d.Point().Lon, tc.want.Lon) {
				t.Errorf("Point() = %v, want %v", d.Point(), tc.want)
			}
		})
	}
}

func TestParseQuery_Geohash(t *testing.T) {
	for _, body := range []string{
		`{"location": "u33dc0", "distance": 1000}`,
		`{"location": {"geohash": "u33dc0"}, "distance": 1000}`,
		`{"location.geohash": "u33dc0", "distance": 1000}`,
	} {
		p := parse(t, body).Descriptor().Point()
		if math.Abs(p.Lat-52.52) > 0.01 || math.Abs(p.Lon-13.40) > 0.02 {
			t.Errorf("%s: point = %v", body, p)
		}
	}
}

func TestParseQuery_Distance(t *testing.T) {
	tests := []struct {
		body string
		want float64
	}{
		{`{"location": [0, 0], "distance": 1500}`, 1500},
		{`{"location": [0, 0], "distance": "12km"}`, 12_000},
		{`{"location": [0, 0], "distance": "2", "unit": "km"}`, 2000},
		{`{"location": [0, 0], "distance": 3, "unit": "mi"}`, 3 * 1609.344},
		{`{"location": [0, 0], "distance": "1nmi", "unit": "km"}`, 1852},
	}
	for _, tc := range tests {
		if got := parse(t, tc.body).Descriptor().MaxDistance(); !near(got, tc.want) {
			t.Errorf("%s: MaxDistance() = %f, want %f", tc.body, got, tc.want)
		}
	}
}

func TestParseQuery_Options(t *testing.T) {
	q := parse(t, `{
		"location": [13.405, 52.52],
		"distance": "5km",
		"curve": "COSINUS",
		"boost": 2.5,
		"distance_type": "arc",
		"optimize_bbox": "memory",
		"_name": "near-berlin"
	}`)
	d := q.Descriptor()
	if d.Curve() != curve.Cosine {
		t.Errorf("Curve() = %s", d.Curve())
	}
	if d.Boost() != 2.5 {
		t.Errorf("Boost() = %g", d.Boost())
	}
	if q.DistanceType() != geo.DistanceArc {
		t.Errorf("DistanceType() = %s", q.DistanceType())
	}
	if q.Name() != "near-berlin" {
		t.Errorf("Name() = %q", q.Name())
	}
}

func TestParseQuery_Defaults(t *testing.T) {
	q := parse(t, `{"location": [0, 0], "distance": 100}`)
	d := q.Descriptor()
	if d.Curve() != curve.Linear || d.Boost() != 1 || q.DistanceType() != geo.DefaultDistanceType {
		t.Errorf("defaults: curve=%s boost=%g type=%s", d.Curve(), d.Boost(), q.DistanceType())
	}
}

func TestParseQuery_Errors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"not an object", `[1, 2]`, "must be an object"},
		{"missing distance", `{"location": [0, 0]}`, "requires 'distance' to be specified"},
		{"illegal latitude", `{"location": {"lat": 95, "lon": 0}, "distance": 10}`,
			"illegal latitude value [95] for [geo_adaptive_distance]"},
		{"illegal longitude", `{"location": {"lat": 0, "lon": -190}, "distance": 10}`,
			"illegal longitude value [-190] for [geo_adaptive_distance]"},
		{"unknown field", `{"home": [0, 0], "distance": 10}`, "failed to find geo_point field [home]"},
		{"tag field", `{"category": [0, 0], "distance": 10}`, "field [category] is not a geo_point field"},
		{"no field", `{"distance": 10}`, "requires a geo_point field"},
		{"unknown point key", `{"location": {"lat": 0, "lng": 0}, "distance": 10}`, "does not support [lng]"},
		{"bad curve", `{"location": [0, 0], "distance": 10, "curve": "gauss"}`, "unknown curve"},
		{"bad unit", `{"location": [0, 0], "distance": 10, "unit": "parsec"}`, "no distance unit match"},
		{"bad distance type", `{"location": [0, 0], "distance": 10, "distance_type": "x"}`, "no geo distance type match"},
		{"bad distance", `{"location": [0, 0], "distance": "far"}`, "invalid distance"},
		{"zero distance", `{"location": [0, 0], "distance": 0}`, "positive"},
		{"negative boost", `{"location": [0, 0], "distance": 10, "boost": -1}`, "boost"},
		{"array arity", `{"location": [1, 2, 3], "distance": 10}`, "exactly [lon, lat]"},
		{"null value", `{"location": [0, 0], "distance": null}`, "missing value"},
		{"bad geohash", `{"location": "u33a!", "distance": 10}`, "failed to parse point"},
		{"geohash and lat keys", `{"location.geohash": "u33dc0", "location.lat": 1, "distance": 10}`,
			"given in more than one form"},
		{"object and lon key", `{"location": {"lat": 1, "lon": 2}, "location.lon": 3, "distance": 10}`,
			"given in more than one form"},
		{"geohash inside object with lat", `{"location": {"geohash": "u33dc0", "lat": 1}, "distance": 10}`,
			"given in more than one form"},
		{"two geo fields", `{"location.lat": 1, "entrance.lon": 2, "distance": 10}`, "single geo field"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseQuery(json.RawMessage(tc.body), schema)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %q, want %q", err, tc.wantErr)
			}
		})
	}
}

func TestParseQuery_IgnoreMalformed(t *testing.T) {
	q := parse(t, `{"location": {"lat": 95, "lon": 200}, "distance": 10, "ignore_malformed": true}`)
	if p := q.Descriptor().Point(); p.Lat != 95 || p.Lon != 200 {
		t.Errorf("ignore_malformed should keep the raw point, got %v", p)
	}
}

func TestParseQuery_Coerce(t *testing.T) {
	// coerce implies ignore_malformed, even when the explicit flag says otherwise.
	q := parse(t, `{"location": {"lat": 10, "lon": 190}, "distance": 10, "ignore_malformed": false, "coerce": true}`)
	p := q.Descriptor().Point()
	if !near(p.Lat, 10) || !near(p.Lon, -170) {
		t.Errorf("coerced point = %v, want [10, -170]", p)
	}

	q = parse(t, `{"location": {"lat": 100, "lon": 10}, "distance": 10, "normalize": "true"}`)
	p = q.Descriptor().Point()
	if !near(p.Lat, 80) || !near(p.Lon, -170) {
		t.Errorf("coerced point = %v, want [80, -170]", p)
	}
}

func TestNew_SizeAndMinScore(t *testing.T) {
	q := parse(t, `{"location": [0, 0], "distance": 10}`)
	empty, _ := filter.NewExpression(nil, nil, nil)

	tests := []struct {
		size     int
		wantSize int
	}{
		{0, DefaultSize},
		{-3, DefaultSize},
		{25, 25},
		{MaxSize + 1, MaxSize},
	}
	for _, tc := range tests {
		r, err := New(q, tc.size, 0, empty)
		if err != nil {
			t.Fatalf("New(size=%d): %v", tc.size, err)
		}
		if r.Size() != tc.wantSize {
			t.Errorf("Size() = %d, want %d", r.Size(), tc.wantSize)
		}
	}

	for _, ms := range []float64{-0.1, math.NaN(), math.Inf(1)} {
		if _, err := New(q, 10, ms, empty); err == nil {
			t.Errorf("min_score %g: expected error", ms)
		}
	}
	r, err := New(q, 10, 0.5, empty)
	if err != nil || r.MinScore() != 0.5 {
		t.Errorf("MinScore() = %g, %v", r.MinScore(), err)
	}
}

func TestParse_Body(t *testing.T) {
	empty, _ := filter.NewExpression(nil, nil, nil)
	var body Body
	if err := json.Unmarshal([]byte(`{
		"geo_adaptive_distance": {"location": [13.405, 52.52], "distance": "1km", "curve": "x2"},
		"size": 3,
		"min_score": 0.2
	}`), &body); err != nil {
		t.Fatal(err)
	}
	r, err := Parse(body, schema, empty)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if r.Size() != 3 || r.MinScore() != 0.2 || r.Query().Descriptor().Curve() != curve.Quadratic {
		t.Errorf("unexpected request %+v", r)
	}

	if _, err := Parse(Body{Size: 3}, schema, empty); err == nil {
		t.Error("expected error for missing query")
	}
}
