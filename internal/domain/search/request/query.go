package request

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/kailas-cloud/geodecay/internal/domain/collection/field"
	"github.com/kailas-cloud/geodecay/internal/domain/decay"
	"github.com/kailas-cloud/geodecay/internal/domain/decay/curve"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

// QueryName is the key of the decay query in a search body.
const QueryName = "geo_adaptive_distance"

const (
	latSuffix     = ".lat"
	lonSuffix     = ".lon"
	geohashSuffix = ".geohash"
)

// FieldResolver looks up collection fields by name.
type FieldResolver interface {
	FieldByName(name string) (field.Field, bool)
}

// Query is a parsed geo_adaptive_distance clause.
type Query struct {
	descriptor   decay.Descriptor
	name         string
	distanceType geo.DistanceType
}

// Descriptor returns the scoring parameters.
func (q Query) Descriptor() decay.Descriptor { return q.descriptor }

// Name returns the optional _name label.
func (q Query) Name() string { return q.name }

// DistanceType returns the requested distance type. Scoring always uses the
// ellipsoid-radius haversine; the value is validated and echoed only.
func (q Query) DistanceType() geo.DistanceType { return q.distanceType }

// pointForm tells how the query point was given. Only the .lat/.lon key
// pair may contribute to one point from separate keys.
type pointForm int

const (
	formNone pointForm = iota
	formCoords
	formWhole
)

type queryState struct {
	field           string
	form            pointForm
	point           geo.Point
	distance        json.RawMessage
	unit            geo.Unit
	distanceType    geo.DistanceType
	curve           curve.Curve
	boost           float64
	coerce          bool
	ignoreMalformed bool
	name            string
}

// ParseQuery parses the body of a geo_adaptive_distance clause and checks it
// against the collection schema.
func ParseQuery(raw json.RawMessage, schema FieldResolver) (Query, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Query{}, fmt.Errorf("[%s] must be an object: %w", QueryName, err)
	}

	st := queryState{
		unit:         geo.DefaultUnit,
		distanceType: geo.DefaultDistanceType,
		curve:        curve.Default,
		boost:        1,
	}
	// coerce implies ignore_malformed regardless of key order.
	if v, ok := obj["coerce"]; ok {
		if err := st.setCoerce(v); err != nil {
			return Query{}, err
		}
	} else if v, ok := obj["normalize"]; ok {
		if err := st.setCoerce(v); err != nil {
			return Query{}, err
		}
	}
	for key, v := range obj {
		if err := st.apply(key, v); err != nil {
			return Query{}, err
		}
	}
	return st.build(schema)
}

func (st *queryState) setCoerce(v json.RawMessage) error {
	b, err := boolValue(v)
	if err != nil {
		return fmt.Errorf("[%s] failed to parse [coerce]: %w", QueryName, err)
	}
	st.coerce = b
	if b {
		st.ignoreMalformed = true
	}
	return nil
}

func (st *queryState) apply(key string, v json.RawMessage) error {
	v = bytes.TrimSpace(v)
	if len(v) == 0 || string(v) == "null" {
		return fmt.Errorf("[%s] missing value for [%s]", QueryName, key)
	}
	switch v[0] {
	case '[':
		if err := st.claimPoint(key, formWhole); err != nil {
			return err
		}
		p, err := pointFromArray(v)
		if err != nil {
			return err
		}
		st.point = p
		return nil
	case '{':
		if err := st.claimPoint(key, formWhole); err != nil {
			return err
		}
		p, err := pointFromObject(key, v)
		if err != nil {
			return err
		}
		st.point = p
		return nil
	}

	switch {
	case key == "distance":
		st.distance = v
	case key == "unit":
		s, err := stringValue(v)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse [unit]: %w", QueryName, err)
		}
		u, err := geo.ParseUnit(s)
		if err != nil {
			return fmt.Errorf("[%s] %w", QueryName, err)
		}
		st.unit = u
	case key == "distance_type" || key == "distanceType":
		s, err := stringValue(v)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse [distance_type]: %w", QueryName, err)
		}
		dt, err := geo.ParseDistanceType(s)
		if err != nil {
			return fmt.Errorf("[%s] %w", QueryName, err)
		}
		st.distanceType = dt
	case strings.HasSuffix(key, latSuffix):
		if err := st.claimPoint(strings.TrimSuffix(key, latSuffix), formCoords); err != nil {
			return err
		}
		lat, err := floatValue(v)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse [%s]: %w", QueryName, key, err)
		}
		st.point.Lat = lat
	case strings.HasSuffix(key, lonSuffix):
		if err := st.claimPoint(strings.TrimSuffix(key, lonSuffix), formCoords); err != nil {
			return err
		}
		lon, err := floatValue(v)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse [%s]: %w", QueryName, key, err)
		}
		st.point.Lon = lon
	case strings.HasSuffix(key, geohashSuffix):
		if err := st.claimPoint(strings.TrimSuffix(key, geohashSuffix), formWhole); err != nil {
			return err
		}
		s, err := stringValue(v)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse [%s]: %w", QueryName, key, err)
		}
		p, err := geo.FromGeohash(s)
		if err != nil {
			return fmt.Errorf("[%s] %w", QueryName, err)
		}
		st.point = p
	case key == "_name":
		s, err := stringValue(v)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse [_name]: %w", QueryName, err)
		}
		st.name = s
	case key == "optimize_bbox" || key == "optimizeBbox":
		// Accepted for compatibility; every live document is scored anyway.
	case key == "boost":
		b, err := floatValue(v)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse [boost]: %w", QueryName, err)
		}
		st.boost = b
	case key == "curve":
		s, err := stringValue(v)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse [curve]: %w", QueryName, err)
		}
		c, err := curve.Parse(s)
		if err != nil {
			return fmt.Errorf("[%s] %w", QueryName, err)
		}
		st.curve = c
	case key == "coerce" || key == "normalize":
		// handled before the key loop
	case key == "ignore_malformed":
		if st.coerce {
			return nil
		}
		b, err := boolValue(v)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse [ignore_malformed]: %w", QueryName, err)
		}
		st.ignoreMalformed = b
	default:
		s, err := stringValue(v)
		if err != nil {
			return fmt.Errorf("[%s] unsupported value for [%s]: %w", QueryName, key, err)
		}
		if err := st.claimPoint(key, formWhole); err != nil {
			return err
		}
		p, err := geo.ParsePoint(s)
		if err != nil {
			return fmt.Errorf("[%s] failed to parse point [%s]: %w", QueryName, key, err)
		}
		st.point = p
	}
	return nil
}

// claimPoint records which field and form set the query point. Object keys
// arrive unordered, so any combination whose result would depend on key
// order is rejected.
func (st *queryState) claimPoint(fieldName string, form pointForm) error {
	switch {
	case st.form == formNone:
		st.field, st.form = fieldName, form
		return nil
	case st.field != fieldName:
		return fmt.Errorf("[%s] query supports a single geo field, got [%s] and [%s]", QueryName, st.field, fieldName)
	case st.form == formCoords && form == formCoords:
		return nil
	default:
		return fmt.Errorf("[%s] point for [%s] is given in more than one form", QueryName, fieldName)
	}
}

func (st *queryState) build(schema FieldResolver) (Query, error) {
	p := st.point
	if !st.ignoreMalformed {
		if p.Lat > 90 || p.Lat < -90 {
			return Query{}, fmt.Errorf("illegal latitude value [%s] for [%s]", formatFloat(p.Lat), QueryName)
		}
		if p.Lon > 180 || p.Lon < -180 {
			return Query{}, fmt.Errorf("illegal longitude value [%s] for [%s]", formatFloat(p.Lon), QueryName)
		}
	}
	if st.coerce {
		p = p.Normalize()
	}

	if st.distance == nil {
		return Query{}, fmt.Errorf("%s requires 'distance' to be specified", QueryName)
	}
	distance, err := st.parseDistance()
	if err != nil {
		return Query{}, err
	}

	if st.field == "" {
		return Query{}, fmt.Errorf("%s requires a geo_point field", QueryName)
	}
	f, ok := schema.FieldByName(st.field)
	if !ok {
		return Query{}, fmt.Errorf("failed to find geo_point field [%s]", st.field)
	}
	if f.FieldType() != field.GeoPoint {
		return Query{}, fmt.Errorf("field [%s] is not a geo_point field", st.field)
	}

	d, err := decay.NewDescriptor(st.field, p, distance, st.curve, st.boost)
	if err != nil {
		return Query{}, fmt.Errorf("[%s] %w", QueryName, err)
	}
	return Query{descriptor: d, name: st.name, distanceType: st.distanceType}, nil
}

// parseDistance converts the distance to meters. A bare number is in unit; a
// string may carry its own unit suffix and otherwise falls back to unit.
func (st *queryState) parseDistance() (float64, error) {
	if st.distance[0] == '"' {
		s, err := stringValue(st.distance)
		if err != nil {
			return 0, fmt.Errorf("[%s] failed to parse [distance]: %w", QueryName, err)
		}
		m, err := geo.ParseDistance(s, st.unit, geo.Meters)
		if err != nil {
			return 0, fmt.Errorf("[%s] %w", QueryName, err)
		}
		return m, nil
	}
	n, err := floatValue(st.distance)
	if err != nil {
		return 0, fmt.Errorf("[%s] failed to parse [distance]: %w", QueryName, err)
	}
	return geo.Meters.Convert(n, st.unit), nil
}

func pointFromObject(key string, v json.RawMessage) (geo.Point, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(v, &obj); err != nil {
		return geo.Point{}, fmt.Errorf("[%s] failed to parse point [%s]: %w", QueryName, key, err)
	}
	if _, ok := obj["geohash"]; ok && len(obj) > 1 {
		if _, lat := obj["lat"]; lat {
			return geo.Point{}, fmt.Errorf("[%s] point for [%s] is given in more than one form", QueryName, key)
		}
		if _, lon := obj["lon"]; lon {
			return geo.Point{}, fmt.Errorf("[%s] point for [%s] is given in more than one form", QueryName, key)
		}
	}
	var p geo.Point
	for k, raw := range obj {
		switch k {
		case "lat":
			lat, err := floatValue(raw)
			if err != nil {
				return geo.Point{}, fmt.Errorf("[%s] failed to parse [%s.lat]: %w", QueryName, key, err)
			}
			p.Lat = lat
		case "lon":
			lon, err := floatValue(raw)
			if err != nil {
				return geo.Point{}, fmt.Errorf("[%s] failed to parse [%s.lon]: %w", QueryName, key, err)
			}
			p.Lon = lon
		case "geohash":
			s, err := stringValue(raw)
			if err != nil {
				return geo.Point{}, fmt.Errorf("[%s] failed to parse [%s.geohash]: %w", QueryName, key, err)
			}
			gp, err := geo.FromGeohash(s)
			if err != nil {
				return geo.Point{}, fmt.Errorf("[%s] %w", QueryName, err)
			}
			p = gp
		default:
			return geo.Point{}, fmt.Errorf("[%s] query does not support [%s]", QueryName, k)
		}
	}
	return p, nil
}

// pointFromArray reads the GeoJSON order [lon, lat].
func pointFromArray(v json.RawMessage) (geo.Point, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(v, &arr); err != nil {
		return geo.Point{}, fmt.Errorf("[%s] failed to parse point array: %w", QueryName, err)
	}
	if len(arr) != 2 {
		return geo.Point{}, fmt.Errorf("[%s] point array must hold exactly [lon, lat], got %d values", QueryName, len(arr))
	}
	lon, err := floatValue(arr[0])
	if err != nil {
		return geo.Point{}, fmt.Errorf("[%s] failed to parse longitude: %w", QueryName, err)
	}
	lat, err := floatValue(arr[1])
	if err != nil {
		return geo.Point{}, fmt.Errorf("[%s] failed to parse latitude: %w", QueryName, err)
	}
	return geo.Point{Lat: lat, Lon: lon}, nil
}

func stringValue(v json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(v, &s); err != nil {
		return "", fmt.Errorf("expected string, got %s", v)
	}
	return s, nil
}

// floatValue accepts a JSON number or a numeric string.
func floatValue(v json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(v, &f); err == nil {
		return f, nil
	}
	s, err := stringValue(v)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %s", v)
	}
	f, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("expected number, got %q", s)
	}
	return f, nil
}

// boolValue accepts a JSON boolean or "true"/"false".
func boolValue(v json.RawMessage) (bool, error) {
	var b bool
	if err := json.Unmarshal(v, &b); err == nil {
		return b, nil
	}
	s, err := stringValue(v)
	if err != nil {
		return false, fmt.Errorf("expected boolean, got %s", v)
	}
	b, err = strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("expected boolean, got %q", s)
	}
	return b, nil
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
