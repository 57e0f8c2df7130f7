package collection

import (
	"fmt"
	"regexp"
	"time"

	"github.com/kailas-cloud/geodecay/internal/domain/collection/field"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

var nameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Segment size bounds. Each segment is scored by its own goroutine, so the
// size trades per-search parallelism against per-segment overhead.
const (
	DefaultSegmentSize = 4096
	MinSegmentSize     = 16
	MaxSegmentSize     = 1 << 20
)

// Collection is the document collection aggregate (immutable value object).
type Collection struct {
	name        string
	fields      []field.Field
	segmentSize int
	createdAt   int64
	revision    int
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name is required")
	}
	if len(name) > 64 {
		return fmt.Errorf("collection name too long (max 64)")
	}
	if !nameRegex.MatchString(name) {
		return fmt.Errorf("collection name must be alphanumeric with underscores and hyphens")
	}
	return nil
}

func validateFields(fields []field.Field) error {
	if len(fields) > 64 {
		return fmt.Errorf("too many fields (max 64)")
	}
	seen := make(map[string]bool, len(fields))
	geoFields := 0
	for _, f := range fields {
		if seen[f.Name()] {
			return fmt.Errorf("duplicate field name: %s", f.Name())
		}
		seen[f.Name()] = true
		if f.FieldType() == field.GeoPoint {
			geoFields++
		}
	}
	if geoFields == 0 {
		return fmt.Errorf("at least one geo_point field is required")
	}
	return nil
}

// New validates and creates a Collection.
// Name: ^[a-zA-Z0-9_-]+$, 1-64 chars. Fields: unique names, max 64, at least
// one geo_point. A zero segmentSize selects DefaultSegmentSize.
func New(name string, fields []field.Field, segmentSize int) (Collection, error) {
	if err := validateName(name); err != nil {
		return Collection{}, err
	}
	if err := validateFields(fields); err != nil {
		return Collection{}, err
	}
	if segmentSize == 0 {
		segmentSize = DefaultSegmentSize
	}
	if segmentSize < MinSegmentSize || segmentSize > MaxSegmentSize {
		return Collection{}, fmt.Errorf("segment size must be between %d and %d", MinSegmentSize, MaxSegmentSize)
	}

	return Collection{
		name:        name,
		fields:      fields,
		segmentSize: segmentSize,
		createdAt:   time.Now().UnixMilli(),
		revision:    1,
	}, nil
}

// Reconstruct creates a Collection without validation (storage hydration).
func Reconstruct(name string, fields []field.Field, segmentSize int, createdAt int64, revision int) Collection {
	if segmentSize <= 0 {
		segmentSize = DefaultSegmentSize
	}
	return Collection{
		name:        name,
		fields:      fields,
		segmentSize: segmentSize,
		createdAt:   createdAt,
		revision:    revision,
	}
}

// Name returns the collection name.
func (c Collection) Name() string { return c.name }

// Fields returns the indexed field definitions.
func (c Collection) Fields() []field.Field { return c.fields }

// SegmentSize returns how many document ordinals fit in one index segment.
func (c Collection) SegmentSize() int { return c.segmentSize }

// CreatedAt returns the creation timestamp (unix millis).
func (c Collection) CreatedAt() int64 { return c.createdAt }

// Revision returns the optimistic concurrency version.
func (c Collection) Revision() int { return c.revision }

// HasField checks if a field with the given name and type exists.
func (c Collection) HasField(name string, ft field.Type) bool {
	for _, f := range c.fields {
		if f.Name() == name && f.FieldType() == ft {
			return true
		}
	}
	return false
}

// FieldByName looks up a field by name.
func (c Collection) FieldByName(name string) (field.Field, bool) {
	for _, f := range c.fields {
		if f.Name() == name {
			return f, true
		}
	}
	return field.Field{}, false
}

// GeoFields returns the names of all geo_point fields in declaration order.
func (c Collection) GeoFields() []string {
	var names []string
	for _, f := range c.fields {
		if f.FieldType() == field.GeoPoint {
			names = append(names, f.Name())
		}
	}
	return names
}

// ValidateDocument checks that points only name geo_point fields and tags only
// name tag fields of this collection.
func (c Collection) ValidateDocument(points map[string]geo.Point, tags map[string]string) error {
	for name := range points {
		if !c.HasField(name, field.GeoPoint) {
			return fmt.Errorf("unknown geo_point field %q", name)
		}
	}
	for name := range tags {
		if !c.HasField(name, field.Tag) {
			return fmt.Errorf("unknown tag field %q", name)
		}
	}
	return nil
}
