package document

import (
	"fmt"
	"maps"
	"regexp"

	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

var (
	idRegex     = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	reservedIDs = map[string]bool{"search": true, "batch": true}
)

// Document limits.
const (
	MaxIDLength    = 256
	MaxTagLength   = 1024
	MaxFieldsCount = 64
)

// Document is the document aggregate (immutable value object).
type Document struct {
	id       string
	points   map[string]geo.Point
	tags     map[string]string
	revision int
}

// New validates and creates a Document.
// ID: ^[a-zA-Z0-9_-]+$, 1-256 chars, not reserved. At least one point, all
// within coordinate bounds. Schema validation happens in the service layer.
func New(id string, points map[string]geo.Point, tags map[string]string) (Document, error) {
	if err := ValidateID(id); err != nil {
		return Document{}, err
	}
	if len(points) == 0 {
		return Document{}, fmt.Errorf("at least one point is required")
	}
	if len(points)+len(tags) > MaxFieldsCount {
		return Document{}, fmt.Errorf("too many fields (max %d)", MaxFieldsCount)
	}
	for name, p := range points {
		if !p.Valid() {
			return Document{}, fmt.Errorf("point %q out of bounds: %s", name, p)
		}
	}
	for name, v := range tags {
		if len(v) > MaxTagLength {
			return Document{}, fmt.Errorf("tag %q too long (max %d)", name, MaxTagLength)
		}
	}

	return Document{
		id:       id,
		points:   maps.Clone(points),
		tags:     maps.Clone(tags),
		revision: 1,
	}, nil
}

// ValidateID checks the document identifier format.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("document ID is required")
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("document ID too long (max %d)", MaxIDLength)
	}
	if !idRegex.MatchString(id) {
		return fmt.Errorf("document ID must be alphanumeric with underscores and hyphens")
	}
	if reservedIDs[id] {
		return fmt.Errorf("document ID %q is reserved", id)
	}
	return nil
}

// Reconstruct creates a Document without validation (storage hydration).
func Reconstruct(id string, points map[string]geo.Point, tags map[string]string, revision int) Document {
	return Document{id: id, points: points, tags: tags, revision: revision}
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// Points returns the geo points keyed by field name.
func (d *Document) Points() map[string]geo.Point { return d.points }

// Point returns the point stored for field.
func (d *Document) Point(field string) (geo.Point, bool) {
	p, ok := d.points[field]
	return p, ok
}

// Tags returns the tag fields.
func (d *Document) Tags() map[string]string { return d.tags }

// Revision returns the document revision number.
func (d *Document) Revision() int { return d.revision }

// WithRevision returns a copy carrying the given revision.
func (d *Document) WithRevision(rev int) Document {
	return Document{id: d.id, points: d.points, tags: d.tags, revision: rev}
}
