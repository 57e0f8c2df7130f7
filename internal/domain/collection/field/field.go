package field

import "fmt"

// Type is the indexing type of a field.
type Type string

// Field type constants.
const (
	// GeoPoint holds one latitude/longitude per document and can be queried by distance.
	GeoPoint Type = "geo_point"
	// Tag is an exact-match string returned with hits and usable in filters.
	Tag Type = "tag"
)

var reservedFieldNames = map[string]bool{
	"id": true, "_id": true, "score": true, "distance": true,
}

// Field is an immutable value object describing an indexed collection field.
type Field struct {
	name      string
	fieldType Type
}

// IsValid reports whether t is a supported field type.
func (t Type) IsValid() bool { return t == GeoPoint || t == Tag }

// New validates and creates a Field.
// Name must be non-empty, max 64 chars, free of dots and not reserved.
func New(name string, ft Type) (Field, error) {
	if name == "" {
		return Field{}, fmt.Errorf("field name is required")
	}
	if len(name) > 64 {
		return Field{}, fmt.Errorf("field name %q too long (max 64)", name)
	}
	if reservedFieldNames[name] {
		return Field{}, fmt.Errorf("field name %q is reserved", name)
	}
	for _, c := range name {
		if c == '.' {
			return Field{}, fmt.Errorf("field name %q must not contain '.'", name)
		}
	}
	if !ft.IsValid() {
		return Field{}, fmt.Errorf("invalid field type %q for %q", ft, name)
	}
	return Field{name: name, fieldType: ft}, nil
}

// Reconstruct creates a Field without validation (storage hydration).
func Reconstruct(name string, ft Type) Field {
	return Field{name: name, fieldType: ft}
}

// Name returns the field name.
func (f Field) Name() string { return f.name }

// FieldType returns the field's indexing type.
func (f Field) FieldType() Type { return f.fieldType }
