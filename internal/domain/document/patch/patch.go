package patch

import (
	"fmt"

	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

// Patch is a partial document update.
// A nil value in Points/Tags means delete that field.
type Patch struct {
	points map[string]*geo.Point
	tags   map[string]*string
}

// New validates and creates a Patch. At least one field must be provided.
func New(points map[string]*geo.Point, tags map[string]*string) (Patch, error) {
	if len(points) == 0 && len(tags) == 0 {
		return Patch{}, fmt.Errorf("at least one field must be provided")
	}
	for name, p := range points {
		if p != nil && !p.Valid() {
			return Patch{}, fmt.Errorf("point %q out of bounds: %s", name, p)
		}
	}
	return Patch{points: points, tags: tags}, nil
}

// Points returns point updates (nil value = delete).
func (p Patch) Points() map[string]*geo.Point { return p.points }

// Tags returns tag updates (nil value = delete).
func (p Patch) Tags() map[string]*string { return p.tags }

// Apply merges the patch into a copy of points and tags.
func (p Patch) Apply(points map[string]geo.Point, tags map[string]string) (map[string]geo.Point, map[string]string) {
	outPoints := make(map[string]geo.Point, len(points)+len(p.points))
	for k, v := range points {
		outPoints[k] = v
	}
	for k, v := range p.points {
		if v == nil {
			delete(outPoints, k)
			continue
		}
		outPoints[k] = *v
	}

	outTags := make(map[string]string, len(tags)+len(p.tags))
	for k, v := range tags {
		outTags[k] = v
	}
	for k, v := range p.tags {
		if v == nil {
			delete(outTags, k)
			continue
		}
		outTags[k] = *v
	}
	return outPoints, outTags
}
