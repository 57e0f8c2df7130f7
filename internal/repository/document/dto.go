package document

import (
	"fmt"
	"strconv"
	"strings"

	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
)

// Hash field layout of a stored document.
const (
	fieldID       = "__id"
	fieldRevision = "__revision"
	pointPrefix   = "p:"
	tagPrefix     = "t:"
)

// buildHashFields converts a domain Document into a flat map[string]string for HSET.
// Points are written as "lat,lon" with full float precision.
func buildHashFields(doc *domdoc.Document, revision int) map[string]string {
	m := make(map[string]string, 2+len(doc.Points())+len(doc.Tags()))
	m[fieldID] = doc.ID()
	m[fieldRevision] = strconv.Itoa(revision)
	for k, p := range doc.Points() {
		m[pointPrefix+k] = strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," + strconv.FormatFloat(p.Lon, 'f', -1, 64)
	}
	for k, v := range doc.Tags() {
		m[tagPrefix+k] = v
	}
	return m
}

// parseHashFields converts a flat hash map back into a domain Document.
func parseHashFields(id string, m map[string]string) (domdoc.Document, error) {
	points := make(map[string]geo.Point)
	tags := make(map[string]string)

	for k, v := range m {
		switch {
		case strings.HasPrefix(k, pointPrefix):
			p, err := geo.ParsePoint(v)
			if err != nil {
				return domdoc.Document{}, fmt.Errorf("document %s field %s: %w", id, k[len(pointPrefix):], err)
			}
			points[k[len(pointPrefix):]] = p
		case strings.HasPrefix(k, tagPrefix):
			tags[k[len(tagPrefix):]] = v
		}
	}

	return domdoc.Reconstruct(id, points, tags, revisionOf(m)), nil
}

// revisionOf returns the stored revision, or 0 for a missing hash.
func revisionOf(m map[string]string) int {
	if len(m) == 0 {
		return 0
	}
	rev, err := strconv.Atoi(m[fieldRevision])
	if err != nil || rev < 1 {
		return 1
	}
	return rev
}
