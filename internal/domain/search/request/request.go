package request

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kailas-cloud/geodecay/internal/domain/search/filter"
)

// Search size limits.
const (
	DefaultSize = 10
	MaxSize     = 500
)

// Request is a validated search.
type Request struct {
	query    Query
	size     int
	minScore float64
	filters  filter.Expression
}

// New validates and normalizes search parameters.
// size <= 0 selects DefaultSize and is capped at MaxSize.
func New(q Query, size int, minScore float64, filters filter.Expression) (Request, error) {
	if size <= 0 {
		size = DefaultSize
	}
	if size > MaxSize {
		size = MaxSize
	}
	if math.IsNaN(minScore) || math.IsInf(minScore, 0) || minScore < 0 {
		return Request{}, fmt.Errorf("min_score must be a non-negative number")
	}
	return Request{query: q, size: size, minScore: minScore, filters: filters}, nil
}

// Body is the JSON search body as it arrives over the wire.
type Body struct {
	Query    json.RawMessage `json:"geo_adaptive_distance"`
	Size     int             `json:"size"`
	MinScore float64         `json:"min_score"`
}

// Parse validates a search body against the collection schema.
func Parse(body Body, schema FieldResolver, filters filter.Expression) (Request, error) {
	if len(body.Query) == 0 {
		return Request{}, fmt.Errorf("[%s] query is required", QueryName)
	}
	q, err := ParseQuery(body.Query, schema)
	if err != nil {
		return Request{}, err
	}
	return New(q, body.Size, body.MinScore, filters)
}

// Query returns the decay query.
func (r *Request) Query() Query { return r.query }

// Size returns the number of hits to return.
func (r *Request) Size() int { return r.size }

// MinScore returns the minimum score a hit needs.
func (r *Request) MinScore() float64 { return r.minScore }

// Filters returns the tag filter applied to hits.
func (r *Request) Filters() filter.Expression { return r.filters }
