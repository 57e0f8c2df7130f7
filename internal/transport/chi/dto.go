package chi

import (
	"fmt"
	"time"

	dombatch "github.com/kailas-cloud/geodecay/internal/domain/batch"
	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	"github.com/kailas-cloud/geodecay/internal/domain/collection/field"
	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/domain/document/patch"
	"github.com/kailas-cloud/geodecay/internal/domain/geo"
	"github.com/kailas-cloud/geodecay/internal/domain/search/filter"
	"github.com/kailas-cloud/geodecay/internal/domain/search/request"
	collectionuc "github.com/kailas-cloud/geodecay/internal/usecase/collection"
	searchuc "github.com/kailas-cloud/geodecay/internal/usecase/search"
)

// FieldDefinition is a collection field on the wire.
type FieldDefinition struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// CreateCollectionRequest is the body of POST /collections.
type CreateCollectionRequest struct {
	Name        string            `json:"name"`
	Fields      []FieldDefinition `json:"fields"`
	SegmentSize int               `json:"segment_size,omitempty"`
}

// IndexStats describes the in-memory index of a collection.
type IndexStats struct {
	Documents  int    `json:"documents"`
	Segments   int    `json:"segments"`
	Ordinals   int    `json:"ordinals"`
	Generation uint64 `json:"generation"`
}

// Collection is a collection on the wire.
type Collection struct {
	Name        string            `json:"name"`
	Fields      []FieldDefinition `json:"fields"`
	SegmentSize int               `json:"segment_size"`
	CreatedAt   time.Time         `json:"created_at"`
	Revision    int               `json:"revision"`
	Index       *IndexStats       `json:"index,omitempty"`
}

// CollectionListResponse is the body of GET /collections.
type CollectionListResponse struct {
	Items []Collection `json:"items"`
	Count int          `json:"count"`
}

// Point is a latitude/longitude pair on the wire.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DocumentRequest is the body of PUT /collections/{collection}/documents/{id}.
type DocumentRequest struct {
	Points map[string]Point  `json:"points"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// PatchDocumentRequest is the body of PATCH; a null value removes the field.
type PatchDocumentRequest struct {
	Points map[string]*Point  `json:"points,omitempty"`
	Tags   map[string]*string `json:"tags,omitempty"`
}

// DocumentResponse is a stored document on the wire.
type DocumentResponse struct {
	ID       string            `json:"id"`
	Points   map[string]Point  `json:"points"`
	Tags     map[string]string `json:"tags,omitempty"`
	Revision int               `json:"revision"`
}

// BatchDocument is one item of a batch upsert.
type BatchDocument struct {
	ID     string            `json:"id"`
	Points map[string]Point  `json:"points"`
	Tags   map[string]string `json:"tags,omitempty"`
}

// BatchUpsertRequest is the body of POST /collections/{collection}/documents/batch.
type BatchUpsertRequest struct {
	Documents []BatchDocument `json:"documents"`
}

// BatchDeleteRequest is the body of DELETE /collections/{collection}/documents/batch.
type BatchDeleteRequest struct {
	IDs []string `json:"ids"`
}

// BatchResultItem is the outcome of one batch item.
type BatchResultItem struct {
	ID     string  `json:"id"`
	Status string  `json:"status"`
	Error  *string `json:"error,omitempty"`
}

// BatchResponse summarizes a batch operation.
type BatchResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
}

// Condition is one exact tag match of a search filter.
type Condition struct {
	Key   string `json:"key"`
	Match string `json:"match"`
}

// Filters is the boolean tag filter of a search.
type Filters struct {
	Must    []Condition `json:"must,omitempty"`
	Should  []Condition `json:"should,omitempty"`
	MustNot []Condition `json:"must_not,omitempty"`
}

// SearchRequest is the body of POST /collections/{collection}/search.
type SearchRequest struct {
	request.Body
	Filters *Filters `json:"filters,omitempty"`
}

// SearchHit is one scored document.
type SearchHit struct {
	ID       string            `json:"id"`
	Score    float64           `json:"score"`
	Distance float64           `json:"distance"`
	Point    Point             `json:"point"`
	Tags     map[string]string `json:"tags,omitempty"`
	Segment  int               `json:"_segment"`
	Ordinal  int               `json:"_ordinal"`
}

// SearchResponse is the result of a search.
type SearchResponse struct {
	Query            string           `json:"query"`
	Name             string           `json:"_name,omitempty"`
	DistanceType     string           `json:"distance_type"`
	Hits             []SearchHit      `json:"hits"`
	Total            int              `json:"total"`
	Scanned          int64            `json:"scanned"`
	Failures         int64            `json:"failures"`
	FailuresByReason map[string]int64 `json:"failures_by_reason,omitempty"`
	Cached           bool             `json:"cached"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func fieldsFromRequest(defs []FieldDefinition) ([]field.Field, error) {
	fields := make([]field.Field, len(defs))
	for i, f := range defs {
		fld, err := field.New(f.Name, field.Type(f.Type))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		fields[i] = fld
	}
	return fields, nil
}

func collectionToResponse(c domcol.Collection) Collection {
	fields := make([]FieldDefinition, len(c.Fields()))
	for i, f := range c.Fields() {
		fields[i] = FieldDefinition{Name: f.Name(), Type: string(f.FieldType())}
	}
	return Collection{
		Name:        c.Name(),
		Fields:      fields,
		SegmentSize: c.SegmentSize(),
		CreatedAt:   time.UnixMilli(c.CreatedAt()).UTC(),
		Revision:    c.Revision(),
	}
}

func infoToResponse(info collectionuc.Info) Collection {
	resp := collectionToResponse(info.Collection)
	resp.Index = &IndexStats{
		Documents:  info.Stats.Live,
		Segments:   info.Stats.Segments,
		Ordinals:   info.Stats.Ordinals,
		Generation: info.Stats.Generation,
	}
	return resp
}

func pointsFromRequest(in map[string]Point) map[string]geo.Point {
	out := make(map[string]geo.Point, len(in))
	for name, p := range in {
		out[name] = geo.NewPoint(p.Lat, p.Lon)
	}
	return out
}

func pointToResponse(p geo.Point) Point { return Point{Lat: p.Lat, Lon: p.Lon} }

func documentToResponse(doc *domdoc.Document) DocumentResponse {
	points := make(map[string]Point, len(doc.Points()))
	for name, p := range doc.Points() {
		points[name] = pointToResponse(p)
	}
	return DocumentResponse{
		ID:       doc.ID(),
		Points:   points,
		Tags:     doc.Tags(),
		Revision: doc.Revision(),
	}
}

func patchFromRequest(req PatchDocumentRequest) (patch.Patch, error) {
	var points map[string]*geo.Point
	if len(req.Points) > 0 {
		points = make(map[string]*geo.Point, len(req.Points))
		for name, p := range req.Points {
			if p == nil {
				points[name] = nil
				continue
			}
			gp := geo.NewPoint(p.Lat, p.Lon)
			points[name] = &gp
		}
	}
	return patch.New(points, req.Tags) //nolint:wrapcheck // validation message goes to the client as is
}

func batchResultToResponse(results []dombatch.Result) BatchResponse {
	items := make([]BatchResultItem, len(results))
	for i, res := range results {
		items[i] = BatchResultItem{ID: res.ID(), Status: string(res.Status())}
		if res.Err() != nil {
			msg := res.Err().Error()
			items[i].Error = &msg
		}
	}
	succeeded, failed := dombatch.Summary(results)
	return BatchResponse{Items: items, Succeeded: succeeded, Failed: failed}
}

func conditionsFromRequest(in []Condition) ([]filter.Condition, error) {
	out := make([]filter.Condition, 0, len(in))
	for _, c := range in {
		cond, err := filter.NewMatch(c.Key, c.Match)
		if err != nil {
			return nil, err //nolint:wrapcheck // validation message goes to the client as is
		}
		out = append(out, cond)
	}
	return out, nil
}

func filtersFromRequest(f *Filters) (filter.Expression, error) {
	if f == nil {
		return filter.Expression{}, nil
	}
	must, err := conditionsFromRequest(f.Must)
	if err != nil {
		return filter.Expression{}, err
	}
	should, err := conditionsFromRequest(f.Should)
	if err != nil {
		return filter.Expression{}, err
	}
	mustNot, err := conditionsFromRequest(f.MustNot)
	if err != nil {
		return filter.Expression{}, err
	}
	return filter.NewExpression(must, should, mustNot) //nolint:wrapcheck // validation message goes to the client as is
}

func searchToResponse(resp searchuc.Response) SearchResponse {
	hits := make([]SearchHit, len(resp.Result.Hits))
	for i := range resp.Result.Hits {
		h := &resp.Result.Hits[i]
		hits[i] = SearchHit{
			ID:       h.ID(),
			Score:    h.Score(),
			Distance: h.Distance(),
			Point:    pointToResponse(h.Point()),
			Tags:     h.Tags(),
			Segment:  h.Segment(),
			Ordinal:  h.Ordinal(),
		}
	}
	return SearchResponse{
		Query:            request.QueryName,
		Name:             resp.Query.Name(),
		DistanceType:     string(resp.Query.DistanceType()),
		Hits:             hits,
		Total:            resp.Result.Total,
		Scanned:          resp.Result.Scanned,
		Failures:         resp.Result.Failures,
		FailuresByReason: resp.Result.FailuresByReason,
		Cached:           resp.Cached,
	}
}
