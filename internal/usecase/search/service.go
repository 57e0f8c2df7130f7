package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/kailas-cloud/geodecay/internal/domain"
	domcol "github.com/kailas-cloud/geodecay/internal/domain/collection"
	"github.com/kailas-cloud/geodecay/internal/domain/collection/field"
	"github.com/kailas-cloud/geodecay/internal/domain/search/filter"
	"github.com/kailas-cloud/geodecay/internal/domain/search/request"
	"github.com/kailas-cloud/geodecay/internal/index"
	"github.com/kailas-cloud/geodecay/internal/logger"
	"github.com/kailas-cloud/geodecay/internal/metrics"
	"github.com/kailas-cloud/geodecay/internal/tracing"
)

// Metric status labels.
const (
	statusOK      = "ok"
	statusInvalid = "invalid"
	statusError   = "error"
)

// Response is a finished search.
type Response struct {
	Query  request.Query
	Size   int
	Result index.SearchResult
	Cached bool
}

// Service runs geo_adaptive_distance searches against collection indexes.
type Service struct {
	colls       Indexer
	cache       ResultCache
	defaultSize int
	maxSize     int
}

// New creates a search service. cache can be nil.
func New(colls Indexer, cache ResultCache) *Service {
	return &Service{
		colls:       colls,
		cache:       cache,
		defaultSize: request.DefaultSize,
		maxSize:     request.MaxSize,
	}
}

// WithSizeLimits configures the default and maximum number of hits.
func (s *Service) WithSizeLimits(defaultSize, maxSize int) *Service {
	if defaultSize > 0 {
		s.defaultSize = defaultSize
	}
	if maxSize > 0 && maxSize <= request.MaxSize {
		s.maxSize = maxSize
	}
	return s
}

// Search parses the body against the collection schema, scores every live
// document and returns the top hits. Malformed queries fail with
// domain.ErrInvalidQuery before any document is scored.
func (s *Service) Search(
	ctx context.Context, collectionName string, body request.Body, filters filter.Expression,
) (resp Response, err error) {
	ctx, end := tracing.StartSpan(ctx, "geodecay.search", attribute.String("collection", collectionName))
	defer func() { end(err) }()

	start := time.Now()
	curveName := "unknown"
	defer func() {
		status := statusOK
		switch {
		case errors.Is(err, domain.ErrInvalidQuery):
			status = statusInvalid
		case err != nil:
			status = statusError
		}
		metrics.SearchRequestsTotal.WithLabelValues(curveName, status).Inc()
		metrics.SearchDuration.WithLabelValues(curveName).Observe(time.Since(start).Seconds())
	}()

	col, ix, err := s.colls.Index(ctx, collectionName)
	if err != nil {
		return Response{}, err
	}

	body.Size = s.clampSize(body.Size)
	req, err := request.Parse(body, col, filters)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}
	if err := validateFilters(req.Filters(), col); err != nil {
		return Response{}, fmt.Errorf("%w: %w", domain.ErrInvalidQuery, err)
	}

	d := req.Query().Descriptor()
	curveName = d.Curve().String()
	tracing.SetAttributes(ctx,
		attribute.String("geodecay.field", d.Field()),
		attribute.String("geodecay.curve", curveName),
		attribute.Float64("geodecay.max_distance_m", d.MaxDistance()),
	)

	q := index.Query{Descriptor: d, Size: req.Size(), MinScore: req.MinScore(), Filter: req.Filters()}
	resp = Response{Query: req.Query(), Size: req.Size()}

	if s.cache != nil {
		if res, ok := s.cache.Get(ctx, s.cache.Key(collectionName, ix.Version(), q)); ok {
			resp.Result, resp.Cached = res, true
			tracing.SetAttributes(ctx, attribute.Bool("geodecay.cached", true))
			return resp, nil
		}
	}

	res, err := ix.Search(ctx, q)
	if err != nil {
		return Response{}, fmt.Errorf("search %s: %w", collectionName, err)
	}

	metrics.DocumentsScoredTotal.Add(float64(res.Scanned))
	for reason, n := range res.FailuresByReason {
		metrics.ScoreFailuresTotal.WithLabelValues(reason).Add(float64(n))
	}
	if res.Failures > 0 {
		log := logger.FromContext(ctx)
		for _, se := range res.FailureSamples {
			log.Warn("Document score failed",
				zap.String("collection", collectionName),
				zap.String("query", d.String()),
				zap.Int("doc", se.Doc),
				zap.Error(se.Err),
			)
		}
	}
	tracing.SetAttributes(ctx,
		attribute.Int64("geodecay.scanned", res.Scanned),
		attribute.Int64("geodecay.failures", res.Failures),
		attribute.Int("geodecay.hits", len(res.Hits)),
	)

	if s.cache != nil {
		s.cache.Put(ctx, s.cache.Key(collectionName, res.Version, q), res)
	}

	resp.Result = res
	return resp, nil
}

func (s *Service) clampSize(size int) int {
	if size <= 0 {
		return s.defaultSize
	}
	if size > s.maxSize {
		return s.maxSize
	}
	return size
}

// validateFilters ensures every filter key names a tag field of the collection.
func validateFilters(expr filter.Expression, col domcol.Collection) error {
	for _, key := range expr.Keys() {
		if !col.HasField(key, field.Tag) {
			return fmt.Errorf("filter on %q: not a tag field", key)
		}
	}
	return nil
}
