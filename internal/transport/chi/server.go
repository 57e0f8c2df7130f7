// Package chi exposes the geodecay use cases over HTTP on a chi router.
package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/geodecay/internal/domain/document"
	"github.com/kailas-cloud/geodecay/internal/logger"
	batchuc "github.com/kailas-cloud/geodecay/internal/usecase/batch"
	collectionuc "github.com/kailas-cloud/geodecay/internal/usecase/collection"
	documentuc "github.com/kailas-cloud/geodecay/internal/usecase/document"
	healthuc "github.com/kailas-cloud/geodecay/internal/usecase/health"
	searchuc "github.com/kailas-cloud/geodecay/internal/usecase/search"
)

// Server holds the HTTP handlers.
type Server struct {
	collections   *collectionuc.Service
	documents     *documentuc.Service
	search        *searchuc.Service
	batch         *batchuc.Service
	health        *healthuc.Service
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	collections *collectionuc.Service,
	documents *documentuc.Service,
	search *searchuc.Service,
	batch *batchuc.Service,
	health *healthuc.Service,
) *Server {
	return &Server{
		collections:   collections,
		documents:     documents,
		search:        search,
		batch:         batch,
		health:        health,
		errorHandlers: defaultErrorHandlers(),
	}
}

// Mount registers every route on r.
func (s *Server) Mount(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/collections", func(r chi.Router) {
		r.Post("/", s.CreateCollection)
		r.Get("/", s.ListCollections)

		r.Route("/{collection}", func(r chi.Router) {
			r.Get("/", s.GetCollection)
			r.Delete("/", s.DeleteCollection)
			r.Post("/reload", s.ReloadCollection)
			r.Post("/search", s.Search)

			r.Post("/documents/batch", s.BatchUpsert)
			r.Delete("/documents/batch", s.BatchDelete)
			r.Put("/documents/{id}", s.UpsertDocument)
			r.Get("/documents/{id}", s.GetDocument)
			r.Patch("/documents/{id}", s.PatchDocument)
			r.Delete("/documents/{id}", s.DeleteDocument)
		})
	})
}

// CreateCollection handles POST /collections.
func (s *Server) CreateCollection(w http.ResponseWriter, r *http.Request) {
	var req CreateCollectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, "collection name is required")
		return
	}

	fields, err := fieldsFromRequest(req.Fields)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	col, err := s.collections.Create(r.Context(), req.Name, fields, req.SegmentSize)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, collectionToResponse(col))
}

// ListCollections handles GET /collections.
func (s *Server) ListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := s.collections.List(r.Context())
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	items := make([]Collection, len(cols))
	for i, c := range cols {
		items[i] = collectionToResponse(c)
	}
	writeJSON(w, http.StatusOK, CollectionListResponse{Items: items, Count: len(items)})
}

// GetCollection handles GET /collections/{collection}.
func (s *Server) GetCollection(w http.ResponseWriter, r *http.Request) {
	info, err := s.collections.Describe(r.Context(), chi.URLParam(r, "collection"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, infoToResponse(info))
}

// DeleteCollection handles DELETE /collections/{collection}.
func (s *Server) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.collections.Delete(r.Context(), chi.URLParam(r, "collection")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReloadCollection handles POST /collections/{collection}/reload.
func (s *Server) ReloadCollection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	info, err := s.collections.Reload(r.Context(), name)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("index reloaded",
		zap.String("collection", name),
		zap.Int("documents", info.Stats.Live),
	)
	writeJSON(w, http.StatusOK, infoToResponse(info))
}

// UpsertDocument handles PUT /collections/{collection}/documents/{id}.
func (s *Server) UpsertDocument(w http.ResponseWriter, r *http.Request) {
	var req DocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	doc, err := domdoc.New(chi.URLParam(r, "id"), pointsFromRequest(req.Points), req.Tags)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	stored, created, err := s.documents.Upsert(r.Context(), chi.URLParam(r, "collection"), &doc)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	writeJSON(w, status, documentToResponse(&stored))
}

// GetDocument handles GET /collections/{collection}/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := s.documents.Get(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"))
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// PatchDocument handles PATCH /collections/{collection}/documents/{id}.
func (s *Server) PatchDocument(w http.ResponseWriter, r *http.Request) {
	var req PatchDocumentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	p, err := patchFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	doc, err := s.documents.Patch(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id"), p)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, documentToResponse(&doc))
}

// DeleteDocument handles DELETE /collections/{collection}/documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.documents.Delete(r.Context(), chi.URLParam(r, "collection"), chi.URLParam(r, "id")); err != nil {
		s.handleDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// BatchUpsert handles POST /collections/{collection}/documents/batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	var req BatchUpsertRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.checkBatchSize(w, len(req.Documents)) {
		return
	}

	docs := make([]domdoc.Document, 0, len(req.Documents))
	for i, item := range req.Documents {
		doc, err := domdoc.New(item.ID, pointsFromRequest(item.Points), item.Tags)
		if err != nil {
			writeError(w, http.StatusBadRequest, CodeValidationFailed, fmt.Sprintf("documents[%d]: %s", i, err))
			return
		}
		docs = append(docs, doc)
	}

	results := s.batch.Upsert(r.Context(), chi.URLParam(r, "collection"), docs)
	writeJSON(w, http.StatusOK, batchResultToResponse(results))
}

// BatchDelete handles DELETE /collections/{collection}/documents/batch.
func (s *Server) BatchDelete(w http.ResponseWriter, r *http.Request) {
	var req BatchDeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !s.checkBatchSize(w, len(req.IDs)) {
		return
	}

	results := s.batch.Delete(r.Context(), chi.URLParam(r, "collection"), req.IDs)
	writeJSON(w, http.StatusOK, batchResultToResponse(results))
}

// Search handles POST /collections/{collection}/search.
func (s *Server) Search(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "collection")
	ctx := logger.With(r.Context(), zap.String("collection", name))

	var req SearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	filters, err := filtersFromRequest(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeInvalidQuery, "filters: "+err.Error())
		return
	}

	resp, err := s.search.Search(ctx, name, req.Body, filters)
	if err != nil {
		s.handleDomainError(w, r.WithContext(ctx), err)
		return
	}
	writeJSON(w, http.StatusOK, searchToResponse(resp))
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}
	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, HealthResponse{Status: string(report.Status), Checks: checks})
}

func (s *Server) checkBatchSize(w http.ResponseWriter, n int) bool {
	if limit := s.batch.MaxBatchSize(); n == 0 || n > limit {
		writeError(w, http.StatusBadRequest, CodeValidationFailed,
			fmt.Sprintf("batch size must be between 1 and %d", limit))
		return false
	}
	return true
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, CodeBadRequest,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return false
		}
		writeError(w, http.StatusBadRequest, CodeBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
