package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/kailas-cloud/geodecay/internal/domain"
	"github.com/kailas-cloud/geodecay/internal/logger"
)

// ErrorCode is the machine-readable code of an error response.
type ErrorCode string

// Error codes returned in ErrorResponse.Code.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeInvalidQuery       ErrorCode = "invalid_query"
	CodeCollectionNotFound ErrorCode = "collection_not_found"
	CodeCollectionExists   ErrorCode = "collection_already_exists"
	CodeDocumentNotFound   ErrorCode = "document_not_found"
	CodeIndexNotReady      ErrorCode = "index_not_ready"
	CodeInternalError      ErrorCode = "internal_error"
)

// ErrorResponse is the JSON body of every non-2xx response.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeCollectionNotFound, false),
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound, false),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeCollectionExists, false),
		sentinelHandler(domain.ErrInvalidSchema, http.StatusBadRequest, CodeValidationFailed, true),
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, CodeInvalidQuery, true),
		sentinelHandler(domain.ErrIndexNotReady, http.StatusServiceUnavailable, CodeIndexNotReady, false),
	}
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// detailed handlers pass the full error text through; they are only used for
// client mistakes whose message names the offending input.
func sentinelHandler(sentinel error, status int, code ErrorCode, detailed bool) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if detailed {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Debug("request rejected", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, "internal error")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
