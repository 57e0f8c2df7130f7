package domain

import "errors"

var (
	// ErrNotFound signals a missing collection.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists signals a duplicate collection.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidSchema signals a document or collection that does not fit its schema.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrInvalidQuery signals a search request rejected before any scoring.
	ErrInvalidQuery = errors.New("invalid query")
	// ErrIndexNotReady signals a collection whose in-memory index is still loading.
	ErrIndexNotReady = errors.New("index not ready")
)
