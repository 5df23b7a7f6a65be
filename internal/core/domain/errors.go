package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrRateLimited indicates a remote rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// Pipeline Errors.

	// ErrUnsupportedFileType indicates no extractor handles a file.
	// Callers skip the file and continue the batch.
	ErrUnsupportedFileType = errors.New("unsupported file type")

	// ErrExtractionFailure indicates an extractor could not read a supported file.
	ErrExtractionFailure = errors.New("extraction failed")

	// ErrModelUnavailable indicates the entity model is disabled or unreachable.
	// The entity engine falls back to rule-based extraction.
	ErrModelUnavailable = errors.New("entity model unavailable")

	// ErrEmbeddingUnavailable indicates the embedding provider is not reachable.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorStoreCorruption indicates the persisted vector index failed validation.
	// The store refuses to open rather than write atop bad state.
	ErrVectorStoreCorruption = errors.New("vector store corrupted")

	// ErrMetricMismatch indicates a persisted index was built with another metric.
	ErrMetricMismatch = errors.New("similarity metric mismatch")

	// ErrStoreLocked indicates another process holds the vector store lock.
	ErrStoreLocked = errors.New("vector store locked by another process")

	// ErrStoreClosed indicates an operation on a closed store.
	ErrStoreClosed = errors.New("store closed")

	// Sync Errors.

	// ErrSyncTransient indicates a retryable sync failure (timeouts, throttling).
	ErrSyncTransient = errors.New("transient sync error")

	// ErrSyncPermanent indicates a sync failure that must not be retried
	// (validation, authorisation).
	ErrSyncPermanent = errors.New("permanent sync error")

	// ErrConfiguration indicates invalid configuration detected at startup.
	ErrConfiguration = errors.New("configuration error")

	// ErrToleranceExceeded indicates more documents failed than failure_tolerance allows.
	ErrToleranceExceeded = errors.New("failure tolerance exceeded")
)
