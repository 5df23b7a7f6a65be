package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// StructuredStore is an external store entities are synced to.
// Implementations wrap transient failures with domain.ErrSyncTransient and
// validation or authorisation failures with domain.ErrSyncPermanent.
type StructuredStore interface {
	// Name identifies the target in SyncResults.
	Name() string

	// Upsert writes rec under id in collection.
	Upsert(ctx context.Context, collection, id string, rec domain.Record) error

	// Query returns the record stored under key, or nil when absent.
	Query(ctx context.Context, collection, key string) (*domain.Record, error)

	// Close releases resources.
	Close() error
}

// RateLimiter throttles calls to one external system.
// A single instance is shared by all workers calling that system.
type RateLimiter interface {
	// Wait blocks until a call is allowed or ctx is done.
	Wait(ctx context.Context) error

	// Backoff pauses all callers until d has passed, typically after the
	// remote system signalled throttling.
	Backoff(d time.Duration)
}
