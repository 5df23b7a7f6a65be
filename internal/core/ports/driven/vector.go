package driven

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// VectorUpsert is the input of VectorStore.Upsert. Exactly one of Text
// or Vector should be set; Text is embedded by the store.
type VectorUpsert struct {
	ID       string
	Text     string
	Vector   []float32
	Metadata map[string]string
}

// VectorQuery is the input of VectorStore.Search.
type VectorQuery struct {
	Text   string
	Vector []float32
	K      int
	Filter domain.VectorFilter
}

// VectorStore embeds text, persists vectors and answers similarity queries.
// Writers are exclusive; readers run concurrently and never observe a
// partially applied write.
type VectorStore interface {
	// Upsert inserts or replaces the record for req.ID.
	Upsert(ctx context.Context, req VectorUpsert) (domain.VectorRecord, error)

	// Search returns at most q.K hits in non-increasing similarity order.
	// Ties are broken by most recent insertion.
	Search(ctx context.Context, q VectorQuery) ([]domain.VectorHit, error)

	// Get returns the record for id or domain.ErrNotFound.
	Get(ctx context.Context, id string) (domain.VectorRecord, error)

	// Delete removes the record for id. Missing ids are not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByFilter removes every record matching filter and returns the count.
	DeleteByFilter(ctx context.Context, filter domain.VectorFilter) (int, error)

	// Len returns the number of records.
	Len() int

	// Metric returns the fixed similarity metric.
	Metric() domain.Metric

	// Flush persists pending writes atomically.
	Flush(ctx context.Context) error

	// Close flushes and releases resources.
	Close() error
}
