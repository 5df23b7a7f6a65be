package driving

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// SearchService provides similarity search over indexed documents and entities.
type SearchService interface {
	// Search embeds the query and returns the closest records.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
