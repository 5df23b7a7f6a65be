package driven

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// DocumentStore persists processed documents so they can be read back by
// id after the run that produced them.
type DocumentStore interface {
	// SaveDocument stores or replaces a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound when absent.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns every stored document, sorted by ID.
	ListDocuments(ctx context.Context) ([]domain.Document, error)

	// DeleteDocument removes a document. Deleting a missing id is not an error.
	DeleteDocument(ctx context.Context, id string) error
}
