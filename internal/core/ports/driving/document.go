package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// DocumentService reads back documents produced by earlier runs.
type DocumentService interface {
	// List returns every processed document, sorted by ID.
	List(ctx context.Context) ([]domain.Document, error)

	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// GetContent returns the normalised text of a document.
	GetContent(ctx context.Context, documentID string) (string, error)

	// GetDetails returns a flattened view of a document for display.
	GetDetails(ctx context.Context, documentID string) (*DocumentDetails, error)

	// Open opens the source file in the default application.
	Open(ctx context.Context, documentID string) error
}

// DocumentDetails provides a standardised view of document metadata.
type DocumentDetails struct {
	// ID is the unique document identifier.
	ID string

	// Title is the document title.
	Title string

	// Path is the source file location.
	Path string

	// Format is the extractor that produced the document.
	Format string

	// Stage is the last stage the document reached.
	Stage domain.Stage

	// Confidence is the overall document confidence.
	Confidence float64

	// EntityCounts is the number of entities per type.
	EntityCounts map[domain.EntityType]int

	// ExtractedDates are the dates found in the text.
	ExtractedDates []string

	// Providers are the provider names found in the text.
	Providers []string

	// UpdatedAt is when the document was last written.
	UpdatedAt time.Time

	// Metadata contains flattened key-value pairs for display.
	Metadata map[string]string
}
