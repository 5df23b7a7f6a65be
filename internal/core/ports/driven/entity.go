package driven

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// EntityCandidate is a raw model output before deduplication.
type EntityCandidate struct {
	// Type is the entity type.
	Type domain.EntityType

	// Value is the canonical value.
	Value string

	// Text is the surface form.
	Text string

	// Attributes carries type-specific fields.
	Attributes map[string]string

	// Confidence is the model's score in [0,1].
	Confidence float64
}

// EntityModel is a primary NER/classification model.
// This is an optional service - when nil or failing, rules are used.
type EntityModel interface {
	// Name returns the model name for logging.
	Name() string

	// Infer extracts candidate entities from text.
	// Returns an error wrapping domain.ErrModelUnavailable when the model
	// cannot be reached.
	Infer(ctx context.Context, text string) ([]EntityCandidate, error)
}

// EntityExtractor derives entities, dates, providers and associations
// from a document and writes them onto it.
type EntityExtractor interface {
	// Extract populates doc.Entities, doc.Associations, doc.ExtractedDates,
	// doc.Providers and doc.Confidence, replacing prior values.
	Extract(ctx context.Context, doc *domain.Document) error
}
