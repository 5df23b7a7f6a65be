// Package verification re-applies the confidence threshold to a document's
// entities and flags documents that need manual review.
package verification

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// Name is the processor name used in configuration.
const Name = "verification"

// Metadata keys written by the processor.
const (
	ExtraUnverified  = "unverified_entities"
	ExtraNeedsReview = "needs_review"
)

// Processor marks entities verified when their confidence reaches the threshold.
type Processor struct {
	threshold float64
}

// New creates a verification processor.
func New(threshold float64) *Processor {
	return &Processor{threshold: threshold}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Process updates IsVerified on every entity. A document with any
// unverified entity is flagged for review.
func (p *Processor) Process(_ context.Context, doc *domain.Document) error {
	unverified := 0
	for typ, list := range doc.Entities {
		for i := range list {
			list[i].IsVerified = list[i].Confidence >= p.threshold
			if !list[i].IsVerified {
				unverified++
			}
		}
		doc.Entities[typ] = list
	}

	if doc.Metadata.Extra == nil {
		doc.Metadata.Extra = make(map[string]any)
	}
	doc.Metadata.Extra[ExtraUnverified] = unverified
	doc.Metadata.Extra[ExtraNeedsReview] = unverified > 0
	return nil
}
