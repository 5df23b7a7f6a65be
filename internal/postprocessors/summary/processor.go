// Package summary records per-type entity counts and a one-line summary
// in document metadata.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// Name is the processor name used in configuration.
const Name = "summary"

// Metadata keys written by the processor.
const (
	ExtraCounts       = "entity_counts"
	ExtraAssociations = "association_count"
	ExtraSummary      = "summary"
)

var plurals = map[domain.EntityType][2]string{
	domain.EntityCondition:  {"condition", "conditions"},
	domain.EntityMedication: {"medication", "medications"},
	domain.EntitySymptom:    {"symptom", "symptoms"},
	domain.EntityProvider:   {"provider", "providers"},
	domain.EntityLabResult:  {"lab result", "lab results"},
	domain.EntityProcedure:  {"procedure", "procedures"},
}

// Processor summarises the entities of a document.
type Processor struct{}

// New creates a summary processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Process writes the counts into doc.Metadata.Extra.
func (p *Processor) Process(_ context.Context, doc *domain.Document) error {
	counts := make(map[string]int)
	var parts []string
	for _, typ := range domain.AllEntityTypes() {
		n := len(doc.Entities[typ])
		if n == 0 {
			continue
		}
		counts[string(typ)] = n
		word := plurals[typ][1]
		if n == 1 {
			word = plurals[typ][0]
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, word))
	}

	text := "no entities"
	if len(parts) > 0 {
		text = strings.Join(parts, ", ")
	}

	if doc.Metadata.Extra == nil {
		doc.Metadata.Extra = make(map[string]any)
	}
	doc.Metadata.Extra[ExtraCounts] = counts
	doc.Metadata.Extra[ExtraAssociations] = len(doc.Associations)
	doc.Metadata.Extra[ExtraSummary] = text
	return nil
}
