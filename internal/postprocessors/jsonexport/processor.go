// Package jsonexport writes one JSON file per processed document and reads
// them back for re-syncing.
package jsonexport

import (
	"context"
	"fmt"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// Name is the processor name used in configuration.
const Name = "json_export"

// Processor writes documents to an output directory.
type Processor struct {
	dir            string
	includeContent bool
	store          *Store
}

// Option configures the export processor.
type Option func(*Processor)

// WithIncludeContent controls whether document content is written.
func WithIncludeContent(include bool) Option {
	return func(p *Processor) {
		p.includeContent = include
	}
}

// New creates an export processor writing to dir.
func New(dir string, opts ...Option) (*Processor, error) {
	if dir == "" {
		return nil, fmt.Errorf("%w: json_export requires an output directory", domain.ErrConfiguration)
	}
	p := &Processor{dir: dir, includeContent: true}
	for _, opt := range opts {
		opt(p)
	}
	p.store = NewStore(dir, p.includeContent)
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Dir returns the output directory.
func (p *Processor) Dir() string {
	return p.dir
}

// Process writes <dir>/<document id>.json, replacing any earlier export.
func (p *Processor) Process(ctx context.Context, doc *domain.Document) error {
	if err := p.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("export %s: %w", doc.ID, err)
	}
	return nil
}
