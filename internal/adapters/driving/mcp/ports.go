package mcp

import (
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides similarity search.
	Search driving.SearchService

	// Document reads back processed documents.
	Document driving.DocumentService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	if p.Document == nil {
		return ErrMissingDocumentService
	}
	return nil
}
