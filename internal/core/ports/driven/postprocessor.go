package driven

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// PostProcessor is a hook run after a document is indexed.
// It may augment the document or trigger a side effect (export, notify).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process handles one document. Errors are isolated by the pipeline.
	Process(ctx context.Context, doc *domain.Document) error
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the document through every processor in order.
	// Each processor failure is returned, none stops the chain.
	Process(ctx context.Context, doc *domain.Document) []ProcessorError
}

// ProcessorError is the isolated failure of one processor.
type ProcessorError struct {
	Processor string
	Err       error
}
