// Package postprocessors provides the hooks run after a document is indexed.
package postprocessors

import (
	"context"
	"errors"
	"fmt"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.PostProcessorPipeline = (*Pipeline)(nil)

// errNilDocument is returned for a nil document.
var errNilDocument = errors.New("document is nil")

// Pipeline chains multiple PostProcessors and runs them in order.
// A failing processor never stops the chain.
type Pipeline struct {
	processors []driven.PostProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.PostProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the document through all processors in order and returns
// every failure. A panicking processor is reported as a failure too.
func (p *Pipeline) Process(ctx context.Context, doc *domain.Document) []driven.ProcessorError {
	if doc == nil {
		return []driven.ProcessorError{{Processor: "pipeline", Err: errNilDocument}}
	}

	var failures []driven.ProcessorError
	for _, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			failures = append(failures, driven.ProcessorError{Processor: processor.Name(), Err: err})
			continue
		}
		if err := runIsolated(ctx, processor, doc); err != nil {
			failures = append(failures, driven.ProcessorError{Processor: processor.Name(), Err: err})
		}
	}
	return failures
}

func runIsolated(ctx context.Context, processor driven.PostProcessor, doc *domain.Document) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processor %s panicked: %v", processor.Name(), r)
		}
	}()
	return processor.Process(ctx, doc)
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.PostProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}

// Names returns the processor names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.processors))
	for i, proc := range p.processors {
		names[i] = proc.Name()
	}
	return names
}
