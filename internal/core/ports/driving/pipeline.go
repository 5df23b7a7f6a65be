package driving

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// PipelineService runs documents through extraction, entity extraction,
// indexing, post-processing and sync.
type PipelineService interface {
	// Run discovers files under the configured input directory and
	// processes them. Returned errors are orchestrator-level (configuration,
	// store corruption); document failures are in the report.
	Run(ctx context.Context) (*domain.RunReport, error)

	// RunFiles processes an explicit list of files.
	RunFiles(ctx context.Context, paths []string) (*domain.RunReport, error)

	// Watch re-processes files as they change under the input directory
	// until ctx is done. onReport receives the report of every batch.
	Watch(ctx context.Context, onReport func(*domain.RunReport)) error

	// Status returns progress of the current run.
	Status() PipelineStatus
}

// PipelineStatus represents the progress of a run.
type PipelineStatus struct {
	// Running indicates if a run is in progress.
	Running bool

	// DocumentsProcessed is the count of documents finished so far.
	DocumentsProcessed int

	// ErrorCount is the number of failed documents so far.
	ErrorCount int
}
