package driven

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// FileSource discovers input files and optionally watches them for changes.
type FileSource interface {
	// Root returns the input directory.
	Root() string

	// Discover lists candidate files under the root, sorted.
	// Hidden files and directories are skipped.
	Discover(ctx context.Context) ([]string, error)

	// Watch emits file changes until ctx is done. The channel is closed
	// when watching stops.
	Watch(ctx context.Context) (<-chan domain.FileChange, error)

	// Close releases resources. Safe to call more than once.
	Close() error
}
