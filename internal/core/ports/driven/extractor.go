package driven

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// Extractor converts files of one format into a normalised Document.
// Implementations must be safe for concurrent use.
type Extractor interface {
	// Name returns the format name ("pdf", "eml"...).
	Name() string

	// Extensions returns the lower-case file extensions handled, with dot.
	Extensions() []string

	// MIMETypes returns the content types handled, used for content sniffing.
	MIMETypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific extractors return 50-89, fallbacks return 1-9.
	Priority() int

	// CanHandle reports whether the extractor accepts the path.
	CanHandle(path string) bool

	// ProcessFile reads and normalises the file.
	// Failures wrap domain.ErrExtractionFailure.
	ProcessFile(ctx context.Context, path string) (*domain.Document, error)
}

// ExtractorRegistry maps a file to the extractor capable of handling it.
type ExtractorRegistry interface {
	// Get returns the extractor for path, or nil when the type is unsupported.
	// It never returns an error so callers can skip and continue.
	Get(path string) Extractor

	// Register adds an extractor to the registry.
	Register(extractor Extractor)

	// SupportedExtensions returns every registered extension, sorted.
	SupportedExtensions() []string
}
