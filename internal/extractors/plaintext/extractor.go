package plaintext

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/extractors/base"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles plain text files such as typed clinic notes and
// lab exports.
type Extractor struct{}

// New creates a new plain text extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the format name.
func (e *Extractor) Name() string {
	return "plaintext"
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".txt", ".text", ".log", ".csv", ".tsv"}
}

// MIMETypes returns the MIME types this extractor handles.
func (e *Extractor) MIMETypes() []string {
	return []string{"text/plain", "text/csv", "text/tab-separated-values"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 5 // Fallback extractor
}

// CanHandle reports whether the path has a plain text extension.
func (e *Extractor) CanHandle(path string) bool {
	return base.HasExtension(path, e.Extensions())
}

// ProcessFile reads the file as UTF-8 text. Invalid sequences are
// replaced and lower the quality score.
func (e *Extractor) ProcessFile(ctx context.Context, path string) (*domain.Document, error) {
	f, err := base.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	content := string(f.Content)
	quality := base.PrintableRatio(content)
	if !utf8.ValidString(content) {
		content = strings.ToValidUTF8(content, "�")
		quality *= 0.8
	}

	doc := base.NewDocument(f, e.Name(), "text/plain")
	doc.Content = base.CleanText(content)
	doc.Metadata.Quality = quality
	return base.Finish(doc)
}
