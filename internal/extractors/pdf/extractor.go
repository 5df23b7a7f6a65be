package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/extractors/base"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// sparsePageChars is the average characters per page below which a PDF
// is assumed to be mostly scanned images.
const sparsePageChars = 40

var disableConfigDir sync.Once

// Extractor handles PDF files using pdfcpu. Each page with text becomes
// one section. Scanned pages without a text layer yield no text.
type Extractor struct{}

// New creates a new PDF extractor.
func New() *Extractor {
	disableConfigDir.Do(api.DisableConfigDir)
	return &Extractor{}
}

// Name returns the format name.
func (e *Extractor) Name() string {
	return "pdf"
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".pdf"}
}

// MIMETypes returns the MIME types this extractor handles.
func (e *Extractor) MIMETypes() []string {
	return []string{"application/pdf"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 60
}

// CanHandle reports whether the path has a PDF extension.
func (e *Extractor) CanHandle(path string) bool {
	return base.HasExtension(path, e.Extensions())
}

// ProcessFile extracts the text layer of every page.
func (e *Extractor) ProcessFile(ctx context.Context, path string) (*domain.Document, error) {
	f, err := base.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(f.Content), model.NewDefaultConfiguration())
	if err != nil {
		return nil, fmt.Errorf("%w: pdfcpu read: %w", domain.ErrExtractionFailure, err)
	}

	doc := base.NewDocument(f, e.Name(), "application/pdf")
	totalChars := 0
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text := pageText(pdfCtx, pageNr)
		if text == "" {
			continue
		}
		totalChars += len([]rune(text))
		doc.Sections = append(doc.Sections, domain.Section{
			Kind:  "page",
			Title: "page " + strconv.Itoa(pageNr),
			Text:  text,
		})
	}

	if len(doc.Sections) > 0 {
		if first := firstLine(doc.Sections[0].Text); first != "" {
			doc.Title = first
		}
	}
	doc.Metadata.Extra["page_count"] = pdfCtx.PageCount

	finished, err := base.Finish(doc)
	if err != nil {
		return nil, err
	}
	quality := base.PrintableRatio(finished.Content)
	if pdfCtx.PageCount > 0 && totalChars/pdfCtx.PageCount < sparsePageChars {
		quality *= 0.5
	}
	finished.Metadata.Quality = quality
	return finished, nil
}

func pageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil || r == nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return TextFromContentStream(data)
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	line = strings.TrimSpace(line)
	if len([]rune(line)) > 120 {
		line = string([]rune(line)[:120])
	}
	return line
}
