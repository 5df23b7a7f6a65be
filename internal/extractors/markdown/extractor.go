package markdown

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/extractors/base"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var (
	codeBlockRe    = regexp.MustCompile("(?s)```.*?```")
	inlineCodeRe   = regexp.MustCompile("`([^`]+)`")
	imageRe        = regexp.MustCompile(`!\[[^\]]*\]\([^)]+\)`)
	linkRe         = regexp.MustCompile(`\[([^\]]+)\]\([^)]+\)`)
	headingRe      = regexp.MustCompile(`^(#{1,6})\s+(.*)$`)
	emphasisRe     = regexp.MustCompile(`(\*\*|__|\*)`)
	blockquoteRe   = regexp.MustCompile(`(?m)^>\s*`)
	ruleRe         = regexp.MustCompile(`(?m)^[-*_]{3,}\s*$`)
	listMarkerRe   = regexp.MustCompile(`(?m)^\s*[-*+]\s+`)
	numberedListRe = regexp.MustCompile(`(?m)^\s*\d+\.\s+`)
	multiNewlineRe = regexp.MustCompile(`\n{3,}`)
)

// Extractor handles Markdown notes. Inline HTML is stripped.
type Extractor struct {
	policy *bluemonday.Policy
}

// New creates a new Markdown extractor.
func New() *Extractor {
	return &Extractor{policy: bluemonday.StrictPolicy()}
}

// Name returns the format name.
func (e *Extractor) Name() string {
	return "markdown"
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".md", ".markdown", ".mdown"}
}

// MIMETypes returns the MIME types this extractor handles.
func (e *Extractor) MIMETypes() []string {
	return []string{"text/markdown", "text/x-markdown"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50 // Higher than plaintext
}

// CanHandle reports whether the path has a Markdown extension.
func (e *Extractor) CanHandle(path string) bool {
	return base.HasExtension(path, e.Extensions())
}

// ProcessFile converts Markdown to plain text split by headings.
func (e *Extractor) ProcessFile(ctx context.Context, path string) (*domain.Document, error) {
	f, err := base.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	raw := strings.ReplaceAll(string(f.Content), "\r\n", "\n")
	raw = codeBlockRe.ReplaceAllString(raw, "")

	doc := base.NewDocument(f, e.Name(), "text/markdown")
	var current *domain.Section
	var body []string
	flush := func() {
		text := e.stripMarkdown(strings.Join(body, "\n"))
		body = body[:0]
		if current == nil {
			if text != "" {
				doc.Sections = append(doc.Sections, domain.Section{Kind: "body", Text: text})
			}
			return
		}
		if text != "" {
			current.Text = current.Title + "\n" + text
		}
		doc.Sections = append(doc.Sections, *current)
	}

	for _, line := range strings.Split(raw, "\n") {
		m := headingRe.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			body = append(body, line)
			continue
		}
		flush()
		title := e.stripMarkdown(m[2])
		if len(m[1]) == 1 && doc.Title == base.TitleFromPath(path) {
			doc.Title = title
		}
		current = &domain.Section{Kind: "heading", Title: title, Text: title}
	}
	flush()

	doc.Metadata.Quality = base.PrintableRatio(raw)
	return base.Finish(doc)
}

// stripMarkdown removes common markdown formatting and inline HTML.
func (e *Extractor) stripMarkdown(content string) string {
	content = imageRe.ReplaceAllString(content, "")
	content = linkRe.ReplaceAllString(content, "$1")
	content = inlineCodeRe.ReplaceAllString(content, "$1")
	content = emphasisRe.ReplaceAllString(content, "")
	content = blockquoteRe.ReplaceAllString(content, "")
	content = ruleRe.ReplaceAllString(content, "")
	content = listMarkerRe.ReplaceAllString(content, "")
	content = numberedListRe.ReplaceAllString(content, "")

	// Sanitize escapes entities; unescape to keep "Crohn's" readable.
	content = html.UnescapeString(e.policy.Sanitize(content))
	content = multiNewlineRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
