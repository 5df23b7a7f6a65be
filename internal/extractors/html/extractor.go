package html

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/extractors/base"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

var hiddenStyleRe = regexp.MustCompile(`(?i)display\s*:\s*none|visibility\s*:\s*hidden`)

// Extractor handles HTML pages such as patient-portal exports.
// Headings, paragraphs, tables and lists become sections; scripts,
// navigation and hidden elements are skipped.
type Extractor struct{}

// New creates a new HTML extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the format name.
func (e *Extractor) Name() string {
	return "html"
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".html", ".htm", ".xhtml"}
}

// MIMETypes returns the MIME types this extractor handles.
func (e *Extractor) MIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// CanHandle reports whether the path has an HTML extension.
func (e *Extractor) CanHandle(path string) bool {
	return base.HasExtension(path, e.Extensions())
}

// ProcessFile parses the page and extracts its visible text.
func (e *Extractor) ProcessFile(ctx context.Context, path string) (*domain.Document, error) {
	f, err := base.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	root, err := html.Parse(bytes.NewReader(f.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: parse html: %w", domain.ErrExtractionFailure, err)
	}

	doc := base.NewDocument(f, e.Name(), "text/html")
	if title := findTitle(root); title != "" {
		doc.Title = title
	}
	collectSections(root, &doc.Sections)
	if len(doc.Sections) == 0 {
		if text := collectText(root); text != "" {
			doc.Sections = append(doc.Sections, domain.Section{Kind: "body", Text: text})
		}
	}
	return base.Finish(doc)
}

func isHidden(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "hidden" || (a.Key == "style" && hiddenStyleRe.MatchString(a.Val)) {
			return true
		}
	}
	return false
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.DataAtom == atom.Title && n.FirstChild != nil {
		return strings.TrimSpace(n.FirstChild.Data)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

// collectSections walks the DOM and appends one section per content block.
func collectSections(n *html.Node, sections *[]domain.Section) {
	if n.Type == html.ElementNode {
		switch n.DataAtom {
		case atom.Head, atom.Script, atom.Style, atom.Noscript, atom.Nav, atom.Footer:
			return
		}
		if isHidden(n) {
			return
		}

		kind := ""
		switch n.DataAtom {
		case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
			kind = "heading"
		case atom.P, atom.Pre, atom.Blockquote:
			kind = "paragraph"
		case atom.Table:
			kind = "table"
		case atom.Ul, atom.Ol, atom.Dl:
			kind = "list"
		}
		if kind != "" {
			if text := collectText(n); text != "" {
				s := domain.Section{Kind: kind, Text: text}
				if kind == "heading" {
					s.Title = text
				}
				*sections = append(*sections, s)
			}
			return
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		collectSections(c, sections)
	}
}

// collectText returns the visible text of a subtree, one space between nodes.
func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if text := strings.Join(strings.Fields(n.Data), " "); text != "" {
				if sb.Len() > 0 {
					sb.WriteByte(' ')
				}
				sb.WriteString(text)
			}
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Head:
				return
			}
			if isHidden(n) {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}
