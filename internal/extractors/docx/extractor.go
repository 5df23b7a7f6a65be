package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/extractors/base"
)

// Ensure Extractor implements the interface.
var _ driven.Extractor = (*Extractor)(nil)

// Extractor handles Word (DOCX) documents.
type Extractor struct{}

// New creates a new DOCX extractor.
func New() *Extractor {
	return &Extractor{}
}

// Name returns the format name.
func (e *Extractor) Name() string {
	return "docx"
}

// Extensions returns the file extensions this extractor handles.
func (e *Extractor) Extensions() []string {
	return []string{".docx"}
}

// MIMETypes returns the MIME types this extractor handles.
func (e *Extractor) MIMETypes() []string {
	return []string{"application/vnd.openxmlformats-officedocument.wordprocessingml.document"}
}

// Priority returns the selection priority.
func (e *Extractor) Priority() int {
	return 50
}

// CanHandle reports whether the path has a DOCX extension.
func (e *Extractor) CanHandle(path string) bool {
	return base.HasExtension(path, e.Extensions())
}

// ProcessFile reads word/document.xml. Paragraphs styled as headings
// start new sections.
func (e *Extractor) ProcessFile(ctx context.Context, path string) (*domain.Document, error) {
	f, err := base.Read(ctx, path)
	if err != nil {
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(f.Content), int64(len(f.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: open docx archive: %w", domain.ErrExtractionFailure, err)
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, err
	}

	doc := base.NewDocument(f, e.Name(), e.MIMETypes()[0])
	doc.Sections = parseDocumentXML(body)
	if core, err := readPart(reader, "docProps/core.xml"); err == nil {
		var props coreXML
		if xml.Unmarshal(core, &props) == nil {
			if t := strings.TrimSpace(props.Title); t != "" {
				doc.Title = t
			}
			if props.Creator != "" {
				doc.Metadata.Extra["author"] = props.Creator
			}
			if props.Created != "" {
				doc.Metadata.Dates = append(doc.Metadata.Dates, props.Created)
			}
		}
	}
	return base.Finish(doc)
}

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", domain.ErrExtractionFailure, name, err)
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtractionFailure, name, err)
		}
		return content, nil
	}
	return nil, fmt.Errorf("%w: %s missing", domain.ErrExtractionFailure, name)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
	Tabs []struct{}    `xml:"tab"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

// coreXML represents the structure of docProps/core.xml.
type coreXML struct {
	Title   string `xml:"title"`
	Creator string `xml:"creator"`
	Created string `xml:"created"`
}

// parseDocumentXML groups paragraphs under their nearest heading.
func parseDocumentXML(content []byte) []domain.Section {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return nil
	}

	var sections []domain.Section
	var current *domain.Section
	for _, para := range doc.Body.Paragraphs {
		var text strings.Builder
		for _, r := range para.Runs {
			if len(r.Tabs) > 0 {
				text.WriteByte(' ')
			}
			for _, t := range r.Text {
				text.WriteString(t.Content)
			}
		}
		line := strings.TrimSpace(text.String())
		if line == "" {
			continue
		}

		if strings.HasPrefix(strings.ToLower(para.Props.Style.Val), "heading") ||
			para.Props.Style.Val == "Title" {
			if current != nil {
				sections = append(sections, *current)
			}
			current = &domain.Section{Kind: "heading", Title: line, Text: line}
			continue
		}
		if current == nil {
			current = &domain.Section{Kind: "body", Text: line}
			continue
		}
		current.Text += "\n" + line
	}
	if current != nil {
		sections = append(sections, *current)
	}
	return sections
}
