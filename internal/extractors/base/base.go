// Package base holds the file handling shared by every extractor:
// reading with a size cap, building the document skeleton, and the
// text heuristics used to score extraction quality.
package base

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/ids"
)

// MaxFileSize is the largest file an extractor will read.
const MaxFileSize = 64 << 20

// File is a source file read into memory.
type File struct {
	Path    string
	Content []byte
	Info    os.FileInfo
}

// Read loads path, refusing directories and files above MaxFileSize.
// Errors wrap domain.ErrExtractionFailure.
func Read(ctx context.Context, path string) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stat %s: %w", domain.ErrExtractionFailure, path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrExtractionFailure, path)
	}
	if info.Size() > MaxFileSize {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", domain.ErrExtractionFailure, path, MaxFileSize)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtractionFailure, path, err)
	}
	return &File{Path: path, Content: content, Info: info}, nil
}

// NewDocument builds the document skeleton for f.
func NewDocument(f *File, format, mimeType string) *domain.Document {
	now := time.Now()
	doc := &domain.Document{
		ID:    ids.Document(f.Path),
		Path:  f.Path,
		Title: TitleFromPath(f.Path),
		Metadata: domain.DocumentMetadata{
			Format:   format,
			MIMEType: mimeType,
			Quality:  1,
			Extra:    map[string]any{},
		},
		State:     domain.StageDiscovered,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if f.Info != nil {
		doc.Metadata.Size = f.Info.Size()
		doc.Metadata.ModifiedAt = f.Info.ModTime()
	}
	return doc
}

// Finish fills Content from sections when unset and marks the document
// extracted. Documents without any text fail with ErrExtractionFailure.
func Finish(doc *domain.Document) (*domain.Document, error) {
	if doc.Content == "" && len(doc.Sections) > 0 {
		parts := make([]string, 0, len(doc.Sections))
		for _, s := range doc.Sections {
			parts = append(parts, s.Text)
		}
		doc.Content = strings.Join(parts, "\n\n")
	}
	doc.Content = strings.TrimSpace(doc.Content)
	if doc.Content == "" {
		return nil, fmt.Errorf("%w: no text content in %s", domain.ErrExtractionFailure, doc.Path)
	}
	if len(doc.Sections) == 0 {
		doc.Sections = Paragraphs(doc.Content)
	}
	doc.Advance(domain.StageExtracted)
	return doc, nil
}

// TitleFromPath turns a file name into a human-readable title.
func TitleFromPath(path string) string {
	filename := filepath.Base(path)
	filename = strings.TrimSuffix(filename, filepath.Ext(filename))
	filename = strings.ReplaceAll(filename, "_", " ")
	filename = strings.ReplaceAll(filename, "-", " ")
	return filename
}

// HasExtension reports whether path ends with one of exts (case-insensitive).
func HasExtension(path string, exts []string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if ext == e {
			return true
		}
	}
	return false
}

// Paragraphs splits text on blank lines into body sections.
func Paragraphs(text string) []domain.Section {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	var sections []domain.Section
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		sections = append(sections, domain.Section{Kind: "paragraph", Text: p})
	}
	return sections
}

// PrintableRatio is the share of printable or whitespace runes in text.
// Garbled binary decodes score low.
func PrintableRatio(text string) float64 {
	total, printable := 0, 0
	for _, r := range text {
		total++
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(printable) / float64(total)
}

// CleanText collapses runs of blank lines and trims trailing spaces.
func CleanText(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	blank := 0
	for _, line := range lines {
		line = strings.TrimRightFunc(line, unicode.IsSpace)
		if line == "" {
			blank++
			if blank > 1 {
				continue
			}
		} else {
			blank = 0
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
