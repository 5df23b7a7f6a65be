package extractors

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gabriel-vasile/mimetype"

	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/extractors/docx"
	"github.com/custodia-labs/medingest/internal/extractors/eml"
	"github.com/custodia-labs/medingest/internal/extractors/html"
	"github.com/custodia-labs/medingest/internal/extractors/markdown"
	"github.com/custodia-labs/medingest/internal/extractors/pdf"
	"github.com/custodia-labs/medingest/internal/extractors/plaintext"
	"github.com/custodia-labs/medingest/internal/logger"
)

// Ensure Registry implements the interface.
var _ driven.ExtractorRegistry = (*Registry)(nil)

// ambiguousExtensions are extensions whose content is sniffed before
// trusting the name. Portal exports often save emails and HTML as .txt.
var ambiguousExtensions = map[string]bool{
	"":      true,
	".txt":  true,
	".text": true,
	".dat":  true,
}

// Registry selects the extractor for a file, by extension first and by
// content sniffing for ambiguous extensions.
type Registry struct {
	mu         sync.RWMutex
	extractors []driven.Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// NewDefaultRegistry creates a registry with every built-in extractor.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(pdf.New())
	r.Register(docx.New())
	r.Register(eml.New())
	return r
}

// Register adds an extractor. Higher priority extractors win ties; among
// equal priorities the later registration wins.
func (r *Registry) Register(extractor driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.extractors = append([]driven.Extractor{extractor}, r.extractors...)
	sort.SliceStable(r.extractors, func(i, j int) bool {
		return r.extractors[i].Priority() > r.extractors[j].Priority()
	})
}

// Get returns the extractor for path, or nil when unsupported.
func (r *Registry) Get(path string) driven.Extractor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ext := strings.ToLower(filepath.Ext(path))
	if ambiguousExtensions[ext] {
		if e := r.sniff(path); e != nil {
			return e
		}
	}
	for _, e := range r.extractors {
		if e.CanHandle(path) {
			return e
		}
	}
	return nil
}

// sniff detects the content type and returns the first extractor that
// declares it, walking up the MIME hierarchy (e.g. text/html -> text/plain).
func (r *Registry) sniff(path string) driven.Extractor {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		logger.Debug("sniff %s: %v", path, err)
		return nil
	}
	for m := mt; m != nil; m = m.Parent() {
		for _, e := range r.extractors {
			for _, candidate := range e.MIMETypes() {
				if m.Is(candidate) {
					logger.Debug("sniffed %s as %s -> %s", path, mt.String(), e.Name())
					return e
				}
			}
		}
	}
	return nil
}

// SupportedExtensions returns every registered extension, sorted.
func (r *Registry) SupportedExtensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var exts []string
	for _, e := range r.extractors {
		for _, ext := range e.Extensions() {
			if !seen[ext] {
				seen[ext] = true
				exts = append(exts, ext)
			}
		}
	}
	sort.Strings(exts)
	return exts
}
