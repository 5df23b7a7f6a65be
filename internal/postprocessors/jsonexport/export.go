package jsonexport

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

// Export is the per-document JSON written to the output directory.
type Export struct {
	ID              string                               `json:"id"`
	Path            string                               `json:"path"`
	Title           string                               `json:"title,omitempty"`
	Metadata        Metadata                             `json:"metadata"`
	Content         string                               `json:"content,omitempty"`
	ExtractedDates  []string                             `json:"extracted_dates"`
	Providers       []string                             `json:"providers"`
	ConfidenceScore float64                              `json:"confidence_score"`
	Entities        map[domain.EntityType][]ExportEntity `json:"entities"`
	Associations    []ExportAssociation                  `json:"associations,omitempty"`
	Stage           domain.Stage                         `json:"stage"`
	ExportedAt      time.Time                            `json:"exported_at"`
}

// Metadata is the exported form of domain.DocumentMetadata.
type Metadata struct {
	Format     string         `json:"format"`
	MIMEType   string         `json:"mime_type,omitempty"`
	Size       int64          `json:"size"`
	ModifiedAt time.Time      `json:"modified_at,omitzero"`
	Dates      []string       `json:"dates,omitempty"`
	Providers  []string       `json:"providers,omitempty"`
	Quality    float64        `json:"quality"`
	Extra      map[string]any `json:"extra,omitempty"`
}

// ExportEntity is the exported form of domain.Entity.
type ExportEntity struct {
	ID         string            `json:"id"`
	Value      string            `json:"value"`
	Text       string            `json:"text,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Confidence float64           `json:"confidence"`
	IsVerified bool              `json:"is_verified"`
}

// ExportAssociation is the exported form of domain.Association.
type ExportAssociation struct {
	Type       domain.AssociationType `json:"type"`
	From       string                 `json:"from"`
	To         string                 `json:"to"`
	Confidence float64                `json:"confidence"`
}

// FromDocument converts a document into its export form.
func FromDocument(doc *domain.Document, includeContent bool) Export {
	e := Export{
		ID:    doc.ID,
		Path:  doc.Path,
		Title: doc.Title,
		Metadata: Metadata{
			Format:     doc.Metadata.Format,
			MIMEType:   doc.Metadata.MIMEType,
			Size:       doc.Metadata.Size,
			ModifiedAt: doc.Metadata.ModifiedAt,
			Dates:      doc.Metadata.Dates,
			Providers:  doc.Metadata.Providers,
			Quality:    doc.Metadata.Quality,
			Extra:      maps.Clone(doc.Metadata.Extra),
		},
		ExtractedDates:  nonNil(doc.ExtractedDates),
		Providers:       nonNil(doc.Providers),
		ConfidenceScore: doc.Confidence,
		Entities:        make(map[domain.EntityType][]ExportEntity),
		Stage:           doc.State,
		ExportedAt:      time.Now().UTC(),
	}
	if includeContent {
		e.Content = doc.Content
	}
	for _, typ := range domain.AllEntityTypes() {
		for _, ent := range doc.Entities[typ] {
			e.Entities[typ] = append(e.Entities[typ], ExportEntity{
				ID:         ent.ID,
				Value:      ent.Value,
				Text:       ent.Text,
				Attributes: ent.Attributes,
				Confidence: ent.Confidence,
				IsVerified: ent.IsVerified,
			})
		}
	}
	for _, a := range doc.Associations {
		e.Associations = append(e.Associations, ExportAssociation{
			Type:       a.Type,
			From:       a.FromID,
			To:         a.ToID,
			Confidence: a.Confidence,
		})
	}
	return e
}

// ToEntities rebuilds the domain entities of an export, in canonical
// type order.
func (e Export) ToEntities() []domain.Entity {
	var out []domain.Entity
	for _, typ := range domain.AllEntityTypes() {
		for _, ent := range e.Entities[typ] {
			out = append(out, domain.Entity{
				ID:               ent.ID,
				Type:             typ,
				Value:            ent.Value,
				Text:             ent.Text,
				Attributes:       ent.Attributes,
				SourceDocumentID: e.ID,
				Confidence:       ent.Confidence,
				IsVerified:       ent.IsVerified,
			})
		}
	}
	return out
}

// ToDocument rebuilds the document an export was written from. Fields
// not exported (sections, stage errors) are left empty.
func (e Export) ToDocument() *domain.Document {
	doc := &domain.Document{
		ID:      e.ID,
		Path:    e.Path,
		Title:   e.Title,
		Content: e.Content,
		Metadata: domain.DocumentMetadata{
			Format:     e.Metadata.Format,
			MIMEType:   e.Metadata.MIMEType,
			Size:       e.Metadata.Size,
			ModifiedAt: e.Metadata.ModifiedAt,
			Dates:      e.Metadata.Dates,
			Providers:  e.Metadata.Providers,
			Quality:    e.Metadata.Quality,
			Extra:      e.Metadata.Extra,
		},
		ExtractedDates: e.ExtractedDates,
		Providers:      e.Providers,
		Confidence:     e.ConfidenceScore,
		Entities:       make(domain.EntitySet),
		State:          e.Stage,
		UpdatedAt:      e.ExportedAt,
	}
	for _, ent := range e.ToEntities() {
		doc.Entities[ent.Type] = append(doc.Entities[ent.Type], ent)
	}
	for _, a := range e.Associations {
		doc.Associations = append(doc.Associations, domain.Association{
			Type:             a.Type,
			FromID:           a.From,
			ToID:             a.To,
			SourceDocumentID: e.ID,
			Confidence:       a.Confidence,
		})
	}
	return doc
}

// FileName returns the export file name for a document id.
func FileName(docID string) string {
	return docID + ".json"
}

// Read loads one export file.
func Read(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read export: %w", err)
	}
	var e Export
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidInput, path, err)
	}
	return &e, nil
}

// ReadDir loads every export in dir, sorted by document id. Files that
// are not exports (run reports, temp files) are ignored.
func ReadDir(dir string) ([]Export, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read export dir: %w", err)
	}
	var exports []Export
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		e, err := Read(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if e.ID == "" {
			continue
		}
		exports = append(exports, *e)
	}
	sort.Slice(exports, func(i, j int) bool { return exports[i].ID < exports[j].ID })
	return exports, nil
}

// ReadReport loads a run report written by WriteJSON.
func ReadReport(path string) (*domain.RunReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r domain.RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("%w: parse %s: %w", domain.ErrInvalidInput, path, err)
	}
	return &r, nil
}

// WriteJSON atomically writes v as indented JSON to path: the data goes
// to a temp file in the same directory which is synced then renamed.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
