package jsonexport

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.DocumentStore = (*Store)(nil)

// Store is a driven.DocumentStore over an export directory: one
// <id>.json file per document.
type Store struct {
	dir            string
	includeContent bool
}

// NewStore creates a store rooted at dir. The directory is created on
// the first save.
func NewStore(dir string, includeContent bool) *Store {
	return &Store{dir: dir, includeContent: includeContent}
}

// Dir returns the export directory.
func (s *Store) Dir() string {
	return s.dir
}

// SaveDocument writes the document's export, replacing any earlier one.
func (s *Store) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if doc == nil || doc.ID == "" {
		return fmt.Errorf("%w: document id is required", domain.ErrInvalidInput)
	}
	return WriteJSON(s.path(doc.ID), FromDocument(doc, s.includeContent))
}

// GetDocument reads one export back.
func (s *Store) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	if !validID(id) {
		return nil, fmt.Errorf("%w: document %q", domain.ErrNotFound, id)
	}
	e, err := Read(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: document %q", domain.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return e.ToDocument(), nil
}

// ListDocuments reads every export in the directory. A missing
// directory holds no documents.
func (s *Store) ListDocuments(_ context.Context) ([]domain.Document, error) {
	exports, err := ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	docs := make([]domain.Document, len(exports))
	for i := range exports {
		docs[i] = *exports[i].ToDocument()
	}
	return docs, nil
}

// DeleteDocument removes a document's export.
func (s *Store) DeleteDocument(_ context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if err := os.Remove(s.path(id)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete export %s: %w", id, err)
	}
	return nil
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, FileName(id))
}

// validID rejects ids that would escape the export directory.
func validID(id string) bool {
	return id != "" && !strings.ContainsAny(id, `/\`) && id != "." && id != ".."
}
