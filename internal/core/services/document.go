package services

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DocumentService reads processed documents from a document store.
type DocumentService struct {
	docStore driven.DocumentStore
	opener   func(path string) error
}

// NewDocumentService creates a new document service.
func NewDocumentService(docStore driven.DocumentStore) *DocumentService {
	return &DocumentService{
		docStore: docStore,
		opener:   openPath,
	}
}

// List returns every processed document.
func (s *DocumentService) List(ctx context.Context) ([]domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.ListDocuments(ctx)
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	if s.docStore == nil {
		return nil, domain.ErrNotImplemented
	}
	return s.docStore.GetDocument(ctx, documentID)
}

// GetContent returns the normalised text of a document. Documents
// exported without content yield an empty string.
func (s *DocumentService) GetContent(ctx context.Context, documentID string) (string, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	return doc.Content, nil
}

// GetDetails returns a flattened view of a document for display.
func (s *DocumentService) GetDetails(ctx context.Context, documentID string) (*driving.DocumentDetails, error) {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	counts := make(map[domain.EntityType]int)
	for typ, list := range doc.Entities {
		if len(list) > 0 {
			counts[typ] = len(list)
		}
	}

	// Flatten metadata to string map
	metadata := map[string]string{
		"format":  doc.Metadata.Format,
		"quality": strconv.FormatFloat(doc.Metadata.Quality, 'f', 3, 64),
		"size":    strconv.FormatInt(doc.Metadata.Size, 10),
	}
	if doc.Metadata.MIMEType != "" {
		metadata["mime_type"] = doc.Metadata.MIMEType
	}
	for key, value := range doc.Metadata.Extra {
		metadata[key] = fmt.Sprintf("%v", value)
	}

	return &driving.DocumentDetails{
		ID:             doc.ID,
		Title:          doc.Title,
		Path:           doc.Path,
		Format:         doc.Metadata.Format,
		Stage:          doc.State,
		Confidence:     doc.Confidence,
		EntityCounts:   counts,
		ExtractedDates: doc.ExtractedDates,
		Providers:      doc.Providers,
		UpdatedAt:      doc.UpdatedAt,
		Metadata:       metadata,
	}, nil
}

// Open opens the document's source file in the default application.
func (s *DocumentService) Open(ctx context.Context, documentID string) error {
	doc, err := s.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if doc.Path == "" {
		return fmt.Errorf("%w: document %s has no source path", domain.ErrNotFound, documentID)
	}
	return s.opener(doc.Path)
}

// openPath opens a path using the system default handler.
func openPath(path string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "linux":
		cmd = exec.Command("xdg-open", path)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", path)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
