package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medingest/internal/core/domain"
)

func seededDocumentService(t *testing.T) (*DocumentService, *memory.DocumentStore) {
	t.Helper()
	store := memory.NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{
		ID:      "doc-1",
		Title:   "Visit",
		Path:    "/records/visit.txt",
		Content: "Patient dx: hypermobile EDS",
		Metadata: domain.DocumentMetadata{
			Format:   "plaintext",
			MIMEType: "text/plain",
			Size:     27,
			Quality:  0.8,
			Extra:    map[string]any{"summary": "1 condition"},
		},
		Confidence: 0.825,
		Entities: domain.EntitySet{
			domain.EntityCondition: {testEntity("hypermobile EDS", 0.85)},
		},
		State: domain.StageSynced,
	}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-2", Title: "Labs"}))
	return NewDocumentService(store), store
}

func TestDocumentService_List(t *testing.T) {
	svc, _ := seededDocumentService(t)

	docs, err := svc.List(context.Background())

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "doc-1", docs[0].ID)
}

func TestDocumentService_Get(t *testing.T) {
	svc, _ := seededDocumentService(t)

	doc, err := svc.Get(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Visit", doc.Title)

	_, err = svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_GetContent(t *testing.T) {
	svc, _ := seededDocumentService(t)

	content, err := svc.GetContent(context.Background(), "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Patient dx: hypermobile EDS", content)

	_, err = svc.GetContent(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_GetDetails(t *testing.T) {
	svc, _ := seededDocumentService(t)

	details, err := svc.GetDetails(context.Background(), "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "Visit", details.Title)
	assert.Equal(t, "plaintext", details.Format)
	assert.Equal(t, domain.StageSynced, details.Stage)
	assert.InDelta(t, 0.825, details.Confidence, 1e-9)
	assert.Equal(t, map[domain.EntityType]int{domain.EntityCondition: 1}, details.EntityCounts)
	assert.Equal(t, "text/plain", details.Metadata["mime_type"])
	assert.Equal(t, "0.800", details.Metadata["quality"])
	assert.Equal(t, "27", details.Metadata["size"])
	assert.Equal(t, "1 condition", details.Metadata["summary"])
}

func TestDocumentService_Open(t *testing.T) {
	svc, _ := seededDocumentService(t)
	var opened string
	svc.opener = func(path string) error {
		opened = path
		return nil
	}

	require.NoError(t, svc.Open(context.Background(), "doc-1"))
	assert.Equal(t, "/records/visit.txt", opened)

	err := svc.Open(context.Background(), "doc-2")
	assert.ErrorIs(t, err, domain.ErrNotFound, "documents without a path cannot be opened")

	svc.opener = func(string) error { return errors.New("no handler") }
	assert.Error(t, svc.Open(context.Background(), "doc-1"))
}

func TestDocumentService_NoStore(t *testing.T) {
	svc := NewDocumentService(nil)

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
	_, err = svc.GetDetails(context.Background(), "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotImplemented)
}
