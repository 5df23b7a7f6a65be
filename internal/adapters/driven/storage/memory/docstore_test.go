package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

func TestDocumentStore_SaveAndGet(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Title: "Visit"}))

	doc, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Visit", doc.Title)

	// Returned documents are copies
	doc.Title = "changed"
	again, err := store.GetDocument(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "Visit", again.Title)
}

func TestDocumentStore_SaveReplaces(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()

	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Title: "v1"}))
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1", Title: "v2"}))

	docs, err := store.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "v2", docs[0].Title)
}

func TestDocumentStore_SaveInvalid(t *testing.T) {
	store := NewDocumentStore()

	assert.ErrorIs(t, store.SaveDocument(context.Background(), nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, store.SaveDocument(context.Background(), &domain.Document{}), domain.ErrInvalidInput)
}

func TestDocumentStore_GetNotFound(t *testing.T) {
	store := NewDocumentStore()

	doc, err := store.GetDocument(context.Background(), "missing")

	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Nil(t, doc)
}

func TestDocumentStore_ListSorted(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: id}))
	}

	docs, err := store.ListDocuments(ctx)

	require.NoError(t, err)
	require.Len(t, docs, 3)
	assert.Equal(t, "a", docs[0].ID)
	assert.Equal(t, "b", docs[1].ID)
	assert.Equal(t, "c", docs[2].ID)
}

func TestDocumentStore_Delete(t *testing.T) {
	store := NewDocumentStore()
	ctx := context.Background()
	require.NoError(t, store.SaveDocument(ctx, &domain.Document{ID: "doc-1"}))

	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))
	require.NoError(t, store.DeleteDocument(ctx, "doc-1"))

	_, err := store.GetDocument(ctx, "doc-1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
