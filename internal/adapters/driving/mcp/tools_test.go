package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockSearch := &mockSearchService{
			results: []domain.SearchResult{
				{
					ID:         "ent-1",
					Kind:       domain.KindEntity,
					DocumentID: "doc-1",
					Title:      "visit",
					Path:       "/records/visit.txt",
					EntityType: domain.EntityCondition,
					Snippet:    "Condition: hypermobile EDS",
					Score:      0.95,
				},
			},
		}
		server, err := newTestServer(mockSearch, &mockDocumentService{})
		require.NoError(t, err)

		input := SearchInput{Query: "joint hypermobility", Limit: 5, Kind: domain.KindEntity, EntityType: "condition"}
		_, output, err := server.handleSearch(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		require.Len(t, output.Results, 1)
		assert.Equal(t, "ent-1", output.Results[0].ID)
		assert.Equal(t, "doc-1", output.Results[0].DocumentID)
		assert.Equal(t, "condition", output.Results[0].EntityType)
		assert.Equal(t, 0.95, output.Results[0].Score)
		assert.Equal(t, 5, mockSearch.lastOpts.Limit)
		assert.Equal(t, domain.KindEntity, mockSearch.lastOpts.Kind)
		assert.Equal(t, domain.EntityCondition, mockSearch.lastOpts.EntityType)
	})

	t.Run("default limit is 10", func(t *testing.T) {
		mockSearch := &mockSearchService{}
		server, err := newTestServer(mockSearch, &mockDocumentService{})
		require.NoError(t, err)

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.Equal(t, 10, mockSearch.lastOpts.Limit)
	})

	t.Run("rejects unknown kind", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{}, &mockDocumentService{})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test", Kind: "chunk"})

		require.Error(t, err)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{err: errors.New("search failed")}, &mockDocumentService{})
		require.NoError(t, err)

		_, _, err = server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleGetDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("returns document with entities", func(t *testing.T) {
		mockDoc := &mockDocumentService{
			document: &domain.Document{
				ID:         "doc-1",
				Title:      "visit",
				Path:       "/records/visit.txt",
				Content:    "Patient dx: hypermobile EDS",
				Confidence: 0.825,
				State:      domain.StageSynced,
				Entities: domain.EntitySet{
					domain.EntityCondition: {{
						ID:         "ent-1",
						Type:       domain.EntityCondition,
						Value:      "hypermobile Ehlers-Danlos Syndrome",
						Confidence: 0.85,
						IsVerified: true,
					}},
				},
			},
		}
		server, err := newTestServer(&mockSearchService{}, mockDoc)
		require.NoError(t, err)

		_, output, err := server.handleGetDocument(ctx, nil, GetDocumentInput{DocumentID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "doc-1", output.ID)
		assert.Equal(t, "Synced", output.Stage)
		assert.Equal(t, []string{}, output.ExtractedDates)
		assert.Equal(t, []string{}, output.Providers)
		require.Len(t, output.Entities, 1)
		assert.Equal(t, "condition", output.Entities[0].Type)
		assert.True(t, output.Entities[0].IsVerified)
	})

	t.Run("requires an id", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{}, &mockDocumentService{})
		require.NoError(t, err)

		_, _, err = server.handleGetDocument(ctx, nil, GetDocumentInput{})

		require.Error(t, err)
	})

	t.Run("propagates not found", func(t *testing.T) {
		server, err := newTestServer(&mockSearchService{}, &mockDocumentService{err: domain.ErrNotFound})
		require.NoError(t, err)

		_, _, err = server.handleGetDocument(ctx, nil, GetDocumentInput{DocumentID: "missing"})

		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}
