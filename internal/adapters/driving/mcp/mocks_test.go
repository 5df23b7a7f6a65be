package mcp

import (
	"context"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
)

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results  []domain.SearchResult
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	content   string
	details   *driving.DocumentDetails
	err       error
}

func (m *mockDocumentService) List(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}

func (m *mockDocumentService) GetDetails(_ context.Context, _ string) (*driving.DocumentDetails, error) {
	return m.details, m.err
}

func (m *mockDocumentService) Open(_ context.Context, _ string) error {
	return m.err
}

func newTestServer(search *mockSearchService, docs *mockDocumentService) (*Server, error) {
	return NewServer(&Ports{Search: search, Document: docs})
}
