package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

const defaultToolLimit = 10

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query      string `json:"query" jsonschema:"the text to find similar documents and entities for"`
	Limit      int    `json:"limit,omitempty" jsonschema:"maximum number of results to return (default 10)"`
	Kind       string `json:"kind,omitempty" jsonschema:"restrict results to document or entity"`
	EntityType string `json:"entity_type,omitempty" jsonschema:"restrict entity results to one type such as condition or medication"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SearchResultOutput `json:"results"`
	Count   int                  `json:"count"`
}

// SearchResultOutput represents a single search result.
type SearchResultOutput struct {
	ID         string  `json:"id"`
	Kind       string  `json:"kind"`
	DocumentID string  `json:"document_id"`
	Title      string  `json:"title,omitempty"`
	Path       string  `json:"path,omitempty"`
	EntityType string  `json:"entity_type,omitempty"`
	Snippet    string  `json:"snippet,omitempty"`
	Score      float64 `json:"score"`
}

// GetDocumentInput is the input schema for the get_document tool.
type GetDocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the id of a processed document"`
}

// GetDocumentOutput is the structured form of one processed document.
type GetDocumentOutput struct {
	ID             string         `json:"id"`
	Title          string         `json:"title,omitempty"`
	Path           string         `json:"path"`
	Stage          string         `json:"stage"`
	Confidence     float64        `json:"confidence_score"`
	ExtractedDates []string       `json:"extracted_dates"`
	Providers      []string       `json:"providers"`
	Entities       []EntityOutput `json:"entities"`
	Content        string         `json:"content,omitempty"`
}

// EntityOutput is one entity of a document.
type EntityOutput struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Value      string            `json:"value"`
	Text       string            `json:"text,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Confidence float64           `json:"confidence"`
	IsVerified bool              `json:"is_verified"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Similarity search across indexed medical documents and extracted entities",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Return a processed document with its extracted entities",
	}, s.handleGetDocument)
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = defaultToolLimit
	}
	if input.Kind != "" && input.Kind != domain.KindDocument && input.Kind != domain.KindEntity {
		return nil, SearchOutput{}, fmt.Errorf("kind must be %q or %q", domain.KindDocument, domain.KindEntity)
	}

	opts := domain.SearchOptions{
		Limit:      limit,
		Kind:       input.Kind,
		EntityType: domain.EntityType(input.EntityType),
	}
	results, err := s.ports.Search.Search(ctx, input.Query, opts)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Results: make([]SearchResultOutput, len(results)),
		Count:   len(results),
	}

	for i := range results {
		output.Results[i] = SearchResultOutput{
			ID:         results[i].ID,
			Kind:       results[i].Kind,
			DocumentID: results[i].DocumentID,
			Title:      results[i].Title,
			Path:       results[i].Path,
			EntityType: string(results[i].EntityType),
			Snippet:    results[i].Snippet,
			Score:      results[i].Score,
		}
	}

	return nil, output, nil
}

// handleGetDocument handles the get_document tool invocation.
func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetDocumentInput,
) (*mcp.CallToolResult, GetDocumentOutput, error) {
	if input.DocumentID == "" {
		return nil, GetDocumentOutput{}, fmt.Errorf("document_id is required")
	}

	doc, err := s.ports.Document.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, GetDocumentOutput{}, err
	}

	output := GetDocumentOutput{
		ID:             doc.ID,
		Title:          doc.Title,
		Path:           doc.Path,
		Stage:          doc.State.String(),
		Confidence:     doc.Confidence,
		ExtractedDates: orEmpty(doc.ExtractedDates),
		Providers:      orEmpty(doc.Providers),
		Entities:       []EntityOutput{},
		Content:        doc.Content,
	}
	for _, e := range doc.Entities.All() {
		output.Entities = append(output.Entities, EntityOutput{
			ID:         e.ID,
			Type:       e.Type.String(),
			Value:      e.Value,
			Text:       e.Text,
			Attributes: e.Attributes,
			Confidence: e.Confidence,
			IsVerified: e.IsVerified,
		})
	}

	return nil, output, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
