package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
	"github.com/custodia-labs/medingest/internal/logger"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Search limits.
const (
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	snippetRunes       = 200
)

// SearchService answers similarity queries over indexed documents and entities.
type SearchService struct {
	vectors driven.VectorStore
}

// NewSearchService creates a new search service.
func NewSearchService(vectors driven.VectorStore) *SearchService {
	return &SearchService{vectors: vectors}
}

// Search embeds the query and returns the closest records in
// non-increasing score order.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Search Execution")
	logger.Debug("Query: %q", query)

	// Return empty for empty query
	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}
	if s.vectors == nil {
		return nil, fmt.Errorf("%w: vector store not configured", domain.ErrConfiguration)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}
	limit = min(limit, MaxSearchLimit)
	offset := max(opts.Offset, 0)

	hits, err := s.vectors.Search(ctx, driven.VectorQuery{
		Text:   query,
		K:      offset + limit,
		Filter: opts.Filter(),
	})
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	logger.Debug("Vector search returned %d hits", len(hits))

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		results = append(results, toSearchResult(hit, query))
	}
	return applyPagination(results, offset, limit), nil
}

func toSearchResult(hit domain.VectorHit, query string) domain.SearchResult {
	meta := hit.Record.Metadata
	return domain.SearchResult{
		ID:         hit.Record.ID,
		Kind:       meta[domain.MetaKind],
		DocumentID: meta[domain.MetaDocumentID],
		Title:      meta[domain.MetaTitle],
		Path:       meta[domain.MetaPath],
		EntityType: domain.EntityType(meta[domain.MetaEntityType]),
		Snippet:    snippet(hit.Record.Text, query),
		Score:      hit.Similarity,
	}
}

// snippet returns the first sentence of text containing a query term,
// or the start of the text when none does.
func snippet(text, query string) string {
	queryTerms := strings.Fields(strings.ToLower(query))
	sentences := splitSentences(text)
	for _, sentence := range sentences {
		sentenceLower := strings.ToLower(sentence)
		for _, term := range queryTerms {
			if strings.Contains(sentenceLower, term) {
				return truncateRunes(sentence, snippetRunes)
			}
		}
	}
	if len(sentences) > 0 {
		return truncateRunes(sentences[0], snippetRunes)
	}
	return ""
}

// splitSentences splits content into sentences.
func splitSentences(content string) []string {
	// Simple sentence splitting by common terminators
	var sentences []string
	var current strings.Builder

	for _, r := range content {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			s := strings.TrimSpace(current.String())
			if s != "" {
				sentences = append(sentences, s)
			}
			current.Reset()
		}
	}

	// Don't forget the last sentence
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// applyPagination applies offset and limit to results.
func applyPagination(results []domain.SearchResult, offset, limit int) []domain.SearchResult {
	if offset >= len(results) {
		return []domain.SearchResult{}
	}

	end := offset + limit
	if end > len(results) {
		end = len(results)
	}

	return results[offset:end]
}
