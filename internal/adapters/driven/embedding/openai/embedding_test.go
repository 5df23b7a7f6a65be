package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

func TestNewEmbeddingService(t *testing.T) {
	_, err := NewEmbeddingService(Config{})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	_, err = NewEmbeddingService(Config{APIKey: "k", Model: "mystery"})
	assert.ErrorIs(t, err, domain.ErrConfiguration)

	s, err := NewEmbeddingService(Config{APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, 1536, s.Dimensions())
	assert.Equal(t, DefaultModel, s.ModelName())
}

func TestEmbedBatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)

		var req map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.EqualValues(t, 3, req["dimensions"])

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "text-embedding-3-small",
			"data": []map[string]any{
				{"object": "embedding", "index": 1, "embedding": []float32{0, 1, 0}},
				{"object": "embedding", "index": 0, "embedding": []float32{1, 0, 0}},
			},
		})
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL, Dimensions: 3})
	require.NoError(t, err)

	out, err := s.EmbedBatch(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0, 0}, {0, 1, 0}}, out)
}

func TestEmbed_Unavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	s, err := NewEmbeddingService(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = s.Embed(context.Background(), "text")
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}
