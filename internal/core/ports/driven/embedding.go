package driven

import "context"

// EmbeddingService generates vector embeddings from text.
//
// EmbeddingService generates vectors; VectorStore stores and searches them.
// A store is bound to one embedding service for its lifetime so the
// dimensionality never changes between calls.
//
// Implementations include:
//   - Hashing (local, deterministic feature hashing)
//   - Ollama (nomic-embed-text, all-minilm)
//   - OpenAI-compatible APIs (text-embedding-3-small)
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536).
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable with a lightweight request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
