// Package hashing provides a local, deterministic embedding service based
// on feature hashing of word unigrams and bigrams.
package hashing

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions is the vector size when none is configured.
const DefaultDimensions = 384

// ModelName identifies vectors produced by this service.
const ModelName = "hashing-v1"

// EmbeddingService maps text to L2-normalised hashed bag-of-words vectors.
// Equal text always yields an equal vector.
type EmbeddingService struct {
	dimensions int
}

// New creates a hashing embedder with the given dimensionality.
func New(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed generates a vector embedding for the given text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	vec := make([]float32, s.dimensions)
	tokens := tokenize(text)
	for i, tok := range tokens {
		s.add(vec, tok, 1)
		if i > 0 {
			s.add(vec, tokens[i-1]+" "+tok, 0.5)
		}
	}
	normalize(vec)
	return vec, nil
}

// EmbedBatch generates embeddings for multiple texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// ModelName returns the name of the embedding model.
func (s *EmbeddingService) ModelName() string {
	return ModelName
}

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error {
	return nil
}

// Close releases resources.
func (s *EmbeddingService) Close() error {
	return nil
}

// add hashes a feature into a bucket. A second hash bit picks the sign so
// collisions tend to cancel.
func (s *EmbeddingService) add(vec []float32, feature string, weight float32) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(feature))
	sum := h.Sum64()
	idx := int(sum % uint64(len(vec)))
	if sum&(1<<63) != 0 {
		weight = -weight
	}
	vec[idx] += weight
}

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func normalize(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := float32(math.Sqrt(sum))
	for i := range vec {
		vec[i] /= norm
	}
}
