package hashing

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func TestEmbed_Deterministic(t *testing.T) {
	s := New(0)
	assert.Equal(t, DefaultDimensions, s.Dimensions())

	a, err := s.Embed(context.Background(), "Hypermobile EDS")
	require.NoError(t, err)
	b, err := s.Embed(context.Background(), "hypermobile eds")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, DefaultDimensions)
}

func TestEmbed_Normalised(t *testing.T) {
	v, err := New(64).Embed(context.Background(), "joint pain and fatigue")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, math.Sqrt(cosine(v, v)), 1e-5)
}

func TestEmbed_Empty(t *testing.T) {
	v, err := New(16).Embed(context.Background(), "   ")
	require.NoError(t, err)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestEmbed_SimilarTextScoresHigher(t *testing.T) {
	s := New(384)
	ctx := context.Background()
	q, _ := s.Embed(ctx, "metformin for diabetes")
	near, _ := s.Embed(ctx, "started metformin for type 2 diabetes")
	far, _ := s.Embed(ctx, "tilt table test showed tachycardia")

	assert.Greater(t, cosine(q, near), cosine(q, far))
}

func TestEmbedBatch(t *testing.T) {
	s := New(32)
	out, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Len(t, out, 2)
	assert.NoError(t, s.Ping(context.Background()))
	assert.Equal(t, ModelName, s.ModelName())
}

func TestEmbed_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(8).Embed(ctx, "x")
	assert.ErrorIs(t, err, context.Canceled)
}
