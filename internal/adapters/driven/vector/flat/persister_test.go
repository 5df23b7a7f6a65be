package flat

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driven"
)

func TestOpen_PersistsAcrossRestarts(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	emb := hashing.New(64)

	s, err := Open(dir, emb, domain.MetricCosine)
	require.NoError(t, err)
	first, err := s.Upsert(ctx, driven.VectorUpsert{
		ID:       "doc-1",
		Text:     "hypermobile Ehlers-Danlos Syndrome",
		Metadata: map[string]string{domain.MetaKind: domain.KindDocument},
	})
	require.NoError(t, err)
	_, err = s.Upsert(ctx, driven.VectorUpsert{ID: "doc-2", Text: "dental cleaning"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.FileExists(t, filepath.Join(dir, IndexFile))

	reopened, err := Open(dir, emb, domain.MetricCosine)
	require.NoError(t, err)
	defer reopened.Close()

	assert.Equal(t, 2, reopened.Len())
	got, err := reopened.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, first.Embedding, got.Embedding)
	assert.Equal(t, domain.KindDocument, got.Metadata[domain.MetaKind])

	// Sequence numbers continue after a restart.
	next, err := reopened.Upsert(ctx, driven.VectorUpsert{ID: "doc-3", Text: "fatigue"})
	require.NoError(t, err)
	assert.Greater(t, next.Seq, first.Seq+1)
}

func TestOpen_MetricMismatch(t *testing.T) {
	dir := t.TempDir()
	emb := hashing.New(8)

	s, err := Open(dir, emb, domain.MetricCosine)
	require.NoError(t, err)
	_, err = s.Upsert(context.Background(), driven.VectorUpsert{ID: "a", Text: "x"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(dir, emb, domain.MetricDot)
	assert.ErrorIs(t, err, domain.ErrMetricMismatch)

	// The failed open released the lock.
	s, err = Open(dir, emb, domain.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestOpen_DimensionMismatch(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(dir, hashing.New(8), domain.MetricCosine)
	require.NoError(t, err)
	_, err = s.Upsert(context.Background(), driven.VectorUpsert{ID: "a", Text: "x"})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(dir, hashing.New(16), domain.MetricCosine)
	assert.ErrorIs(t, err, domain.ErrConfiguration)
}

func TestOpen_Corruption(t *testing.T) {
	tests := []struct {
		name   string
		mangle func([]byte) []byte
	}{
		{"truncated", func(b []byte) []byte { return b[:5] }},
		{"bad magic", func(b []byte) []byte { b[0] = 'X'; return b }},
		{"flipped byte", func(b []byte) []byte { b[len(b)/2] ^= 0xff; return b }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			emb := hashing.New(8)

			s, err := Open(dir, emb, domain.MetricCosine)
			require.NoError(t, err)
			_, err = s.Upsert(context.Background(), driven.VectorUpsert{ID: "a", Text: "fatigue"})
			require.NoError(t, err)
			require.NoError(t, s.Close())

			path := filepath.Join(dir, IndexFile)
			data, err := os.ReadFile(path)
			require.NoError(t, err)
			require.NoError(t, os.WriteFile(path, tt.mangle(data), 0o600))

			_, err = Open(dir, emb, domain.MetricCosine)
			assert.ErrorIs(t, err, domain.ErrVectorStoreCorruption)
		})
	}
}

func TestNewPersister_Locked(t *testing.T) {
	dir := t.TempDir()

	p, err := NewPersister(dir)
	require.NoError(t, err)
	defer p.Close()

	_, err = NewPersister(dir)
	assert.ErrorIs(t, err, domain.ErrStoreLocked)
}

func TestSave_LeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, hashing.New(8), domain.MetricCosine)
	require.NoError(t, err)
	_, err = s.Upsert(context.Background(), driven.VectorUpsert{ID: "a", Text: "x"})
	require.NoError(t, err)
	require.NoError(t, s.Flush(context.Background()))
	require.NoError(t, s.Close())

	matches, err := filepath.Glob(filepath.Join(dir, IndexFile+".tmp.*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestLoad_MissingFileIsEmpty(t *testing.T) {
	p, err := NewPersister(t.TempDir())
	require.NoError(t, err)
	defer p.Close()

	snap, err := p.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}
