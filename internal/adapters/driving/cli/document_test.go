package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/core/ports/driving"
)

func TestDocumentCmd_HasSubcommands(t *testing.T) {
	commandNames := make([]string, 0)
	for _, cmd := range documentCmd.Commands() {
		commandNames = append(commandNames, cmd.Name())
	}

	assert.Contains(t, commandNames, "list")
	assert.Contains(t, commandNames, "get")
	assert.Contains(t, commandNames, "content")
	assert.Contains(t, commandNames, "details")
	assert.Contains(t, commandNames, "open")
}

func TestDocumentGetCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute("document", "get")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestDocumentListCmd_Empty(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("document", "list")

	require.NoError(t, err)
	assert.Contains(t, out, "No documents found.")
}

// firstDocumentID ingests the test note and returns its document id.
func firstDocumentID(t *testing.T) string {
	t.Helper()
	ingest(t)
	cfg, err := loadConfig()
	require.NoError(t, err)
	docs, err := newDocumentService(cfg).List(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	return docs[0].ID
}

func TestDocumentCmds_AfterIngest(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()
	id := firstDocumentID(t)

	t.Run("list", func(t *testing.T) {
		out, err := execute("document", "list")
		require.NoError(t, err)
		assert.Contains(t, out, id)
		assert.Contains(t, out, "Total: 1 documents")
	})

	t.Run("get", func(t *testing.T) {
		out, err := execute("document", "get", id)
		require.NoError(t, err)
		assert.Contains(t, out, "Stage:      PostProcessed")
		assert.Contains(t, out, "Entities:")
		assert.Contains(t, out, "condition")
	})

	t.Run("content", func(t *testing.T) {
		out, err := execute("document", "content", id)
		require.NoError(t, err)
		assert.Contains(t, out, "hypermobile EDS")
	})

	t.Run("details", func(t *testing.T) {
		out, err := execute("document", "details", id)
		require.NoError(t, err)
		assert.Contains(t, out, "Format:      plaintext")
		assert.Contains(t, out, "quality:")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := execute("document", "get", "does-not-exist")
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

type openRecorder struct {
	driving.DocumentService
	opened string
}

func (o *openRecorder) Open(_ context.Context, id string) error {
	o.opened = id
	return nil
}

func TestDocumentOpenCmd(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	rec := &openRecorder{}
	prev := newDocumentService
	newDocumentService = func(domain.Config) driving.DocumentService { return rec }
	defer func() { newDocumentService = prev }()

	out, err := execute("document", "open", "doc-1")

	require.NoError(t, err)
	assert.Equal(t, "doc-1", rec.opened)
	assert.Contains(t, out, "Opened document doc-1")
}
