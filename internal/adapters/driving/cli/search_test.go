package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, err := execute("search")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_HasLimitFlag(t *testing.T) {
	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag, "limit flag should exist")
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "10", flag.DefValue)
}

func TestSearchCmd_EmptyIndex(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("search", "hypermobile EDS")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_AfterIngest(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()
	ingest(t)

	t.Run("all kinds", func(t *testing.T) {
		out, err := execute("search", "-n", "5", "hypermobile EDS")

		require.NoError(t, err)
		assert.Contains(t, out, "Results:")
		assert.Contains(t, out, "[1]")
	})

	t.Run("entities of one type", func(t *testing.T) {
		out, err := execute("search", "--kind", "entity", "--type", "condition", "hypermobile EDS")

		require.NoError(t, err)
		assert.Contains(t, out, "Entity: condition")
	})

	t.Run("json output", func(t *testing.T) {
		defer func() { searchJSON = false }()

		out, err := execute("search", "--json", "--kind", "document", "hypermobile EDS")

		require.NoError(t, err)
		assert.Contains(t, out, "\"DocumentID\"")
		assert.Contains(t, out, "\"Score\"")
	})
}

func TestSearchCmd_InvalidFilters(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown kind", args: []string{"search", "--kind", "chunk", "q"}},
		{name: "unknown type", args: []string{"search", "--type", "vehicle", "q"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer resetFlags()

			_, err := execute(tt.args...)

			require.Error(t, err)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}
}
