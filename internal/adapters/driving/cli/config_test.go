package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
)

func TestConfigCmd_HasSubcommands(t *testing.T) {
	names := make([]string, 0)
	for _, cmd := range configCmd.Commands() {
		names = append(names, cmd.Name())
	}

	assert.ElementsMatch(t, []string{"show", "set", "path", "keys"}, names)
}

func TestConfigShowCmd(t *testing.T) {
	env, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Config file: :memory:")
	assert.Contains(t, out, env.input)
	assert.Contains(t, out, "[file]")
	assert.Contains(t, out, "[default]")
}

func TestConfigSetCmd(t *testing.T) {
	env, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("config", "set", "concurrency", "8")

	require.NoError(t, err)
	assert.Contains(t, out, "Set concurrency")
	assert.Equal(t, 8, env.store.GetInt("concurrency"))

	cfg, err := settingsService.Load()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.Concurrency)
}

func TestConfigSetCmd_Errors(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	t.Run("unknown key", func(t *testing.T) {
		_, err := execute("config", "set", "colour", "blue")
		assert.True(t, errors.Is(err, domain.ErrConfiguration))
	})

	t.Run("bad value", func(t *testing.T) {
		_, err := execute("config", "set", "concurrency", "many")
		assert.True(t, errors.Is(err, domain.ErrConfiguration))
	})

	t.Run("missing value", func(t *testing.T) {
		_, err := execute("config", "set", "concurrency")
		assert.Error(t, err)
	})
}

func TestConfigPathAndKeys(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("config", "path")
	require.NoError(t, err)
	assert.Equal(t, ":memory:\n", out)

	out, err = execute("config", "keys")
	require.NoError(t, err)
	assert.Contains(t, out, "input_dir\n")
	assert.Contains(t, out, "sync.max_attempts\n")
}
