package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/core/domain"
	"github.com/custodia-labs/medingest/internal/postprocessors/jsonexport"
)

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync", syncCmd.Use)
	assert.NotNil(t, syncCmd.Flags().Lookup("retry-report"))
}

func TestSyncCmd_NoExports(t *testing.T) {
	_, cleanup := setupTestServices(t)
	defer cleanup()

	out, err := execute("sync")

	require.NoError(t, err)
	assert.Contains(t, out, "No entities to sync.")
}

func TestSyncCmd_ResyncsExports(t *testing.T) {
	env, cleanup := setupTestServices(t)
	defer cleanup()
	ingest(t)

	out, err := execute("sync")

	require.NoError(t, err, out)
	assert.Contains(t, out, "to memory")
	assert.Contains(t, out, "0 failed")

	report, err := jsonexport.ReadReport(filepath.Join(env.output, syncReportFileName))
	require.NoError(t, err)
	assert.NotEmpty(t, report.SyncResults)
	assert.Zero(t, report.Sync.Failed)
}

func TestSyncCmd_RetryReport(t *testing.T) {
	env, cleanup := setupTestServices(t)
	defer cleanup()
	ingest(t)

	exports, err := jsonexport.ReadDir(env.output)
	require.NoError(t, err)
	entities := exports[0].ToEntities()
	require.NotEmpty(t, entities)

	t.Run("only failed entities are retried", func(t *testing.T) {
		defer resetFlags()
		prev := filepath.Join(env.root, "previous.json")
		require.NoError(t, jsonexport.WriteJSON(prev, &domain.RunReport{
			SyncResults: []domain.SyncResult{
				{EntityID: entities[0].ID, Target: "memory", Status: domain.SyncFailed, Error: "timeout"},
			},
		}))

		out, err := execute("sync", "--retry-report", prev)

		require.NoError(t, err, out)
		assert.Contains(t, out, "Syncing 1 entities")
	})

	t.Run("nothing to retry", func(t *testing.T) {
		defer resetFlags()
		prev := filepath.Join(env.root, "clean.json")
		require.NoError(t, jsonexport.WriteJSON(prev, &domain.RunReport{}))

		out, err := execute("sync", "--retry-report", prev)

		require.NoError(t, err)
		assert.Contains(t, out, "No entities to sync.")
	})

	t.Run("missing report", func(t *testing.T) {
		defer resetFlags()

		_, err := execute("sync", "--retry-report", filepath.Join(env.root, "missing.json"))

		assert.Error(t, err)
	})
}
