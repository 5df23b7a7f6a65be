package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/medingest/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/medingest/internal/core/services"
)

const testNote = "Patient dx: hypermobile EDS, confirmed by Dr. LiCause on 2018-02-14."

// testEnv is the workspace created by setupTestServices.
type testEnv struct {
	root   string
	input  string
	output string
	store  *memory.ConfigStore
}

// setupTestServices points the CLI at an in-memory configuration whose
// input, output and index directories live under a temp dir.
func setupTestServices(t *testing.T) (*testEnv, func()) {
	t.Helper()
	root := t.TempDir()
	env := &testEnv{
		root:   root,
		input:  filepath.Join(root, "records"),
		output: filepath.Join(root, "output"),
	}
	require.NoError(t, os.MkdirAll(env.input, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(env.input, "visit.txt"), []byte(testNote), 0o600))

	env.store = memory.NewConfigStore(map[string]any{
		"input_dir":            env.input,
		"embedding.dimensions": 64,
		"sync.targets":         []string{"memory"},
	})

	prev := settingsService
	settingsService = services.NewSettingsService(env.store,
		services.WithDataDir(root),
		services.WithLookupEnv(func(string) (string, bool) { return "", false }),
	)

	return env, func() {
		settingsService = prev
		resetFlags()
	}
}

// resetFlags restores flag variables, which cobra keeps between executions.
func resetFlags() {
	searchLimit = 10
	searchType = ""
	searchKind = ""
	searchJSON = false
	ingestInput = ""
	ingestWatch = false
	ingestReport = ""
	syncFrom = ""
	syncRetry = ""
	syncReport = ""
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

// ingest runs a successful ingest in env.
func ingest(t *testing.T) string {
	t.Helper()
	out, err := execute("ingest")
	require.NoError(t, err, out)
	return out
}
