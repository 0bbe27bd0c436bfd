package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// executeCommand runs the CLI with args against a fresh root command and
// returns combined output. Global flag state is reset afterwards so
// tests stay independent.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Keep log files out of the real home directory.
	return executeCommandWithHome(t, t.TempDir(), args...)
}

// executeCommandWithHome is executeCommand with a pinned home directory,
// for tests that read state (like logs) a previous command wrote.
func executeCommandWithHome(t *testing.T, home string, args ...string) (string, error) {
	t.Helper()

	t.Setenv("HOME", home)

	t.Cleanup(func() {
		configPath = ""
		dataDir = ""
		embedderProvider = ""
		debugMode = false
		profileCPU = ""
		profileMem = ""
		profileTrace = ""
	})

	buf := &bytes.Buffer{}
	root := NewRootCmd()
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)

	err := root.Execute()
	return buf.String(), err
}

// writeTestConfig writes a deployment config with the offline stack:
// the persistent local vector store and deterministic static
// embeddings, so state survives across command invocations.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "docindex.yaml")
	content := fmt.Sprintf(`version: 1
storage:
  data_dir: %s
  backend: hnsw
embeddings:
  provider: static
ingest:
  workers: 2
`, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// writeTestDocument drops a text file to index.
func writeTestDocument(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	content := `The lease agreement begins on the first of March and renews
annually unless either party gives sixty days written notice.

Rent is payable monthly in advance; late payments accrue interest at
the statutory rate from the due date.`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
