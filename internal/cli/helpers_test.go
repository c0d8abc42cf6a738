package cli

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/PreetShah25/arbitra-AI/internal/config"
	"github.com/PreetShah25/arbitra-AI/internal/logging"
	"github.com/PreetShah25/arbitra-AI/internal/testutil"
	"github.com/PreetShah25/arbitra-AI/internal/workspace"
)

const testConfig = `version: 1
upload:
  tick: 1ms
companies:
  - ticker: NVDA
    name: NVIDIA
`

// newTestWorkspace initializes .arbitra in a fresh temp dir and opens it.
func newTestWorkspace(t *testing.T) (*workspace.Workspace, string) {
	t.Helper()
	t.Setenv(config.DatabaseURLEnv, "")
	dir := testutil.SetupTestDir(t)
	if err := config.Init(dir); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, config.DataDir, "config.yaml"), []byte(testConfig), 0644); err != nil {
		t.Fatal(err)
	}
	ws, err := workspace.Open(context.Background(), dir, workspace.Options{Logger: logging.Discard()})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws, dir
}
