// Package testutil provides testing utilities for the arbitra project.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
)

// CommandFunc matches exec.CommandContext so packages can swap it in tests.
type CommandFunc func(ctx context.Context, name string, args ...string) *exec.Cmd

// MockCommandFunc creates a mock command that outputs the given response.
// Usage: frames.CommandContext = testutil.MockCommandFunc("12.5")
func MockCommandFunc(output string) CommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "echo", "-n", output)
	}
}

// MockScriptFunc runs script with sh instead of the requested binary. The
// original arguments are passed as positional parameters ($1, $2, ...), so
// scripts can inspect them.
func MockScriptFunc(script string) CommandFunc {
	return func(ctx context.Context, name string, args ...string) *exec.Cmd {
		shArgs := append([]string{"-c", script, name}, args...)
		return exec.CommandContext(ctx, "sh", shArgs...)
	}
}

// SetupTestDir creates a temp directory, resolves symlinks (for macOS),
// changes to it, and registers cleanup to restore the original working directory.
// Returns the resolved temp directory path.
func SetupTestDir(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	// Resolve symlinks for macOS (/var -> /private/var)
	if resolved, err := filepath.EvalSymlinks(tmpDir); err != nil {
		t.Logf("warning: could not resolve symlinks for temp dir: %v", err)
	} else {
		tmpDir = resolved
	}

	originalWd, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}

	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to change to temp dir: %v", err)
	}

	t.Cleanup(func() {
		os.Chdir(originalWd)
	})

	return tmpDir
}
