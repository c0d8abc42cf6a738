package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/testutil"
)

func TestRunInit(t *testing.T) {
	t.Run("creates the data directory", func(t *testing.T) {
		dir := testutil.SetupTestDir(t)
		var out bytes.Buffer

		if err := runInit(&out, dir); err != nil {
			t.Fatalf("runInit failed: %v", err)
		}
		for _, p := range []string{".arbitra/config.yaml", ".arbitra/logs", ".arbitra/recordings"} {
			if _, err := os.Stat(filepath.Join(dir, p)); err != nil {
				t.Errorf("expected %s to exist: %v", p, err)
			}
		}
		if !strings.Contains(out.String(), "Initialized Arbitra") {
			t.Errorf("unexpected output: %q", out.String())
		}
	})

	t.Run("second init fails", func(t *testing.T) {
		dir := testutil.SetupTestDir(t)
		var out bytes.Buffer
		if err := runInit(&out, dir); err != nil {
			t.Fatal(err)
		}
		err := runInit(&out, dir)
		if err == nil || err.Error() != "arbitra is already initialized in this directory" {
			t.Errorf("expected already initialized error, got %v", err)
		}
	})
}

func TestRunDeinit(t *testing.T) {
	t.Run("not initialized fails", func(t *testing.T) {
		dir := testutil.SetupTestDir(t)
		err := runDeinit(strings.NewReader(""), &bytes.Buffer{}, dir, true)
		if err == nil || err.Error() != "arbitra is not initialized in this directory" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run(".arbitra as a file fails", func(t *testing.T) {
		dir := testutil.SetupTestDir(t)
		if err := os.WriteFile(".arbitra", []byte("x"), 0644); err != nil {
			t.Fatal(err)
		}
		err := runDeinit(strings.NewReader(""), &bytes.Buffer{}, dir, true)
		if err == nil || err.Error() != ".arbitra exists but is not a directory" {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("declining keeps the directory", func(t *testing.T) {
		dir := testutil.SetupTestDir(t)
		_ = runInit(&bytes.Buffer{}, dir)
		var out bytes.Buffer

		if err := runDeinit(strings.NewReader("n\n"), &out, dir, false); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(".arbitra"); err != nil {
			t.Error("expected .arbitra to remain")
		}
		if !strings.Contains(out.String(), "Aborted.") {
			t.Errorf("expected Aborted, got %q", out.String())
		}
	})

	t.Run("confirming removes the directory", func(t *testing.T) {
		dir := testutil.SetupTestDir(t)
		_ = runInit(&bytes.Buffer{}, dir)
		if err := os.WriteFile(filepath.Join(".arbitra", "recordings", "a.mkv"), []byte("data"), 0644); err != nil {
			t.Fatal(err)
		}
		var out bytes.Buffer

		if err := runDeinit(strings.NewReader("yes\n"), &out, dir, false); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(".arbitra"); !os.IsNotExist(err) {
			t.Error("expected .arbitra to be removed")
		}
		if !strings.Contains(out.String(), "1 recordings") {
			t.Errorf("expected recording count in prompt, got %q", out.String())
		}
	})

	t.Run("active session blocks removal", func(t *testing.T) {
		dir := testutil.SetupTestDir(t)
		_ = runInit(&bytes.Buffer{}, dir)
		lock := task.NewSessionLock(filepath.Join(dir, ".arbitra"))
		if err := lock.Acquire(); err != nil {
			t.Fatal(err)
		}
		defer lock.Release()

		if err := runDeinit(strings.NewReader(""), &bytes.Buffer{}, dir, true); err == nil {
			t.Error("expected error while a session holds the lock")
		}
	})
}
