package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, projectDir, body string) {
	t.Helper()
	dir := filepath.Join(projectDir, DataDir)
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaultsWhenMissing(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	c, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Storage.Backend != BackendFile {
		t.Errorf("expected file backend, got %q", c.Storage.Backend)
	}
	if c.Upload.Tick != 500*time.Millisecond || c.Upload.Increment != 20 {
		t.Errorf("unexpected upload defaults: %+v", c.Upload)
	}
	if c.Frames.Interval != 2*time.Second || c.Frames.MaxSamples != 8 || c.Frames.MaxDuration != 120*time.Second {
		t.Errorf("unexpected frame defaults: %+v", c.Frames)
	}
	if len(c.Companies) == 0 {
		t.Error("expected default companies")
	}
	if c.StorePath() != filepath.Join(c.DataDir, "tasks.json") {
		t.Errorf("unexpected store path %q", c.StorePath())
	}
}

func TestLoadParsesYaml(t *testing.T) {
	t.Setenv(DatabaseURLEnv, "")
	projectDir := t.TempDir()
	writeConfig(t, projectDir, strings.TrimSpace(`
version: 1
log_level: DEBUG
storage:
  backend: file
  path: /var/lib/arbitra/tasks.json
upload:
  tick: 100ms
  increment: 25
frames:
  max_samples: 4
companies:
  - ticker: tsla
    name: Tesla
`))

	c, err := Load(projectDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.LogLevel != "debug" {
		t.Errorf("expected normalized log level, got %q", c.LogLevel)
	}
	if c.StorePath() != "/var/lib/arbitra/tasks.json" {
		t.Errorf("unexpected store path %q", c.StorePath())
	}
	if c.Upload.Tick != 100*time.Millisecond || c.Upload.Increment != 25 {
		t.Errorf("unexpected upload config: %+v", c.Upload)
	}
	if c.Frames.MaxSamples != 4 || c.Frames.Interval != 2*time.Second {
		t.Errorf("unexpected frames config: %+v", c.Frames)
	}
	if c.CompanyName("TSLA") != "Tesla" || c.CompanyName("NVDA") != "" {
		t.Errorf("unexpected companies: %+v", c.Companies)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed", "storage: [", "parse"},
		{"bad backend", "storage:\n  backend: sqlite\n", "storage.backend"},
		{"postgres without dsn", "storage:\n  backend: postgres\n", "postgres_dsn"},
		{"bad increment", "upload:\n  increment: 150\n", "upload.increment"},
		{"bad level", "log_level: loud\n", "log_level"},
		{"duplicate ticker", "companies:\n  - ticker: A\n  - ticker: a\n", "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(DatabaseURLEnv, "")
			projectDir := t.TempDir()
			writeConfig(t, projectDir, tt.body)
			_, err := Load(projectDir)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadDatabaseURLOverride(t *testing.T) {
	projectDir := t.TempDir()
	writeConfig(t, projectDir, "storage:\n  backend: postgres\n  postgres_dsn: postgres://file\n")
	t.Setenv(DatabaseURLEnv, "postgres://env")

	c, err := Load(projectDir)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if c.Storage.PostgresDSN != "postgres://env" {
		t.Errorf("expected env DSN, got %q", c.Storage.PostgresDSN)
	}
}

func TestInitCreatesLayout(t *testing.T) {
	projectDir := t.TempDir()
	if err := Init(projectDir); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	for _, p := range []string{"config.yaml", "logs", "recordings"} {
		if _, err := os.Stat(filepath.Join(projectDir, DataDir, p)); err != nil {
			t.Errorf("expected %s: %v", p, err)
		}
	}

	// Existing config is left alone.
	writeConfig(t, projectDir, "log_level: warn\n")
	if err := Init(projectDir); err != nil {
		t.Fatal(err)
	}
	data, _ := os.ReadFile(filepath.Join(projectDir, DataDir, "config.yaml"))
	if string(data) != "log_level: warn\n" {
		t.Errorf("Init overwrote config: %q", data)
	}
}
