// Package config loads .arbitra/config.yaml and lays out the .arbitra
// directory every workspace gets.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DataDir is the per-workspace directory.
	DataDir = ".arbitra"

	// DatabaseURLEnv overrides storage.postgres_dsn.
	DatabaseURLEnv = "ARBITRA_DATABASE_URL"

	BackendFile     = "file"
	BackendPostgres = "postgres"
)

const defaultConfigYAML = `# arbitra configuration
version: 1

# debug, info, warn or error. Logs go to .arbitra/logs/arbitra.log.
log_level: info

storage:
  # file keeps tasks in a JSON file; postgres keeps them in one JSONB row.
  backend: file
  path: tasks.json
  # postgres_dsn: postgres://localhost:5432/arbitra
  # ARBITRA_DATABASE_URL takes precedence when set.

upload:
  tick: 500ms
  increment: 20

frames:
  interval: 2s
  max_samples: 8
  max_duration: 120s

capture:
  ffmpeg: ffmpeg
  ffprobe: ffprobe
  # Leave empty to use the platform default screen grabber.
  # input_format: x11grab
  # input: ":0.0"

companies:
  - ticker: NVDA
    name: NVIDIA
  - ticker: MSFT
    name: Microsoft
  - ticker: AAPL
    name: Apple
`

// Company is one entry in the company picker.
type Company struct {
	Ticker string `yaml:"ticker"`
	Name   string `yaml:"name"`
}

// StorageConfig selects the task store backend.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	PostgresDSN string `yaml:"postgres_dsn,omitempty"`
}

// UploadConfig tunes the simulated upload.
type UploadConfig struct {
	Tick      time.Duration `yaml:"tick"`
	Increment int           `yaml:"increment"`
}

// FramesConfig tunes screenshot sampling.
type FramesConfig struct {
	Interval    time.Duration `yaml:"interval"`
	MaxSamples  int           `yaml:"max_samples"`
	MaxDuration time.Duration `yaml:"max_duration"`
}

// CaptureConfig locates the ffmpeg tooling.
type CaptureConfig struct {
	FFmpeg      string `yaml:"ffmpeg"`
	FFprobe     string `yaml:"ffprobe"`
	InputFormat string `yaml:"input_format,omitempty"`
	Input       string `yaml:"input,omitempty"`
}

// File models .arbitra/config.yaml.
type File struct {
	Version   int           `yaml:"version"`
	LogLevel  string        `yaml:"log_level"`
	Storage   StorageConfig `yaml:"storage"`
	Upload    UploadConfig  `yaml:"upload"`
	Frames    FramesConfig  `yaml:"frames"`
	Capture   CaptureConfig `yaml:"capture"`
	Companies []Company     `yaml:"companies"`
}

// Config is the resolved runtime configuration.
type Config struct {
	// ProjectDir is where arbitra was started.
	ProjectDir string
	// DataDir is ProjectDir/.arbitra.
	DataDir string

	File
}

// Init creates the .arbitra layout and a default config.yaml if missing.
//
//	.arbitra/
//	├── config.yaml
//	├── logs/
//	└── recordings/
func Init(projectDir string) error {
	dataDir := filepath.Join(projectDir, DataDir)
	for _, dir := range []string{
		filepath.Join(dataDir, "logs"),
		filepath.Join(dataDir, "recordings"),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("config: create %s: %w", dir, err)
		}
	}

	path := filepath.Join(dataDir, "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0644)
}

// Load reads the config for projectDir. A missing file yields defaults; a
// malformed one is an error.
func Load(projectDir string) (*Config, error) {
	c := &Config{
		ProjectDir: projectDir,
		DataDir:    filepath.Join(projectDir, DataDir),
		File:       Defaults(),
	}

	path := c.ConfigPath()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	default:
		var parsed File
		if err := yaml.Unmarshal(data, &parsed); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
		parsed.applyDefaults()
		c.File = parsed
	}

	if dsn := strings.TrimSpace(os.Getenv(DatabaseURLEnv)); dsn != "" {
		c.Storage.PostgresDSN = dsn
	}
	c.normalize()
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return c, nil
}

// Defaults returns the built-in configuration.
func Defaults() File {
	var f File
	if err := yaml.Unmarshal([]byte(defaultConfigYAML), &f); err != nil {
		panic(fmt.Sprintf("config: default template: %v", err))
	}
	return f
}

func (f *File) applyDefaults() {
	def := Defaults()
	if f.Version == 0 {
		f.Version = def.Version
	}
	if f.LogLevel == "" {
		f.LogLevel = def.LogLevel
	}
	if f.Storage.Backend == "" {
		f.Storage.Backend = def.Storage.Backend
	}
	if f.Storage.Path == "" {
		f.Storage.Path = def.Storage.Path
	}
	if f.Upload.Tick == 0 {
		f.Upload.Tick = def.Upload.Tick
	}
	if f.Upload.Increment == 0 {
		f.Upload.Increment = def.Upload.Increment
	}
	if f.Frames.Interval == 0 {
		f.Frames.Interval = def.Frames.Interval
	}
	if f.Frames.MaxSamples == 0 {
		f.Frames.MaxSamples = def.Frames.MaxSamples
	}
	if f.Frames.MaxDuration == 0 {
		f.Frames.MaxDuration = def.Frames.MaxDuration
	}
	if f.Capture.FFmpeg == "" {
		f.Capture.FFmpeg = def.Capture.FFmpeg
	}
	if f.Capture.FFprobe == "" {
		f.Capture.FFprobe = def.Capture.FFprobe
	}
	if len(f.Companies) == 0 {
		f.Companies = def.Companies
	}
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	for i := range c.Companies {
		c.Companies[i].Ticker = strings.ToUpper(strings.TrimSpace(c.Companies[i].Ticker))
		c.Companies[i].Name = strings.TrimSpace(c.Companies[i].Name)
	}
}

func (c *Config) validate() error {
	if c.Version < 1 {
		return fmt.Errorf("version must be >= 1")
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error")
	}
	switch c.Storage.Backend {
	case BackendFile:
	case BackendPostgres:
		if c.Storage.PostgresDSN == "" {
			return fmt.Errorf("storage.postgres_dsn (or %s) is required for the postgres backend", DatabaseURLEnv)
		}
	default:
		return fmt.Errorf("storage.backend must be 'file' or 'postgres'")
	}
	if c.Upload.Tick < 0 || c.Frames.Interval < 0 || c.Frames.MaxDuration < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	if c.Upload.Increment < 1 || c.Upload.Increment > 100 {
		return fmt.Errorf("upload.increment must be between 1 and 100")
	}
	if c.Frames.MaxSamples < 1 {
		return fmt.Errorf("frames.max_samples must be >= 1")
	}
	seen := make(map[string]bool, len(c.Companies))
	for i, co := range c.Companies {
		if co.Ticker == "" {
			return fmt.Errorf("companies[%d]: ticker is required", i)
		}
		if seen[co.Ticker] {
			return fmt.Errorf("companies[%d]: duplicate ticker %s", i, co.Ticker)
		}
		seen[co.Ticker] = true
	}
	return nil
}

// ConfigPath returns .arbitra/config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.DataDir, "config.yaml")
}

// LogsDir returns the log directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// RecordingsDir returns where live captures are written.
func (c *Config) RecordingsDir() string {
	return filepath.Join(c.DataDir, "recordings")
}

// StorePath returns the task file path for the file backend.
func (c *Config) StorePath() string {
	if filepath.IsAbs(c.Storage.Path) {
		return filepath.Clean(c.Storage.Path)
	}
	return filepath.Join(c.DataDir, c.Storage.Path)
}

// CompanyName returns the display name for ticker, or "" if unknown.
func (c *Config) CompanyName(ticker string) string {
	for _, co := range c.Companies {
		if strings.EqualFold(co.Ticker, ticker) {
			return co.Name
		}
	}
	return ""
}
