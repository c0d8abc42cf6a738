// Package workspace opens everything a command needs from the current
// directory: configuration, the log file and the task store, plus
// constructors for the engine components configured from it.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/PreetShah25/arbitra-AI/internal/capture"
	"github.com/PreetShah25/arbitra-AI/internal/config"
	"github.com/PreetShah25/arbitra-AI/internal/frames"
	"github.com/PreetShah25/arbitra-AI/internal/logging"
	"github.com/PreetShah25/arbitra-AI/internal/schedule"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/understanding"
	"github.com/PreetShah25/arbitra-AI/internal/upload"
	"github.com/PreetShah25/arbitra-AI/internal/util"
	"github.com/PreetShah25/arbitra-AI/internal/wizard"
)

// ErrNotInitialized is returned when the directory has no .arbitra folder.
var ErrNotInitialized = errors.New("arbitra is not initialized. Run 'arbitra init' first")

// Options adjust Open.
type Options struct {
	// LogLevel overrides log_level from the config when non-empty.
	LogLevel string
	// Logger replaces the file logger, mainly for tests.
	Logger *slog.Logger
}

// Workspace is an opened .arbitra directory.
type Workspace struct {
	Config *config.Config
	Logger *slog.Logger
	Store  *task.Store
	// File is the file backend, or nil when tasks live in Postgres.
	File *task.FileBackend

	closers []func() error
}

// IsInitialized reports whether projectDir has a .arbitra directory.
func IsInitialized(projectDir string) bool {
	info, err := os.Stat(filepath.Join(projectDir, config.DataDir))
	return err == nil && info.IsDir()
}

// Open loads the workspace rooted at projectDir.
func Open(ctx context.Context, projectDir string, opts Options) (*Workspace, error) {
	if !IsInitialized(projectDir) {
		return nil, ErrNotInitialized
	}
	cfg, err := config.Load(projectDir)
	if err != nil {
		return nil, err
	}

	w := &Workspace{Config: cfg, Logger: opts.Logger}
	if w.Logger == nil {
		levelName := cfg.LogLevel
		if opts.LogLevel != "" {
			levelName = opts.LogLevel
		}
		level, err := logging.ParseLevel(levelName)
		if err != nil {
			return nil, err
		}
		logger, closeLog, err := logging.New(cfg.LogsDir(), level)
		if err != nil {
			return nil, err
		}
		w.Logger = logger
		w.closers = append(w.closers, closeLog)
	}

	backend, err := w.backend(ctx)
	if err != nil {
		w.Close()
		return nil, err
	}

	store, err := task.Open(ctx, backend, task.WithLogger(w.Logger))
	if err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to load tasks: %w", err)
	}
	w.Store = store
	return w, nil
}

func (w *Workspace) backend(ctx context.Context) (task.Backend, error) {
	switch w.Config.Storage.Backend {
	case config.BackendPostgres:
		pg, err := task.ConnectPostgres(ctx, w.Config.Storage.PostgresDSN)
		if err != nil {
			return nil, err
		}
		w.closers = append(w.closers, func() error {
			pg.Close()
			return nil
		})
		return pg, nil
	default:
		w.File = task.NewFileBackend(w.Config.StorePath())
		return w.File, nil
	}
}

// Close releases the store connection and the log file.
func (w *Workspace) Close() error {
	var errs []error
	for i := len(w.closers) - 1; i >= 0; i-- {
		if err := w.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	w.closers = nil
	return errors.Join(errs...)
}

// Watch reloads the store when another process rewrites the task file.
// It returns immediately for non-file backends.
func (w *Workspace) Watch(ctx context.Context) error {
	if w.File == nil {
		return nil
	}
	return task.Watch(ctx, w.Store, w.File, w.Logger)
}

// Extractor returns a frame extractor backed by ffmpeg.
func (w *Workspace) Extractor() *frames.Extractor {
	c := w.Config
	sampler := frames.NewFFmpegSampler(c.Capture.FFmpeg, c.Capture.FFprobe)
	return frames.NewExtractor(sampler, w.Store, understanding.NewDrafter(w.Store), util.UUIDGenerator{}, frames.Options{
		Interval:    c.Frames.Interval,
		MaxSamples:  c.Frames.MaxSamples,
		MaxDuration: c.Frames.MaxDuration,
	}, w.Logger)
}

// Recorder returns the configured ffmpeg screen recorder.
func (w *Workspace) Recorder() capture.FFmpegRecorder {
	c := w.Config.Capture
	format, input := capture.DefaultInput()
	if c.InputFormat != "" {
		format = c.InputFormat
	}
	if c.Input != "" {
		input = c.Input
	}
	return capture.FFmpegRecorder{Binary: c.FFmpeg, InputFormat: format, Input: input, Audio: true}
}

// CaptureSource returns a capture source writing into .arbitra/recordings.
func (w *Workspace) CaptureSource(recorder capture.Recorder) *capture.Source {
	return capture.NewSource(recorder, w.Config.RecordingsDir(), capture.WithLogger(w.Logger))
}

// Uploader returns an upload simulator ticking on sched.
func (w *Workspace) Uploader(sched schedule.Scheduler) *upload.Simulator {
	return upload.NewSimulator(w.Store, sched, upload.Config{
		Interval:  w.Config.Upload.Tick,
		Increment: w.Config.Upload.Increment,
		Logger:    w.Logger,
	})
}

// Wizard wires a controller from the workspace's components.
func (w *Workspace) Wizard(companies wizard.CompanySource, notifier wizard.Notifier, confirmer wizard.Confirmer) *wizard.Controller {
	return wizard.New(wizard.Deps{
		Store:     w.Store,
		Capture:   w.CaptureSource(w.Recorder()),
		Upload:    w.Uploader(schedule.Ticker{}),
		Extractor: w.Extractor(),
		Companies: companies,
		Notifier:  notifier,
		Confirmer: confirmer,
		Logger:    w.Logger,
	})
}
