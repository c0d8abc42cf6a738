// Package capture obtains a recording of user activity, either by live
// screen capture or by accepting an existing media file.
package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/PreetShah25/arbitra-AI/internal/logging"
	"github.com/PreetShah25/arbitra-AI/internal/util"
)

var (
	// ErrPermissionDenied means the capture device refused access. File
	// supply remains available.
	ErrPermissionDenied = errors.New("screen capture permission denied")
	// ErrNotRecording is returned by Stop when no live capture is active.
	ErrNotRecording = errors.New("no live capture in progress")
	// ErrEmptyRecording means the capture stopped without producing media.
	ErrEmptyRecording = errors.New("capture produced no media")
)

// Mode says how a recording was acquired.
type Mode string

// Acquisition modes
const (
	ModeLive Mode = "live"
	ModeFile Mode = "file"
)

// Recording is a finished, playable recording reference. It is session
// local: live recordings live in the recordings directory and nothing
// guarantees they survive cleanup between runs.
type Recording struct {
	Path      string
	Mode      Mode
	CreatedAt time.Time
}

// Ref returns the string form stored on the task.
func (r Recording) Ref() string {
	return r.Path
}

// Recorder acquires capture devices and buffers media to a file.
type Recorder interface {
	// Start requests the screen (and audio) stream and begins buffering to
	// path. It returns ErrPermissionDenied when access is refused.
	Start(ctx context.Context, path string) (Stream, error)
}

// Stream is an active capture.
type Stream interface {
	// Stop ends buffering, assembles the media at the path passed to Start
	// and releases every device handle, even if nothing was buffered. It
	// returns the size of the assembled file.
	Stop() (int64, error)
}

type liveAttempt struct {
	stream Stream
	path   string
}

// Source hands out recordings. At most one live capture is active at a
// time; starting another discards the unfinished one.
type Source struct {
	recorder Recorder
	dir      string
	now      func() time.Time
	logger   *slog.Logger

	mu       sync.Mutex
	active   *liveAttempt
	onFinish func(Recording)
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Source) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Source) { s.now = now }
}

// NewSource creates a Source that writes live recordings into dir.
// recorder may be nil, in which case only file supply works.
func NewSource(recorder Recorder, dir string, opts ...Option) *Source {
	s := &Source{
		recorder: recorder,
		dir:      dir,
		now:      time.Now,
		logger:   logging.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnFinish registers the callback that receives every finished recording.
func (s *Source) OnFinish(fn func(Recording)) {
	s.mu.Lock()
	s.onFinish = fn
	s.mu.Unlock()
}

// Recording reports whether a live capture is in progress.
func (s *Source) Recording() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active != nil
}

// StartLive begins a live capture. label names the output file.
func (s *Source) StartLive(ctx context.Context, label string) error {
	if s.recorder == nil {
		return fmt.Errorf("%w: no recorder configured", ErrPermissionDenied)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.discardLocked()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create recordings directory: %w", err)
	}
	path, err := s.outputPath(label)
	if err != nil {
		return err
	}

	stream, err := s.recorder.Start(ctx, path)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			s.logger.Warn("capture_denied", "error", err)
		}
		return err
	}

	s.active = &liveAttempt{stream: stream, path: path}
	s.logger.Info("capture_started", "path", path)
	return nil
}

// StopLive ends the live capture and finalizes its recording.
func (s *Source) StopLive() (Recording, error) {
	s.mu.Lock()
	attempt := s.active
	s.active = nil
	onFinish := s.onFinish
	s.mu.Unlock()

	if attempt == nil {
		return Recording{}, ErrNotRecording
	}

	size, err := attempt.stream.Stop()
	if err != nil {
		return Recording{}, fmt.Errorf("failed to stop capture: %w", err)
	}
	if size == 0 {
		os.Remove(attempt.path)
		return Recording{}, ErrEmptyRecording
	}

	rec := Recording{Path: attempt.path, Mode: ModeLive, CreatedAt: s.now()}
	s.logger.Info("capture_stopped", "path", rec.Path, "bytes", size)
	if onFinish != nil {
		onFinish(rec)
	}
	return rec, nil
}

// SupplyFile accepts an existing media file as the recording. Any
// unfinished live capture is discarded.
func (s *Source) SupplyFile(path string) (Recording, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Recording{}, fmt.Errorf("recording file: %w", err)
	}
	if info.IsDir() {
		return Recording{}, fmt.Errorf("recording file: %s is a directory", path)
	}
	if info.Size() == 0 {
		return Recording{}, fmt.Errorf("recording file %s: %w", path, ErrEmptyRecording)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	s.mu.Lock()
	s.discardLocked()
	onFinish := s.onFinish
	s.mu.Unlock()

	rec := Recording{Path: abs, Mode: ModeFile, CreatedAt: s.now()}
	s.logger.Info("capture_file_supplied", "path", abs)
	if onFinish != nil {
		onFinish(rec)
	}
	return rec, nil
}

// Discard abandons an unfinished live capture, if any.
func (s *Source) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardLocked()
}

func (s *Source) discardLocked() {
	if s.active == nil {
		return
	}
	if _, err := s.active.stream.Stop(); err != nil {
		s.logger.Warn("capture_discard_failed", "error", err)
	}
	os.Remove(s.active.path)
	s.logger.Info("capture_discarded", "path", s.active.path)
	s.active = nil
}

func (s *Source) outputPath(label string) (string, error) {
	suffix, err := util.GenerateShortID()
	if err != nil {
		return "", fmt.Errorf("failed to generate recording name: %w", err)
	}
	name := util.ToKebabCase(label)
	if name == "" {
		name = "recording"
	}
	return filepath.Join(s.dir, fmt.Sprintf("%s-%s.mkv", name, suffix)), nil
}
