package frames

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"
)

// CommandContext is the function used to create exec.Cmd instances.
// It can be replaced in tests to mock command execution.
var CommandContext = exec.CommandContext

// FFmpegSampler decodes frames with ffprobe/ffmpeg. The cursor is the
// offset passed to the next ffmpeg invocation, so a Seek settles as soon as
// it returns.
type FFmpegSampler struct {
	FFmpeg  string
	FFprobe string

	mu     sync.Mutex
	ref    string
	cursor float64
	loaded bool
}

// NewFFmpegSampler creates a sampler using the given binaries. Empty names
// fall back to "ffmpeg" and "ffprobe" on PATH.
func NewFFmpegSampler(ffmpeg, ffprobe string) *FFmpegSampler {
	if ffmpeg == "" {
		ffmpeg = "ffmpeg"
	}
	if ffprobe == "" {
		ffprobe = "ffprobe"
	}
	return &FFmpegSampler{FFmpeg: ffmpeg, FFprobe: ffprobe}
}

// Load implements FrameSampler.
func (s *FFmpegSampler) Load(ctx context.Context, ref string) (float64, error) {
	cmd := CommandContext(ctx, s.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		ref)
	output, err := cmd.Output()
	if err != nil {
		return 0, commandError("ffprobe", err)
	}

	raw := strings.TrimSpace(string(output))
	duration, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("ffprobe returned unparseable duration %q", raw)
	}

	s.mu.Lock()
	s.ref = ref
	s.cursor = 0
	s.loaded = true
	s.mu.Unlock()
	return duration, nil
}

// Seek implements FrameSampler.
func (s *FFmpegSampler) Seek(ctx context.Context, offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return errors.New("seek before load")
	}
	s.cursor = offset
	return nil
}

// Capture implements FrameSampler.
func (s *FFmpegSampler) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, errors.New("capture before load")
	}

	cmd := CommandContext(ctx, s.FFmpeg,
		"-v", "error",
		"-ss", strconv.FormatFloat(s.cursor, 'f', 3, 64),
		"-i", s.ref,
		"-frames:v", "1",
		"-f", "image2pipe",
		"-vcodec", "png",
		"-")
	output, err := cmd.Output()
	if err != nil {
		return nil, commandError("ffmpeg", err)
	}
	if len(output) == 0 {
		return nil, fmt.Errorf("ffmpeg produced no frame at %.3fs", s.cursor)
	}
	return output, nil
}

// Close implements FrameSampler.
func (s *FFmpegSampler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ref = ""
	s.cursor = 0
	s.loaded = false
	return nil
}

func commandError(name string, err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return fmt.Errorf("%s failed: %s", name, strings.TrimSpace(string(exitErr.Stderr)))
	}
	return fmt.Errorf("failed to execute %s: %w", name, err)
}
