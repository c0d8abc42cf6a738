package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// CommandContext is the function used to create exec.Cmd instances.
// It can be replaced in tests to mock command execution.
var CommandContext = exec.CommandContext

const (
	// startGrace is how long Start waits for ffmpeg to fail on device access.
	startGrace  = 300 * time.Millisecond
	stopTimeout = 10 * time.Second
)

// FFmpegRecorder captures the screen with an ffmpeg subprocess.
type FFmpegRecorder struct {
	Binary      string // ffmpeg executable
	InputFormat string // e.g. x11grab, avfoundation, gdigrab
	Input       string // e.g. ":0.0", "1:0", "desktop"
	Audio       bool
}

// DefaultInput returns the platform's screen grab format and input.
func DefaultInput() (format, input string) {
	switch runtime.GOOS {
	case "darwin":
		return "avfoundation", "1:0"
	case "windows":
		return "gdigrab", "desktop"
	default:
		return "x11grab", ":0.0"
	}
}

func (r FFmpegRecorder) args(path string) []string {
	args := []string{"-y", "-loglevel", "error", "-f", r.InputFormat, "-i", r.Input}
	if r.Audio && r.InputFormat == "x11grab" {
		args = append(args, "-f", "pulse", "-i", "default")
	}
	return append(args, "-c:v", "libx264", "-preset", "ultrafast", "-pix_fmt", "yuv420p", path)
}

// Start implements Recorder.
func (r FFmpegRecorder) Start(ctx context.Context, path string) (Stream, error) {
	binary := r.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	// The capture outlives the caller's context; Stop owns its lifetime.
	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := CommandContext(procCtx, binary, r.args(path)...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdin: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		cancel()
		if errors.Is(err, exec.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s not found", ErrPermissionDenied, binary)
		}
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	s := &ffmpegStream{
		cmd:    cmd,
		stdin:  stdin,
		cancel: cancel,
		path:   path,
		exited: make(chan struct{}),
	}
	go func() {
		s.waitErr = cmd.Wait()
		close(s.exited)
	}()

	select {
	case <-s.exited:
		cancel()
		return nil, classifyStartFailure(stderr.String(), s.waitErr)
	case <-time.After(startGrace):
	}
	return s, nil
}

// classifyStartFailure maps an early ffmpeg exit to an error.
func classifyStartFailure(stderr string, waitErr error) error {
	msg := strings.TrimSpace(stderr)
	lower := strings.ToLower(msg)
	for _, marker := range []string{"permission denied", "cannot open display", "not authorized", "operation not permitted"} {
		if strings.Contains(lower, marker) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
		}
	}
	if waitErr != nil {
		return fmt.Errorf("ffmpeg exited during startup: %v: %s", waitErr, msg)
	}
	return fmt.Errorf("ffmpeg exited during startup: %s", msg)
}

type ffmpegStream struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	cancel context.CancelFunc
	path   string

	exited  chan struct{}
	waitErr error

	once    sync.Once
	size    int64
	stopErr error
}

// Stop asks ffmpeg to finish the file by sending "q", then kills it if it
// does not exit in time. The process is always reaped.
func (s *ffmpegStream) Stop() (int64, error) {
	s.once.Do(func() {
		defer s.cancel()

		io.WriteString(s.stdin, "q")
		s.stdin.Close()

		select {
		case <-s.exited:
		case <-time.After(stopTimeout):
			s.cancel()
			<-s.exited
		}

		info, err := os.Stat(s.path)
		if err != nil {
			if !os.IsNotExist(err) {
				s.stopErr = err
			}
			return
		}
		s.size = info.Size()
	})
	return s.size, s.stopErr
}
