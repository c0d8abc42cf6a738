package frames

import (
	"context"
	"strings"
	"testing"

	"github.com/PreetShah25/arbitra-AI/internal/testutil"
)

func withCommand(t *testing.T, fn testutil.CommandFunc) {
	t.Helper()
	orig := CommandContext
	CommandContext = fn
	t.Cleanup(func() { CommandContext = orig })
}

func TestFFmpegSampler_Load(t *testing.T) {
	withCommand(t, testutil.MockCommandFunc("9.000000\n"))

	s := NewFFmpegSampler("", "")
	d, err := s.Load(context.Background(), "rec.mkv")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d != 9 {
		t.Errorf("duration = %v, want 9", d)
	}
}

func TestFFmpegSampler_LoadUnparseable(t *testing.T) {
	withCommand(t, testutil.MockCommandFunc("N/A"))

	if _, err := NewFFmpegSampler("", "").Load(context.Background(), "rec.mkv"); err == nil {
		t.Fatal("expected error")
	}
}

func TestFFmpegSampler_CaptureUsesCursor(t *testing.T) {
	ctx := context.Background()
	s := NewFFmpegSampler("", "")

	withCommand(t, testutil.MockCommandFunc("12.5"))
	if _, err := s.Load(ctx, "rec.mkv"); err != nil {
		t.Fatal(err)
	}
	if err := s.Seek(ctx, 4); err != nil {
		t.Fatal(err)
	}

	// Echo the arguments back as the "frame" so the test can inspect them.
	withCommand(t, testutil.MockScriptFunc(`printf '%s ' "$@"`))
	frame, err := s.Capture(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	args := string(frame)
	for _, want := range []string{"-ss 4.000", "-i rec.mkv", "-frames:v 1"} {
		if !strings.Contains(args, want) {
			t.Errorf("args %q missing %q", args, want)
		}
	}
}

func TestFFmpegSampler_RequiresLoad(t *testing.T) {
	ctx := context.Background()
	s := NewFFmpegSampler("", "")
	if err := s.Seek(ctx, 0); err == nil {
		t.Error("expected seek error before load")
	}
	if _, err := s.Capture(ctx); err == nil {
		t.Error("expected capture error before load")
	}
}

func TestFFmpegSampler_CommandFailure(t *testing.T) {
	withCommand(t, testutil.MockScriptFunc(`echo "moov atom not found" >&2; exit 1`))

	_, err := NewFFmpegSampler("", "").Load(context.Background(), "broken.mp4")
	if err == nil || !strings.Contains(err.Error(), "moov atom not found") {
		t.Errorf("expected stderr in error, got %v", err)
	}
}
