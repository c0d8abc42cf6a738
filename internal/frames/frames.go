// Package frames samples still frames from a recording at fixed intervals.
package frames

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/PreetShah25/arbitra-AI/internal/logging"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/util"
)

// Sampling defaults
const (
	DefaultInterval    = 2 * time.Second
	DefaultMaxSamples  = 8
	DefaultMaxDuration = 120 * time.Second
)

var (
	// ErrNoRecording means extraction was requested without a recording reference.
	ErrNoRecording = errors.New("no recording to extract frames from")
	// ErrNoTask means extraction was requested without a current task.
	ErrNoTask = errors.New("no current task")
)

// FrameSampler decodes a recording through a single shared cursor. Seek
// returns only once the cursor has settled, so callers must never overlap
// Seek and Capture calls.
type FrameSampler interface {
	// Load opens ref and returns its duration in seconds.
	Load(ctx context.Context, ref string) (float64, error)
	// Seek moves the cursor to offset seconds and waits for it to settle.
	Seek(ctx context.Context, offset float64) error
	// Capture returns the PNG-encoded frame at the cursor.
	Capture(ctx context.Context) ([]byte, error)
	// Close releases the loaded recording.
	Close() error
}

// Patcher applies task mutations. *task.Store satisfies it.
type Patcher interface {
	Apply(ctx context.Context, id string, muts ...task.Mutation) error
}

// Drafter receives the extraction result to derive the task understanding.
type Drafter interface {
	Draft(ctx context.Context, taskID string, screenshotCount int, description, companyName string) error
}

// Request describes one extraction run.
type Request struct {
	Ref         string
	TaskID      string
	Description string
	CompanyName string
}

// Options bound the sampling.
type Options struct {
	Interval    time.Duration
	MaxSamples  int
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = DefaultInterval
	}
	if o.MaxSamples <= 0 {
		o.MaxSamples = DefaultMaxSamples
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = DefaultMaxDuration
	}
	return o
}

// Offsets returns the sample points, in seconds, for a recording of the
// given duration.
func (o Options) Offsets(duration float64) []float64 {
	o = o.withDefaults()
	limit := math.Min(duration, o.MaxDuration.Seconds())
	step := o.Interval.Seconds()

	var offsets []float64
	for i := 0; i < o.MaxSamples; i++ {
		ts := float64(i) * step
		if ts >= limit {
			break
		}
		offsets = append(offsets, ts)
	}
	return offsets
}

// Extractor turns a recording into an ordered screenshot sequence.
type Extractor struct {
	sampler FrameSampler
	patcher Patcher
	drafter Drafter
	ids     util.IDGenerator
	opts    Options
	logger  *slog.Logger

	// mu serializes runs over the single sampler cursor. An extraction that
	// outlives its wizard session may still hold it when the next one starts.
	mu sync.Mutex
}

// NewExtractor wires an Extractor. drafter may be nil.
func NewExtractor(sampler FrameSampler, patcher Patcher, drafter Drafter, ids util.IDGenerator, opts Options, logger *slog.Logger) *Extractor {
	if ids == nil {
		ids = util.UUIDGenerator{}
	}
	if logger == nil {
		logger = logging.Discard()
	}
	return &Extractor{
		sampler: sampler,
		patcher: patcher,
		drafter: drafter,
		ids:     ids,
		opts:    opts.withDefaults(),
		logger:  logger,
	}
}

// Extract samples req.Ref, replaces the task's screenshots with the result,
// then drafts the understanding. Any existing screenshots are overwritten.
// Precondition failures and decode errors leave the task untouched.
func (e *Extractor) Extract(ctx context.Context, req Request) ([]task.Screenshot, error) {
	if req.Ref == "" {
		e.logger.Warn("extraction_aborted", "reason", "no recording", "task_id", req.TaskID)
		return []task.Screenshot{}, ErrNoRecording
	}
	if req.TaskID == "" {
		e.logger.Warn("extraction_aborted", "reason", "no task", "ref", req.Ref)
		return []task.Screenshot{}, ErrNoTask
	}

	e.logger.Info("extraction_started", "task_id", req.TaskID, "ref", req.Ref)
	shots, err := e.sample(ctx, req.Ref)
	if err != nil {
		e.logger.Error("extraction_failed", "task_id", req.TaskID, "error", err)
		return []task.Screenshot{}, err
	}

	if err := e.patcher.Apply(ctx, req.TaskID, task.SetScreenshots{
		Screenshots: shots,
		Status:      task.StatusAnalyzing,
	}); err != nil {
		return []task.Screenshot{}, fmt.Errorf("failed to save screenshots: %w", err)
	}
	e.logger.Info("extraction_completed", "task_id", req.TaskID, "screenshots", len(shots))

	if e.drafter != nil {
		if err := e.drafter.Draft(ctx, req.TaskID, len(shots), req.Description, req.CompanyName); err != nil {
			return shots, fmt.Errorf("failed to draft understanding: %w", err)
		}
	}
	return shots, nil
}

// sample walks the offsets one at a time: seek, wait, capture, next.
func (e *Extractor) sample(ctx context.Context, ref string) ([]task.Screenshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	duration, err := e.sampler.Load(ctx, ref)
	if err != nil {
		return nil, fmt.Errorf("failed to load recording: %w", err)
	}
	defer e.sampler.Close()

	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return nil, fmt.Errorf("recording has no usable duration (%v)", duration)
	}

	offsets := e.opts.Offsets(duration)
	shots := make([]task.Screenshot, 0, len(offsets))
	for _, ts := range offsets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := e.sampler.Seek(ctx, ts); err != nil {
			return nil, fmt.Errorf("seek to %.2fs: %w", ts, err)
		}
		png, err := e.sampler.Capture(ctx)
		if err != nil {
			return nil, fmt.Errorf("capture at %.2fs: %w", ts, err)
		}
		shots = append(shots, task.Screenshot{
			ID:        e.ids.NewID(),
			TS:        ts,
			ImageData: "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		})
	}
	return shots, nil
}
