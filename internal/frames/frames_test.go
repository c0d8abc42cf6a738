package frames

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/util"
)

// fakeSampler records every call and fails the test on overlapping seeks.
type fakeSampler struct {
	t        *testing.T
	duration float64
	loadErr  error
	failAt   float64

	mu     sync.Mutex
	busy   bool
	cursor float64
	ops    []string
	closed bool
}

func (f *fakeSampler) enter() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.busy {
		f.t.Error("overlapping sampler calls")
	}
	f.busy = true
}

func (f *fakeSampler) leave(op string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.busy = false
	f.ops = append(f.ops, op)
}

func (f *fakeSampler) Load(ctx context.Context, ref string) (float64, error) {
	f.enter()
	defer f.leave("load " + ref)
	return f.duration, f.loadErr
}

func (f *fakeSampler) Seek(ctx context.Context, offset float64) error {
	f.enter()
	defer f.leave(fmt.Sprintf("seek %g", offset))
	f.cursor = offset
	return nil
}

func (f *fakeSampler) Capture(ctx context.Context) ([]byte, error) {
	f.enter()
	defer f.leave(fmt.Sprintf("capture %g", f.cursor))
	if f.failAt > 0 && f.cursor == f.failAt {
		return nil, errors.New("decode error")
	}
	return []byte(fmt.Sprintf("frame@%g", f.cursor)), nil
}

func (f *fakeSampler) Close() error {
	f.closed = true
	return nil
}

type recordingDrafter struct {
	calls []string
}

func (d *recordingDrafter) Draft(ctx context.Context, taskID string, count int, desc, company string) error {
	d.calls = append(d.calls, fmt.Sprintf("%s:%d:%s:%s", taskID, count, desc, company))
	return nil
}

func setup(t *testing.T, sampler *fakeSampler) (*task.Store, task.Task, *recordingDrafter, *Extractor) {
	t.Helper()
	ctx := context.Background()
	store, err := task.Open(ctx, task.NewMemoryBackend(nil), task.WithIDGenerator(util.NewSequence("t")))
	if err != nil {
		t.Fatal(err)
	}
	created, err := store.Create(ctx, "NVDA", "n", "pull revenue")
	if err != nil {
		t.Fatal(err)
	}
	drafter := &recordingDrafter{}
	ex := NewExtractor(sampler, store, drafter, util.NewSequence("s"), Options{}, nil)
	return store, created, drafter, ex
}

func offsetsOf(shots []task.Screenshot) []float64 {
	out := make([]float64, len(shots))
	for i, s := range shots {
		out[i] = s.TS
	}
	return out
}

func TestOptions_Offsets(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		want     []float64
	}{
		{"short recording", 9.0, []float64{0, 2, 4, 6, 8}},
		{"cap dominates", 30, []float64{0, 2, 4, 6, 8, 10, 12, 14}},
		{"exact multiple", 8, []float64{0, 2, 4, 6}},
		{"sub-interval", 0.5, []float64{0}},
		{"zero length", 0, nil},
		{"clamped to max duration", 10000, []float64{0, 2, 4, 6, 8, 10, 12, 14}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Options{}.Offsets(tc.duration)
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("Offsets(%v) = %v, want %v", tc.duration, got, tc.want)
			}
		})
	}

	t.Run("max duration clamps before cap", func(t *testing.T) {
		got := Options{MaxSamples: 100, MaxDuration: 5 * 1e9}.Offsets(60)
		if !reflect.DeepEqual(got, []float64{0, 2, 4}) {
			t.Errorf("got %v", got)
		}
	})
}

func TestExtract_NineSecondRecording(t *testing.T) {
	sampler := &fakeSampler{t: t, duration: 9.0}
	store, created, drafter, ex := setup(t, sampler)

	shots, err := ex.Extract(context.Background(), Request{
		Ref: "/tmp/rec.webm", TaskID: created.ID, Description: "pull revenue", CompanyName: "NVIDIA",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := offsetsOf(shots); !reflect.DeepEqual(got, []float64{0, 2, 4, 6, 8}) {
		t.Errorf("offsets = %v", got)
	}
	for _, s := range shots {
		if s.Note != "" {
			t.Errorf("expected empty note, got %q", s.Note)
		}
		if !strings.HasPrefix(s.ImageData, "data:image/png;base64,") {
			t.Errorf("unexpected image data %q", s.ImageData)
		}
	}

	wantOps := []string{"load /tmp/rec.webm"}
	for _, ts := range []int{0, 2, 4, 6, 8} {
		wantOps = append(wantOps, fmt.Sprintf("seek %d", ts), fmt.Sprintf("capture %d", ts))
	}
	if !reflect.DeepEqual(sampler.ops, wantOps) {
		t.Errorf("ops = %v, want %v", sampler.ops, wantOps)
	}
	if !sampler.closed {
		t.Error("expected sampler to be closed")
	}

	got, _ := store.Get(created.ID)
	if !reflect.DeepEqual(got.Screenshots, shots) {
		t.Errorf("stored screenshots differ from returned ones")
	}
	if got.Status != task.StatusAnalyzing {
		t.Errorf("expected status analyzing, got %q", got.Status)
	}
	if want := []string{created.ID + ":5:pull revenue:NVIDIA"}; !reflect.DeepEqual(drafter.calls, want) {
		t.Errorf("drafter calls = %v, want %v", drafter.calls, want)
	}
}

func TestExtract_CapDominates(t *testing.T) {
	sampler := &fakeSampler{t: t, duration: 30}
	_, created, _, ex := setup(t, sampler)

	shots, err := ex.Extract(context.Background(), Request{Ref: "r", TaskID: created.ID})
	if err != nil {
		t.Fatal(err)
	}
	if got := offsetsOf(shots); !reflect.DeepEqual(got, []float64{0, 2, 4, 6, 8, 10, 12, 14}) {
		t.Errorf("offsets = %v", got)
	}
}

func TestExtract_Preconditions(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want error
	}{
		{"no recording", Request{TaskID: "t1"}, ErrNoRecording},
		{"no task", Request{Ref: "r"}, ErrNoTask},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sampler := &fakeSampler{t: t, duration: 9}
			store, created, drafter, ex := setup(t, sampler)
			if tc.req.TaskID != "" {
				tc.req.TaskID = created.ID
			}

			shots, err := ex.Extract(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			if shots == nil || len(shots) != 0 {
				t.Errorf("expected empty non-nil sequence, got %#v", shots)
			}
			if len(sampler.ops) != 0 {
				t.Errorf("sampler should not be touched, got %v", sampler.ops)
			}
			if len(drafter.calls) != 0 {
				t.Error("drafter should not run")
			}
			got, _ := store.Get(created.ID)
			if got.Status != task.StatusDraft || len(got.Screenshots) != 0 {
				t.Errorf("task must be untouched: %+v", got)
			}
		})
	}
}

func TestExtract_DecodeFailureLeavesTaskUntouched(t *testing.T) {
	sampler := &fakeSampler{t: t, duration: 9, failAt: 4}
	store, created, _, ex := setup(t, sampler)

	if _, err := ex.Extract(context.Background(), Request{Ref: "r", TaskID: created.ID}); err == nil {
		t.Fatal("expected error")
	}
	got, _ := store.Get(created.ID)
	if len(got.Screenshots) != 0 {
		t.Errorf("no partial patch expected, got %d screenshots", len(got.Screenshots))
	}
}

func TestExtract_RerunOverwrites(t *testing.T) {
	ctx := context.Background()
	sampler := &fakeSampler{t: t, duration: 30}
	store, created, _, ex := setup(t, sampler)

	if _, err := ex.Extract(ctx, Request{Ref: "r", TaskID: created.ID}); err != nil {
		t.Fatal(err)
	}
	sampler.duration = 3
	if _, err := ex.Extract(ctx, Request{Ref: "r", TaskID: created.ID}); err != nil {
		t.Fatal(err)
	}

	got, _ := store.Get(created.ID)
	if offsets := offsetsOf(got.Screenshots); !reflect.DeepEqual(offsets, []float64{0, 2}) {
		t.Errorf("expected screenshots replaced by second run, got %v", offsets)
	}
}

func TestExtract_LoadFailure(t *testing.T) {
	sampler := &fakeSampler{t: t, loadErr: errors.New("unsupported codec")}
	_, created, _, ex := setup(t, sampler)

	_, err := ex.Extract(context.Background(), Request{Ref: "r", TaskID: created.ID})
	if err == nil || !strings.Contains(err.Error(), "unsupported codec") {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestExtract_CancelledContext(t *testing.T) {
	sampler := &fakeSampler{t: t, duration: 9}
	_, created, _, ex := setup(t, sampler)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ex.Extract(ctx, Request{Ref: "r", TaskID: created.ID})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

// cursorSampler models a decoder with one loaded media element: seeking
// without a loaded recording fails and Close unloads it.
type cursorSampler struct {
	mu     sync.Mutex
	ref    string
	cursor float64
}

func (s *cursorSampler) Load(ctx context.Context, ref string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ref = ref
	return 9, nil
}

func (s *cursorSampler) Seek(ctx context.Context, offset float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ref == "" {
		return errors.New("no media loaded")
	}
	s.cursor = offset
	return nil
}

func (s *cursorSampler) Capture(ctx context.Context) ([]byte, error) {
	s.mu.Lock()
	ref, cursor := s.ref, s.cursor
	s.mu.Unlock()
	// Let the other run interleave if nothing serializes them.
	time.Sleep(time.Millisecond)
	if ref == "" {
		return nil, errors.New("no media loaded")
	}
	return []byte(fmt.Sprintf("%s@%g", ref, cursor)), nil
}

func (s *cursorSampler) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ref = ""
	return nil
}

func TestExtract_ConcurrentRunsKeepTheirOwnRecording(t *testing.T) {
	ctx := context.Background()
	store, err := task.Open(ctx, task.NewMemoryBackend(nil), task.WithIDGenerator(util.NewSequence("t")))
	if err != nil {
		t.Fatal(err)
	}
	a, err := store.Create(ctx, "NVDA", "a", "first")
	if err != nil {
		t.Fatal(err)
	}
	b, err := store.Create(ctx, "NVDA", "b", "second")
	if err != nil {
		t.Fatal(err)
	}
	ex := NewExtractor(&cursorSampler{}, store, &lockedDrafter{}, util.NewSequence("s"), Options{}, nil)

	runs := map[string]string{a.ID: "/rec/A.mkv", b.ID: "/rec/B.mkv"}
	var wg sync.WaitGroup
	errs := make(chan error, len(runs))
	for id, ref := range runs {
		wg.Add(1)
		go func(id, ref string) {
			defer wg.Done()
			_, err := ex.Extract(ctx, Request{Ref: ref, TaskID: id})
			errs <- err
		}(id, ref)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}

	for id, ref := range runs {
		got, _ := store.Get(id)
		if len(got.Screenshots) != 5 {
			t.Fatalf("task %s: expected 5 screenshots, got %d", id, len(got.Screenshots))
		}
		for _, s := range got.Screenshots {
			raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(s.ImageData, "data:image/png;base64,"))
			if err != nil {
				t.Fatal(err)
			}
			if want := fmt.Sprintf("%s@%g", ref, s.TS); string(raw) != want {
				t.Errorf("task %s: frame %q, want %q", id, raw, want)
			}
		}
	}
}

type lockedDrafter struct {
	mu    sync.Mutex
	calls int
}

func (d *lockedDrafter) Draft(ctx context.Context, taskID string, count int, desc, company string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return nil
}
