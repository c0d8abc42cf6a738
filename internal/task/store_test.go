package task

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/PreetShah25/arbitra-AI/internal/util"
)

var fixedNow = time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	s, err := Open(context.Background(), backend,
		WithIDGenerator(util.NewSequence("t")),
		WithClock(func() time.Time { return fixedNow }),
	)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStore_CreatePlacesNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend(nil))

	first, err := s.Create(ctx, "NVDA", "Pull KPIs", "Export datacenter revenue")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := s.Create(ctx, "NVDA", "Second", "Another description")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	list := s.List("NVDA")
	if len(list) != 2 {
		t.Fatalf("expected 2 tasks, got %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Errorf("expected newest first, got %s, %s", list[0].ID, list[1].ID)
	}
	if list[0].Status != StatusDraft {
		t.Errorf("expected status %q, got %q", StatusDraft, list[0].Status)
	}
	if !list[0].CreatedAt.Equal(fixedNow) {
		t.Errorf("expected createdAt %v, got %v", fixedNow, list[0].CreatedAt)
	}
	if list[0].Ticker != "NVDA" {
		t.Errorf("expected ticker NVDA, got %q", list[0].Ticker)
	}
}

func TestStore_CreateRejectsEmptyDescription(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(nil)
	s := newTestStore(t, backend)

	for _, desc := range []string{"", "   ", "\n\t"} {
		_, err := s.Create(ctx, "AAPL", "name", desc)
		if !errors.Is(err, ErrEmptyDescription) {
			t.Errorf("Create(desc=%q) error = %v, want ErrEmptyDescription", desc, err)
		}
	}

	if got := s.List("AAPL"); len(got) != 0 {
		t.Errorf("expected no tasks, got %d", len(got))
	}
	if backend.Saves() != 0 {
		t.Errorf("expected no saves, got %d", backend.Saves())
	}
}

func TestStore_ApplyMergesAndPersists(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(nil)
	s := newTestStore(t, backend)

	created, _ := s.Create(ctx, "MSFT", "n", "d")
	err := s.Apply(ctx, created.ID, AttachVideo{Ref: "/tmp/rec.webm", Status: StatusAnalyzing})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, ok := s.Get(created.ID)
	if !ok {
		t.Fatal("task disappeared")
	}
	if got.VideoURL != "/tmp/rec.webm" || got.Status != StatusAnalyzing {
		t.Errorf("unexpected task after patch: %+v", got)
	}
	if got.Name != "n" || got.Desc != "d" {
		t.Errorf("patch should not touch other fields: %+v", got)
	}

	reopened := newTestStore(t, NewMemoryBackend(backend.Raw()))
	again, ok := reopened.Get(created.ID)
	if !ok || again.VideoURL != "/tmp/rec.webm" {
		t.Errorf("patch was not written through: %+v", again)
	}
}

func TestStore_ApplyUnknownID(t *testing.T) {
	s := newTestStore(t, NewMemoryBackend(nil))
	err := s.Apply(context.Background(), "missing", SetStatus{Status: StatusReviewing})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ApplyIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend(nil))
	created, _ := s.Create(ctx, "MSFT", "n", "d")

	err := s.Apply(ctx, created.ID,
		SetStatus{Status: StatusReviewing},
		SetAnswer{Index: 0, Answer: "no understanding yet"},
	)
	if err == nil {
		t.Fatal("expected error")
	}

	got, _ := s.Get(created.ID)
	if got.Status != StatusDraft {
		t.Errorf("failed batch should not change status, got %q", got.Status)
	}
}

func TestStore_PersistFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(nil)
	s := newTestStore(t, backend)
	created, _ := s.Create(ctx, "AMZN", "n", "d")

	backend.SaveErr = errors.New("disk full")
	if _, err := s.Create(ctx, "AMZN", "n2", "d2"); err == nil {
		t.Fatal("expected create error")
	}
	if err := s.Apply(ctx, created.ID, SetStatus{Status: StatusRecording}); err == nil {
		t.Fatal("expected apply error")
	}
	if err := s.Delete(ctx, created.ID); err == nil {
		t.Fatal("expected delete error")
	}

	list := s.List("AMZN")
	if len(list) != 1 || list[0].Status != StatusDraft {
		t.Errorf("expected state rolled back to one draft task, got %+v", list)
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend(nil))
	a, _ := s.Create(ctx, "TSLA", "a", "a")
	b, _ := s.Create(ctx, "TSLA", "b", "b")

	if err := s.Delete(ctx, a.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	list := s.List("TSLA")
	if len(list) != 1 || list[0].ID != b.ID {
		t.Errorf("unexpected list after delete: %+v", list)
	}

	if err := s.Delete(ctx, a.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete error = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, b.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tickers := s.Tickers(); len(tickers) != 0 {
		t.Errorf("expected no tickers, got %v", tickers)
	}
}

func TestStore_ListReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend(nil))
	created, _ := s.Create(ctx, "META", "n", "d")
	_ = s.Apply(ctx, created.ID, SetPlan{Steps: []PlanStep{{ID: "p1", Title: "one"}}})

	list := s.List("META")
	list[0].Plan[0].Title = "mutated"
	list[0].Name = "mutated"

	got, _ := s.Get(created.ID)
	if got.Plan[0].Title != "one" || got.Name != "n" {
		t.Errorf("store state leaked through List copy: %+v", got)
	}
}

func TestStore_Subscribe(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t, NewMemoryBackend(nil))

	var events []Event
	unsubscribe := s.Subscribe(func(e Event) { events = append(events, e) })

	created, _ := s.Create(ctx, "GOOG", "n", "d")
	_ = s.Apply(ctx, created.ID, SetStatus{Status: StatusRecording})
	_ = s.Delete(ctx, created.ID)
	unsubscribe()
	_, _ = s.Create(ctx, "GOOG", "n", "d")

	want := []Event{
		{Type: EventCreated, Ticker: "GOOG", TaskID: created.ID},
		{Type: EventPatched, Ticker: "GOOG", TaskID: created.ID},
		{Type: EventDeleted, Ticker: "GOOG", TaskID: created.ID},
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %+v, want %+v", events, want)
	}
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(nil)
	s := newTestStore(t, backend)

	a, _ := s.Create(ctx, "NVDA", "a", "first")
	b, _ := s.Create(ctx, "NVDA", "b", "second")
	c, _ := s.Create(ctx, "AAPL", "c", "third")
	_ = s.Apply(ctx, a.ID,
		AttachVideo{Ref: "rec.webm", Status: StatusAnalyzing},
		SetScreenshots{Screenshots: []Screenshot{
			{ID: "s1", TS: 0, ImageData: "data:image/png;base64,AA=="},
			{ID: "s2", TS: 2, ImageData: "data:image/png;base64,AQ==", Note: "login"},
		}},
		SetUnderstanding{Understanding: Understanding{
			Summary:   "summary",
			Questions: []string{"q1", "q2", "q3"},
			Answers:   []string{"", "x", ""},
		}},
	)
	_ = s.Apply(ctx, b.ID, SetPlan{Steps: []PlanStep{{ID: "p1", Title: "t", Detail: "d", Blocking: true}}})
	_ = c

	reopened := newTestStore(t, NewMemoryBackend(backend.Raw()))
	if !reflect.DeepEqual(s.Snapshot(), reopened.Snapshot()) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", reopened.Snapshot(), s.Snapshot())
	}
}

func TestStore_MalformedStateLoadsEmpty(t *testing.T) {
	inputs := map[string]string{
		"garbage":      "{not json",
		"wrong shape":  `["NVDA"]`,
		"wrong fields": `{"NVDA": [{"id": 5}]}`,
		"null":         "null",
		"empty":        "",
	}
	for name, raw := range inputs {
		t.Run(name, func(t *testing.T) {
			s := newTestStore(t, NewMemoryBackend([]byte(raw)))
			if got := s.Snapshot(); len(got) != 0 {
				t.Errorf("expected empty mapping, got %+v", got)
			}
		})
	}
}

func TestStore_Reload(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend(nil)
	s := newTestStore(t, backend)
	other := newTestStore(t, backend)

	created, _ := other.Create(ctx, "IBM", "n", "d")
	if _, ok := s.Get(created.ID); ok {
		t.Fatal("expected task to be invisible before reload")
	}

	var reloaded bool
	s.Subscribe(func(e Event) { reloaded = reloaded || e.Type == EventReloaded })
	if err := s.Reload(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := s.Get(created.ID); !ok {
		t.Error("expected task after reload")
	}
	if !reloaded {
		t.Error("expected reloaded event")
	}
}
