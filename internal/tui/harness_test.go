package tui

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/PreetShah25/arbitra-AI/internal/capture"
	"github.com/PreetShah25/arbitra-AI/internal/config"
	"github.com/PreetShah25/arbitra-AI/internal/frames"
	"github.com/PreetShah25/arbitra-AI/internal/schedule"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/tui/msgs"
	"github.com/PreetShah25/arbitra-AI/internal/understanding"
	"github.com/PreetShah25/arbitra-AI/internal/upload"
	"github.com/PreetShah25/arbitra-AI/internal/util"
	"github.com/PreetShah25/arbitra-AI/internal/wizard"
)

type fakeStream struct{ path string }

func (s fakeStream) Stop() (int64, error) {
	if err := os.WriteFile(s.path, []byte("media"), 0644); err != nil {
		return 0, err
	}
	return 5, nil
}

type fakeRecorder struct{ err error }

func (r fakeRecorder) Start(ctx context.Context, path string) (capture.Stream, error) {
	if r.err != nil {
		return nil, r.err
	}
	return fakeStream{path: path}, nil
}

type fakeSampler struct{}

func (fakeSampler) Load(ctx context.Context, ref string) (float64, error) { return 9, nil }
func (fakeSampler) Seek(ctx context.Context, offset float64) error { return nil }
func (fakeSampler) Capture(ctx context.Context) ([]byte, error) { return []byte("png"), nil }
func (fakeSampler) Close() error { return nil }

var testCompanies = []config.Company{
	{Ticker: "NVDA", Name: "NVIDIA"},
	{Ticker: "MSFT", Name: "Microsoft"},
	{Ticker: "AAPL", Name: "Apple"},
}

type harness struct {
	t     *testing.T
	store *task.Store
	sched *schedule.Manual
	dir   string
	m     Model
}

func newHarness(t *testing.T, recorder capture.Recorder) *harness {
	t.Helper()
	store, err := task.Open(context.Background(), task.NewMemoryBackend(nil), task.WithIDGenerator(util.NewSequence("t")))
	if err != nil {
		t.Fatal(err)
	}
	h := &harness{t: t, store: store, sched: schedule.NewManual(), dir: t.TempDir()}

	build := func(companies wizard.CompanySource, n wizard.Notifier, c wizard.Confirmer) *wizard.Controller {
		return wizard.New(wizard.Deps{
			Store:     store,
			Capture:   capture.NewSource(recorder, filepath.Join(h.dir, "recordings")),
			Upload:    upload.NewSimulator(store, h.sched, upload.Config{}),
			Extractor: frames.NewExtractor(fakeSampler{}, store, understanding.NewDrafter(store), util.NewSequence("s"), frames.Options{}, nil),
			Companies: companies,
			Notifier:  n,
			Confirmer: c,
		})
	}
	h.m = New(context.Background(), Config{Store: store, Companies: testCompanies, NewController: build})
	h.send(tea.WindowSizeMsg{Width: 100, Height: 40})
	return h
}

// send feeds msg through the model and runs the resulting commands.
func (h *harness) send(msg tea.Msg) {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	h.exec(cmd)
}

func (h *harness) key(k tea.KeyType) {
	h.t.Helper()
	h.send(tea.KeyMsg{Type: k})
}

func (h *harness) typeText(s string) {
	h.t.Helper()
	h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func (h *harness) press(keys ...string) {
	h.t.Helper()
	for _, k := range keys {
		h.typeText(k)
	}
}

// exec runs commands breadth first. Commands that block on timers, such as
// cursor blinks, are abandoned; spinner ticks are not fed back.
func (h *harness) exec(cmd tea.Cmd) {
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0 && steps < 100; steps++ {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch msg := runCmd(c).(type) {
		case nil, spinner.TickMsg, tea.QuitMsg:
		case tea.BatchMsg:
			queue = append(queue, msg...)
		default:
			next, more := h.m.Update(msg)
			h.m = next.(Model)
			queue = append(queue, more)
		}
	}
}

func runCmd(c tea.Cmd) tea.Msg {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- c() }()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

func (h *harness) videoFile() string {
	h.t.Helper()
	path := filepath.Join(h.dir, "demo.mp4")
	if err := os.WriteFile(path, []byte("mp4"), 0644); err != nil {
		h.t.Fatal(err)
	}
	return path
}

// toCapture starts a new analysis from the task list and fills in details.
func (h *harness) toCapture(name, desc string) {
	h.t.Helper()
	h.press("n")
	h.typeText(name)
	h.key(tea.KeyTab)
	h.typeText(desc)
	h.key(tea.KeyCtrlS)
	if got := h.m.ctrl.Stage(); got != wizard.StageCapture {
		h.t.Fatalf("expected capture stage, got %s", got)
	}
}

// supplyFile uses the f key to attach a file and runs its upload to completion.
func (h *harness) supplyFile() {
	h.t.Helper()
	h.press("f")
	h.typeText(h.videoFile())
	h.key(tea.KeyEnter)
	h.sched.RunUntilIdle(20)
	h.send(msgs.RefreshMsg{})
}

func (h *harness) current() task.Task {
	h.t.Helper()
	t, ok := h.m.ctrl.Current()
	if !ok {
		h.t.Fatal("expected a current task")
	}
	return t
}
