// Package tui is the interactive terminal front end: the per-company task
// list and the three-stage authoring wizard.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PreetShah25/arbitra-AI/internal/config"
	"github.com/PreetShah25/arbitra-AI/internal/logging"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/tui/components"
	"github.com/PreetShah25/arbitra-AI/internal/tui/msgs"
	"github.com/PreetShah25/arbitra-AI/internal/tui/styles"
	"github.com/PreetShah25/arbitra-AI/internal/tui/views"
	"github.com/PreetShah25/arbitra-AI/internal/wizard"
	"github.com/PreetShah25/arbitra-AI/internal/workspace"
)

// Minimum terminal dimensions
const (
	MinTerminalWidth  = 60
	MinTerminalHeight = 15
)

// View represents the different screens in the TUI.
type View int

const (
	ViewTasks View = iota
	ViewWizard
)

// ControllerFunc builds the wizard controller around the TUI's collaborators.
type ControllerFunc func(wizard.CompanySource, wizard.Notifier, wizard.Confirmer) *wizard.Controller

// Config holds what the model needs from an opened workspace.
type Config struct {
	Store         *task.Store
	Companies     []config.Company
	NewController ControllerFunc
	Logger        *slog.Logger
}

// Model is the main Bubble Tea model that orchestrates all views.
type Model struct {
	ctx     context.Context
	store   *task.Store
	ctrl    *wizard.Controller
	picker  *views.CompanyPicker
	notices *noticeQueue
	confirm *modalConfirmer
	logger  *slog.Logger

	currentView View
	tasks       views.TaskListModel
	wizard      views.WizardModel
	modal       []wizard.Notice
	pending     *msgs.DeleteTaskMsg
	width       int
	height      int
}

// New creates the root model.
func New(ctx context.Context, cfg Config) Model {
	if cfg.Logger == nil {
		cfg.Logger = logging.Discard()
	}
	m := Model{
		ctx:     ctx,
		store:   cfg.Store,
		picker:  views.NewCompanyPicker(cfg.Companies),
		notices: &noticeQueue{},
		confirm: &modalConfirmer{},
		logger:  cfg.Logger,
	}
	m.ctrl = cfg.NewController(m.picker, m.notices, m.confirm)
	m.tasks = views.NewTaskListModel(cfg.Store, m.picker)
	return m
}

// Run opens the workspace in projectDir and runs the TUI until the user quits.
func Run(ctx context.Context, projectDir, logLevel string) error {
	ws, err := workspace.Open(ctx, projectDir, workspace.Options{LogLevel: logLevel})
	if err != nil {
		return err
	}
	defer ws.Close()

	lock := task.NewSessionLock(ws.Config.DataDir)
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := New(ctx, Config{
		Store:         ws.Store,
		Companies:     ws.Config.Companies,
		NewController: ws.Wizard,
		Logger:        ws.Logger,
	})
	defer m.ctrl.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	// Both callbacks can fire from inside Update, where a blocking Send
	// would deadlock the event loop.
	m.ctrl.OnChange(func() { go p.Send(msgs.RefreshMsg{}) })
	unsubscribe := ws.Store.Subscribe(func(e task.Event) {
		go p.Send(msgs.StoreChangedMsg{Ticker: e.Ticker, TaskID: e.TaskID})
	})
	defer unsubscribe()

	go func() {
		if err := ws.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			ws.Logger.Warn("store_watch_failed", "error", err)
		}
	}()

	ws.Logger.Info("tui_started", "backend", ws.Config.Storage.Backend)
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		err = nil
	}
	return err
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// CurrentView returns the active screen.
func (m Model) CurrentView() View {
	return m.currentView
}

// Notices returns the notices waiting for acknowledgement.
func (m Model) Notices() []wizard.Notice {
	return m.modal
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.modal = append(m.modal, m.notices.drain()...)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.tasks.SetSize(msg.Width, msg.Height)
		if m.currentView == ViewWizard {
			m.wizard.SetSize(msg.Width, msg.Height)
		}
		return m, nil

	case tea.KeyMsg:
		if len(m.modal) > 0 {
			return m.updateModal(msg)
		}
		if m.pending != nil {
			return m.updateConfirm(msg)
		}

	case msgs.OpenWizardMsg:
		return m.openWizard(msg.TaskID)

	case msgs.CloseWizardMsg:
		m.ctrl.Close()
		m.currentView = ViewTasks
		return m, nil

	case msgs.DeleteTaskMsg:
		m.pending = &msg
		return m, nil

	case msgs.StoreChangedMsg:
		// The open task can be deleted by another process.
		if id := m.ctrl.CurrentTaskID(); m.ctrl.Open() && id != "" {
			if _, ok := m.store.Get(id); !ok {
				m.logger.Info("wizard_task_gone", "task_id", id)
				m.ctrl.Close()
				m.currentView = ViewTasks
			}
		}
	}

	var cmd tea.Cmd
	switch m.currentView {
	case ViewTasks:
		m.tasks, cmd = m.tasks.Update(msg)
	case ViewWizard:
		m.wizard, cmd = m.wizard.Update(msg)
		// A notice raised by a synchronous controller call is shown at once.
		m.modal = append(m.modal, m.notices.drain()...)
	}
	return m, cmd
}

func (m Model) updateModal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "enter", "esc", " ":
		m.modal = m.modal[1:]
	}
	return m, nil
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "y", "Y":
		id := m.pending.TaskID
		m.pending = nil
		m.confirm.approve()
		err := m.ctrl.DeleteTask(m.ctx, id)
		if err != nil && !errors.Is(err, task.ErrNotFound) {
			m.logger.Warn("task_delete_failed", "task_id", id, "error", err)
		}
		m.modal = append(m.modal, m.notices.drain()...)
	case "n", "N", "esc":
		m.pending = nil
	}
	return m, nil
}

func (m Model) openWizard(id string) (tea.Model, tea.Cmd) {
	if id == "" {
		m.ctrl.NewAnalysis()
	} else if err := m.ctrl.Resume(id); err != nil {
		m.modal = append(m.modal, m.notices.drain()...)
		return m, nil
	}
	m.picker.Select(m.ctrl.Ticker())

	m.wizard = views.NewWizardModel(m.ctx, m.ctrl, m.picker)
	m.wizard.SetSize(m.width, m.height)
	m.currentView = ViewWizard
	return m, m.wizard.Init()
}

// View implements tea.Model.
func (m Model) View() string {
	if m.width < MinTerminalWidth || m.height < MinTerminalHeight {
		return m.renderTerminalTooSmall()
	}

	if len(m.modal) > 0 {
		n := m.modal[0]
		return components.Modal{
			Title: noticeTitle(n.Kind),
			Body:  n.String(),
			Hint:  "Enter OK",
			Error: n.Kind == wizard.NoticeFailure,
		}.View(m.width, m.height)
	}
	if m.pending != nil {
		name := m.pending.Name
		if name == "" {
			name = wizard.DefaultName
		}
		return components.Modal{
			Title: "Delete task?",
			Body:  fmt.Sprintf("Delete %q? This cannot be undone.", name),
			Hint:  "y Delete • n Cancel",
			Error: true,
		}.View(m.width, m.height)
	}

	switch m.currentView {
	case ViewWizard:
		return m.wizard.View()
	default:
		return m.tasks.View()
	}
}

func (m Model) renderTerminalTooSmall() string {
	msg := styles.ErrorStyle.Render("Terminal too small") + "\n" +
		styles.SubtleStyle.Render(fmt.Sprintf("Minimum: %dx%d", MinTerminalWidth, MinTerminalHeight)) + "\n" +
		styles.SubtleStyle.Render(fmt.Sprintf("Current: %dx%d", m.width, m.height))
	if m.width <= 0 || m.height <= 0 {
		return msg
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, msg)
}

func noticeTitle(k wizard.NoticeKind) string {
	switch k {
	case wizard.NoticeValidation:
		return "Check your input"
	case wizard.NoticePermission:
		return "Permission needed"
	case wizard.NoticePrecondition:
		return "Not ready yet"
	default:
		return "Something went wrong"
	}
}

// noticeQueue collects notices from any goroutine until the next Update.
type noticeQueue struct {
	mu      sync.Mutex
	pending []wizard.Notice
}

func (q *noticeQueue) Notify(n wizard.Notice) {
	q.mu.Lock()
	q.pending = append(q.pending, n)
	q.mu.Unlock()
}

func (q *noticeQueue) drain() []wizard.Notice {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.pending
	q.pending = nil
	return out
}

// modalConfirmer answers yes once after the user approved the delete modal,
// and no otherwise.
type modalConfirmer struct {
	approved atomic.Bool
}

func (c *modalConfirmer) approve() {
	c.approved.Store(true)
}

func (c *modalConfirmer) Confirm(string) bool {
	return c.approved.Swap(false)
}
