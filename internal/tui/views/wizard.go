package views

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/tui/components"
	"github.com/PreetShah25/arbitra-AI/internal/tui/msgs"
	"github.com/PreetShah25/arbitra-AI/internal/tui/styles"
	"github.com/PreetShah25/arbitra-AI/internal/wizard"
)

// Wizard operations reported through msgs.OpDoneMsg.
const (
	OpRecord   = "record"
	OpStop     = "stop"
	OpFile     = "file"
	OpContinue = "continue"
	OpGenerate = "generate"
)

// WizardModel renders the three wizard stages over a wizard.Controller. The
// controller owns the session; this model only holds input widgets.
type WizardModel struct {
	ctx    context.Context
	ctrl   *wizard.Controller
	picker *CompanyPicker
	width  int
	height int

	// Details
	name      textinput.Model
	desc      textarea.Model
	descFocus bool
	resumed   bool

	// Capture
	path     textinput.Model
	pathMode bool
	busy     string
	spinner  spinner.Model

	// Review
	review reviewState

	hint    string
	hintErr bool
}

// NewWizardModel creates the view for an already opened controller session.
func NewWizardModel(ctx context.Context, ctrl *wizard.Controller, picker *CompanyPicker) WizardModel {
	name := textinput.New()
	name.Placeholder = wizard.DefaultName
	name.CharLimit = 80
	name.Width = 50

	desc := textarea.New()
	desc.Placeholder = "What should the agent do?"
	desc.ShowLineNumbers = false
	desc.Prompt = ""
	desc.CharLimit = 2000
	desc.SetWidth(60)
	desc.SetHeight(5)

	path := textinput.New()
	path.Placeholder = "/path/to/recording.mp4"
	path.CharLimit = 1024
	path.Width = 60

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.WarningStyle

	m := WizardModel{
		ctx:     ctx,
		ctrl:    ctrl,
		picker:  picker,
		name:    name,
		desc:    desc,
		path:    path,
		spinner: s,
		review:  newReviewState(),
	}

	if t, ok := ctrl.Current(); ok {
		m.resumed = true
		m.name.SetValue(t.Name)
		m.desc.SetValue(t.Desc)
	}
	m.name.Focus()
	return m
}

// Init implements tea.Model.
func (m WizardModel) Init() tea.Cmd {
	return textinput.Blink
}

// Busy returns the operation in flight, if any.
func (m WizardModel) Busy() string {
	return m.busy
}

// Hint returns the inline message under the current stage.
func (m WizardModel) Hint() string {
	return m.hint
}

// Update implements tea.Model.
func (m WizardModel) Update(msg tea.Msg) (WizardModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.SetSize(msg.Width, msg.Height)
		return m, nil

	case spinner.TickMsg:
		if m.busy == "" {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case msgs.OpDoneMsg:
		m = m.handleOpDone(msg)
		m.syncPane()
		return m, nil

	case msgs.RefreshMsg, msgs.StoreChangedMsg:
		if m.ctrl.Stage() == wizard.StageReview {
			m.syncPane()
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.ctrl.Stage() {
		case wizard.StageDetails:
			return m.updateDetails(msg)
		case wizard.StageCapture:
			return m.updateCapture(msg)
		case wizard.StageReview:
			return m.updateReview(msg)
		}
	}

	return m.forwardToInputs(msg)
}

// forwardToInputs passes non-key messages such as cursor blinks to the
// focused widget.
func (m WizardModel) forwardToInputs(msg tea.Msg) (WizardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch {
	case m.review.editing != editNone:
		m.review.input, cmd = m.review.input.Update(msg)
	case m.pathMode:
		m.path, cmd = m.path.Update(msg)
	case m.ctrl.Stage() == wizard.StageDetails && m.descFocus:
		m.desc, cmd = m.desc.Update(msg)
	case m.ctrl.Stage() == wizard.StageDetails:
		m.name, cmd = m.name.Update(msg)
	}
	return m, cmd
}

func (m WizardModel) updateDetails(msg tea.KeyMsg) (WizardModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		return m, closeWizard
	case "tab", "shift+tab":
		return m.toggleDetailsFocus(), nil
	case "ctrl+s":
		return m.commitDetails()
	case "enter":
		if !m.descFocus {
			return m.toggleDetailsFocus(), nil
		}
	}

	if m.resumed {
		return m, nil
	}
	var cmd tea.Cmd
	if m.descFocus {
		m.desc, cmd = m.desc.Update(msg)
	} else {
		m.name, cmd = m.name.Update(msg)
	}
	return m, cmd
}

func (m WizardModel) toggleDetailsFocus() WizardModel {
	m.descFocus = !m.descFocus
	if m.descFocus {
		m.name.Blur()
		m.desc.Focus()
	} else {
		m.desc.Blur()
		m.name.Focus()
	}
	return m
}

func (m WizardModel) commitDetails() (WizardModel, tea.Cmd) {
	if _, err := m.ctrl.CommitDetails(m.ctx, m.name.Value(), m.desc.Value()); err != nil {
		m.setHint(err.Error(), true)
		return m, nil
	}
	m.name.Blur()
	m.desc.Blur()
	m.setHint("", false)
	return m, nil
}

// run executes a controller operation off the UI loop.
func (m WizardModel) run(op string, fn func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return msgs.OpDoneMsg{Op: op, Err: fn(ctx)}
	}
}

func (m WizardModel) startBusy(op string, fn func(context.Context) error) (WizardModel, tea.Cmd) {
	m.busy = op
	m.setHint("", false)
	return m, tea.Batch(m.run(op, fn), m.spinner.Tick)
}

func (m *WizardModel) setHint(text string, isErr bool) {
	m.hint = text
	m.hintErr = isErr
}

func closeWizard() tea.Msg {
	return msgs.CloseWizardMsg{}
}

// SetSize updates the model dimensions.
func (m *WizardModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	inner := max(min(width-8, 80), 20)
	m.name.Width = inner
	m.path.Width = inner
	m.desc.SetWidth(inner)
	m.review.input.Width = inner
	m.review.pane.SetSize(max(width-4, 10), max(height-8, 3))
}

// View implements tea.Model.
func (m WizardModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var body string
	var keys []string
	switch m.ctrl.Stage() {
	case wizard.StageDetails:
		body, keys = m.viewDetails()
	case wizard.StageCapture:
		body, keys = m.viewCapture()
	case wizard.StageReview:
		body, keys = m.viewReview()
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(body)
	if m.hint != "" {
		b.WriteString("\n\n")
		if m.hintErr {
			b.WriteString(styles.ErrorStyle.Render(m.hint))
		} else {
			b.WriteString(styles.SubtleStyle.Render(m.hint))
		}
	}

	content := lipgloss.NewStyle().PaddingLeft(2).Render(b.String())
	return fillHeight(content, m.height-1) + "\n" + components.NewStatusBar().Render(m.width, keys)
}

func (m WizardModel) renderHeader() string {
	company := displayCompany(m.picker.CompanyName(m.ctrl.Ticker()), m.ctrl.Ticker())
	title := styles.TitleStyle.Render("New analysis") + "  " + styles.SubtleStyle.Render(company)
	if t, ok := m.ctrl.Current(); ok {
		title = styles.TitleStyle.Render(taskName(t)) + "  " + styles.SubtleStyle.Render(company)
	}

	var steps []string
	for _, s := range []wizard.Stage{wizard.StageDetails, wizard.StageCapture, wizard.StageReview} {
		label := strings.ToUpper(s.String()[:1]) + s.String()[1:]
		if s == m.ctrl.Stage() {
			steps = append(steps, styles.SelectedStyle.Render(label))
		} else {
			steps = append(steps, styles.SubtleStyle.Render(label))
		}
	}
	return title + "\n" + strings.Join(steps, styles.SubtleStyle.Render(" › "))
}

func (m WizardModel) viewDetails() (string, []string) {
	var b strings.Builder
	b.WriteString(styles.SectionStyle.Render("Name"))
	b.WriteString("\n")
	b.WriteString(m.name.View())
	b.WriteString("\n\n")
	b.WriteString(styles.SectionStyle.Render("Description"))
	b.WriteString("\n")
	b.WriteString(m.desc.View())
	if m.resumed {
		b.WriteString("\n\n")
		b.WriteString(styles.SubtleStyle.Render("Saved task. Name and description are kept as stored."))
	}
	return b.String(), []string{"Tab Switch field", "Ctrl+S Continue", "Esc Close"}
}

func taskName(t task.Task) string {
	if t.Name == "" {
		return wizard.DefaultName
	}
	return t.Name
}
