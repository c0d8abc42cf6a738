package views

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/PreetShah25/arbitra-AI/internal/tui/components"
	"github.com/PreetShah25/arbitra-AI/internal/tui/msgs"
	"github.com/PreetShah25/arbitra-AI/internal/tui/styles"
	"github.com/PreetShah25/arbitra-AI/internal/wizard"
)

func (m WizardModel) updateCapture(msg tea.KeyMsg) (WizardModel, tea.Cmd) {
	if m.pathMode {
		return m.updatePath(msg)
	}

	key := msg.String()
	if key == "esc" {
		return m, closeWizard
	}
	if m.busy != "" {
		return m, nil
	}

	switch key {
	case "r":
		if m.ctrl.Recording() {
			return m, nil
		}
		return m.startBusy(OpRecord, m.ctrl.StartRecording)
	case "s":
		if !m.ctrl.Recording() {
			m.setHint("Not recording. Press r to start.", false)
			return m, nil
		}
		return m.startBusy(OpStop, m.ctrl.StopRecording)
	case "f":
		if m.ctrl.Recording() {
			m.setHint("Stop the recording before supplying a file.", false)
			return m, nil
		}
		m.pathMode = true
		m.path.SetValue("")
		m.setHint("", false)
		return m, m.path.Focus()
	case "g":
		return m.startBusy(OpGenerate, m.ctrl.GenerateNow)
	case "enter":
		if m.ctrl.Progress() < 100 {
			m.setHint("Upload still in progress.", false)
			return m, nil
		}
		return m.startBusy(OpContinue, m.ctrl.Continue)
	}
	return m, nil
}

func (m WizardModel) updatePath(msg tea.KeyMsg) (WizardModel, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.pathMode = false
		m.path.Blur()
		return m, nil
	case "enter":
		path := strings.TrimSpace(m.path.Value())
		if path == "" {
			return m, nil
		}
		m.pathMode = false
		m.path.Blur()
		return m.startBusy(OpFile, func(ctx context.Context) error {
			return m.ctrl.SupplyFile(ctx, path)
		})
	}
	var cmd tea.Cmd
	m.path, cmd = m.path.Update(msg)
	return m, cmd
}

func (m WizardModel) handleOpDone(msg msgs.OpDoneMsg) WizardModel {
	if msg.Op == m.busy {
		m.busy = ""
	}
	switch {
	case msg.Err == nil:
		switch msg.Op {
		case OpRecord:
			m.setHint("Recording. Press s to stop.", false)
		case OpStop, OpFile:
			m.setHint("Uploading recording.", false)
		default:
			m.setHint("", false)
		}
	case errors.Is(msg.Err, wizard.ErrStageGuard):
		m.setHint("Upload still in progress.", false)
	default:
		m.setHint(msg.Err.Error(), true)
	}
	return m
}

func (m WizardModel) viewCapture() (string, []string) {
	var b strings.Builder
	t, _ := m.ctrl.Current()

	b.WriteString(styles.SectionStyle.Render("Recording"))
	b.WriteString("\n")
	switch {
	case m.ctrl.Recording():
		b.WriteString(styles.WarningStyle.Render("● Recording screen"))
	case t.VideoURL != "":
		b.WriteString(styles.SubtleStyle.Render(t.VideoURL))
	default:
		b.WriteString(styles.SubtleStyle.Render("No recording yet. Press r to record the screen or f to use a file."))
	}
	b.WriteString("\n\n")

	progress := m.ctrl.Progress()
	bar := components.NewProgress("Upload", progress, 20)
	b.WriteString(bar.View())
	if bar.Complete() {
		b.WriteString("  " + styles.SuccessStyle.Render("Upload complete. Press Enter to continue."))
	}

	if len(t.Screenshots) > 0 {
		b.WriteString("\n\n")
		b.WriteString(styles.SubtleStyle.Render(pluralize(len(t.Screenshots), "screenshot") + " already extracted"))
	}

	if m.busy != "" {
		b.WriteString("\n\n")
		b.WriteString(m.spinner.View() + " " + busyLabel(m.busy))
	}

	if m.pathMode {
		b.WriteString("\n\n")
		b.WriteString(styles.SectionStyle.Render("Recording file"))
		b.WriteString("\n")
		b.WriteString(m.path.View())
		return b.String(), []string{"Enter Use file", "Esc Cancel"}
	}

	keys := []string{"r Record", "s Stop", "f File", "g Generate now", "Enter Continue", "Esc Close"}
	return b.String(), keys
}

func busyLabel(op string) string {
	switch op {
	case OpRecord:
		return "Starting capture..."
	case OpStop:
		return "Finishing recording..."
	case OpFile:
		return "Checking file..."
	default:
		return "Extracting screenshots..."
	}
}
