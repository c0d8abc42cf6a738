package views

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/PreetShah25/arbitra-AI/internal/planedit"
	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/tui/components"
	"github.com/PreetShah25/arbitra-AI/internal/tui/styles"
)

// ReviewSection is a focusable group on the review stage.
type ReviewSection int

// Review sections, in tab order
const (
	SectionScreenshots ReviewSection = iota
	SectionQuestions
	SectionPlan
	sectionCount
)

func (s ReviewSection) String() string {
	switch s {
	case SectionScreenshots:
		return "Screenshots"
	case SectionQuestions:
		return "Understanding"
	case SectionPlan:
		return "Plan"
	}
	return ""
}

type editKind int

const (
	editNone editKind = iota
	editNote
	editAnswer
	editTitle
	editDetail
)

type reviewState struct {
	section ReviewSection
	cursor  [sectionCount]int
	editing editKind
	editID  string // screenshot or plan step being edited
	editIdx int    // question index being answered
	input   textinput.Model
	pane    components.Pane
}

func newReviewState() reviewState {
	in := textinput.New()
	in.CharLimit = 500
	in.Width = 60
	return reviewState{
		input: in,
		pane:  components.NewPane(76, 12),
	}
}

// Section returns the focused review section.
func (m WizardModel) Section() ReviewSection {
	return m.review.section
}

// Editing reports whether a review field is being edited.
func (m WizardModel) Editing() bool {
	return m.review.editing != editNone
}

func (m WizardModel) updateReview(msg tea.KeyMsg) (WizardModel, tea.Cmd) {
	if m.review.editing != editNone {
		return m.updateEdit(msg)
	}

	t, ok := m.ctrl.Current()
	if !ok {
		if msg.String() == "esc" {
			return m, closeWizard
		}
		return m, nil
	}
	r := &m.review
	n := sectionLen(t, r.section)
	r.cursor[r.section] = clampCursor(r.cursor[r.section], n)
	cur := r.cursor[r.section]

	switch msg.String() {
	case "esc":
		return m, closeWizard
	case "tab":
		r.section = (r.section + 1) % sectionCount
	case "shift+tab":
		r.section = (r.section + sectionCount - 1) % sectionCount
	case "up", "k":
		if cur > 0 {
			r.cursor[r.section]--
		}
	case "down", "j":
		if cur < n-1 {
			r.cursor[r.section]++
		}
	case "enter", "e":
		if n == 0 {
			return m, nil
		}
		switch r.section {
		case SectionScreenshots:
			s := t.Screenshots[cur]
			return m.beginEdit(editNote, s.ID, 0, s.Note)
		case SectionQuestions:
			return m.beginEdit(editAnswer, "", cur, t.Understanding.Answers[cur])
		case SectionPlan:
			s := t.Plan[cur]
			return m.beginEdit(editTitle, s.ID, 0, s.Title)
		}
	default:
		if r.section == SectionPlan {
			return m.updatePlan(msg.String(), t.Plan, cur)
		}
	}
	m.syncPane()
	return m, nil
}

func (m WizardModel) updatePlan(key string, steps []task.PlanStep, cur int) (WizardModel, tea.Cmd) {
	editor, err := m.ctrl.Plan()
	if err != nil {
		m.setHint(err.Error(), true)
		return m, nil
	}

	switch key {
	case "a":
		step, err := editor.Add(m.ctx)
		if err != nil {
			m.setHint(err.Error(), true)
			return m, nil
		}
		m.review.cursor[SectionPlan] = len(steps)
		return m.beginEdit(editTitle, step.ID, 0, "")
	}

	if len(steps) == 0 {
		return m, nil
	}
	step := steps[cur]
	switch key {
	case "D":
		return m.beginEdit(editDetail, step.ID, 0, step.Detail)
	case "b":
		err = editor.UpdateField(m.ctx, step.ID, planedit.FieldBlocking, strconv.FormatBool(!step.Blocking))
	case "K":
		if err = editor.Move(m.ctx, step.ID, planedit.Up); err == nil && cur > 0 {
			m.review.cursor[SectionPlan]--
		}
	case "J":
		if err = editor.Move(m.ctx, step.ID, planedit.Down); err == nil && cur < len(steps)-1 {
			m.review.cursor[SectionPlan]++
		}
	case "x":
		if err = editor.Remove(m.ctx, step.ID); err == nil && cur == len(steps)-1 && cur > 0 {
			m.review.cursor[SectionPlan]--
		}
	default:
		return m, nil
	}
	if err != nil {
		m.setHint(err.Error(), true)
	} else {
		m.setHint("", false)
	}
	m.syncPane()
	return m, nil
}

func (m WizardModel) beginEdit(kind editKind, id string, idx int, value string) (WizardModel, tea.Cmd) {
	r := &m.review
	r.editing = kind
	r.editID = id
	r.editIdx = idx
	r.input.SetValue(value)
	r.input.CursorEnd()
	switch kind {
	case editNote:
		r.input.Placeholder = "Note for this screenshot"
	case editAnswer:
		r.input.Placeholder = "Your answer"
	case editTitle:
		r.input.Placeholder = "Step title"
	case editDetail:
		r.input.Placeholder = "Step detail"
	}
	m.syncPane()
	return m, r.input.Focus()
}

func (m WizardModel) updateEdit(msg tea.KeyMsg) (WizardModel, tea.Cmd) {
	r := &m.review
	switch msg.String() {
	case "esc":
		r.editing = editNone
		r.input.Blur()
		return m, nil
	case "enter":
		err := m.saveEdit(r.input.Value())
		r.editing = editNone
		r.input.Blur()
		if err != nil {
			m.setHint(err.Error(), true)
		} else {
			m.setHint("", false)
		}
		m.syncPane()
		return m, nil
	}
	var cmd tea.Cmd
	r.input, cmd = r.input.Update(msg)
	return m, cmd
}

func (m WizardModel) saveEdit(value string) error {
	r := m.review
	switch r.editing {
	case editNote:
		return m.ctrl.SetScreenshotNote(m.ctx, r.editID, value)
	case editAnswer:
		return m.ctrl.SetAnswer(m.ctx, r.editIdx, value)
	case editTitle, editDetail:
		editor, err := m.ctrl.Plan()
		if err != nil {
			return err
		}
		field := planedit.FieldTitle
		if r.editing == editDetail {
			field = planedit.FieldDetail
		}
		return editor.UpdateField(m.ctx, r.editID, field, value)
	}
	return nil
}

func sectionLen(t task.Task, s ReviewSection) int {
	switch s {
	case SectionScreenshots:
		return len(t.Screenshots)
	case SectionQuestions:
		if t.Understanding == nil {
			return 0
		}
		return len(t.Understanding.Questions)
	case SectionPlan:
		return len(t.Plan)
	}
	return 0
}

// syncPane refreshes the review pane so its scroll offset follows the cursor.
func (m *WizardModel) syncPane() {
	t, ok := m.ctrl.Current()
	if !ok {
		return
	}
	lines, focus := m.reviewLines(t)
	m.review.pane.SetLines(lines, focus)
}

// reviewLines lays out all three sections and returns the line of the
// focused item.
func (m WizardModel) reviewLines(t task.Task) ([]string, int) {
	r := m.review
	var lines []string
	focus := -1
	width := max(m.width-8, 20)

	heading := func(s ReviewSection, extra string) {
		label := s.String()
		if extra != "" {
			label += " " + extra
		}
		if s == r.section {
			lines = append(lines, styles.SelectedStyle.Render("▌"+label))
		} else {
			lines = append(lines, styles.SectionStyle.Render(" "+label))
		}
	}
	item := func(s ReviewSection, i int, text string) {
		selected := s == r.section && i == clampCursor(r.cursor[s], sectionLen(t, s))
		if selected {
			focus = len(lines)
			lines = append(lines, styles.SelectedStyle.Render("  ▸ "+truncate(text, width)))
			return
		}
		lines = append(lines, "    "+truncate(text, width))
	}

	heading(SectionScreenshots, fmt.Sprintf("(%d)", len(t.Screenshots)))
	if len(t.Screenshots) == 0 {
		lines = append(lines, styles.SubtleStyle.Render("    No screenshots"))
	}
	for i, s := range t.Screenshots {
		note := s.Note
		if note == "" {
			note = "(no note)"
		}
		item(SectionScreenshots, i, formatOffset(s.TS)+"  "+note)
	}
	lines = append(lines, "")

	heading(SectionQuestions, "")
	if u := t.Understanding; u != nil {
		lines = append(lines, "    "+truncate(u.Summary, width))
		for i, q := range u.Questions {
			item(SectionQuestions, i, fmt.Sprintf("Q%d %s", i+1, q))
			answer := u.Answers[i]
			if answer == "" {
				answer = "(unanswered)"
			}
			lines = append(lines, styles.SubtleStyle.Render("       A: "+truncate(answer, width-7)))
		}
	} else {
		lines = append(lines, styles.SubtleStyle.Render("    Not drafted yet"))
	}
	lines = append(lines, "")

	heading(SectionPlan, fmt.Sprintf("(%s)", pluralize(len(t.Plan), "step")))
	if len(t.Plan) == 0 {
		lines = append(lines, styles.SubtleStyle.Render("    No steps. Press a to add one."))
	}
	for i, s := range t.Plan {
		title := s.Title
		if title == "" {
			title = "(untitled)"
		}
		text := fmt.Sprintf("%d. %s", i+1, title)
		if s.Blocking {
			text += " [blocking]"
		}
		item(SectionPlan, i, text)
		if s.Detail != "" {
			lines = append(lines, styles.SubtleStyle.Render("       "+truncate(s.Detail, width-7)))
		}
	}
	return lines, focus
}

func (m WizardModel) viewReview() (string, []string) {
	t, ok := m.ctrl.Current()
	if !ok {
		return styles.ErrorStyle.Render("This task no longer exists."), []string{"Esc Close"}
	}

	lines, focus := m.reviewLines(t)
	pane := m.review.pane
	pane.SetLines(lines, focus)

	var b strings.Builder
	b.WriteString(pane.View())

	if m.review.editing != editNone {
		b.WriteString("\n")
		b.WriteString(m.review.input.View())
		return b.String(), []string{"Enter Save", "Esc Cancel"}
	}

	keys := []string{"Tab Section", "↑↓ Navigate", "e Edit"}
	if m.review.section == SectionPlan {
		keys = append(keys, "a Add", "D Detail", "b Blocking", "K/J Move", "x Remove")
	}
	keys = append(keys, "Esc Close")
	return b.String(), keys
}
