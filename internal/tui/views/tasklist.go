package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/PreetShah25/arbitra-AI/internal/task"
	"github.com/PreetShah25/arbitra-AI/internal/tui/components"
	"github.com/PreetShah25/arbitra-AI/internal/tui/msgs"
	"github.com/PreetShah25/arbitra-AI/internal/tui/styles"
)

// TaskListModel is the landing screen: the selected company's tasks.
type TaskListModel struct {
	store  *task.Store
	picker *CompanyPicker
	cursor int
	width  int
	height int
	now    func() time.Time
}

// NewTaskListModel creates a task list reading from store.
func NewTaskListModel(store *task.Store, picker *CompanyPicker) TaskListModel {
	return TaskListModel{
		store:  store,
		picker: picker,
		now:    time.Now,
	}
}

// Init implements tea.Model.
func (m TaskListModel) Init() tea.Cmd {
	return nil
}

// Tasks returns the selected company's tasks, newest first. The list is read
// from the store on every call so the view never holds a stale copy.
func (m TaskListModel) Tasks() []task.Task {
	ticker := m.picker.SelectedTicker()
	if ticker == "" {
		return nil
	}
	return m.store.List(ticker)
}

// Cursor returns the current cursor position, clamped to the list.
func (m TaskListModel) Cursor() int {
	return clampCursor(m.cursor, len(m.Tasks()))
}

// Update implements tea.Model.
func (m TaskListModel) Update(msg tea.Msg) (TaskListModel, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		tasks := m.Tasks()
		m.cursor = clampCursor(m.cursor, len(tasks))

		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "left", "h":
			m.picker.Cycle(-1)
			m.cursor = 0
		case "right", "l":
			m.picker.Cycle(1)
			m.cursor = 0
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(tasks)-1 {
				m.cursor++
			}
		case "n":
			if m.picker.SelectedTicker() == "" {
				return m, nil
			}
			return m, func() tea.Msg { return msgs.OpenWizardMsg{} }
		case "enter":
			if len(tasks) == 0 {
				return m, nil
			}
			id := tasks[m.cursor].ID
			return m, func() tea.Msg { return msgs.OpenWizardMsg{TaskID: id} }
		case "d":
			if len(tasks) == 0 {
				return m, nil
			}
			t := tasks[m.cursor]
			return m, func() tea.Msg { return msgs.DeleteTaskMsg{TaskID: t.ID, Name: t.Name} }
		}
	}
	return m, nil
}

// View implements tea.Model.
func (m TaskListModel) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}

	var lines []string
	lines = append(lines,
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, styles.TitleStyle.Render("A R B I T R A")),
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, styles.SubtleStyle.Render("Agent task authoring")),
		"",
		lipgloss.PlaceHorizontal(m.width, lipgloss.Center, m.renderCompany()),
		"",
	)

	tasks := m.Tasks()
	cursor := clampCursor(m.cursor, len(tasks))
	if len(tasks) == 0 {
		company, _ := m.picker.Selected()
		empty := "No companies configured. Add some to .arbitra/config.yaml."
		if company.Ticker != "" {
			empty = fmt.Sprintf("No tasks for %s yet. Press n to start one.", displayCompany(company.Name, company.Ticker))
		}
		lines = append(lines, lipgloss.PlaceHorizontal(m.width, lipgloss.Center, styles.SubtleStyle.Render(empty)))
	} else {
		var rows []string
		for i, t := range tasks {
			rows = append(rows, m.renderRow(t, i == cursor))
		}
		lines = append(lines, lipgloss.PlaceHorizontal(m.width, lipgloss.Center, strings.Join(rows, "\n")))
	}

	content := strings.Join(lines, "\n")
	statusItems := []string{"←→ Company", "↑↓ Navigate", "n New", "Enter Resume", "d Delete", "q Quit"}
	return fillHeight(content, m.height-1) + "\n" + components.NewStatusBar().Render(m.width, statusItems)
}

func (m TaskListModel) renderCompany() string {
	company, idx := m.picker.Selected()
	if idx < 0 {
		return styles.ErrorStyle.Render("No companies")
	}
	label := styles.SelectedStyle.Render(displayCompany(company.Name, company.Ticker))
	pos := styles.SubtleStyle.Render(fmt.Sprintf("%d/%d", idx+1, m.picker.Len()))
	return "◀ " + label + " ▶  " + pos
}

func (m TaskListModel) renderRow(t task.Task, selected bool) string {
	name := t.Name
	if name == "" {
		name = "Untitled task"
	}
	detail := fmt.Sprintf("%-10s %2d shots %2d steps  %s",
		t.Status, len(t.Screenshots), len(t.Plan), formatAge(t.CreatedAt, m.now()))

	if selected {
		return styles.SelectedStyle.Render(fmt.Sprintf("▸ %-28s", truncate(name, 28))) + " " + styles.SubtleStyle.Render(detail)
	}
	return styles.SubtleStyle.Render(fmt.Sprintf("  %-28s %s", truncate(name, 28), detail))
}

// SetSize updates the model dimensions.
func (m *TaskListModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}
