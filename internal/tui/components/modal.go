package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/PreetShah25/arbitra-AI/internal/tui/styles"
)

// Modal is a centered box that takes over the screen until dismissed.
type Modal struct {
	Title string
	Body  string
	Hint  string
	Error bool
}

// View renders the modal centered in a width x height area.
func (m Modal) View(width, height int) string {
	title := styles.SelectedStyle.Render(m.Title)
	if m.Error {
		title = styles.ErrorStyle.Bold(true).Render(m.Title)
	}

	boxWidth := min(max(width-10, 20), 70)
	body := lipgloss.NewStyle().Width(boxWidth).Render(m.Body)

	parts := []string{title, "", body}
	if m.Hint != "" {
		parts = append(parts, "", styles.SubtleStyle.Render(m.Hint))
	}
	box := styles.ModalStyle.Render(strings.Join(parts, "\n"))

	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
