package components

import (
	"strings"

	"github.com/PreetShah25/arbitra-AI/internal/tui/styles"
)

// StatusBar renders a bottom help bar showing contextual key hints.
type StatusBar struct{}

// NewStatusBar creates a new StatusBar instance.
func NewStatusBar() StatusBar {
	return StatusBar{}
}

// Render returns the status bar string for the given width and items.
// Items are joined with " • " and the line is truncated to width.
func (s StatusBar) Render(width int, items []string) string {
	content := strings.Join(items, " • ")
	if width > 0 {
		if r := []rune(content); len(r) > width {
			content = string(r[:max(width-1, 0)]) + "…"
		}
	}
	return styles.StatusBarStyle.Width(width).Render(content)
}
