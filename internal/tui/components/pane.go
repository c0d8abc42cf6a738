package components

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/lipgloss"
)

// Pane is a fixed-height scrolling region with a one-column scrollbar. It
// shows a list of lines and keeps a focus line in view.
type Pane struct {
	viewport viewport.Model
	lines    []string
	width    int // total width including scrollbar
	height   int
}

// NewPane creates a pane. Width includes the scrollbar column.
func NewPane(width, height int) Pane {
	p := Pane{viewport: viewport.New(max(width-1, 0), height)}
	p.width = width
	p.height = height
	return p
}

// SetSize updates the pane dimensions, keeping its content.
func (p *Pane) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.viewport.Width = max(width-1, 0)
	p.viewport.Height = height
	p.viewport.SetContent(strings.Join(p.lines, "\n"))
	p.viewport.SetYOffset(p.viewport.YOffset)
}

// SetLines replaces the content and scrolls so that focus is visible.
// A negative focus leaves the offset where it was.
func (p *Pane) SetLines(lines []string, focus int) {
	p.lines = append([]string(nil), lines...)
	p.viewport.SetContent(strings.Join(p.lines, "\n"))

	if focus < 0 || focus >= len(p.lines) {
		p.viewport.SetYOffset(p.viewport.YOffset)
		return
	}
	top := p.viewport.YOffset
	switch {
	case focus < top:
		p.viewport.SetYOffset(focus)
	case focus > top+p.height-1:
		p.viewport.SetYOffset(focus - p.height + 1)
	}
}

// YOffset returns the index of the first visible line.
func (p Pane) YOffset() int {
	return p.viewport.YOffset
}

// View renders the visible lines with the scrollbar on the right.
func (p Pane) View() string {
	if p.height <= 0 {
		return ""
	}
	content := strings.Split(p.viewport.View(), "\n")
	bar := strings.Split(Scrollbar(p.height, len(p.lines), p.viewport.YOffset), "\n")
	cw := max(p.width-1, 0)

	var b strings.Builder
	for i := 0; i < p.height; i++ {
		if i > 0 {
			b.WriteByte('\n')
		}
		line := ""
		if i < len(content) {
			line = content[i]
		}
		b.WriteString(line)
		if pad := cw - lipgloss.Width(line); pad > 0 {
			b.WriteString(strings.Repeat(" ", pad))
		}
		if i < len(bar) {
			b.WriteString(bar[i])
		}
	}
	return b.String()
}

// Scrollbar renders a one-column track with a proportional thumb. It is a
// blank gutter while all content fits.
func Scrollbar(viewHeight, contentHeight, yOffset int) string {
	if viewHeight <= 0 {
		return ""
	}
	rows := make([]string, viewHeight)
	if contentHeight <= viewHeight {
		for i := range rows {
			rows[i] = " "
		}
		return strings.Join(rows, "\n")
	}

	thumb := max(viewHeight*viewHeight/contentHeight, 1)
	top := yOffset * (viewHeight - thumb) / (contentHeight - viewHeight)
	top = min(max(top, 0), viewHeight-thumb)

	for i := range rows {
		rows[i] = "│"
		if i >= top && i < top+thumb {
			rows[i] = "█"
		}
	}
	return strings.Join(rows, "\n")
}
