package components

import (
	"fmt"
	"strings"
)

const (
	filledChar = "■"
	emptyChar  = "□"
)

// Progress renders an upload bar like: Uploading ■■■■□□□□ 50%
type Progress struct {
	Label   string
	Percent int
	Width   int // character width of the bar portion
}

// NewProgress creates a Progress for a percentage in [0, 100].
func NewProgress(label string, percent, width int) Progress {
	return Progress{
		Label:   label,
		Percent: percent,
		Width:   width,
	}
}

// Complete reports whether the bar is full.
func (p Progress) Complete() bool {
	return p.Percent >= 100
}

// View returns the rendered progress bar string.
func (p Progress) View() string {
	if p.Width <= 0 {
		return ""
	}

	percent := min(max(p.Percent, 0), 100)
	filled := percent * p.Width / 100
	bar := strings.Repeat(filledChar, filled) + strings.Repeat(emptyChar, p.Width-filled)

	if p.Label == "" {
		return fmt.Sprintf("%s %d%%", bar, percent)
	}
	return fmt.Sprintf("%s %s %d%%", p.Label, bar, percent)
}
