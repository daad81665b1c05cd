package components

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/anuvad/internal/ui/theme"
)

// ProgressBar draws a score out of 100 as a horizontal bar.
type ProgressBar struct {
	Label string
	Score int
	Width int
}

// NewProgressBar creates a bar for score (clamped to 0..100).
func NewProgressBar(label string, score, width int) ProgressBar {
	return ProgressBar{Label: label, Score: score, Width: width}
}

// View renders the progress bar.
func (p ProgressBar) View() string {
	var out string
	if p.Label != "" {
		out = lipgloss.NewStyle().Foreground(theme.Text).Render(p.Label) + "  "
	}

	suffix := fmt.Sprintf("  %3d/100", clampScore(p.Score))
	barWidth := p.Width - lipgloss.Width(out) - len(suffix)
	if barWidth < 4 {
		barWidth = 4
	}

	filled := barWidth * clampScore(p.Score) / 100
	out += lipgloss.NewStyle().Background(theme.Secondary).Render(strings.Repeat(" ", filled))
	out += lipgloss.NewStyle().Background(theme.Border).Render(strings.Repeat(" ", barWidth-filled))
	out += lipgloss.NewStyle().Foreground(theme.TextDim).Render(suffix)
	return out
}

func clampScore(s int) int {
	return max(0, min(100, s))
}
