// Package layout renders the header, footer and frame around a view.
package layout

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/anuvad/internal/ui/theme"
)

const (
	MinWidth  = 60
	MinHeight = 18
)

// KeyHint is a key binding shown in the footer.
type KeyHint struct {
	Key         string
	Description string
}

// IsTooSmall returns true if the terminal is below minimum size.
func IsTooSmall(width, height int) bool {
	return width < MinWidth || height < MinHeight
}

// RenderMinSizeMessage renders the "terminal too small" message.
func RenderMinSizeMessage(width, height int) string {
	return lipgloss.NewStyle().
		Align(lipgloss.Center).
		Foreground(theme.Text).
		Width(width).
		Height(height).
		Render(fmt.Sprintf(
			"Terminal too small.\n\nResize to at least %d x %d\n(current %d x %d)",
			MinWidth, MinHeight, width, height,
		))
}

// RenderHeader shows the app name, the learner and their progress score.
func RenderHeader(learnerID string, progress, level int, width int) string {
	left := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Render("anuvad")

	center := lipgloss.NewStyle().
		Foreground(theme.Text).
		Render(learnerID)

	right := lipgloss.NewStyle().
		Foreground(theme.Accent).
		Render(fmt.Sprintf("progress %d/100  level %d", progress, level))

	inner := width - 4
	if inner < 0 {
		inner = 0
	}
	leftGap := (inner-lipgloss.Width(center))/2 - lipgloss.Width(left)
	if leftGap < 1 {
		leftGap = 1
	}
	rightGap := inner - lipgloss.Width(left) - leftGap - lipgloss.Width(center) - lipgloss.Width(right)
	if rightGap < 1 {
		rightGap = 1
	}

	content := left + strings.Repeat(" ", leftGap) + center + strings.Repeat(" ", rightGap) + right
	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Render(content)
}

// RenderFooter renders the footer with key hints.
func RenderFooter(hints []KeyHint, width int) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts,
			lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render(h.Key)+" "+
				lipgloss.NewStyle().Foreground(theme.TextDim).Render(h.Description))
	}

	return lipgloss.NewStyle().
		Width(width).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Render(" " + strings.Join(parts, "   "))
}

// RenderFrame stacks header, content and footer, giving the content
// whatever height is left.
func RenderFrame(header, content, footer string, width, height int) string {
	contentHeight := height - lipgloss.Height(header) - lipgloss.Height(footer)
	if contentHeight < 0 {
		contentHeight = 0
	}

	body := lipgloss.NewStyle().
		Width(width).
		Height(contentHeight).
		Render(content)

	return header + "\n" + body + "\n" + footer
}
