// Package theme holds the terminal palette and shared styles.
package theme

import (
	"charm.land/lipgloss/v2"
)

// Palette: muted indigo and teal, readable on dark terminals.
var (
	Primary   = lipgloss.Color("#6366F1") // Indigo
	Secondary = lipgloss.Color("#14B8A6") // Teal
	Accent    = lipgloss.Color("#F59E0B") // Amber
	Success   = lipgloss.Color("#22C55E") // Green
	Error     = lipgloss.Color("#F43F5E") // Rose
	Text      = lipgloss.Color("#F8FAFC")
	TextDim   = lipgloss.Color("#94A3B8")
	BgCard    = lipgloss.Color("#1E293B")
	Border    = lipgloss.Color("#334155")
)

var (
	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary)

	Subtitle = lipgloss.NewStyle().
			Foreground(TextDim)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	// Sentence renders the Bengali prompt.
	Sentence = lipgloss.NewStyle().
			Foreground(Text).
			Bold(true).
			Padding(1, 2)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Rule = lipgloss.NewStyle().
		Foreground(Border)
)

// Verdict styles.
var (
	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
			Foreground(Error).
			Bold(true)

	Category = lipgloss.NewStyle().
			Foreground(Accent).
			Bold(true)
)
