// Package report renders a learner's progress report for the terminal.
package report

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/anuvad/internal/learner"
	"github.com/abhisek/anuvad/internal/progress"
	"github.com/abhisek/anuvad/internal/ui/components"
	"github.com/abhisek/anuvad/internal/ui/theme"
)

// MaxAttempts is how many recent attempts are listed.
const MaxAttempts = 10

// Render draws the report at the given width.
func Render(r learner.Report, width int) string {
	if width < 40 {
		width = 40
	}
	var b strings.Builder

	b.WriteString(theme.Title.Render("Progress report: " + r.LearnerID))
	b.WriteString("\n")
	if !r.LastActive.IsZero() {
		b.WriteString(theme.Subtitle.Render("last active " + r.LastActive.Local().Format("2006-01-02 15:04")))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(components.NewProgressBar("Progress", r.Progress, width).View())
	b.WriteString("\n")
	band := progress.BandFor(max(r.Progress, 1))
	b.WriteString(theme.Hint.Render(fmt.Sprintf("Next sentences aim at the %s band: %s", band, band.Describe())))
	b.WriteString("\n\n")

	b.WriteString(section("Weak areas", width))
	if len(r.Weaknesses) == 0 {
		b.WriteString(theme.Hint.Render("  none recorded yet"))
		b.WriteString("\n")
	}
	for _, w := range rankWeaknesses(r.Weaknesses) {
		b.WriteString(fmt.Sprintf("  %s %s\n",
			theme.Category.Render(fmt.Sprintf("%-12s", w.name)),
			theme.Body.Render(fmt.Sprintf("%d", w.count))))
	}
	b.WriteString("\n")

	if len(r.TypeUsage) > 0 {
		b.WriteString(section("Sentence types practised", width))
		for _, t := range rankWeaknesses(r.TypeUsage) {
			b.WriteString(fmt.Sprintf("  %-14s %d\n", t.name, t.count))
		}
		b.WriteString("\n")
	}

	b.WriteString(section("Recent attempts", width))
	attempts := r.Attempts
	if len(attempts) > MaxAttempts {
		attempts = attempts[len(attempts)-MaxAttempts:]
	}
	if len(attempts) == 0 {
		b.WriteString(theme.Hint.Render("  no attempts yet"))
		b.WriteString("\n")
	}
	for i := len(attempts) - 1; i >= 0; i-- {
		b.WriteString(renderAttempt(attempts[i], width))
	}

	return b.String()
}

func section(title string, width int) string {
	return theme.Body.Bold(true).Render(title) + "\n" +
		theme.Rule.Render(strings.Repeat("─", width)) + "\n"
}

func renderAttempt(a learner.Attempt, width int) string {
	mark := theme.Correct.Render("✓")
	if !a.Correct {
		mark = theme.Incorrect.Render("✗")
	}
	wrap := lipgloss.NewStyle().Width(width - 4)

	var b strings.Builder
	b.WriteString("  " + mark + " " + theme.Body.Render(a.Sentence) + "\n")
	b.WriteString("    " + wrap.Render(theme.Subtitle.Render("you: ")+a.Translation) + "\n")
	if !a.Correct {
		b.WriteString("    " + wrap.Render(theme.Subtitle.Render("model: ")+a.CorrectTranslation) + "\n")
		if a.ErrorDetail != "" {
			b.WriteString("    " + wrap.Render(theme.Hint.Render(a.ErrorDetail)) + "\n")
		}
	}
	return b.String()
}

type ranked struct {
	name  string
	count int
}

// rankWeaknesses orders by count descending, then name.
func rankWeaknesses(m map[string]int) []ranked {
	out := make([]ranked, 0, len(m))
	for k, v := range m {
		out = append(out, ranked{k, v})
	}
	slices.SortFunc(out, func(a, b ranked) int {
		if c := cmp.Compare(b.count, a.count); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	return out
}
