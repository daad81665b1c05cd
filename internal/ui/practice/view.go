package practice

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/anuvad/internal/ui/layout"
	"github.com/abhisek/anuvad/internal/ui/theme"
)

func (m Model) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}
	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	header := layout.RenderHeader(m.learner, m.progress, m.level, m.width)
	footer := layout.RenderFooter(m.keyHints(), m.width)
	v.SetContent(layout.RenderFrame(header, m.body(m.width), footer, m.width, m.height))
	return v
}

// body renders the content area for the current phase.
func (m Model) body(width int) string {
	var b strings.Builder

	switch m.phase {
	case phaseLoading:
		b.WriteString(theme.Hint.Render("\n  Writing a new sentence..."))

	case phaseFailed:
		b.WriteString("\n  ")
		b.WriteString(theme.Incorrect.Render("Something went wrong"))
		b.WriteString("\n\n  ")
		b.WriteString(theme.Body.Render(m.err.Error()))

	case phaseAnswering, phaseGrading:
		b.WriteString(m.renderSentence(width))
		b.WriteString("\n\n  ")
		if m.phase == phaseGrading {
			b.WriteString(theme.Hint.Render("Checking your translation..."))
		} else {
			b.WriteString(m.input.View())
		}
		if m.asking {
			b.WriteString("\n\n  ")
			b.WriteString(theme.Hint.Render("Asking the tutor..."))
		} else if m.reply != "" {
			b.WriteString("\n\n")
			b.WriteString(theme.Card.Width(min(width-4, 80)).Render(m.reply))
		}

	case phaseFeedback:
		b.WriteString(m.renderSentence(width))
		b.WriteString("\n\n")
		b.WriteString(m.renderVerdict(width))
	}

	if m.graded > 0 {
		b.WriteString("\n\n  ")
		b.WriteString(theme.Subtitle.Render(fmt.Sprintf("%d of %d correct this session", m.correct, m.graded)))
	}
	return b.String()
}

func (m Model) renderSentence(width int) string {
	if m.current == nil {
		return ""
	}
	meta := theme.Subtitle.Render(fmt.Sprintf("  %s · %s", m.current.SentenceType, m.current.Topic))
	sentence := theme.Sentence.Width(min(width-4, 80)).Render(m.current.Sentence)
	return "\n" + meta + "\n" + sentence
}

func (m Model) renderVerdict(width int) string {
	v := m.verdict
	var b strings.Builder

	b.WriteString("  ")
	if v.Status == "correct" {
		b.WriteString(theme.Correct.Render("Correct!"))
	} else {
		b.WriteString(theme.Incorrect.Render("Not quite"))
	}
	if v.Message != "" {
		b.WriteString("  ")
		b.WriteString(theme.Body.Render(v.Message))
	}
	b.WriteString("\n\n  ")
	b.WriteString(theme.Subtitle.Render("Model answer: "))
	b.WriteString(theme.Body.Render(v.CorrectTranslation))

	for _, f := range v.Errors {
		b.WriteString("\n  ")
		b.WriteString(theme.Category.Render(f.Category))
		b.WriteString(" ")
		b.WriteString(theme.Body.Render(f.Detail))
	}

	wrap := lipgloss.NewStyle().Width(min(width-4, 80)).PaddingLeft(2)
	if v.Why.IncorrectReason != "" {
		b.WriteString("\n\n")
		b.WriteString(wrap.Render(v.Why.IncorrectReason))
	}
	if v.Why.CorrectionExplanation != "" {
		b.WriteString("\n")
		b.WriteString(wrap.Foreground(theme.TextDim).Render(v.Why.CorrectionExplanation))
	}
	return b.String()
}
