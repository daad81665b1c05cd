// Package practice is the interactive translation drill: show a Bengali
// sentence, read the learner's English, show the verdict, repeat.
package practice

import (
	"context"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/anuvad/internal/tutor"
	"github.com/abhisek/anuvad/internal/ui/components"
	"github.com/abhisek/anuvad/internal/ui/layout"
)

// Backend is the subset of the API client the drill needs.
type Backend interface {
	Generate(ctx context.Context, learnerID string, level int) (*tutor.GenerateResult, error)
	Evaluate(ctx context.Context, trackingCode, attempt string) (*tutor.EvaluateResult, error)
	Chat(ctx context.Context, learnerID, question string) (*tutor.ChatResult, error)
}

type phase int

const (
	phaseLoading phase = iota
	phaseAnswering
	phaseGrading
	phaseFeedback
	phaseFailed
)

// askPrefix turns an input line into a free-chat question.
const askPrefix = "?"

const requestTimeout = 60 * time.Second

// Model is the bubbletea model for a practice session.
type Model struct {
	backend Backend
	learner string
	level   int

	phase    phase
	current  *tutor.GenerateResult
	verdict  *tutor.EvaluateResult
	reply    string
	asking   bool
	progress int
	graded   int
	correct  int
	err      error

	input  components.TextInput
	width  int
	height int
}

// New creates a drill for learnerID at level.
func New(backend Backend, learnerID string, level int) Model {
	return Model{
		backend: backend,
		learner: learnerID,
		level:   level,
		phase:   phaseLoading,
		input:   components.NewTextInput("Type the English translation, or ?question", 500),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchSentence(), m.input.Init())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case sentenceMsg:
		if msg.Err != nil {
			m.phase = phaseFailed
			m.err = msg.Err
			return m, nil
		}
		m.phase = phaseAnswering
		m.current = msg.Result
		m.verdict = nil
		m.reply = ""
		m.err = nil
		m.progress = msg.Result.Progress
		m.input.Reset()
		return m, nil

	case verdictMsg:
		if msg.Err != nil {
			// The code was consumed; the only way on is a new sentence.
			m.phase = phaseFailed
			m.err = msg.Err
			return m, nil
		}
		m.phase = phaseFeedback
		m.verdict = msg.Result
		m.progress = msg.Result.Progress
		m.graded++
		if msg.Result.Status == "correct" {
			m.correct++
		}
		return m, nil

	case chatMsg:
		m.asking = false
		if msg.Err != nil {
			m.reply = "Could not reach the tutor: " + msg.Err.Error()
			return m, nil
		}
		m.reply = msg.Result.Response
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	if m.phase == phaseAnswering {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "esc":
		return m, tea.Quit
	}

	switch m.phase {
	case phaseAnswering:
		if msg.String() != "enter" {
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		if q, ok := strings.CutPrefix(text, askPrefix); ok {
			m.asking = true
			return m, m.ask(strings.TrimSpace(q))
		}
		m.phase = phaseGrading
		return m, m.submit(text)

	case phaseFeedback, phaseFailed:
		switch msg.String() {
		case "enter", "space", "n", "r":
			m.phase = phaseLoading
			return m, m.fetchSentence()
		}
	}
	return m, nil
}

func (m Model) fetchSentence() tea.Cmd {
	backend, learnerID, level := m.backend, m.learner, m.level
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := backend.Generate(ctx, learnerID, level)
		return sentenceMsg{Result: res, Err: err}
	}
}

func (m Model) submit(attempt string) tea.Cmd {
	backend, code := m.backend, m.current.TrackingCode
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := backend.Evaluate(ctx, code, attempt)
		return verdictMsg{Result: res, Err: err}
	}
}

func (m Model) ask(question string) tea.Cmd {
	backend, learnerID := m.backend, m.learner
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		res, err := backend.Chat(ctx, learnerID, question)
		return chatMsg{Result: res, Err: err}
	}
}

func (m Model) keyHints() []layout.KeyHint {
	switch m.phase {
	case phaseAnswering:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Submit"},
			{Key: "?text", Description: "Ask the tutor"},
			{Key: "Esc", Description: "Quit"},
		}
	case phaseFeedback:
		return []layout.KeyHint{
			{Key: "Enter", Description: "Next sentence"},
			{Key: "Esc", Description: "Quit"},
		}
	case phaseFailed:
		return []layout.KeyHint{
			{Key: "R", Description: "Try again"},
			{Key: "Esc", Description: "Quit"},
		}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Quit"}}
}

// Run starts the drill and blocks until the learner quits.
func Run(backend Backend, learnerID string, level int) error {
	_, err := tea.NewProgram(New(backend, learnerID, level)).Run()
	return err
}
