// Package components holds small reusable view pieces.
package components

import (
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// TextInput wraps bubbles/textinput for free-text answers.
type TextInput struct {
	Model textinput.Model
}

// NewTextInput creates a focused input. limit <= 0 means unlimited.
func NewTextInput(placeholder string, limit int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()
	if limit > 0 {
		ti.CharLimit = limit
	}
	return TextInput{Model: ti}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the text input.
func (t TextInput) View() string {
	return t.Model.View()
}

// Value returns the current input value.
func (t TextInput) Value() string {
	return t.Model.Value()
}

// Reset clears the input.
func (t *TextInput) Reset() {
	t.Model.Reset()
}
