// ABOUTME: PromptModel is a one-line text input dialog for image paths, the title, and tags.
// ABOUTME: The editor routes keys here while it is active and reads the value back on Enter.
package tui

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// PromptKind identifies what a prompt's answer is used for.
type PromptKind int

const (
	PromptNone PromptKind = iota
	PromptImage
	PromptTitle
	PromptSubtitle
	PromptTags
)

var promptLabels = map[PromptKind]string{
	PromptImage:    "Image file path",
	PromptTitle:    "Title",
	PromptSubtitle: "Subtitle",
	PromptTags:     "Tags (comma separated)",
}

// PromptModel wraps a textinput with a label and an active flag.
type PromptModel struct {
	textInput textinput.Model
	kind      PromptKind
}

// NewPromptModel creates an inactive prompt.
func NewPromptModel() PromptModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 4096
	return PromptModel{textInput: ti}
}

// Open activates the prompt for kind, prefilled with value.
func (m *PromptModel) Open(kind PromptKind, value string) {
	m.kind = kind
	m.textInput.SetValue(value)
	m.textInput.CursorEnd()
	m.textInput.Focus()
}

// Close deactivates the prompt and returns its kind and value.
func (m *PromptModel) Close() (PromptKind, string) {
	kind, value := m.kind, m.textInput.Value()
	m.kind = PromptNone
	m.textInput.Reset()
	m.textInput.Blur()
	return kind, value
}

// IsActive reports whether the prompt is visible.
func (m PromptModel) IsActive() bool {
	return m.kind != PromptNone
}

// Update forwards key events to the text input.
func (m PromptModel) Update(msg tea.Msg) PromptModel {
	m.textInput, _ = m.textInput.Update(msg)
	return m
}

// View renders the prompt, or an empty string when inactive.
func (m PromptModel) View() string {
	if !m.IsActive() {
		return ""
	}
	return PromptStyle.Render(promptLabels[m.kind] + "\n" + m.textInput.View())
}
