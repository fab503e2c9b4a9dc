// ABOUTME: Implements the single-line status bar at the bottom of the terminal editor.
// ABOUTME: Shows which post is being edited, pending image count, content size, and insertion state.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// StatusBarModel displays editor status in a single line.
type StatusBarModel struct {
	postLabel string
	pending   int
	bytes     int
	inserting bool
	width     int
}

// NewStatusBarModel creates a StatusBarModel. An empty resourceID means a new post.
func NewStatusBarModel(resourceID string) StatusBarModel {
	label := "New post"
	if resourceID != "" {
		label = "Post #" + resourceID
	}
	return StatusBarModel{postLabel: label}
}

// SetCounts updates the pending image count and content size.
func (m *StatusBarModel) SetCounts(pending, bytes int) {
	m.pending = pending
	m.bytes = bytes
}

// SetInserting records whether an image insertion is in flight.
func (m *StatusBarModel) SetInserting(v bool) {
	m.inserting = v
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// formatSize formats a byte count as B, KB, or MB.
func formatSize(n int) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	}
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	state := "ready"
	if m.inserting {
		state = "inserting image…"
	}
	content := fmt.Sprintf("%s | %d pending image(s) | %s | %s",
		m.postLabel, m.pending, formatSize(m.bytes), state)

	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
