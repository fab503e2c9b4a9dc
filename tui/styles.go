// ABOUTME: Defines lipgloss styles for the terminal editor: header, text area, prompt, and status line.
// ABOUTME: Provides StyleForNotice to map notice kinds to their display styles.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Editor frame
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// Field summary above the text
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(10)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	CursorStyle = lipgloss.NewStyle().Reverse(true)

	// Notices
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	BusyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)

	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	PromptStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
)

// NoticeKind classifies the message shown under the editor.
type NoticeKind int

const (
	NoticeInfo NoticeKind = iota
	NoticeError
	NoticeSuccess
	NoticeBusy
)

// StyleForNotice returns the style for a notice kind.
func StyleForNotice(kind NoticeKind) lipgloss.Style {
	switch kind {
	case NoticeError:
		return ErrorStyle
	case NoticeSuccess:
		return SuccessStyle
	case NoticeBusy:
		return BusyStyle
	default:
		return InfoStyle
	}
}
