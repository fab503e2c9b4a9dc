// ABOUTME: tea.Cmd factories that run image insertion and submission off the message loop.
// ABOUTME: Each command reports back with a single message when the work finishes.
package tui

import (
	"context"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/listingdesk/blog"
	"github.com/2389-research/listingdesk/editor"
)

// InsertImageCmd reads the image at path and inserts it into sess at sel.
// sel must be captured when the insertion is requested, not when it runs.
func InsertImageCmd(ctx context.Context, sess *editor.Session, path string, sel editor.Selection) tea.Cmd {
	return func() tea.Msg {
		name := filepath.Base(path)
		f, err := os.Open(path)
		if err != nil {
			return ImageInsertedMsg{Name: name, Err: err}
		}
		defer f.Close()

		st, err := sess.InsertImage(ctx, f, name, sel)
		return ImageInsertedMsg{Name: name, State: st, Err: err}
	}
}

// SubmitCmd submits sess with form through s.
func SubmitCmd(ctx context.Context, s *blog.Submitter, sess *editor.Session, form blog.Form) tea.Cmd {
	return func() tea.Msg {
		out, err := s.Submit(ctx, sess, form)
		return SubmitResultMsg{Outcome: out, Err: err}
	}
}
