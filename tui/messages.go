// ABOUTME: Bubble Tea message types used in the terminal editor's message loop.
// ABOUTME: Results of image insertions and submissions arrive here from background commands.
package tui

import (
	"github.com/2389-research/listingdesk/blog"
	"github.com/2389-research/listingdesk/editor"
)

// ImageInsertedMsg reports the end of an image insertion started from the prompt.
type ImageInsertedMsg struct {
	Name  string
	State editor.State
	Err   error
}

// SubmitResultMsg reports the end of a submission.
type SubmitResultMsg struct {
	Outcome blog.Outcome
	Err     error
}
