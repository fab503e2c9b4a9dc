// ABOUTME: edit command: opens the terminal editor on a new post or an existing one.
// ABOUTME: Prints the submission result after the editor exits.
package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/2389-research/listingdesk/backend"
	"github.com/2389-research/listingdesk/blog"
	"github.com/2389-research/listingdesk/editor"
	"github.com/2389-research/listingdesk/imaging"
	"github.com/2389-research/listingdesk/tui"
)

func newEditCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "edit [ID]",
		Short: "Edit a post in the terminal editor",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			postID := ""
			if len(args) == 1 {
				postID = args[0]
			}
			return runEdit(cmd, a, postID)
		},
	}
}

func runEdit(cmd *cobra.Command, a *app, postID string) error {
	// The terminal belongs to the editor while it runs.
	quiet := zerolog.Nop()

	client, err := a.client(quiet)
	if err != nil {
		return err
	}
	ctx := cmd.Context()

	form := blog.Form{}
	content := ""
	if postID != "" {
		post, err := client.GetPost(ctx, postID)
		if err != nil {
			return fmt.Errorf("loading post %s: %s", postID, backend.UserMessage(err))
		}
		form = blog.FormFromPost(post)
		content = post.Content
	}

	j, err := a.openJournal()
	if err != nil {
		return err
	}
	defer closeJournal(j, a.log)

	sess := editor.NewSession(uuid.NewString(), content, imaging.NewEncoder(a.cfg.ImagingOptions()))
	sess.ResourceID = postID
	defer sess.Discard()

	model := tui.NewEditorModel(ctx, sess, a.submitter(client, j, "tui", quiet), form)
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("terminal editor: %w", err)
	}

	out := cmd.OutOrStdout()
	if em, ok := final.(tui.EditorModel); ok {
		if outcome, saved := em.Outcome(); saved {
			fmt.Fprintf(out, "Post %s %s: %s\n", outcome.ResourceID, outcome.Action+"d", outcome.Message)
			return nil
		}
	}
	fmt.Fprintln(out, "Nothing submitted.")
	return nil
}
