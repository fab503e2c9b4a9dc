// ABOUTME: post create and post edit: headless submission from flags, files, and piped stdin.
// ABOUTME: Images from --image go through the same session insertion path as the web and terminal editors.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/2389-research/listingdesk/backend"
	"github.com/2389-research/listingdesk/blog"
	"github.com/2389-research/listingdesk/editor"
	"github.com/2389-research/listingdesk/imaging"
)

// postOptions holds the flags shared by post create and post edit.
type postOptions struct {
	title       string
	subtitle    string
	tags        []string
	untags      []string
	cover       string
	removeCover bool
	content     string
	contentFile string
	images      []string
	at          int
	dryRun      bool
}

func newPostCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "post",
		Short: "Create or update a post without the editor",
	}
	cmd.AddCommand(newPostCreateCommand(a), newPostEditCommand(a))
	return cmd
}

func newPostCreateCommand(a *app) *cobra.Command {
	opts := &postOptions{}
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a post",
		Args:  cobra.NoArgs,
		Example: `  listingdesk post create --title "Harbour loft" --tag city --image ./view.jpg < body.html
  listingdesk post create --title Draft --content "<p>Hi</p>" --image a.png --at 3 --dry-run`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPost(cmd, a, opts, "")
		},
	}
	opts.register(cmd, false)
	return cmd
}

func newPostEditCommand(a *app) *cobra.Command {
	opts := &postOptions{}
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Update an existing post",
		Long:  "Loads the post, applies the given flags over it, and submits the result. Fields without flags keep their current values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPost(cmd, a, opts, args[0])
		},
	}
	opts.register(cmd, true)
	return cmd
}

func (o *postOptions) register(cmd *cobra.Command, edit bool) {
	f := cmd.Flags()
	f.StringVarP(&o.title, "title", "t", "", "Post title")
	f.StringVar(&o.subtitle, "subtitle", "", "Post subtitle")
	f.StringSliceVar(&o.tags, "tag", nil, "Tag (repeatable or comma separated)")
	f.StringVar(&o.cover, "cover", "", "Path to a cover image")
	if edit {
		f.BoolVar(&o.removeCover, "remove-cover", false, "Remove the current cover image")
		f.StringSliceVar(&o.untags, "untag", nil, "Tag to remove from the post (repeatable or comma separated)")
	}
	f.StringVar(&o.content, "content", "", "Post content")
	f.StringVar(&o.contentFile, "content-file", "", "Read content from a file (- for stdin)")
	f.StringArrayVar(&o.images, "image", nil, "Image to insert (repeatable, inserted in order)")
	f.IntVar(&o.at, "at", 0, "Byte offset in the content to insert images at (default: append)")
	f.BoolVar(&o.dryRun, "dry-run", false, "Print the resolved content instead of submitting")
	f.SortFlags = false
}

func runPost(cmd *cobra.Command, a *app, o *postOptions, postID string) error {
	client, err := a.client(a.log)
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

	if text, ok, err := o.readContent(cmd); err != nil {
		return err
	} else if ok {
		content = text
	}
	if err := o.applyFields(cmd, &form); err != nil {
		return err
	}

	sess := editor.NewSession(uuid.NewString(), content, imaging.NewEncoder(a.cfg.ImagingOptions()))
	sess.ResourceID = postID
	if err := o.insertImages(cmd, sess); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if o.dryRun {
		fmt.Fprintln(out, sess.Resolve().Content)
		return nil
	}

	j, err := a.openJournal()
	if err != nil {
		return err
	}
	defer closeJournal(j, a.log)

	outcome, err := a.submitter(client, j, "cli", a.log).Submit(ctx, sess, form)
	if err != nil {
		return errors.New(blog.UserMessage(err))
	}

	msg := outcome.Message
	if msg == "" {
		msg = "saved"
	}
	fmt.Fprintf(out, "Post %s %s: %s\n", outcome.ResourceID, outcome.Action+"d", msg)
	return nil
}

// readContent returns the content given by flags or piped stdin. The second
// result is false when none was given.
func (o *postOptions) readContent(cmd *cobra.Command) (string, bool, error) {
	switch {
	case cmd.Flags().Changed("content"):
		return o.content, true, nil
	case o.contentFile == "-":
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", false, fmt.Errorf("read stdin: %w", err)
		}
		return string(data), true, nil
	case o.contentFile != "":
		data, err := os.ReadFile(o.contentFile)
		if err != nil {
			return "", false, fmt.Errorf("read content: %w", err)
		}
		return string(data), true, nil
	}

	in := cmd.InOrStdin()
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return "", false, nil
	}
	data, err := io.ReadAll(in)
	if err != nil {
		return "", false, fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return "", false, nil
	}
	return string(data), true, nil
}

// applyFields overrides form fields whose flags were given.
func (o *postOptions) applyFields(cmd *cobra.Command, form *blog.Form) error {
	flags := cmd.Flags()
	if flags.Changed("title") {
		form.Title = o.title
	}
	if flags.Changed("subtitle") {
		form.Subtitle = o.subtitle
	}
	if flags.Changed("tag") {
		form.Tags = blog.AddTag(nil, o.tags...)
	}
	for _, t := range o.untags {
		form.Tags = blog.RemoveTag(form.Tags, t)
	}
	form.RemoveCover = o.removeCover
	if o.cover != "" {
		data, err := os.ReadFile(o.cover)
		if err != nil {
			return fmt.Errorf("read cover: %w", err)
		}
		form.Cover = backend.NewFile(filepath.Base(o.cover), data)
		if !strings.HasPrefix(form.Cover.ContentType, "image/") {
			return fmt.Errorf("cover %s is not an image (%s)", o.cover, form.Cover.ContentType)
		}
	}
	return nil
}

// insertImages inserts every --image in order. With --at the first image goes
// at that offset and each following one right after the previous; otherwise
// images are appended.
func (o *postOptions) insertImages(cmd *cobra.Command, sess *editor.Session) error {
	sel := editor.Selection{}
	if cmd.Flags().Changed("at") {
		sel = editor.Cursor(o.at)
	}
	for _, path := range o.images {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open image: %w", err)
		}
		st, err := sess.InsertImage(cmd.Context(), f, filepath.Base(path), sel)
		f.Close()
		if err != nil {
			return err
		}
		if sel.Valid {
			sel = st.Selection()
		}
	}
	return nil
}
