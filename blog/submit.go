// ABOUTME: Submission flow for the blog editor: wait for insertions, resolve placeholders, send, journal.
// ABOUTME: The session's pending images are released only after the backend accepts the post.

package blog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/2389-research/listingdesk/backend"
	"github.com/2389-research/listingdesk/editor"
	"github.com/2389-research/listingdesk/journal"
)

const (
	ActionCreate = "create"
	ActionUpdate = "update"

	defaultWait = 30 * time.Second
)

// ErrStillInserting is returned when an image insertion did not finish
// within the submission wait.
var ErrStillInserting = errors.New("an image is still being inserted")

// UnresolvedError reports placeholder keys left in content after resolution,
// typically tags pasted from another editing session.
type UnresolvedError struct {
	Keys []string
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("content references %d image(s) that are not part of this editor: %s", len(e.Keys), strings.Join(e.Keys, ", "))
}

// Poster is the subset of the backend client used to submit posts.
type Poster interface {
	CreatePost(ctx context.Context, form backend.PostForm) (backend.Result, error)
	UpdatePost(ctx context.Context, id string, form backend.PostForm) (backend.Result, error)
}

// Recorder stores submission outcomes.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Outcome describes an accepted submission.
type Outcome struct {
	Action     string
	ResourceID string
	Message    string
	Post       *backend.Post
	Images     int
	Dropped    int
}

// Submitter sends editor sessions to the backend.
type Submitter struct {
	poster  Poster
	journal Recorder
	log     zerolog.Logger
	wait    time.Duration
	surface string
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithJournal records every submission attempt in r.
func WithJournal(r Recorder) Option {
	return func(s *Submitter) {
		s.journal = r
	}
}

// WithLogger sets the submitter's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Submitter) {
		s.log = log
	}
}

// WithWait bounds how long Submit waits for in-flight insertions.
func WithWait(d time.Duration) Option {
	return func(s *Submitter) {
		if d > 0 {
			s.wait = d
		}
	}
}

// WithSurface tags journal entries with the front-end that submitted them.
func WithSurface(name string) Option {
	return func(s *Submitter) {
		s.surface = name
	}
}

// NewSubmitter returns a Submitter posting through p.
func NewSubmitter(p Poster, opts ...Option) *Submitter {
	s := &Submitter{
		poster:  p,
		log:     zerolog.Nop(),
		wait:    defaultWait,
		surface: "web",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit resolves the session's content and creates or updates the post. It
// first waits for in-flight image insertions so none is lost, then holds the
// session so no insertion can start until the backend has answered. On
// failure the session is released untouched and can be submitted again.
func (s *Submitter) Submit(ctx context.Context, sess *editor.Session, form Form) (Outcome, error) {
	waitCtx, cancel := context.WithTimeout(ctx, s.wait)
	res, err := sess.BeginSubmit(waitCtx)
	cancel()
	if err != nil {
		switch {
		case errors.Is(err, editor.ErrSubmitting), errors.Is(err, editor.ErrClosed):
			return Outcome{}, fmt.Errorf("submit: %w", err)
		case ctx.Err() != nil:
			return Outcome{}, fmt.Errorf("submit: %w", ctx.Err())
		default:
			return Outcome{}, fmt.Errorf("submit: %w: %w", ErrStillInserting, err)
		}
	}

	if editor.HasPlaceholders(res.Content) {
		sess.CancelSubmit()
		return Outcome{}, &UnresolvedError{Keys: editor.ReferencedKeys(res.Content)}
	}

	action := ActionCreate
	if sess.ResourceID != "" {
		action = ActionUpdate
	}
	payload := form.Payload(res.Content)

	var result backend.Result
	if action == ActionCreate {
		result, err = s.poster.CreatePost(ctx, payload)
	} else {
		result, err = s.poster.UpdatePost(ctx, sess.ResourceID, payload)
	}

	entry := journal.Entry{
		Action:       action,
		Surface:      s.surface,
		ResourceID:   sess.ResourceID,
		Title:        payload.Title,
		OK:           err == nil,
		Images:       len(res.Used),
		ContentBytes: len(res.Content),
	}
	if err != nil {
		entry.Message = UserMessage(err)
	} else {
		entry.Message = result.Message
		if result.Post != nil && result.Post.ID != "" {
			entry.ResourceID = result.Post.ID.String()
		}
	}
	s.record(ctx, entry)

	if err != nil {
		sess.CancelSubmit()
		s.log.Warn().Err(err).
			Str("session", sess.ID).
			Str("action", action).
			Msg("submission rejected")
		return Outcome{}, err
	}

	sess.Complete()

	if len(res.Dropped) > 0 {
		s.log.Debug().
			Str("session", sess.ID).
			Strs("keys", res.Dropped).
			Msg("dropped pending images no longer in content")
	}
	s.log.Info().
		Str("session", sess.ID).
		Str("action", action).
		Str("resource_id", entry.ResourceID).
		Int("images", len(res.Used)).
		Int("content_bytes", len(res.Content)).
		Msg("post submitted")

	return Outcome{
		Action:     action,
		ResourceID: entry.ResourceID,
		Message:    result.Message,
		Post:       result.Post,
		Images:     len(res.Used),
		Dropped:    len(res.Dropped),
	}, nil
}

func (s *Submitter) record(ctx context.Context, e journal.Entry) {
	if s.journal == nil {
		return
	}
	if err := s.journal.Record(context.WithoutCancel(ctx), e); err != nil {
		s.log.Error().Err(err).Msg("failed to record submission")
	}
}

// Form-level messages for failures that happen before the backend is asked.
const (
	StillInsertingMessage = "An image is still being inserted. Please wait a moment and try again."
	UnresolvedMessage     = "The content contains images from another editor. Remove them and insert the images again."
	SubmittingMessage     = "This post is already being saved."
	ClosedMessage         = "This editor was closed. Reload the page to start again."
)

// UserMessage maps a submission error to the form-level message.
func UserMessage(err error) string {
	var ue *UnresolvedError
	switch {
	case errors.Is(err, ErrStillInserting):
		return StillInsertingMessage
	case errors.As(err, &ue):
		return UnresolvedMessage
	case errors.Is(err, editor.ErrSubmitting):
		return SubmittingMessage
	case errors.Is(err, editor.ErrClosed):
		return ClosedMessage
	}
	return backend.UserMessage(err)
}
