// ABOUTME: Session owns one editing form's EditorState and its pending-image map.
// ABOUTME: Tracks in-flight image insertions so submission can wait for them to finish.

package editor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/2389-research/listingdesk/imaging"
)

// ErrNoEncoder is returned when an image insertion is attempted on a session
// created without an encoder.
var ErrNoEncoder = errors.New("session has no image encoder")

// ErrClosed is returned for insertions into a discarded or submitted session.
var ErrClosed = errors.New("session is closed")

// ErrSubmitting is returned for insertions started while a submission holds
// the session, and for a second concurrent submission.
var ErrSubmitting = errors.New("session is being submitted")

// Encoder turns an uploaded image into an embeddable payload.
type Encoder interface {
	Encode(ctx context.Context, r io.Reader) (imaging.Image, error)
}

// PendingImage is an encoded image held out-of-band until submission.
type PendingImage struct {
	Key         string
	Name        string
	Payload     string
	ContentType string
	Width       int
	Height      int
	CreatedAt   time.Time
}

// Resolution is the outcome of resolving a session's text for submission.
type Resolution struct {
	Content string
	// Used lists the keys that were substituted.
	Used []string
	// Dropped lists keys whose image tag was removed from the text.
	Dropped []string
}

// Session holds the editing state for one form instance.
type Session struct {
	mu      sync.Mutex
	state   State
	pending map[string]PendingImage
	encoder Encoder

	inflight   int
	idle       chan struct{}
	closed     bool
	submitting bool

	ID string
	// ResourceID is the backend id of the resource being edited, empty when creating.
	ResourceID string
	CreatedAt  time.Time
	LastAccess time.Time
}

// NewSession returns a session seeded with text. The cursor starts at the end
// of the text and the surface is considered unfocused.
func NewSession(id, text string, encoder Encoder) *Session {
	now := time.Now()
	return &Session{
		ID:         id,
		state:      State{Text: text, Start: len(text), End: len(text)},
		pending:    make(map[string]PendingImage),
		encoder:    encoder,
		CreatedAt:  now,
		LastAccess: now,
	}
}

// State returns a copy of the current editor state.
func (sess *Session) State() State {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.state
}

// Sync replaces the text and selection with what the editing surface reports.
func (sess *Session) Sync(text string, sel Selection) State {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.state = State{Text: text, Start: sel.Start, End: sel.End, Focused: sel.Valid}
	sess.state.Clamp()
	return sess.state
}

// Apply runs fn against the current state under the session lock, clamps the
// result, and returns it. Used by surfaces that edit incrementally.
func (sess *Session) Apply(fn func(st *State)) State {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	fn(&sess.state)
	sess.state.Clamp()
	return sess.state
}

// InsertImage encodes the image read from r, records it as a pending image,
// and splices its placeholder tag into the text at sel. The selection is the
// one captured when the insertion was triggered; it is re-clamped against the
// text as it stands once encoding finishes. On error nothing is changed.
func (sess *Session) InsertImage(ctx context.Context, r io.Reader, name string, sel Selection) (State, error) {
	if sess.encoder == nil {
		return State{}, ErrNoEncoder
	}
	if err := sess.beginInsert(); err != nil {
		return State{}, err
	}
	defer sess.endInsert()

	img, err := sess.encoder.Encode(ctx, r)
	if err != nil {
		return State{}, fmt.Errorf("insert image %q: %w", name, err)
	}

	key := NewPlaceholderKey()
	fragment := ImageTag(key, altText(name))

	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return State{}, ErrClosed
	}

	sess.pending[key] = PendingImage{
		Key:         key,
		Name:        name,
		Payload:     img.DataURI,
		ContentType: img.ContentType,
		Width:       img.Width,
		Height:      img.Height,
		CreatedAt:   time.Now(),
	}

	text, cursor := InsertAtCursor(sess.state.Text, sel, fragment)
	sess.state = State{Text: text, Start: cursor, End: cursor, Focused: true}
	return sess.state, nil
}

// Inserting reports whether any image insertion is in flight.
func (sess *Session) Inserting() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.inflight > 0
}

// PendingCount returns the number of images awaiting submission.
func (sess *Session) PendingCount() int {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.pending)
}

// Pending returns the pending images ordered by creation time.
func (sess *Session) Pending() []PendingImage {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	out := make([]PendingImage, 0, len(sess.pending))
	for _, p := range sess.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Key < out[j].Key
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Resolve returns the text with every pending placeholder replaced by its
// payload. The live text is not modified.
func (sess *Session) Resolve() Resolution {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.resolveLocked()
}

// ResolveWhenIdle waits until no image insertion is in flight and then
// resolves the text, so a submission never races a half-finished insertion.
func (sess *Session) ResolveWhenIdle(ctx context.Context) (Resolution, error) {
	return sess.resolveIdle(ctx, false)
}

// BeginSubmit waits like ResolveWhenIdle and then holds the session for a
// submission: until Complete or CancelSubmit, new insertions fail with
// ErrSubmitting so none can start after the content was resolved.
func (sess *Session) BeginSubmit(ctx context.Context) (Resolution, error) {
	return sess.resolveIdle(ctx, true)
}

// CancelSubmit releases a submission that failed so editing can resume.
func (sess *Session) CancelSubmit() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.submitting = false
}

// Submitting reports whether a submission currently holds the session.
func (sess *Session) Submitting() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.submitting
}

func (sess *Session) resolveIdle(ctx context.Context, claim bool) (Resolution, error) {
	for {
		sess.mu.Lock()
		if claim && (sess.submitting || sess.closed) {
			err := ErrSubmitting
			if sess.closed {
				err = ErrClosed
			}
			sess.mu.Unlock()
			return Resolution{}, err
		}
		if sess.inflight == 0 {
			if claim {
				sess.submitting = true
			}
			res := sess.resolveLocked()
			sess.mu.Unlock()
			return res, nil
		}
		idle := sess.idle
		sess.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return Resolution{}, fmt.Errorf("waiting for image insertion: %w", ctx.Err())
		}
	}
}

// Complete drops every pending payload after a successful submission and
// closes the session to further insertions.
func (sess *Session) Complete() {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.pending = make(map[string]PendingImage)
	sess.closed = true
	sess.submitting = false
}

// Discard releases pending payloads when the editing form is abandoned.
func (sess *Session) Discard() {
	sess.Complete()
}

// Closed reports whether the session was completed or discarded.
func (sess *Session) Closed() bool {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.closed
}

func (sess *Session) resolveLocked() Resolution {
	payloads := make(map[string]string, len(sess.pending))
	var used, dropped []string
	for key, p := range sess.pending {
		if CountKey(sess.state.Text, key) == 0 {
			dropped = append(dropped, key)
			continue
		}
		payloads[key] = p.Payload
		used = append(used, key)
	}
	sort.Strings(used)
	sort.Strings(dropped)

	return Resolution{
		Content: ResolveContent(sess.state.Text, payloads),
		Used:    used,
		Dropped: dropped,
	}
}

func (sess *Session) beginInsert() error {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.closed {
		return ErrClosed
	}
	if sess.submitting {
		return ErrSubmitting
	}
	if sess.inflight == 0 {
		sess.idle = make(chan struct{})
	}
	sess.inflight++
	return nil
}

func (sess *Session) endInsert() {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.inflight--
	if sess.inflight == 0 {
		close(sess.idle)
	}
}
