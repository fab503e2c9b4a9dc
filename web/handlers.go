// ABOUTME: HTTP handlers for blog editor pages and the per-session editor endpoints.
// ABOUTME: Browser offsets arrive and leave as UTF-16 code units; the session works in bytes.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/2389-research/listingdesk/backend"
	"github.com/2389-research/listingdesk/blog"
	"github.com/2389-research/listingdesk/editor"
	"github.com/2389-research/listingdesk/imaging"
)

type ctxKey int

const sessionKey ctxKey = iota

const (
	homeHistoryLimit = 20
	// multipartOverhead allows for the non-file fields sent with an upload.
	multipartOverhead = 4 << 20
)

// sessionCtx resolves {sessionID} and stores the session in the request context.
func (s *Server) sessionCtx(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.sessions.Get(chi.URLParam(r, "sessionID"))
		if !ok {
			writeError(w, http.StatusNotFound, "Editor session expired. Reload the page to start again.")
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(r *http.Request) *editor.Session {
	return r.Context().Value(sessionKey).(*editor.Session)
}

// handleHome renders the landing page with recent submissions.
func (s *Server) handleHome(w http.ResponseWriter, r *http.Request) {
	data := PageData{Title: "Blog posts"}
	if id := r.URL.Query().Get("submitted"); id != "" {
		data.Flash = "Post " + id + " saved."
	} else if r.URL.Query().Has("submitted") {
		data.Flash = "Post saved."
	}
	if s.history != nil {
		entries, err := s.history.Recent(r.Context(), homeHistoryLimit)
		if err != nil {
			s.log.Error().Err(err).Msg("loading submission history")
			data.Error = "Could not load recent submissions."
		}
		data.Entries = entries
	}
	s.render(w, http.StatusOK, "home.html", data)
}

// handleNewPost opens an editor session for a new post.
func (s *Server) handleNewPost(w http.ResponseWriter, r *http.Request) {
	sess := s.sessions.Create("", "")
	s.renderEditor(w, r, sess, blog.Form{}, "")
}

// handleEditPost loads a post from the backend and opens an editor session seeded with it.
func (s *Server) handleEditPost(w http.ResponseWriter, r *http.Request) {
	postID := chi.URLParam(r, "postID")
	post, err := s.posts.GetPost(r.Context(), postID)
	if err != nil {
		s.log.Warn().Err(err).Str("post_id", postID).Msg("loading post for edit")
		s.render(w, http.StatusBadGateway, "home.html", PageData{
			Title: "Blog posts",
			Error: "Could not load post " + postID + ": " + backend.UserMessage(err),
		})
		return
	}

	sess := s.sessions.Create(post.Content, postID)
	s.renderEditor(w, r, sess, blog.FormFromPost(post), postID)
}

func (s *Server) renderEditor(w http.ResponseWriter, r *http.Request, sess *editor.Session, form blog.Form, postID string) {
	title := "New post"
	if postID != "" {
		title = "Edit post"
	}
	data := PageData{
		Title:       title,
		SessionID:   sess.ID,
		PostID:      postID,
		IsEdit:      postID != "",
		Form:        form,
		Content:     sess.State().Text,
		MaxUploadMB: s.maxUpload >> 20,
	}
	if tags, err := s.posts.ListTags(r.Context()); err != nil {
		s.log.Debug().Err(err).Msg("tag suggestions unavailable")
	} else {
		data.TagSuggestions = tags
	}
	s.render(w, http.StatusOK, "post_form.html", data)
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data PageData) {
	if err := s.templates.Render(w, status, name, data); err != nil {
		s.log.Error().Err(err).Str("template", name).Msg("rendering page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// editorResponse is the JSON shape returned by the session endpoints.
type editorResponse struct {
	Content   *string `json:"content,omitempty"`
	Cursor    *int    `json:"cursor,omitempty"`
	Inserting bool    `json:"inserting"`
	Pending   int     `json:"pending"`
}

func stateResponse(sess *editor.Session, st *editor.State) editorResponse {
	resp := editorResponse{
		Inserting: sess.Inserting(),
		Pending:   sess.PendingCount(),
	}
	if st != nil {
		cursor := editor.ByteToUTF16Offset(st.Text, st.End)
		resp.Content = &st.Text
		resp.Cursor = &cursor
	}
	return resp
}

// syncFromForm applies the content and selection fields of r, if present, to
// the session. It reports whether a content field was sent.
func syncFromForm(sess *editor.Session, r *http.Request) bool {
	if _, ok := r.Form["content"]; !ok {
		return false
	}
	text := r.FormValue("content")
	sel := editor.Selection{}
	if r.FormValue("focused") == "true" || r.FormValue("focused") == "1" {
		start, errS := strconv.Atoi(r.FormValue("start"))
		end, errE := strconv.Atoi(r.FormValue("end"))
		if errS == nil && errE == nil {
			sel = editor.Selection{
				Start: editor.UTF16ToByteOffset(text, start),
				End:   editor.UTF16ToByteOffset(text, end),
				Valid: true,
			}
		}
	}
	sess.Sync(text, sel)
	return true
}

// handleSyncText records the textarea's text and selection.
func (s *Server) handleSyncText(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	if !syncFromForm(sess, r) {
		writeError(w, http.StatusBadRequest, "missing content")
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(sess, nil))
}

// handleInsertImage encodes the uploaded file and inserts it at the selection
// sent with it. The response carries the new content and caret.
func (s *Server) handleInsertImage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("Image is too large (max %d MB).", s.maxUpload>>20))
			return
		}
		writeError(w, http.StatusBadRequest, "invalid upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No image file was sent.")
		return
	}
	defer file.Close()

	syncFromForm(sess, r)
	sel := sess.State().Selection()

	st, err := sess.InsertImage(r.Context(), file, header.Filename, sel)
	if err != nil {
		s.insertError(w, sess, header.Filename, err)
		return
	}
	writeJSON(w, http.StatusOK, stateResponse(sess, &st))
}

func (s *Server) insertError(w http.ResponseWriter, sess *editor.Session, name string, err error) {
	switch {
	case imaging.IsInputError(err):
		s.log.Info().Err(err).Str("session", sess.ID).Str("file", name).Msg("image rejected")
		writeError(w, http.StatusUnprocessableEntity, imageErrorMessage(name, err))
	case errors.Is(err, editor.ErrClosed):
		writeError(w, http.StatusGone, blog.ClosedMessage)
	case errors.Is(err, editor.ErrSubmitting):
		writeError(w, http.StatusConflict, "The post is being saved. Insert the image again if saving fails.")
	case errors.Is(err, context.Canceled):
		writeError(w, http.StatusRequestTimeout, "Upload cancelled.")
	default:
		s.log.Error().Err(err).Str("session", sess.ID).Str("file", name).Msg("image insertion failed")
		writeError(w, http.StatusInternalServerError, "Could not insert the image.")
	}
}

func imageErrorMessage(name string, err error) string {
	var tl *imaging.TooLargeError
	if errors.As(err, &tl) {
		if tl.MaxPixels > 0 {
			return fmt.Sprintf("%s is too large (max %d megapixels).", name, tl.MaxPixels/1_000_000)
		}
		return fmt.Sprintf("%s is too large (max %d MB).", name, tl.Limit>>20)
	}
	return fmt.Sprintf("Could not read %s as an image.", name)
}

// handleStatus reports whether an insertion is in flight.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, stateResponse(sessionFrom(r), nil))
}

// handlePreview renders the resolved content as sanitized HTML.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	syncFromForm(sess, r)

	res, err := s.preview.Render(sess.Resolve().Content)
	if err != nil {
		s.log.Error().Err(err).Str("session", sess.ID).Msg("preview failed")
		writeError(w, http.StatusInternalServerError, "Could not render preview.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"html":   res.HTML,
		"images": res.Images,
		"words":  res.Words,
	})
}

// submitResponse is the JSON shape returned by handleSubmit.
type submitResponse struct {
	OK       bool   `json:"ok"`
	Message  string `json:"message"`
	Redirect string `json:"redirect,omitempty"`
}

// handleSubmit sends the post to the backend. On failure the session is kept
// and the form-level message is returned; on success the session is dropped
// and the client is told where to go next.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		writeJSON(w, http.StatusBadRequest, submitResponse{Message: "The form could not be read."})
		return
	}
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
	}

	form, problem := s.formFromRequest(r)
	if problem != "" {
		writeJSON(w, http.StatusBadRequest, submitResponse{Message: problem})
		return
	}
	syncFromForm(sess, r)

	out, err := s.submitter.Submit(r.Context(), sess, form)
	if err != nil {
		writeJSON(w, submitStatus(err), submitResponse{Message: blog.UserMessage(err)})
		return
	}

	s.sessions.Delete(sess.ID)
	msg := out.Message
	if msg == "" {
		msg = "Post saved."
	}
	writeJSON(w, http.StatusOK, submitResponse{
		OK:       true,
		Message:  msg,
		Redirect: "/?submitted=" + url.QueryEscape(out.ResourceID),
	})
}

// formFromRequest reads the non-content fields. A non-empty second result is
// a message describing why the form cannot be used.
func (s *Server) formFromRequest(r *http.Request) (blog.Form, string) {
	form := blog.Form{
		Title:       r.FormValue("title"),
		Subtitle:    r.FormValue("subtitle"),
		Tags:        blog.ParseTags(r.FormValue("tags")),
		RemoveCover: r.FormValue("remove_cover") == "1" || r.FormValue("remove_cover") == "on",
	}
	if r.MultipartForm == nil {
		return form, ""
	}
	file, header, err := r.FormFile("cover")
	if errors.Is(err, http.ErrMissingFile) {
		return form, ""
	}
	if err != nil {
		return form, "The cover image could not be read."
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		return form, "The cover image could not be read."
	}
	if int64(len(data)) > s.maxUpload {
		return form, fmt.Sprintf("The cover image is too large (max %d MB).", s.maxUpload>>20)
	}
	if len(data) > 0 {
		form.Cover = backend.NewFile(header.Filename, data)
		if !strings.HasPrefix(form.Cover.ContentType, "image/") {
			return form, "The cover must be an image."
		}
	}
	return form, ""
}

func submitStatus(err error) int {
	var ve *backend.ValidationError
	var ue *blog.UnresolvedError
	switch {
	case errors.As(err, &ve):
		return http.StatusUnprocessableEntity
	case errors.Is(err, blog.ErrStillInserting), errors.Is(err, editor.ErrSubmitting), errors.As(err, &ue):
		return http.StatusConflict
	case errors.Is(err, editor.ErrClosed):
		return http.StatusGone
	default:
		return http.StatusBadGateway
	}
}

// handleDiscard drops the session when the author leaves the page.
func (s *Server) handleDiscard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r)
	s.sessions.Delete(sess.ID)
	w.WriteHeader(http.StatusNoContent)
}
