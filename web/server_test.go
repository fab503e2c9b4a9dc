// ABOUTME: Tests for the admin HTTP server against a fake backend served by httptest.
// ABOUTME: Covers pages, text sync, image insertion, preview, submission outcomes, and discard.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/2389-research/listingdesk/backend"
	"github.com/2389-research/listingdesk/blog"
	"github.com/2389-research/listingdesk/editor"
	"github.com/2389-research/listingdesk/imaging"
	"github.com/2389-research/listingdesk/journal"
)

// fakeBackend records multipart submissions and answers with a canned body.
type fakeBackend struct {
	mu       sync.Mutex
	status   int
	body     string
	received []url.Values
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/tags":
		io.WriteString(w, `{"status":true,"data":["beach","city"]}`)
		return
	case r.Method == http.MethodGet && r.URL.Path == "/blogs/5":
		io.WriteString(w, `{"status":true,"data":{"id":5,"title":"Old title","content":"<p>old body</p>","tags":["city"],"cover_url":"/cover.jpg"}}`)
		return
	case r.Method == http.MethodGet:
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, `{"status":false,"message":"Blog not found"}`)
		return
	}

	if err := r.ParseMultipartForm(32 << 20); err == nil {
		b.mu.Lock()
		b.received = append(b.received, r.MultipartForm.Value)
		b.mu.Unlock()
	}
	b.mu.Lock()
	status, body := b.status, b.body
	b.mu.Unlock()
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func (b *fakeBackend) respond(status int, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.status, b.body = status, body
}

func (b *fakeBackend) last(t *testing.T) url.Values {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.received) == 0 {
		t.Fatal("backend received no submission")
	}
	return b.received[len(b.received)-1]
}

type testEnv struct {
	srv      *Server
	sessions *editor.Store
	backend  *fakeBackend
	journal  *journal.Journal
}

func newTestServer(t *testing.T) *testEnv {
	t.Helper()

	fb := &fakeBackend{body: `{"status":true,"message":"Blog saved","data":{"id":12,"title":"x"}}`}
	api := httptest.NewServer(fb)
	t.Cleanup(api.Close)

	client, err := backend.New(backend.Config{BaseURL: api.URL, Token: "t", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("backend.New: %v", err)
	}

	j, err := journal.Open(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })

	sessions := editor.NewStore(10, time.Hour, imaging.NewEncoder(imaging.Options{}))
	srv, err := NewServer(ServerConfig{
		Sessions:  sessions,
		Posts:     client,
		Submitter: blog.NewSubmitter(client, blog.WithJournal(j), blog.WithWait(2*time.Second)),
		History:   j,
		Logger:    zerolog.Nop(),
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return &testEnv{srv: srv, sessions: sessions, backend: fb, journal: j}
}

func (e *testEnv) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func pngImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png: %v", err)
	}
	return buf.Bytes()
}

// multipartRequest builds a POST with the given fields and optional file parts.
func multipartRequest(t *testing.T, target string, fields map[string]string, files map[string][]byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for name, data := range files {
		part, err := w.CreateFormFile(name, name+".png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		part.Write(data)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func formRequest(target string, values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func TestServerHealth(t *testing.T) {
	env := newTestServer(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var body map[string]any
	decode(t, rec, &body)
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestServerHomeShowsHistory(t *testing.T) {
	env := newTestServer(t)
	if err := env.journal.Record(context.Background(), journal.Entry{Action: "create", Surface: "cli", Title: "Seaside loft", OK: true, ResourceID: "3"}); err != nil {
		t.Fatalf("Record: %v", err)
	}

	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/?submitted=3", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Seaside loft", "Post 3 saved.", `href="/posts/3/edit"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestServerNewPostCreatesSession(t *testing.T) {
	env := newTestServer(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/posts/new", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if env.sessions.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", env.sessions.Len())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `data-session="`) || !strings.Contains(body, "Create post") {
		t.Errorf("expected editor page, got %q", body)
	}
	if !strings.Contains(body, `<option value="beach">`) {
		t.Errorf("expected tag suggestions in page")
	}
}

func TestServerEditPostSeedsSession(t *testing.T) {
	env := newTestServer(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/posts/5/edit", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{"Old title", "&lt;p&gt;old body&lt;/p&gt;", "Update post", `name="remove_cover"`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected body to contain %q", want)
		}
	}
}

func TestServerEditMissingPost(t *testing.T) {
	env := newTestServer(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/posts/404/edit", nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Blog not found") {
		t.Errorf("expected backend message in page")
	}
	if env.sessions.Len() != 0 {
		t.Errorf("expected no session created")
	}
}

func TestServerUnknownSession(t *testing.T) {
	env := newTestServer(t)
	rec := env.do(t, httptest.NewRequest(http.MethodGet, "/sessions/nope/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
}

func TestServerSyncTextConvertsOffsets(t *testing.T) {
	env := newTestServer(t)
	sess := env.sessions.Create("", "")

	rec := env.do(t, formRequest("/sessions/"+sess.ID+"/text", url.Values{
		"content": {"a😀b"},
		"start":   {"3"},
		"end":     {"3"},
		"focused": {"true"},
	}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	st := sess.State()
	if st.Text != "a😀b" || st.Start != 5 || st.End != 5 || !st.Focused {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestServerInsertImageAtCursor(t *testing.T) {
	env := newTestServer(t)
	sess := env.sessions.Create("", "")

	req := multipartRequest(t, "/sessions/"+sess.ID+"/images", map[string]string{
		"content": "before|after",
		"start":   "7",
		"end":     "7",
		"focused": "true",
	}, map[string][]byte{"file": pngImage(t, 1200, 600)})
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Content   string `json:"content"`
		Cursor    int    `json:"cursor"`
		Inserting bool   `json:"inserting"`
		Pending   int    `json:"pending"`
	}
	decode(t, rec, &resp)

	if !strings.HasPrefix(resp.Content, `before|<img src="`+editor.PlaceholderPrefix) || !strings.HasSuffix(resp.Content, `" alt="file">after`) {
		t.Fatalf("unexpected content %q", resp.Content)
	}
	if want := len(resp.Content) - len("after"); resp.Cursor != want {
		t.Fatalf("expected cursor %d, got %d", want, resp.Cursor)
	}
	if resp.Pending != 1 || resp.Inserting {
		t.Fatalf("unexpected status %+v", resp)
	}
	img := sess.Pending()[0]
	if img.Width != 800 || img.Height != 400 {
		t.Fatalf("expected image scaled to 800x400, got %dx%d", img.Width, img.Height)
	}
}

func TestServerInsertRejectsNonImage(t *testing.T) {
	env := newTestServer(t)
	sess := env.sessions.Create("keep", "")

	req := multipartRequest(t, "/sessions/"+sess.ID+"/images", map[string]string{"content": "keep"},
		map[string][]byte{"file": []byte("just some text")})
	rec := env.do(t, req)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
	var body map[string]string
	decode(t, rec, &body)
	if !strings.Contains(body["error"], "Could not read") {
		t.Fatalf("unexpected error %q", body["error"])
	}
	if sess.State().Text != "keep" || sess.PendingCount() != 0 {
		t.Fatal("expected session unchanged")
	}
}

func insertViaHTTP(t *testing.T, env *testEnv, sess *editor.Session, content string) string {
	t.Helper()
	req := multipartRequest(t, "/sessions/"+sess.ID+"/images", map[string]string{
		"content": content,
		"start":   strconv.Itoa(len(content)),
		"end":     strconv.Itoa(len(content)),
		"focused": "true",
	}, map[string][]byte{"file": pngImage(t, 20, 10)})
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("insert failed: %d %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Content string `json:"content"`
	}
	decode(t, rec, &resp)
	return resp.Content
}

func TestServerSubmitSuccess(t *testing.T) {
	env := newTestServer(t)
	sess := env.sessions.Create("", "")
	content := insertViaHTTP(t, env, sess, "Intro ")

	rec := env.do(t, multipartRequest(t, "/sessions/"+sess.ID+"/submit", map[string]string{
		"title":   "Loft",
		"tags":    "city, City, beach",
		"content": content,
	}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp submitResponse
	decode(t, rec, &resp)
	if !resp.OK || resp.Redirect != "/?submitted=12" || resp.Message != "Blog saved" {
		t.Fatalf("unexpected response %+v", resp)
	}

	sent := env.backend.last(t)
	if got := sent.Get("content"); editor.HasPlaceholders(got) || !strings.Contains(got, `src="data:image/jpeg;base64,`) {
		t.Fatalf("unexpected content sent %q", got)
	}
	if got := sent["tags[]"]; len(got) != 2 || got[0] != "city" || got[1] != "beach" {
		t.Fatalf("unexpected tags %v", got)
	}
	if _, ok := env.sessions.Get(sess.ID); ok {
		t.Fatal("expected session removed after submit")
	}

	entries, err := env.journal.Recent(context.Background(), 5)
	if err != nil || len(entries) != 1 || !entries[0].OK || entries[0].Images != 1 {
		t.Fatalf("unexpected journal %+v %v", entries, err)
	}
}

func TestServerSubmitEscapesRedirectID(t *testing.T) {
	env := newTestServer(t)
	env.backend.respond(http.StatusOK, `{"status":true,"message":"Blog saved","data":{"id":"a&b#1","title":"Loft"}}`)
	sess := env.sessions.Create("", "")

	rec := env.do(t, multipartRequest(t, "/sessions/"+sess.ID+"/submit", map[string]string{
		"title":   "Loft",
		"content": "body",
	}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp submitResponse
	decode(t, rec, &resp)
	if resp.Redirect != "/?submitted=a%26b%231" {
		t.Fatalf("unexpected redirect %q", resp.Redirect)
	}
	u, err := url.Parse(resp.Redirect)
	if err != nil || u.Query().Get("submitted") != "a&b#1" {
		t.Fatalf("redirect does not round-trip: %q %v", resp.Redirect, err)
	}
}

func TestServerInsertRefusedWhileSubmitting(t *testing.T) {
	env := newTestServer(t)
	sess := env.sessions.Create("hello", "")
	if _, err := sess.BeginSubmit(context.Background()); err != nil {
		t.Fatalf("BeginSubmit: %v", err)
	}

	req := multipartRequest(t, "/sessions/"+sess.ID+"/images", map[string]string{
		"content": "hello",
		"start":   "5",
		"end":     "5",
		"focused": "true",
	}, map[string][]byte{"file": pngImage(t, 20, 10)})
	rec := env.do(t, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d: %s", rec.Code, rec.Body.String())
	}
	if sess.PendingCount() != 0 || sess.State().Text != "hello" {
		t.Fatal("expected session unchanged")
	}

	rec = env.do(t, multipartRequest(t, "/sessions/"+sess.ID+"/submit", map[string]string{"title": "T", "content": "hello"}, nil))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status 409 for a second submit, got %d", rec.Code)
	}
	var resp submitResponse
	decode(t, rec, &resp)
	if resp.Message != blog.SubmittingMessage {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestServerSubmitValidationError(t *testing.T) {
	env := newTestServer(t)
	env.backend.respond(http.StatusUnprocessableEntity, `{"status":false,"errors":{"title":["required"]}}`)
	sess := env.sessions.Create("", "")
	content := insertViaHTTP(t, env, sess, "")

	rec := env.do(t, multipartRequest(t, "/sessions/"+sess.ID+"/submit", map[string]string{"content": content}, nil))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected status 422, got %d", rec.Code)
	}
	var resp submitResponse
	decode(t, rec, &resp)
	if resp.OK || resp.Message != "required" || resp.Redirect != "" {
		t.Fatalf("unexpected response %+v", resp)
	}
	if _, ok := env.sessions.Get(sess.ID); !ok {
		t.Fatal("expected session kept for retry")
	}
	if sess.PendingCount() != 1 {
		t.Fatal("expected pending image kept for retry")
	}
}

func TestServerSubmitHTMLErrorPage(t *testing.T) {
	env := newTestServer(t)
	env.backend.respond(http.StatusInternalServerError, "<html><h1>Server Error</h1></html>")
	sess := env.sessions.Create("body", "")

	rec := env.do(t, multipartRequest(t, "/sessions/"+sess.ID+"/submit", map[string]string{"title": "T", "content": "body"}, nil))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	var resp submitResponse
	decode(t, rec, &resp)
	if resp.Message != backend.GenericFailureMessage {
		t.Fatalf("unexpected message %q", resp.Message)
	}
}

func TestServerSubmitEditSendsOverride(t *testing.T) {
	env := newTestServer(t)
	sess := env.sessions.Create("<p>old</p>", "5")

	rec := env.do(t, multipartRequest(t, "/sessions/"+sess.ID+"/submit", map[string]string{
		"title":        "T",
		"content":      "<p>new</p>",
		"remove_cover": "1",
	}, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	sent := env.backend.last(t)
	if sent.Get("_method") != "PUT" || sent.Get("remove_cover") != "1" || sent.Get("content") != "<p>new</p>" {
		t.Fatalf("unexpected form sent %v", sent)
	}
}

func TestServerPreview(t *testing.T) {
	env := newTestServer(t)
	sess := env.sessions.Create("", "")
	content := insertViaHTTP(t, env, sess, "# Heading\n\n")

	rec := env.do(t, formRequest("/sessions/"+sess.ID+"/preview", url.Values{"content": {content}}))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var resp struct {
		HTML   string `json:"html"`
		Images int    `json:"images"`
	}
	decode(t, rec, &resp)
	if !strings.Contains(resp.HTML, "<h1") || !strings.Contains(resp.HTML, "data:image/jpeg;base64,") || resp.Images != 1 {
		t.Fatalf("unexpected preview %+v", resp)
	}
	if !editor.HasPlaceholders(sess.State().Text) {
		t.Fatal("preview must not resolve the live text")
	}
}

func TestServerDiscard(t *testing.T) {
	env := newTestServer(t)
	sess := env.sessions.Create("", "")

	rec := env.do(t, httptest.NewRequest(http.MethodPost, "/sessions/"+sess.ID+"/discard", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}
	if _, ok := env.sessions.Get(sess.ID); ok {
		t.Fatal("expected session removed")
	}
	if !sess.Closed() {
		t.Fatal("expected session discarded")
	}
}

func TestServerStaticAssetsCompressed(t *testing.T) {
	env := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/static/css/style.css", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := env.do(t, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	if rec.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", rec.Header().Get("Content-Encoding"))
	}
}
