// ABOUTME: Tests for the backend client against httptest servers.
// ABOUTME: Covers auth headers, envelope decoding, validation surfacing, and non-JSON bodies.

package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := New(Config{BaseURL: srv.URL + "/", Token: "secret", Timeout: 5 * time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{BaseURL: "  "}); !errors.Is(err, ErrNoBaseURL) {
		t.Fatalf("expected ErrNoBaseURL, got %v", err)
	}
}

func TestGetPostSendsTokenAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/blogs/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected Authorization %q", got)
		}
		if got := r.Header.Get("Accept"); got != "application/json" {
			t.Errorf("unexpected Accept %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status":true,"data":{"id":7,"title":"Loft","subtitle":"Sunny","content":"<p>hi</p>","tags":[{"name":"city"},"loft"],"cover_url":"/c.jpg"}}`)
	})

	post, err := c.GetPost(context.Background(), "7")
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	want := &Post{ID: "7", Title: "Loft", Subtitle: "Sunny", Content: "<p>hi</p>", Tags: TagList{"city", "loft"}, CoverURL: "/c.jpg"}
	if diff := cmp.Diff(want, post); diff != "" {
		t.Fatalf("post mismatch (-want +got):\n%s", diff)
	}
}

func TestGetPostWithoutDataIsMalformed(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":true}`)
	})
	_, err := c.GetPost(context.Background(), "1")
	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
}

func TestCreatePostMultipartFields(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/blogs" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("parse multipart: %v", err)
		}
		if got := r.FormValue("title"); got != "T" {
			t.Errorf("title = %q", got)
		}
		if got := r.FormValue("content"); got != `<img src="data:x">` {
			t.Errorf("content = %q", got)
		}
		if diff := cmp.Diff([]string{"a", "b"}, r.MultipartForm.Value["tags[]"]); diff != "" {
			t.Errorf("tags mismatch (-want +got):\n%s", diff)
		}
		if _, ok := r.MultipartForm.Value[MethodOverrideField]; ok {
			t.Error("create must not send method override")
		}
		if _, ok := r.MultipartForm.Value["remove_cover"]; ok {
			t.Error("create must not send remove_cover")
		}
		files := r.MultipartForm.File["cover"]
		if len(files) != 1 || files[0].Filename != "cover.png" {
			t.Errorf("unexpected cover files %+v", files)
		}
		io.WriteString(w, `{"status":true,"message":"Blog created","data":{"id":"abc","title":"T"}}`)
	})

	res, err := c.CreatePost(context.Background(), PostForm{
		Title:       "T",
		Content:     `<img src="data:x">`,
		Tags:        []string{"a", "b"},
		Cover:       &File{Name: "cover.png", ContentType: "image/png", Data: []byte("png")},
		RemoveCover: true,
	})
	if err != nil {
		t.Fatalf("CreatePost: %v", err)
	}
	if res.Message != "Blog created" || res.Post == nil || res.Post.ID != "abc" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestUpdatePostSendsMethodOverride(t *testing.T) {
	tests := []struct {
		name       string
		form       PostForm
		wantRemove bool
	}{
		{"keep cover", PostForm{Title: "T"}, false},
		{"remove cover", PostForm{Title: "T", RemoveCover: true}, true},
		{"replace cover", PostForm{Title: "T", RemoveCover: true, Cover: NewFile("c.jpg", []byte{0xff, 0xd8, 0xff})}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/blogs/42" {
					t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
				}
				if err := r.ParseMultipartForm(1 << 20); err != nil {
					t.Errorf("parse multipart: %v", err)
				}
				if got := r.FormValue(MethodOverrideField); got != "PUT" {
					t.Errorf("_method = %q", got)
				}
				_, gotRemove := r.MultipartForm.Value["remove_cover"]
				if gotRemove != tt.wantRemove {
					t.Errorf("remove_cover present = %v, want %v", gotRemove, tt.wantRemove)
				}
				io.WriteString(w, `{"status":true,"data":null}`)
			})
			res, err := c.UpdatePost(context.Background(), "42", tt.form)
			if err != nil {
				t.Fatalf("UpdatePost: %v", err)
			}
			if res.Post != nil {
				t.Fatalf("expected no post in result, got %+v", res.Post)
			}
		})
	}
}

func TestValidationErrorSurfacesFirstFieldMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"status":false,"message":"The given data was invalid.","errors":{"title":["required"],"content":["too short"]}}`)
	})

	_, err := c.CreatePost(context.Background(), PostForm{})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	field, msg, ok := ve.First()
	if !ok || field != "title" || msg != "required" {
		t.Fatalf("unexpected first error %q %q %v", field, msg, ok)
	}
	if got := UserMessage(err); got != "required" {
		t.Fatalf("UserMessage = %q, want required", got)
	}
	var ae *APIError
	if !errors.As(err, &ae) || ae.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected APIError with 422, got %v", ae)
	}
}

func TestHTMLBodySurfacesGenericMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "<html><body>502 Bad Gateway</body></html>")
	})

	_, err := c.CreatePost(context.Background(), PostForm{Title: "x"})
	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if me.StatusCode != http.StatusBadGateway || !strings.Contains(me.Snippet, "Bad Gateway") {
		t.Fatalf("unexpected malformed details %+v", me)
	}
	if got := UserMessage(err); got != GenericFailureMessage {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestStatusFalseIsAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":false,"message":"Not allowed"}`)
	})
	_, err := c.CreatePost(context.Background(), PostForm{})
	var ae *APIError
	if !errors.As(err, &ae) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if got := UserMessage(err); got != "Not allowed" {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestServerErrorWithoutMessageIsGeneric(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, `{"status":false}`)
	})
	_, err := c.CreatePost(context.Background(), PostForm{})
	if got := UserMessage(err); got != GenericFailureMessage {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(Config{BaseURL: url})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.CreatePost(context.Background(), PostForm{})
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if got := UserMessage(err); got != NetworkFailureMessage {
		t.Fatalf("UserMessage = %q", got)
	}
}

func TestListTags(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tags" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{"status":true,"data":["beach",{"name":"city"}]}`)
	})
	tags, err := c.ListTags(context.Background())
	if err != nil {
		t.Fatalf("ListTags: %v", err)
	}
	if diff := cmp.Diff([]string{"beach", "city"}, tags); diff != "" {
		t.Fatalf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestUserMessageNil(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Fatalf("expected empty message, got %q", got)
	}
	if got := UserMessage(errors.New("boom")); got != GenericFailureMessage {
		t.Fatalf("expected generic message, got %q", got)
	}
}
