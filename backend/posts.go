// ABOUTME: Blog post endpoints: fetch, create, update (POST with method override), and tag listing.
// ABOUTME: Create and update send multipart forms built from PostForm.

package backend

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
)

// Post is a blog post as returned by the backend.
type Post struct {
	ID        ResourceID `json:"id"`
	Title     string     `json:"title"`
	Subtitle  string     `json:"subtitle"`
	Content   string     `json:"content"`
	Tags      TagList    `json:"tags"`
	CoverURL  string     `json:"cover_url"`
	Slug      string     `json:"slug,omitempty"`
	CreatedAt string     `json:"created_at,omitempty"`
	UpdatedAt string     `json:"updated_at,omitempty"`
}

// Result is the outcome of a successful create or update.
type Result struct {
	// Post is nil when the backend acknowledged without returning the post.
	Post    *Post
	Message string
}

// GetPost fetches one post by id.
func (c *Client) GetPost(ctx context.Context, id string) (*Post, error) {
	env, err := c.do(ctx, http.MethodGet, "/blogs/"+url.PathEscape(id), nil, "")
	if err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	var p Post
	if err := decodeData(env, &p); err != nil {
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return &p, nil
}

// CreatePost submits a new post.
func (c *Client) CreatePost(ctx context.Context, form PostForm) (Result, error) {
	body, ct, err := form.encode(false)
	if err != nil {
		return Result{}, fmt.Errorf("create post: %w", err)
	}
	env, err := c.do(ctx, http.MethodPost, "/blogs", body, ct)
	if err != nil {
		return Result{}, fmt.Errorf("create post: %w", err)
	}
	return resultFrom(env), nil
}

// UpdatePost replaces the post with the given id. The transport is a POST
// carrying the method-override field.
func (c *Client) UpdatePost(ctx context.Context, id string, form PostForm) (Result, error) {
	body, ct, err := form.encode(true)
	if err != nil {
		return Result{}, fmt.Errorf("update post %s: %w", id, err)
	}
	env, err := c.do(ctx, http.MethodPost, "/blogs/"+url.PathEscape(id), body, ct)
	if err != nil {
		return Result{}, fmt.Errorf("update post %s: %w", id, err)
	}
	return resultFrom(env), nil
}

// ListTags returns the tag names known to the backend.
func (c *Client) ListTags(ctx context.Context) ([]string, error) {
	env, err := c.do(ctx, http.MethodGet, "/tags", nil, "")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	var tags TagList
	if err := decodeData(env, &tags); err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	return tags, nil
}

// resultFrom reads the post from the envelope if it holds one. A data field
// of another shape is not an error: the write already succeeded.
func resultFrom(env *Envelope) Result {
	res := Result{Message: env.Message}
	var p Post
	if len(env.Data) > 0 && decodeData(env, &p) == nil && (p.ID != "" || p.Title != "") {
		res.Post = &p
	}
	return res
}
