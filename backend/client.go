// ABOUTME: Token-authenticated HTTP client for the platform REST backend.
// ABOUTME: Every call decodes the standard envelope and classifies failures into typed errors.

package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "listingdesk"
	maxResponseBytes = 8 << 20
)

// ErrNoBaseURL is returned by New when no base URL is configured.
var ErrNoBaseURL = errors.New("backend base URL is required")

// Config holds the connection settings for the backend.
type Config struct {
	BaseURL   string
	Token     string
	Timeout   time.Duration
	UserAgent string
}

// Client talks to the REST backend. It is safe for concurrent use.
type Client struct {
	baseURL   string
	token     string
	userAgent string
	http      *http.Client
	log       zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = defaultUserAgent
	}

	c := &Client{
		baseURL:   base,
		token:     cfg.Token,
		userAgent: ua,
		http:      &http.Client{Timeout: timeout},
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends one request and returns the decoded envelope of a successful
// response. body may be nil.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string) (*Envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("method", method).Str("path", path).Msg("backend request failed")
		return nil, &NetworkError{
			BaseError: BaseError{Message: fmt.Sprintf("%s %s", method, path), Cause: err},
			Method:    method,
			Path:      path,
		}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &NetworkError{
			BaseError: BaseError{Message: fmt.Sprintf("reading %s %s response", method, path), Cause: err},
			Method:    method,
			Path:      path,
		}
	}

	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Int("bytes", len(raw)).
		Dur("duration", time.Since(start)).
		Msg("backend request")

	return decodeEnvelope(resp.StatusCode, resp.Header.Get("Content-Type"), raw)
}

// decodeEnvelope interprets a response body. Bodies that are not a JSON
// object yield a MalformedResponseError regardless of status.
func decodeEnvelope(status int, contentType string, raw []byte) (*Envelope, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, newMalformed(status, contentType, raw, nil)
	}

	var env Envelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, newMalformed(status, contentType, raw, err)
	}

	if len(env.Errors) > 0 {
		msg := "validation failed"
		if env.Message != "" {
			msg = env.Message
		}
		return nil, &ValidationError{
			APIError: APIError{
				BaseError:     BaseError{Message: fmt.Sprintf("%s (status %d)", msg, status)},
				StatusCode:    status,
				ServerMessage: env.Message,
			},
			Fields: env.Errors,
		}
	}

	if status < 200 || status > 299 || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(status)
		}
		return nil, &APIError{
			BaseError:     BaseError{Message: fmt.Sprintf("backend error (status %d): %s", status, msg)},
			StatusCode:    status,
			ServerMessage: env.Message,
		}
	}

	return &env, nil
}

// decodeData unmarshals the envelope's data into v.
func decodeData(env *Envelope, v any) error {
	if len(env.Data) == 0 || bytes.Equal(bytes.TrimSpace(env.Data), []byte("null")) {
		return newMalformed(http.StatusOK, "application/json", nil, errors.New("response has no data"))
	}
	if err := json.Unmarshal(env.Data, v); err != nil {
		return newMalformed(http.StatusOK, "application/json", env.Data, err)
	}
	return nil
}
