// ABOUTME: Admin HTTP server for the blog editor: pages, editor session endpoints, and static assets.
// ABOUTME: One chi router with request ids, structured request logs, panic recovery, and gzip.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog"

	"github.com/2389-research/listingdesk/backend"
	"github.com/2389-research/listingdesk/blog"
	"github.com/2389-research/listingdesk/editor"
	"github.com/2389-research/listingdesk/journal"
	"github.com/2389-research/listingdesk/preview"
)

const defaultMaxUpload = 20 << 20

// PostSource loads posts and tag suggestions from the backend.
type PostSource interface {
	GetPost(ctx context.Context, id string) (*backend.Post, error)
	ListTags(ctx context.Context) ([]string, error)
}

// History lists recent submissions.
type History interface {
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Server is the admin HTTP server.
type Server struct {
	sessions  *editor.Store
	posts     PostSource
	submitter *blog.Submitter
	history   History
	preview   *preview.Renderer
	templates *TemplateEngine
	handler   http.Handler
	addr      string
	maxUpload int64
	log       zerolog.Logger
}

// ServerConfig holds the configuration and collaborators of the server.
type ServerConfig struct {
	Addr string // listen address (default: "127.0.0.1:8080")
	// MaxUploadBytes bounds one uploaded image or cover (default: 20 MiB).
	MaxUploadBytes int64

	Sessions  *editor.Store
	Posts     PostSource
	Submitter *blog.Submitter
	// History is optional; the home page shows no journal without it.
	History History
	Logger  zerolog.Logger
}

// NewServer creates a new Server with the given configuration.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8080"
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUpload
	}
	if cfg.Sessions == nil {
		return nil, errors.New("Sessions must not be nil")
	}
	if cfg.Posts == nil {
		return nil, errors.New("Posts must not be nil")
	}
	if cfg.Submitter == nil {
		return nil, errors.New("Submitter must not be nil")
	}

	tmpl, err := NewTemplateEngine()
	if err != nil {
		return nil, fmt.Errorf("initializing templates: %w", err)
	}

	s := &Server{
		sessions:  cfg.Sessions,
		posts:     cfg.Posts,
		submitter: cfg.Submitter,
		history:   cfg.History,
		preview:   preview.New(),
		templates: tmpl,
		addr:      cfg.Addr,
		maxUpload: cfg.MaxUploadBytes,
		log:       cfg.Logger,
	}

	router, err := s.buildRouter()
	if err != nil {
		return nil, err
	}
	s.handler = gzhttp.GzipHandler(router)
	return s, nil
}

// ServeHTTP delegates to the router, satisfying http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       2 * time.Minute,
		WriteTimeout:      2 * time.Minute,
		IdleTimeout:       2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.addr).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildRouter constructs the chi router with all routes and middleware.
func (s *Server) buildRouter() (chi.Router, error) {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/", s.handleHome)
	r.Get("/health", s.handleHealth)

	staticFS, err := fs.Sub(StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("static sub-FS: %w", err)
	}
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticFS))))

	r.Route("/posts", func(r chi.Router) {
		r.Get("/new", s.handleNewPost)
		r.Get("/{postID}/edit", s.handleEditPost)
	})

	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Use(s.sessionCtx)
		r.Post("/text", s.handleSyncText)
		r.Post("/images", s.handleInsertImage)
		r.Get("/status", s.handleStatus)
		r.Post("/preview", s.handlePreview)
		r.Post("/submit", s.handleSubmit)
		r.Post("/discard", s.handleDiscard)
	})

	return r, nil
}

// handleHealth reports liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "sessions": s.sessions.Len()})
}

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
