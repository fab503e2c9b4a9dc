// ABOUTME: SQLite journal of submission outcomes: what was sent for which post, when, and how it ended.
// ABOUTME: Content itself is never stored; only sizes and counts are recorded.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"
)

const timeLayout = "2006-01-02T15:04:05.000Z07:00"

// Entry is one submission attempt.
type Entry struct {
	ID         string
	At         time.Time
	Action     string
	Surface    string
	ResourceID string
	Title      string
	OK         bool
	Message    string
	// Images is the number of inline images resolved into the content.
	Images       int
	ContentBytes int
}

// Journal is a SQLite-backed submission log.
type Journal struct {
	db *sql.DB
}

// Open opens or creates the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS submissions (
			id TEXT PRIMARY KEY,
			at TEXT NOT NULL,
			action TEXT NOT NULL,
			surface TEXT NOT NULL,
			resource_id TEXT NOT NULL,
			title TEXT NOT NULL,
			ok INTEGER NOT NULL,
			message TEXT NOT NULL,
			images INTEGER NOT NULL,
			content_bytes INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS submissions_at ON submissions(at);`

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Journal{db: db}, nil
}

// Close closes the database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record appends e. Missing ID and At are filled in.
func (j *Journal) Record(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = ulid.Make().String()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	ok := 0
	if e.OK {
		ok = 1
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO submissions (id, at, action, surface, resource_id, title, ok, message, images, content_bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.At.UTC().Format(timeLayout),
		e.Action,
		e.Surface,
		e.ResourceID,
		e.Title,
		ok,
		e.Message,
		e.Images,
		e.ContentBytes,
	)
	if err != nil {
		return fmt.Errorf("insert submission: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, at, action, surface, resource_id, title, ok, message, images, content_bytes
		 FROM submissions ORDER BY at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query submissions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		var ok int
		if err := rows.Scan(&e.ID, &at, &e.Action, &e.Surface, &e.ResourceID, &e.Title, &ok, &e.Message, &e.Images, &e.ContentBytes); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		e.At, err = time.Parse(timeLayout, at)
		if err != nil {
			return nil, fmt.Errorf("parse submission time %q: %w", at, err)
		}
		e.OK = ok == 1
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return entries, nil
}
