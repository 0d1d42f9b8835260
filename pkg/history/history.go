// Package history records generation dispatches in a local SQLite ledger.
//
// Every analysis or synthesis the pipeline sends to the model is written as
// a [Record] when dispatched and updated when it completes, fails or is
// found stale (a newer dispatch for the same slot superseded it). The ledger
// backs the `recompose history` command and is purely informational: the
// reconciliation store, not the ledger, decides which result wins.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Kind is the type of generation call.
type Kind string

const (
	KindAnalysis  Kind = "analysis"
	KindSynthesis Kind = "synthesis"
	KindReview    Kind = "review"
)

// Status is the lifecycle state of a record.
type Status string

const (
	StatusDispatched Status = "dispatched"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusStale      Status = "stale"
)

// Record is one generation dispatch.
type Record struct {
	ID        int64     `json:"id"`
	Token     int64     `json:"token"`
	Producer  string    `json:"producer"`
	Slot      string    `json:"slot"`
	Kind      Kind      `json:"kind"`
	Prompt    string    `json:"prompt,omitempty"`
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Duration is the time between dispatch and the last update.
func (r Record) Duration() time.Duration { return r.UpdatedAt.Sub(r.CreatedAt) }

// Filter narrows [Ledger.List].
type Filter struct {
	Producer string
	Kind     Kind
	Limit    int // 0 means 100
}

// Ledger is a SQLite-backed generation log.
type Ledger struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the ledger at path. ":memory:" opens a
// private in-memory database.
func Open(path string) (*Ledger, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("missing ledger path")
	}
	if p != ":memory:" {
		p = filepath.Clean(p)
		if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
			return nil, fmt.Errorf("create ledger dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Ledger{db: db, now: time.Now}, nil
}

func initSchema(db *sql.DB) error {
	_, err := db.Exec(`
CREATE TABLE IF NOT EXISTS generations (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	token      INTEGER NOT NULL,
	producer   TEXT NOT NULL,
	slot       TEXT NOT NULL,
	kind       TEXT NOT NULL,
	prompt     TEXT NOT NULL DEFAULT '',
	status     TEXT NOT NULL,
	error      TEXT NOT NULL DEFAULT '',
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_generations_slot ON generations(producer, slot, kind, token);
`)
	if err != nil {
		return fmt.Errorf("init ledger schema: %w", err)
	}
	return nil
}

// Close closes the database.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Dispatch records a new in-flight generation and returns its id.
func (l *Ledger) Dispatch(ctx context.Context, kind Kind, producer, slot string, token int64, prompt string) (int64, error) {
	ms := l.now().UnixMilli()
	res, err := l.db.ExecContext(ctx,
		`INSERT INTO generations (token, producer, slot, kind, prompt, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		token, producer, slot, string(kind), prompt, string(StatusDispatched), ms, ms)
	if err != nil {
		return 0, fmt.Errorf("record dispatch: %w", err)
	}
	return res.LastInsertId()
}

// Complete marks a dispatch as completed.
func (l *Ledger) Complete(ctx context.Context, id int64) error {
	return l.finish(ctx, id, StatusCompleted, "")
}

// Fail marks a dispatch as failed with cause.
func (l *Ledger) Fail(ctx context.Context, id int64, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return l.finish(ctx, id, StatusFailed, msg)
}

// MarkStale marks a dispatch whose result was superseded.
func (l *Ledger) MarkStale(ctx context.Context, id int64) error {
	return l.finish(ctx, id, StatusStale, "")
}

func (l *Ledger) finish(ctx context.Context, id int64, status Status, msg string) error {
	res, err := l.db.ExecContext(ctx,
		`UPDATE generations SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		string(status), msg, l.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update generation %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("generation %d: %w", id, sql.ErrNoRows)
	}
	return nil
}

// List returns records newest first.
func (l *Ledger) List(ctx context.Context, f Filter) ([]Record, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	var (
		where []string
		args  []any
	)
	if f.Producer != "" {
		where = append(where, "producer = ?")
		args = append(args, f.Producer)
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	q := `SELECT id, token, producer, slot, kind, prompt, status, error, created_at, updated_at FROM generations`
	if len(where) > 0 {
		q += " WHERE " + strings.Join(where, " AND ")
	}
	q += " ORDER BY id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			r                Record
			kind, status     string
			created, updated int64
		)
		if err := rows.Scan(&r.ID, &r.Token, &r.Producer, &r.Slot, &kind, &r.Prompt, &status, &r.Error, &created, &updated); err != nil {
			return nil, fmt.Errorf("scan generation: %w", err)
		}
		r.Kind, r.Status = Kind(kind), Status(status)
		r.CreatedAt, r.UpdatedAt = time.UnixMilli(created), time.UnixMilli(updated)
		out = append(out, r)
	}
	return out, rows.Err()
}
