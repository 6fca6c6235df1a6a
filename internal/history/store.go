// Package history persists a delivery log for dispatched messages.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Status of one recorded delivery.
type Status string

const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Delivery is one row of the delivery log.
type Delivery struct {
	ID        string
	Endpoint  string
	Bytes     int
	Files     int
	Status    Status
	Error     string
	CreatedAt time.Time
	DoneAt    *time.Time
}

// Store is a SQLite-backed delivery log.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

func Open(dbPath string, logger *slog.Logger) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS deliveries (
		id          TEXT PRIMARY KEY,
		endpoint    TEXT NOT NULL,
		bytes       INTEGER DEFAULT 0,
		files       INTEGER DEFAULT 0,
		status      TEXT NOT NULL,
		error       TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		done_at     DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_deliveries_time ON deliveries(created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts a new delivery, normally in pending state.
func (s *Store) Record(ctx context.Context, d Delivery) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO deliveries (id, endpoint, bytes, files, status, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.Endpoint, d.Bytes, d.Files, d.Status, d.Error, d.CreatedAt,
	)
	return err
}

// Resolve marks a pending delivery terminal. Resolving an already
// resolved delivery is a no-op, so a late dispatcher callback cannot
// overwrite a recorded outcome.
func (s *Store) Resolve(ctx context.Context, id string, status Status, errMsg string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE deliveries SET status = ?, error = ?, done_at = ? WHERE id = ? AND status = ?`,
		status, errMsg, time.Now(), id, StatusPending,
	)
	return err
}

// Recent returns the latest deliveries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Delivery, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, endpoint, bytes, files, status, COALESCE(error, ''), created_at, done_at
		 FROM deliveries ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Delivery
	for rows.Next() {
		var d Delivery
		var doneAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.Endpoint, &d.Bytes, &d.Files, &d.Status, &d.Error, &d.CreatedAt, &doneAt); err != nil {
			return nil, err
		}
		if doneAt.Valid {
			t := doneAt.Time
			d.DoneAt = &t
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
