// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists execution records: for each attempt at a
// unit of work, the composed cache key (or the reasons caching was
// off) and the canonical trace model. Records feed cross-run diffing;
// this is not a cache-key-to-artifact store.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/keyfold-org/keyfold/internal/paths"
)

const (
	sqliteDriverName = "sqlite"

	defaultBusyTimeout = 5 * time.Second
	defaultJournalMode = "WAL"
	defaultSynchronous = "FULL"
	defaultMaxBytes    = 64 << 20 // 64 MiB
)

// ErrNotFound indicates the requested execution record does not exist.
var ErrNotFound = errors.New("history: record not found")

var migrations = [...]string{
	`CREATE TABLE IF NOT EXISTS executions (
		id TEXT PRIMARY KEY,
		work TEXT NOT NULL,
		cache_key TEXT,
		reasons TEXT,
		trace BLOB NOT NULL,
		trace_digest TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);`,
	`CREATE INDEX IF NOT EXISTS idx_executions_work_created ON executions(work, created_at);`,
}

// Options controls how the history store is opened.
type Options struct {
	// DataDir is the base directory where the DB file lives. If empty
	// the platform-default keyfold data directory is used.
	DataDir string
	// MaxBytes places an upper bound on total DB size. Zero uses defaults.
	MaxBytes int64
	// Logger receives maintenance events. Nil uses slog.Default().
	Logger *slog.Logger
}

// Store wraps the SQLite connection holding execution records.
type Store struct {
	sql   *sql.DB
	log   *slog.Logger
	nowFn func() time.Time
}

// Record is one persisted execution attempt.
type Record struct {
	ID          string
	Work        string
	CacheKey    string // empty when caching was disabled
	Reasons     string // empty when caching was enabled
	Trace       []byte // canonical trace model JSON
	TraceDigest string
	CreatedAt   time.Time
}

// Open initialises the history store with required pragmas and schema.
func Open(ctx context.Context, opts Options) (*Store, error) {
	dir := opts.DataDir
	if dir == "" {
		dir = paths.DataDir()
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ensure data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "keyfold.db")
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)", filepath.ToSlash(dbPath), int(defaultBusyTimeout/time.Millisecond))

	conn, err := sql.Open(sqliteDriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := configureConnection(ctx, conn, opts); err != nil {
		_ = conn.Close()
		return nil, err
	}
	for _, stmt := range migrations {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("apply migration: %w", err)
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{sql: conn, log: logger, nowFn: time.Now}, nil
}

// Close shuts down the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

func configureConnection(ctx context.Context, conn *sql.DB, opts Options) error {
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	var pageSize int64 = 4096
	if err := conn.QueryRowContext(ctx, "PRAGMA page_size;").Scan(&pageSize); err != nil {
		pageSize = 4096
	}
	maxPages := maxBytes / pageSize
	if maxPages <= 0 {
		maxPages = defaultMaxBytes / 4096
	}

	statements := []string{
		fmt.Sprintf("PRAGMA journal_mode=%s;", defaultJournalMode),
		fmt.Sprintf("PRAGMA synchronous=%s;", defaultSynchronous),
		"PRAGMA foreign_keys=ON;",
		fmt.Sprintf("PRAGMA max_page_count=%d;", maxPages),
	}
	for _, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("execute pragma %q: %w", stmt, err)
		}
	}
	return nil
}

// Append stores a new execution record and returns its generated ID.
func (s *Store) Append(ctx context.Context, rec Record) (string, error) {
	if rec.Work == "" {
		return "", errors.New("history: record needs a work name")
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.nowFn()
	}
	_, err := s.sql.ExecContext(ctx,
		`INSERT INTO executions (id, work, cache_key, reasons, trace, trace_digest, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		id, rec.Work, rec.CacheKey, rec.Reasons, rec.Trace, rec.TraceDigest, createdAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("insert execution: %w", err)
	}
	return id, nil
}

// Get retrieves one execution record by ID.
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	row := s.sql.QueryRowContext(ctx,
		`SELECT id, work, cache_key, reasons, trace, trace_digest, created_at
		 FROM executions WHERE id = ?`, id)
	return scanRecord(row)
}

// List returns records for a work name, newest first. An empty work
// name lists everything.
func (s *Store) List(ctx context.Context, work string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT id, work, cache_key, reasons, trace, trace_digest, created_at
		FROM executions`
	args := []any{}
	if work != "" {
		query += ` WHERE work = ?`
		args = append(args, work)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Prune deletes all but the newest keep records of a work name,
// reclaiming room when the store approaches its page budget. It
// returns the number of records removed.
func (s *Store) Prune(ctx context.Context, work string, keep int) (int64, error) {
	if work == "" {
		return 0, errors.New("history: prune needs a work name")
	}
	if keep < 0 {
		keep = 0
	}
	res, err := s.sql.ExecContext(ctx,
		`DELETE FROM executions WHERE work = ? AND id NOT IN (
			SELECT id FROM executions WHERE work = ?
			ORDER BY created_at DESC, id DESC LIMIT ?
		)`, work, work, keep)
	if err != nil {
		return 0, fmt.Errorf("prune executions: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune executions: %w", err)
	}
	if removed > 0 {
		s.log.Info("pruned execution records", "work", work, "removed", removed, "kept", keep)
	}
	return removed, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var rec Record
	var cacheKey, reasons sql.NullString
	var createdAt int64
	err := row.Scan(&rec.ID, &rec.Work, &cacheKey, &reasons, &rec.Trace, &rec.TraceDigest, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, fmt.Errorf("scan execution: %w", err)
	}
	rec.CacheKey = cacheKey.String
	rec.Reasons = reasons.String
	rec.CreatedAt = time.UnixMilli(createdAt)
	return rec, nil
}
