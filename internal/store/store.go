// Package store persists rate-limit windows in SQLite so counters survive
// restarts and can be inspected from the CLI.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/valpere/codetran/internal/ratelimit"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; serialize instead of retrying on SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	-- rate_limit_windows holds one fixed window per client key
	CREATE TABLE IF NOT EXISTS rate_limit_windows (
		key TEXT PRIMARY KEY,
		count INTEGER NOT NULL,
		reset_at INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_windows_reset ON rate_limit_windows(reset_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Increment counts one hit for key, starting a new window when the stored
// one has expired at now. It runs as a single upsert.
func (s *Store) Increment(ctx context.Context, key string, now time.Time, window time.Duration) (ratelimit.Window, error) {
	nowNs := now.UnixNano()
	resetNs := now.Add(window).UnixNano()

	var count int
	var resetAt int64
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO rate_limit_windows (key, count, reset_at) VALUES (?, 1, ?)
		ON CONFLICT(key) DO UPDATE SET
			count = CASE WHEN rate_limit_windows.reset_at <= ? THEN 1 ELSE rate_limit_windows.count + 1 END,
			reset_at = CASE WHEN rate_limit_windows.reset_at <= ? THEN excluded.reset_at ELSE rate_limit_windows.reset_at END
		RETURNING count, reset_at`,
		key, resetNs, nowNs, nowNs).Scan(&count, &resetAt)
	if err != nil {
		return ratelimit.Window{}, err
	}

	return ratelimit.Window{
		Key:     key,
		Count:   count,
		ResetAt: time.Unix(0, resetAt).UTC(),
	}, nil
}

// ListWindows returns all stored windows, most recently reset last.
func (s *Store) ListWindows(ctx context.Context) ([]ratelimit.Window, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, count, reset_at FROM rate_limit_windows ORDER BY reset_at, key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []ratelimit.Window
	for rows.Next() {
		var w ratelimit.Window
		var resetAt int64
		if err := rows.Scan(&w.Key, &w.Count, &resetAt); err != nil {
			return nil, err
		}
		w.ResetAt = time.Unix(0, resetAt).UTC()
		results = append(results, w)
	}

	return results, rows.Err()
}

// Reset removes the window for key, or every window when key is empty.
func (s *Store) Reset(ctx context.Context, key string) (int64, error) {
	var res sql.Result
	var err error
	if key == "" {
		res, err = s.db.ExecContext(ctx, `DELETE FROM rate_limit_windows`)
	} else {
		res, err = s.db.ExecContext(ctx, `DELETE FROM rate_limit_windows WHERE key = ?`, key)
	}
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Prune drops windows that expired before now.
func (s *Store) Prune(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM rate_limit_windows WHERE reset_at <= ?`, now.UnixNano())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (s *Store) Close() error {
	return s.db.Close()
}
