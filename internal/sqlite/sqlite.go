// Package sqlite is the embedded single-node backend for the status store and
// the event log. Timestamps are stored as Unix microseconds.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"presence-monitor/internal/presence"

	_ "modernc.org/sqlite"
)

var (
	ErrOpenFailed   = errors.New("open database failed")
	ErrSchemaFailed = errors.New("schema creation failed")
	ErrInsertFailed = errors.New("insert operation failed")
	ErrSelectFailed = errors.New("select operation failed")
	ErrUpdateFailed = errors.New("update operation failed")
)

const defaultTimeout = 5 * time.Second

type Config struct {
	Path    string
	Timeout time.Duration
}

type DB struct {
	db      *sql.DB
	timeout time.Duration
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS device_status (
		device_id                TEXT PRIMARY KEY,
		state                    TEXT NOT NULL,
		last_event_time          INTEGER NOT NULL,
		pending_since            INTEGER,
		last_notified_event_time INTEGER,
		claimed_until            INTEGER,
		updated_at               INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS device_status_pending_idx
		ON device_status (state, device_id)`,
	`CREATE TABLE IF NOT EXISTS device_event_log (
		device_id   TEXT NOT NULL,
		event_time  INTEGER NOT NULL,
		kind        TEXT NOT NULL,
		planned     INTEGER NOT NULL DEFAULT 0,
		recorded_at INTEGER NOT NULL,
		PRIMARY KEY (device_id, event_time)
	)`,
}

func Open(ctx context.Context, cfg Config) (*DB, error) {
	const fn = "SQLite:Open"
	path := cfg.Path
	if path == "" {
		path = "presence.db"
	}
	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrOpenFailed, err)
	}
	// one writer keeps the read-check-write statements serialised
	conn.SetMaxOpenConns(1)
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrOpenFailed, err)
	}
	for _, stmt := range schema {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.Close()
			return nil, fmt.Errorf("%s:%w:%w", fn, ErrSchemaFailed, err)
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	slog.InfoContext(ctx, "SQLite store ready", "path", path)
	return &DB{db: conn, timeout: timeout}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) Ping(ctx context.Context) error {
	ctx, cancel := d.bounded(ctx)
	defer cancel()
	return d.db.PingContext(ctx)
}

func (d *DB) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, d.timeout)
}

func micros(t time.Time) int64 {
	return t.UnixMicro()
}

func nullMicros(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.UnixMicro(), Valid: true}
}

func fromMicros(v int64) time.Time {
	return time.UnixMicro(v).UTC()
}

func fromNullMicros(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMicros(v.Int64)
	return &t
}

func affectedOne(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

var (
	_ presence.StatusStore = (*DB)(nil)
	_ presence.EventLog    = (*DB)(nil)
)
