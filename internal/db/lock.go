package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

var ErrLockFailed = errors.New("advisory lock failed")

// SweepLockKey is the advisory lock id shared by every replica that sweeps.
const SweepLockKey int64 = 0x70726573656e6365

// AdvisoryLocker gives cross-process mutual exclusion through a session-level
// Postgres advisory lock. The lock lives on a dedicated pooled connection that
// is held until the returned unlock func is called.
type AdvisoryLocker struct {
	db  *DB
	key int64
}

func (db *DB) Locker(key int64) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, key: key}
}

func (l *AdvisoryLocker) TryLock(ctx context.Context) (func(), bool, error) {
	const fn = "AdvisoryLocker:TryLock"
	conn, err := l.db.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("%s:%w:%w", fn, ErrLockFailed, err)
	}

	qctx, cancel := l.db.bounded(ctx)
	defer cancel()
	var locked bool
	if err := conn.QueryRow(qctx, `SELECT pg_try_advisory_lock($1)`, l.key).Scan(&locked); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("%s:%w:%w", fn, ErrLockFailed, err)
	}
	if !locked {
		conn.Release()
		return nil, false, nil
	}

	unlock := func() {
		uctx, cancel := l.db.bounded(context.Background())
		defer cancel()
		if _, err := conn.Exec(uctx, `SELECT pg_advisory_unlock($1)`, l.key); err != nil {
			slog.Error("Advisory unlock failed, closing connection", "error", err)
			// closing the session is what releases a session-level lock
			_ = conn.Conn().Close(uctx)
		}
		conn.Release()
	}
	return unlock, true, nil
}
