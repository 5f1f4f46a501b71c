package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"presence-monitor/internal/presence"

	"github.com/georgysavva/scany/pgxscan"
)

var (
	ErrInsertFailed = errors.New("insert operation failed")
	ErrSelectFailed = errors.New("select operation failed")
	ErrUpdateFailed = errors.New("update operation failed")
)

const statusColumns = `
	device_id,
	state,
	last_event_time,
	pending_since,
	last_notified_event_time,
	claimed_until,
	updated_at`

type statusRow struct {
	DeviceID              string     `db:"device_id"`
	State                 string     `db:"state"`
	LastEventTime         time.Time  `db:"last_event_time"`
	PendingSince          *time.Time `db:"pending_since"`
	LastNotifiedEventTime *time.Time `db:"last_notified_event_time"`
	ClaimedUntil          *time.Time `db:"claimed_until"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

func (r statusRow) toStatus() presence.DeviceStatus {
	return presence.DeviceStatus{
		DeviceID:              r.DeviceID,
		State:                 presence.State(r.State),
		LastEventTime:         r.LastEventTime.UTC(),
		PendingSince:          utcPtr(r.PendingSince),
		LastNotifiedEventTime: utcPtr(r.LastNotifiedEventTime),
		ClaimedUntil:          utcPtr(r.ClaimedUntil),
		UpdatedAt:             r.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func (db *DB) Get(ctx context.Context, deviceID string) (presence.DeviceStatus, bool, error) {
	const fn = "DB:Get"
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	var row statusRow
	err := pgxscan.Get(ctx, db.pool, &row, `
		SELECT`+statusColumns+`
		FROM device_status
		WHERE device_id = $1
	`, deviceID)
	if err != nil {
		if pgxscan.NotFound(err) {
			return presence.DeviceStatus{}, false, nil
		}
		return presence.DeviceStatus{}, false, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return row.toStatus(), true, nil
}

// Upsert creates the row or advances it; the WHERE clause on the conflict
// branch is the forward-only guard, so a stale transition affects no rows.
func (db *DB) Upsert(ctx context.Context, t presence.Transition) (bool, error) {
	const fn = "DB:Upsert"
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx, `
		INSERT INTO device_status (
			device_id,
			state,
			last_event_time,
			pending_since,
			updated_at
		) VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (device_id) DO UPDATE SET
			state = EXCLUDED.state,
			last_event_time = EXCLUDED.last_event_time,
			pending_since = EXCLUDED.pending_since,
			last_notified_event_time = CASE
				WHEN $5::boolean THEN NULL
				ELSE device_status.last_notified_event_time
			END,
			claimed_until = NULL,
			updated_at = now()
		WHERE device_status.last_event_time < EXCLUDED.last_event_time
	`, t.DeviceID, string(t.State), t.EventTime, t.PendingSince, t.ClearNotified)
	if err != nil {
		return false, fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (db *DB) ScanPending(ctx context.Context, q presence.ScanQuery) ([]presence.DeviceStatus, error) {
	const fn = "DB:ScanPending"
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	var rows []statusRow
	err := pgxscan.Select(ctx, db.pool, &rows, `
		SELECT`+statusColumns+`
		FROM device_status
		WHERE state = 'PENDING_DISCONNECT'
		AND pending_since <= $1
		AND device_id > $2
		ORDER BY device_id ASC
		LIMIT $3
	`, q.Cutoff, q.After, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	page := make([]presence.DeviceStatus, 0, len(rows))
	for _, r := range rows {
		page = append(page, r.toStatus())
	}
	return page, nil
}

func (db *DB) ClaimEpisode(ctx context.Context, deviceID string, episode, now, until time.Time) (bool, error) {
	const fn = "DB:ClaimEpisode"
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx, `
		UPDATE device_status
		SET claimed_until = $4
		WHERE device_id = $1
		AND state = 'PENDING_DISCONNECT'
		AND last_event_time = $2
		AND last_notified_event_time IS DISTINCT FROM last_event_time
		AND (claimed_until IS NULL OR claimed_until <= $3)
	`, deviceID, episode, now, until)
	if err != nil {
		return false, fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (db *DB) ConfirmEpisode(ctx context.Context, deviceID string, episode time.Time) (bool, error) {
	const fn = "DB:ConfirmEpisode"
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	tag, err := db.pool.Exec(ctx, `
		UPDATE device_status
		SET state = 'DISCONNECTED',
			last_notified_event_time = last_event_time,
			pending_since = NULL,
			claimed_until = NULL,
			updated_at = now()
		WHERE device_id = $1
		AND state = 'PENDING_DISCONNECT'
		AND last_event_time = $2
	`, deviceID, episode)
	if err != nil {
		return false, fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (db *DB) ReleaseEpisode(ctx context.Context, deviceID string, episode time.Time) error {
	const fn = "DB:ReleaseEpisode"
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx, `
		UPDATE device_status
		SET claimed_until = NULL
		WHERE device_id = $1
		AND state = 'PENDING_DISCONNECT'
		AND last_event_time = $2
	`, deviceID, episode)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return nil
}

var _ presence.StatusStore = (*DB)(nil)
