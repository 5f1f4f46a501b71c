package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"presence-monitor/internal/presence"
)

const selectStatus = `
	SELECT
		device_id,
		state,
		last_event_time,
		pending_since,
		last_notified_event_time,
		claimed_until,
		updated_at
	FROM device_status`

type scanner interface {
	Scan(dest ...any) error
}

func scanStatus(s scanner) (presence.DeviceStatus, error) {
	var (
		st                     presence.DeviceStatus
		state                  string
		last, updated          int64
		pendingSince, notified sql.NullInt64
		claimed                sql.NullInt64
	)
	if err := s.Scan(&st.DeviceID, &state, &last, &pendingSince, &notified, &claimed, &updated); err != nil {
		return presence.DeviceStatus{}, err
	}
	st.State = presence.State(state)
	st.LastEventTime = fromMicros(last)
	st.PendingSince = fromNullMicros(pendingSince)
	st.LastNotifiedEventTime = fromNullMicros(notified)
	st.ClaimedUntil = fromNullMicros(claimed)
	st.UpdatedAt = fromMicros(updated)
	return st, nil
}

func (d *DB) Get(ctx context.Context, deviceID string) (presence.DeviceStatus, bool, error) {
	const fn = "SQLite:Get"
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	st, err := scanStatus(d.db.QueryRowContext(ctx, selectStatus+` WHERE device_id = ?`, deviceID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return presence.DeviceStatus{}, false, nil
		}
		return presence.DeviceStatus{}, false, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return st, true, nil
}

func (d *DB) Upsert(ctx context.Context, t presence.Transition) (bool, error) {
	const fn = "SQLite:Upsert"
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		INSERT INTO device_status (
			device_id,
			state,
			last_event_time,
			pending_since,
			updated_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (device_id) DO UPDATE SET
			state = excluded.state,
			last_event_time = excluded.last_event_time,
			pending_since = excluded.pending_since,
			last_notified_event_time = CASE
				WHEN ? THEN NULL
				ELSE device_status.last_notified_event_time
			END,
			claimed_until = NULL,
			updated_at = excluded.updated_at
		WHERE device_status.last_event_time < excluded.last_event_time
	`, t.DeviceID, string(t.State), micros(t.EventTime), nullMicros(t.PendingSince), micros(time.Now()), t.ClearNotified)
	if err != nil {
		return false, fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return affectedOne(res)
}

func (d *DB) ScanPending(ctx context.Context, q presence.ScanQuery) ([]presence.DeviceStatus, error) {
	const fn = "SQLite:ScanPending"
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, selectStatus+`
		WHERE state = 'PENDING_DISCONNECT'
		AND pending_since <= ?
		AND device_id > ?
		ORDER BY device_id ASC
		LIMIT ?
	`, micros(q.Cutoff), q.After, q.Limit)
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	defer rows.Close()

	var page []presence.DeviceStatus
	for rows.Next() {
		st, err := scanStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
		}
		page = append(page, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return page, nil
}

func (d *DB) ClaimEpisode(ctx context.Context, deviceID string, episode, now, until time.Time) (bool, error) {
	const fn = "SQLite:ClaimEpisode"
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		UPDATE device_status
		SET claimed_until = ?
		WHERE device_id = ?
		AND state = 'PENDING_DISCONNECT'
		AND last_event_time = ?
		AND last_notified_event_time IS NOT last_event_time
		AND (claimed_until IS NULL OR claimed_until <= ?)
	`, micros(until), deviceID, micros(episode), micros(now))
	if err != nil {
		return false, fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return affectedOne(res)
}

func (d *DB) ConfirmEpisode(ctx context.Context, deviceID string, episode time.Time) (bool, error) {
	const fn = "SQLite:ConfirmEpisode"
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	res, err := d.db.ExecContext(ctx, `
		UPDATE device_status
		SET state = 'DISCONNECTED',
			last_notified_event_time = last_event_time,
			pending_since = NULL,
			claimed_until = NULL,
			updated_at = ?
		WHERE device_id = ?
		AND state = 'PENDING_DISCONNECT'
		AND last_event_time = ?
	`, micros(time.Now()), deviceID, micros(episode))
	if err != nil {
		return false, fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return affectedOne(res)
}

func (d *DB) ReleaseEpisode(ctx context.Context, deviceID string, episode time.Time) error {
	const fn = "SQLite:ReleaseEpisode"
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		UPDATE device_status
		SET claimed_until = NULL
		WHERE device_id = ?
		AND state = 'PENDING_DISCONNECT'
		AND last_event_time = ?
	`, deviceID, micros(episode))
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrUpdateFailed, err)
	}
	return nil
}
