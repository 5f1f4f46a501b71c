package sqlite

import (
	"context"
	"fmt"
	"time"

	"presence-monitor/internal/presence"
)

func (d *DB) Append(ctx context.Context, entry presence.LogEntry) error {
	const fn = "SQLite:Append"
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	_, err := d.db.ExecContext(ctx, `
		INSERT INTO device_event_log (
			device_id,
			event_time,
			kind,
			planned,
			recorded_at
		) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (device_id, event_time) DO NOTHING
	`, entry.DeviceID, micros(entry.EventTime), string(entry.Kind), entry.Planned, micros(entry.RecordedAt))
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return nil
}

func (d *DB) Between(ctx context.Context, deviceID string, start, end time.Time) ([]presence.LogEntry, error) {
	const fn = "SQLite:Between"
	ctx, cancel := d.bounded(ctx)
	defer cancel()

	rows, err := d.db.QueryContext(ctx, `
		SELECT
			device_id,
			event_time,
			kind,
			planned,
			recorded_at
		FROM device_event_log
		WHERE device_id = ?
		AND event_time >= ?
		AND event_time <= ?
		ORDER BY event_time ASC
	`, deviceID, micros(start), micros(end))
	if err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	defer rows.Close()

	entries := []presence.LogEntry{}
	for rows.Next() {
		var (
			e                     presence.LogEntry
			kind                  string
			eventTime, recordedAt int64
		)
		if err := rows.Scan(&e.DeviceID, &eventTime, &kind, &e.Planned, &recordedAt); err != nil {
			return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
		}
		e.Kind = presence.Kind(kind)
		e.EventTime = fromMicros(eventTime)
		e.RecordedAt = fromMicros(recordedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	return entries, nil
}
