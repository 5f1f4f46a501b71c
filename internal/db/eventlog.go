package db

import (
	"context"
	"fmt"
	"time"

	"presence-monitor/internal/presence"

	"github.com/georgysavva/scany/pgxscan"
	"github.com/jackc/pgx/v4"
)

type logRow struct {
	DeviceID   string    `db:"device_id"`
	EventTime  time.Time `db:"event_time"`
	Kind       string    `db:"kind"`
	Planned    bool      `db:"planned"`
	RecordedAt time.Time `db:"recorded_at"`
}

// Append records an accepted event. A second delivery of the same
// (device_id, event_time) is a no-op.
func (db *DB) Append(ctx context.Context, entry presence.LogEntry) error {
	const fn = "DB:Append"
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	_, err := db.pool.Exec(ctx, `
		INSERT INTO device_event_log (
			device_id,
			event_time,
			kind,
			planned,
			recorded_at
		) VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (device_id, event_time) DO NOTHING
	`, entry.DeviceID, entry.EventTime, string(entry.Kind), entry.Planned, entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrInsertFailed, err)
	}
	return nil
}

func (db *DB) Between(ctx context.Context, deviceID string, start, end time.Time) ([]presence.LogEntry, error) {
	const fn = "DB:Between"
	ctx, cancel := db.bounded(ctx)
	defer cancel()

	var rows []logRow
	err := pgxscan.Select(ctx, db.pool, &rows, `
			SELECT
				device_id,
				event_time,
				kind,
				planned,
				recorded_at
			FROM device_event_log
			WHERE device_id = $1
			AND event_time >= $2
			AND event_time <= $3
			ORDER BY event_time ASC
		`, deviceID, start, end)
	if err != nil {
		if err == pgx.ErrNoRows {
			return []presence.LogEntry{}, nil
		}
		return nil, fmt.Errorf("%s:%w:%w", fn, ErrSelectFailed, err)
	}
	entries := make([]presence.LogEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, presence.LogEntry{
			DeviceID:   r.DeviceID,
			EventTime:  r.EventTime.UTC(),
			Kind:       presence.Kind(r.Kind),
			Planned:    r.Planned,
			RecordedAt: r.RecordedAt.UTC(),
		})
	}
	return entries, nil
}

var _ presence.EventLog = (*DB)(nil)
