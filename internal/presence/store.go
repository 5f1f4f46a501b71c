package presence

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("device status not found")

// ScanQuery selects one page of pending devices whose window started at or
// before Cutoff, ordered by device id and starting strictly after After.
type ScanQuery struct {
	Cutoff time.Time
	After  string
	Limit  int
}

// StatusStore is the persistence contract for DeviceStatus rows. Every write is
// conditional and all-or-nothing; a false result means the guard did not hold.
type StatusStore interface {
	Get(ctx context.Context, deviceID string) (DeviceStatus, bool, error)
	Upsert(ctx context.Context, t Transition) (bool, error)
	ScanPending(ctx context.Context, q ScanQuery) ([]DeviceStatus, error)
	// ClaimEpisode leases the pending episode to one sweep until `until`.
	ClaimEpisode(ctx context.Context, deviceID string, episode, now, until time.Time) (bool, error)
	// ConfirmEpisode moves a still-pending episode to DISCONNECTED and records it as notified.
	ConfirmEpisode(ctx context.Context, deviceID string, episode time.Time) (bool, error)
	// ReleaseEpisode drops the lease so the next sweep retries the episode.
	ReleaseEpisode(ctx context.Context, deviceID string, episode time.Time) error
}

type EventLog interface {
	// Append is idempotent on (DeviceID, EventTime): the first delivery wins.
	Append(ctx context.Context, entry LogEntry) error
	Between(ctx context.Context, deviceID string, start, end time.Time) ([]LogEntry, error)
}

// Appender is the write half of EventLog, enough for sinks that cannot be queried.
type Appender interface {
	Append(ctx context.Context, entry LogEntry) error
}
