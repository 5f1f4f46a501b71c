package presence

import (
	"context"
	"log/slog"
	"time"
)

// MultiLog writes every entry to a primary EventLog and copies it to any number
// of secondary sinks. Only the primary is queried and only its errors are
// returned; a failing secondary sink is logged and otherwise ignored.
type MultiLog struct {
	primary EventLog
	sinks   []Appender
}

func NewMultiLog(primary EventLog, sinks ...Appender) *MultiLog {
	return &MultiLog{primary: primary, sinks: sinks}
}

func (m *MultiLog) Append(ctx context.Context, entry LogEntry) error {
	if err := m.primary.Append(ctx, entry); err != nil {
		return err
	}
	for _, s := range m.sinks {
		if err := s.Append(ctx, entry); err != nil {
			slog.WarnContext(ctx, "Secondary event log append failed",
				"device_id", entry.DeviceID,
				"error", err,
			)
		}
	}
	return nil
}

func (m *MultiLog) Between(ctx context.Context, deviceID string, start, end time.Time) ([]LogEntry, error) {
	return m.primary.Between(ctx, deviceID, start, end)
}

var _ EventLog = (*MultiLog)(nil)
