package alert

import (
	"context"
	"log/slog"
)

// LogPublisher only writes alerts to the structured log. Used for local runs.
type LogPublisher struct{}

func (LogPublisher) Publish(ctx context.Context, msg Message) error {
	slog.WarnContext(ctx, "DEVICE DISCONNECTED",
		"alert_id", msg.ID.String(),
		"device_id", msg.DeviceID,
		"reason", msg.Reason,
		"disconnected_at", msg.DisconnectedAt,
	)
	return nil
}
