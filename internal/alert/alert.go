package alert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	k "presence-monitor/internal/kafka"

	"github.com/google/uuid"
)

const ReasonUnplannedDisconnect = "unplanned_disconnect_confirmed"

const defaultTimeout = 10 * time.Second

var (
	ErrPublishFailed = errors.New("alert publish failed")
	ErrInvalidAlert  = errors.New("invalid alert")
)

// Message is one outbound disconnect notification. ID is fresh per attempt, so
// a receiver that sees two messages for the same DeviceID and DisconnectedAt is
// looking at a retried episode.
type Message struct {
	ID             uuid.UUID
	DeviceID       string
	Reason         string
	DisconnectedAt time.Time
	SentAt         time.Time
}

func (m Message) Payload() k.AlertPayload {
	return k.AlertPayload{
		ID:             m.ID.String(),
		DeviceID:       m.DeviceID,
		Reason:         m.Reason,
		DisconnectedAt: m.DisconnectedAt.UnixMilli(),
		SentAt:         m.SentAt.UnixMilli(),
	}
}

// Publisher is the notification channel.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

type Config struct {
	Publisher Publisher
	// Timeout bounds a single Notify call.
	Timeout time.Duration
	Now     func() time.Time
}

// Dispatcher wraps a Publisher with a bounded, stateless notify call. It does
// not deduplicate; callers only commit an episode as notified after success.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	now       func() time.Time
}

func New(cfg Config) *Dispatcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{
		publisher: cfg.Publisher,
		timeout:   timeout,
		now:       now,
	}
}

func (d *Dispatcher) Notify(ctx context.Context, deviceID, reason string, episodeTime time.Time) error {
	const fn = "Dispatcher:Notify"
	if deviceID == "" || episodeTime.IsZero() {
		return fmt.Errorf("%s:%w: device %q episode %s", fn, ErrInvalidAlert, deviceID, episodeTime)
	}
	msg := Message{
		ID:             uuid.New(),
		DeviceID:       deviceID,
		Reason:         reason,
		DisconnectedAt: episodeTime.UTC(),
		SentAt:         d.now().UTC(),
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	if err := d.publisher.Publish(ctx, msg); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrPublishFailed, err)
	}
	slog.InfoContext(ctx, "Disconnect alert sent",
		"alert_id", msg.ID.String(),
		"device_id", deviceID,
		"reason", reason,
		"disconnected_at", msg.DisconnectedAt,
	)
	return nil
}
