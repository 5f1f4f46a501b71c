package parser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"presence-monitor/internal/metrics"
	"presence-monitor/internal/presence"
)

var (
	ErrLogAppend   = errors.New("event log append failed")
	ErrStatusLoad  = errors.New("status load failed")
	ErrStatusWrite = errors.New("status write failed")
)

type Config struct {
	Store   presence.StatusStore
	Log     presence.Appender
	Metrics *metrics.Metrics
	// Now stamps RecordedAt on log entries; defaults to time.Now.
	Now func() time.Time
}

// Parser turns raw presence events into status transitions. It holds no
// per-device state; the store's forward-only conditional write is what
// serialises concurrent deliveries for the same device.
type Parser struct {
	store   presence.StatusStore
	log     presence.Appender
	metrics *metrics.Metrics
	now     func() time.Time
}

func New(cfg Config) *Parser {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Parser{
		store:   cfg.Store,
		log:     cfg.Log,
		metrics: cfg.Metrics,
		now:     now,
	}
}

// Ingest applies one event. Malformed events return an error matching
// presence.ErrMalformedEvent and must not be retried; any other error means the
// store was unavailable and nothing was committed to the status row.
func (p *Parser) Ingest(ctx context.Context, event presence.Event) (presence.Outcome, error) {
	const fn = "Parser:Ingest"
	if err := event.Validate(); err != nil {
		p.metrics.EventMalformed()
		slog.WarnContext(ctx, "Malformed event, dropping",
			"error", err,
			"device_id", event.DeviceID,
			"kind", event.Kind,
			"event_time", event.EventTime,
		)
		return presence.OutcomeUnknown, err
	}
	event = event.Normalize()

	// stale deliveries are logged too; the log itself dedupes on (device, time)
	if err := p.log.Append(ctx, presence.NewLogEntry(event, p.now())); err != nil {
		return presence.OutcomeUnknown, fmt.Errorf("%s:%w:%w", fn, ErrLogAppend, err)
	}

	current, exists, err := p.store.Get(ctx, event.DeviceID)
	if err != nil {
		return presence.OutcomeUnknown, fmt.Errorf("%s:%w:%w", fn, ErrStatusLoad, err)
	}
	if exists && !event.EventTime.After(current.LastEventTime) {
		p.stale(ctx, event, current.LastEventTime)
		return presence.OutcomeStale, nil
	}

	transition, outcome := presence.TransitionFor(event)
	applied, err := p.store.Upsert(ctx, transition)
	if err != nil {
		return presence.OutcomeUnknown, fmt.Errorf("%s:%w:%w", fn, ErrStatusWrite, err)
	}
	if !applied {
		// a newer event for the same device won the conditional write
		p.stale(ctx, event, current.LastEventTime)
		return presence.OutcomeStale, nil
	}

	p.metrics.EventIngested(outcome.String())
	slog.InfoContext(ctx, "Device status updated",
		"device_id", event.DeviceID,
		"outcome", outcome.String(),
		"state", transition.State,
		"event_time", event.EventTime,
	)
	return outcome, nil
}

func (p *Parser) stale(ctx context.Context, event presence.Event, lastSeen time.Time) {
	p.metrics.EventIngested(presence.OutcomeStale.String())
	slog.InfoContext(ctx, "Stale event detected, skipping",
		"device_id", event.DeviceID,
		"event_time", event.EventTime,
		"last_seen", lastSeen,
	)
}
