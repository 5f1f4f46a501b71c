package presence

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindConnected    Kind = "CONNECTED"
	KindDisconnected Kind = "DISCONNECTED"
)

// ErrMalformedEvent matches every *MalformedEventError via errors.Is.
var ErrMalformedEvent = errors.New("malformed event")

type MalformedEventError struct {
	DeviceID string
	Reason   string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event for device %q: %s", e.DeviceID, e.Reason)
}

func (e *MalformedEventError) Is(target error) bool {
	return target == ErrMalformedEvent
}

// Event is one raw presence signal as delivered by a transport.
// Planned only matters for disconnects.
type Event struct {
	DeviceID  string
	EventTime time.Time
	Kind      Kind
	Planned   bool
}

// Normalize trims the device id and brings the event time to UTC at microsecond
// resolution, which is what every store backend keeps.
func (e Event) Normalize() Event {
	e.DeviceID = strings.TrimSpace(e.DeviceID)
	e.EventTime = e.EventTime.UTC().Truncate(time.Microsecond)
	return e
}

func (e Event) Validate() error {
	if strings.TrimSpace(e.DeviceID) == "" {
		return &MalformedEventError{Reason: "empty device id"}
	}
	if e.EventTime.IsZero() {
		return &MalformedEventError{DeviceID: e.DeviceID, Reason: "missing event time"}
	}
	switch e.Kind {
	case KindConnected, KindDisconnected:
	default:
		return &MalformedEventError{DeviceID: e.DeviceID, Reason: fmt.Sprintf("unknown kind %q", e.Kind)}
	}
	return nil
}

// ParseKind maps the lower-case wire names onto a Kind.
func ParseKind(s string) (Kind, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(KindConnected):
		return KindConnected, true
	case string(KindDisconnected):
		return KindDisconnected, true
	}
	return "", false
}

// LogEntry is an append-only audit record keyed by (DeviceID, EventTime).
type LogEntry struct {
	DeviceID   string    `json:"device_id" db:"device_id"`
	EventTime  time.Time `json:"event_time" db:"event_time"`
	Kind       Kind      `json:"kind" db:"kind"`
	Planned    bool      `json:"planned" db:"planned"`
	RecordedAt time.Time `json:"recorded_at" db:"recorded_at"`
}

func NewLogEntry(e Event, recordedAt time.Time) LogEntry {
	return LogEntry{
		DeviceID:   e.DeviceID,
		EventTime:  e.EventTime,
		Kind:       e.Kind,
		Planned:    e.Planned,
		RecordedAt: recordedAt.UTC(),
	}
}
