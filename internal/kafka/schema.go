package kafka

import (
	"time"

	"presence-monitor/internal/presence"
)

const (
	EventConnected    = "connected"
	EventDisconnected = "disconnected"
)

// PresenceRecord is the raw event published by devices or their gateways.
// Timestamp is Unix milliseconds; nil means the field was absent.
type PresenceRecord struct {
	Timestamp *int64 `json:"timestamp"`
	DeviceID  string `json:"device_id"`
	EventType string `json:"event_type"`
	Planned   bool   `json:"planned,omitempty"`
}

// UnixMillis returns t as a record timestamp.
func UnixMillis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}

// Event converts the wire record. An unknown event type or a missing timestamp
// survives conversion and is rejected by presence.Event.Validate.
func (r PresenceRecord) Event() presence.Event {
	kind, ok := presence.ParseKind(r.EventType)
	if !ok {
		kind = presence.Kind(r.EventType)
	}
	var at time.Time
	if r.Timestamp != nil {
		at = time.UnixMilli(*r.Timestamp).UTC()
	}
	return presence.Event{
		DeviceID:  r.DeviceID,
		EventTime: at,
		Kind:      kind,
		Planned:   r.Planned,
	}
}

// AlertPayload is the body of one disconnect alert. Times are Unix milliseconds.
type AlertPayload struct {
	ID             string `json:"id"`
	DeviceID       string `json:"device_id"`
	Reason         string `json:"reason"`
	DisconnectedAt int64  `json:"disconnected_at"`
	SentAt         int64  `json:"sent_at"`
}

// StructuredConnectRecord carries its own schema so a Kafka Connect sink can
// write alerts without a schema registry.
type StructuredConnectRecord struct {
	Schema  Schema       `json:"schema"`
	Payload AlertPayload `json:"payload"`
}

type Schema struct {
	Type     string  `json:"type"`
	Name     string  `json:"name"`
	Fields   []Field `json:"fields"`
	Optional bool    `json:"optional"`
}

type Field struct {
	Field string `json:"field"`
	Type  string `json:"type"`
}

var AlertSchema = Schema{
	Type:     "struct",
	Name:     "DeviceDisconnectAlert",
	Optional: false,
	Fields: []Field{
		{Field: "id", Type: "string"},
		{Field: "device_id", Type: "string"},
		{Field: "reason", Type: "string"},
		{Field: "disconnected_at", Type: "int64"},
		{Field: "sent_at", Type: "int64"},
	},
}
