package presence

import "time"

type State string

const (
	StateConnected         State = "CONNECTED"
	StateDisconnected      State = "DISCONNECTED"
	StatePendingDisconnect State = "PENDING_DISCONNECT"
)

// DeviceStatus is the single current-state row kept per device.
type DeviceStatus struct {
	DeviceID      string    `json:"device_id" db:"device_id"`
	State         State     `json:"state" db:"state"`
	LastEventTime time.Time `json:"last_event_time" db:"last_event_time"`
	// PendingSince is set only while State is PENDING_DISCONNECT.
	PendingSince *time.Time `json:"pending_since,omitempty" db:"pending_since"`
	// LastNotifiedEventTime is the episode the last alert was sent for.
	LastNotifiedEventTime *time.Time `json:"last_notified_event_time,omitempty" db:"last_notified_event_time"`
	// ClaimedUntil is the lease held by a sweep that is dispatching the current episode.
	ClaimedUntil *time.Time `json:"claimed_until,omitempty" db:"claimed_until"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Episode identifies the current disconnection episode. It is only meaningful
// while the device is pending.
func (s DeviceStatus) Episode() time.Time {
	return s.LastEventTime
}

// Notified reports whether an alert was already sent for the current episode.
func (s DeviceStatus) Notified() bool {
	return s.LastNotifiedEventTime != nil && s.LastNotifiedEventTime.Equal(s.LastEventTime)
}

// Due reports whether the pending window has elapsed at now.
func (s DeviceStatus) Due(now time.Time, window time.Duration) bool {
	if s.State != StatePendingDisconnect || s.PendingSince == nil {
		return false
	}
	return now.Sub(*s.PendingSince) >= window
}

// Transition is the conditional write the parser asks a store to apply. Stores
// create the row when absent and otherwise update it only when the stored
// LastEventTime is strictly older than EventTime.
type Transition struct {
	DeviceID      string
	State         State
	EventTime     time.Time
	PendingSince  *time.Time
	ClearNotified bool
}

// Apply returns the status that results from applying t to s. Stores use it to
// keep the field rules in one place.
func (t Transition) Apply(s DeviceStatus, now time.Time) DeviceStatus {
	s.DeviceID = t.DeviceID
	s.State = t.State
	s.LastEventTime = t.EventTime
	s.PendingSince = t.PendingSince
	s.ClaimedUntil = nil
	if t.ClearNotified {
		s.LastNotifiedEventTime = nil
	}
	s.UpdatedAt = now
	return s
}

// TransitionFor maps an accepted event onto the transition it causes.
func TransitionFor(e Event) (Transition, Outcome) {
	t := Transition{DeviceID: e.DeviceID, EventTime: e.EventTime}
	switch {
	case e.Kind == KindConnected:
		t.State = StateConnected
		t.ClearNotified = true
		return t, OutcomeReconnected
	case e.Planned:
		t.State = StateDisconnected
		return t, OutcomePlannedDisconnect
	default:
		since := e.EventTime
		t.State = StatePendingDisconnect
		t.PendingSince = &since
		return t, OutcomePendingDisconnect
	}
}

// Outcome is what an ingested event did to its device. The zero value is
// returned alongside errors, when the event did nothing.
type Outcome int

const (
	OutcomeUnknown Outcome = iota
	OutcomeStale
	OutcomeReconnected
	OutcomePlannedDisconnect
	OutcomePendingDisconnect
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "unknown"
	case OutcomeStale:
		return "stale"
	case OutcomeReconnected:
		return "reconnected"
	case OutcomePlannedDisconnect:
		return "planned_disconnect"
	case OutcomePendingDisconnect:
		return "pending_disconnect"
	}
	return "unknown"
}
