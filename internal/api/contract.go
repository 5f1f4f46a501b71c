package api

type DeviceEvent struct {
	DeviceID  string `json:"deviceID"`
	EventType string `json:"eventType"`
	Timestamp string `json:"timestamp"`
	Planned   bool   `json:"planned,omitempty"`
}

type CreateDeviceEventsRequest struct {
	Events []DeviceEvent `json:"events"`
}

type EventResult struct {
	DeviceID  string `json:"deviceID"`
	Timestamp string `json:"timestamp"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

type CreateDeviceEventsResponse struct {
	Results []EventResult `json:"results"`
}

type GetDeviceTimelineResponse struct {
	Events []DeviceEvent `json:"events"`
}

type DeviceStatusResponse struct {
	DeviceID              string  `json:"deviceID"`
	State                 string  `json:"state"`
	LastEventTime         string  `json:"lastEventTime"`
	PendingSince          *string `json:"pendingSince,omitempty"`
	LastNotifiedEventTime *string `json:"lastNotifiedEventTime,omitempty"`
	UpdatedAt             string  `json:"updatedAt"`
}

type HealthResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
