package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"presence-monitor/internal/kafka"
	"presence-monitor/internal/metrics"
	"presence-monitor/internal/presence"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
)

//go:generate mockery --name repository --inpackage --with-expecter --filename mock_repository.go
//go:generate mockery --name ingester --inpackage --with-expecter --filename mock_ingester.go

const outcomeMalformed = "malformed"

type repository interface {
	Get(ctx context.Context, deviceID string) (presence.DeviceStatus, bool, error)
	Between(ctx context.Context, deviceID string, start, end time.Time) ([]presence.LogEntry, error)
}

type ingester interface {
	Ingest(ctx context.Context, event presence.Event) (presence.Outcome, error)
}

type API struct {
	repo      repository
	ingester  ingester
	metrics   *metrics.Metrics
	jwtSecret []byte
	health    func(ctx context.Context) error
}

type Config struct {
	Repo     repository
	Ingester ingester
	Metrics  *metrics.Metrics
	// JWTSecret enables HS256 bearer auth on write routes when set.
	JWTSecret string
	// Health reports backend reachability; nil means always healthy.
	Health func(ctx context.Context) error
}

func New(cfg Config) *API {
	a := &API{
		repo:     cfg.Repo,
		ingester: cfg.Ingester,
		metrics:  cfg.Metrics,
		health:   cfg.Health,
	}
	if cfg.JWTSecret != "" {
		a.jwtSecret = []byte(cfg.JWTSecret)
	}
	return a
}

func (a *API) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", a.GetHealth)
	if a.metrics != nil {
		r.Handle("/metrics", a.metrics.Handler())
	}
	r.Get("/devices/{device_id}", a.GetDeviceStatus)
	r.Get("/devices/{device_id}/events", a.GetDeviceTimeline)
	r.With(a.authenticate).Post("/events", a.CreateDeviceTimeline)
	return r
}

func (a *API) GetHealth(w http.ResponseWriter, r *http.Request) {
	if a.health != nil {
		if err := a.health(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Error: err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (a *API) GetDeviceStatus(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")
	status, ok, err := a.repo.Get(r.Context(), deviceID)
	if err != nil {
		slog.ErrorContext(r.Context(), "Loading device status failed", "device_id", deviceID, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, "device not found", http.StatusNotFound)
		return
	}

	resp := DeviceStatusResponse{
		DeviceID:              status.DeviceID,
		State:                 string(status.State),
		LastEventTime:         formatTime(status.LastEventTime),
		PendingSince:          formatTimePtr(status.PendingSince),
		LastNotifiedEventTime: formatTimePtr(status.LastNotifiedEventTime),
		UpdatedAt:             formatTime(status.UpdatedAt),
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) GetDeviceTimeline(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "device_id")
	startStr := r.URL.Query().Get("start")
	endStr := r.URL.Query().Get("end")

	startTime, err := time.Parse(time.RFC3339, startStr)
	if err != nil {
		http.Error(w, "invalid start timestamp", http.StatusBadRequest)
		return
	}
	endTime, err := time.Parse(time.RFC3339, endStr)
	if err != nil {
		http.Error(w, "invalid end timestamp", http.StatusBadRequest)
		return
	}
	if endTime.Before(startTime) {
		http.Error(w, "end before start", http.StatusBadRequest)
		return
	}

	entries, err := a.repo.Between(r.Context(), deviceID, startTime.UTC(), endTime.UTC())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	resp := GetDeviceTimelineResponse{Events: make([]DeviceEvent, 0, len(entries))}
	for _, entry := range entries {
		resp.Events = append(resp.Events, DeviceEvent{
			DeviceID:  entry.DeviceID,
			EventType: eventType(entry.Kind),
			Timestamp: formatTime(entry.EventTime),
			Planned:   entry.Planned,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateDeviceTimeline ingests a batch of events in order. Malformed events are
// reported per event; a store failure aborts the batch with 500 and the caller
// may resend it, since ingest is idempotent.
func (a *API) CreateDeviceTimeline(w http.ResponseWriter, r *http.Request) {
	var req CreateDeviceEventsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	resp := CreateDeviceEventsResponse{Results: make([]EventResult, 0, len(req.Events))}
	for _, in := range req.Events {
		result := EventResult{DeviceID: in.DeviceID, Timestamp: in.Timestamp}
		event, err := convertEvent(in)
		if err != nil {
			result.Outcome = outcomeMalformed
			result.Error = err.Error()
			resp.Results = append(resp.Results, result)
			continue
		}

		outcome, err := a.ingester.Ingest(r.Context(), event)
		switch {
		case errors.Is(err, presence.ErrMalformedEvent):
			result.Outcome = outcomeMalformed
			result.Error = err.Error()
		case err != nil:
			slog.ErrorContext(r.Context(), "Ingest failed", "device_id", in.DeviceID, "error", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		default:
			result.Outcome = outcome.String()
		}
		resp.Results = append(resp.Results, result)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.jwtSecret == nil {
			next.ServeHTTP(w, r)
			return
		}
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		_, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return a.jwtSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil {
			slog.InfoContext(r.Context(), "Rejected bearer token", "error", err)
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

var errInvalidTimestamp = errors.New("invalid event timestamp")

func convertEvent(in DeviceEvent) (presence.Event, error) {
	at, err := time.Parse(time.RFC3339, in.Timestamp)
	if err != nil {
		return presence.Event{}, errInvalidTimestamp
	}
	kind, ok := presence.ParseKind(in.EventType)
	if !ok {
		kind = presence.Kind(in.EventType)
	}
	return presence.Event{
		DeviceID:  in.DeviceID,
		EventTime: at,
		Kind:      kind,
		Planned:   in.Planned,
	}, nil
}

func eventType(k presence.Kind) string {
	if k == presence.KindConnected {
		return kafka.EventConnected
	}
	return kafka.EventDisconnected
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := formatTime(*t)
	return &s
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Encoding response failed", "error", err)
	}
}
