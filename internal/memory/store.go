package memory

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"presence-monitor/internal/presence"
)

// Store keeps device status rows and the event log in process memory. It is
// used by the single-process "memory" backend and by tests; every operation
// holds the lock for its whole read-check-write so the conditional semantics
// match the SQL backends.
type Store struct {
	mu     sync.RWMutex
	status map[string]presence.DeviceStatus
	events map[string]map[int64]presence.LogEntry
	now    func() time.Time
}

func New() *Store {
	return &Store{
		status: make(map[string]presence.DeviceStatus),
		events: make(map[string]map[int64]presence.LogEntry),
		now:    time.Now,
	}
}

func (s *Store) Get(_ context.Context, deviceID string) (presence.DeviceStatus, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.status[deviceID]
	return st, ok, nil
}

func (s *Store) Upsert(_ context.Context, t presence.Transition) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.status[t.DeviceID]
	if ok && !cur.LastEventTime.Before(t.EventTime) {
		return false, nil
	}
	s.status[t.DeviceID] = t.Apply(cur, s.now().UTC())
	return true, nil
}

func (s *Store) ScanPending(_ context.Context, q presence.ScanQuery) ([]presence.DeviceStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var page []presence.DeviceStatus
	for id, st := range s.status {
		if id <= q.After || st.State != presence.StatePendingDisconnect || st.PendingSince == nil {
			continue
		}
		if st.PendingSince.After(q.Cutoff) {
			continue
		}
		page = append(page, st)
	}
	sort.Slice(page, func(i, j int) bool { return page[i].DeviceID < page[j].DeviceID })
	if q.Limit > 0 && len(page) > q.Limit {
		page = page[:q.Limit]
	}
	return page, nil
}

func (s *Store) ClaimEpisode(_ context.Context, deviceID string, episode, now, until time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[deviceID]
	if !ok || !pendingEpisode(st, episode) || st.Notified() {
		return false, nil
	}
	if st.ClaimedUntil != nil && st.ClaimedUntil.After(now) {
		return false, nil
	}
	u := until.UTC()
	st.ClaimedUntil = &u
	s.status[deviceID] = st
	return true, nil
}

func (s *Store) ConfirmEpisode(_ context.Context, deviceID string, episode time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[deviceID]
	if !ok || !pendingEpisode(st, episode) {
		return false, nil
	}
	notified := st.LastEventTime
	st.State = presence.StateDisconnected
	st.LastNotifiedEventTime = &notified
	st.PendingSince = nil
	st.ClaimedUntil = nil
	st.UpdatedAt = s.now().UTC()
	s.status[deviceID] = st
	return true, nil
}

func (s *Store) ReleaseEpisode(_ context.Context, deviceID string, episode time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.status[deviceID]
	if !ok || !pendingEpisode(st, episode) {
		return nil
	}
	st.ClaimedUntil = nil
	s.status[deviceID] = st
	return nil
}

func (s *Store) Append(_ context.Context, entry presence.LogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byTime, ok := s.events[entry.DeviceID]
	if !ok {
		byTime = make(map[int64]presence.LogEntry)
		s.events[entry.DeviceID] = byTime
	}
	key := entry.EventTime.UnixMicro()
	if _, exists := byTime[key]; !exists {
		byTime[key] = entry
	}
	return nil
}

func (s *Store) Between(_ context.Context, deviceID string, start, end time.Time) ([]presence.LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := []presence.LogEntry{}
	for _, e := range s.events[deviceID] {
		if e.EventTime.Before(start) || e.EventTime.After(end) {
			continue
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].EventTime.Before(entries[j].EventTime) })
	return entries, nil
}

// Dump logs every status row; handy when running the memory backend locally.
func (s *Store) Dump(ctx context.Context) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, st := range s.status {
		slog.InfoContext(ctx, "Status dump", "device_id", id, "state", st.State, "last_event_time", st.LastEventTime)
	}
}

func pendingEpisode(st presence.DeviceStatus, episode time.Time) bool {
	return st.State == presence.StatePendingDisconnect && st.LastEventTime.Equal(episode)
}

var (
	_ presence.StatusStore = (*Store)(nil)
	_ presence.EventLog    = (*Store)(nil)
)
