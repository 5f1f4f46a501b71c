package parser

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"presence-monitor/internal/memory"
	"presence-monitor/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func connect(id string, sec int64) presence.Event {
	return presence.Event{DeviceID: id, EventTime: at(sec), Kind: presence.KindConnected}
}

func disconnect(id string, sec int64, planned bool) presence.Event {
	return presence.Event{DeviceID: id, EventTime: at(sec), Kind: presence.KindDisconnected, Planned: planned}
}

type failingLog struct{}

func (failingLog) Append(context.Context, presence.LogEntry) error {
	return errors.New("log unavailable")
}

type failingStore struct {
	*memory.Store
	getErr   error
	writeErr error
}

func (f *failingStore) Get(ctx context.Context, id string) (presence.DeviceStatus, bool, error) {
	if f.getErr != nil {
		return presence.DeviceStatus{}, false, f.getErr
	}
	return f.Store.Get(ctx, id)
}

func (f *failingStore) Upsert(ctx context.Context, t presence.Transition) (bool, error) {
	if f.writeErr != nil {
		return false, f.writeErr
	}
	return f.Store.Upsert(ctx, t)
}

func Test_Ingest(t *testing.T) {
	cases := []struct {
		name            string
		history         []presence.Event
		input           presence.Event
		expectedOutcome presence.Outcome
		expectedErr     error
		expectedState   presence.State
		expectedLast    time.Time
	}{
		{
			name:            "first connect",
			input:           connect("sensor-1", 10),
			expectedOutcome: presence.OutcomeReconnected,
			expectedState:   presence.StateConnected,
			expectedLast:    at(10),
		},
		{
			name:            "first unplanned disconnect",
			input:           disconnect("sensor-1", 10, false),
			expectedOutcome: presence.OutcomePendingDisconnect,
			expectedState:   presence.StatePendingDisconnect,
			expectedLast:    at(10),
		},
		{
			name:            "first planned disconnect",
			input:           disconnect("sensor-3", 0, true),
			expectedOutcome: presence.OutcomePlannedDisconnect,
			expectedState:   presence.StateDisconnected,
			expectedLast:    at(0),
		},
		{
			name:            "reconnect clears pending",
			history:         []presence.Event{disconnect("sensor-1", 0, false)},
			input:           connect("sensor-1", 100),
			expectedOutcome: presence.OutcomeReconnected,
			expectedState:   presence.StateConnected,
			expectedLast:    at(100),
		},
		{
			name:            "out of order event is a no-op",
			history:         []presence.Event{connect("sensor-1", 200)},
			input:           disconnect("sensor-1", 100, false),
			expectedOutcome: presence.OutcomeStale,
			expectedState:   presence.StateConnected,
			expectedLast:    at(200),
		},
		{
			name:            "duplicate delivery is stale",
			history:         []presence.Event{disconnect("sensor-4", 100, false)},
			input:           disconnect("sensor-4", 100, false),
			expectedOutcome: presence.OutcomeStale,
			expectedState:   presence.StatePendingDisconnect,
			expectedLast:    at(100),
		},
		{
			name:            "malformed event",
			input:           presence.Event{DeviceID: "", EventTime: at(1), Kind: presence.KindConnected},
			expectedOutcome: presence.OutcomeUnknown,
			expectedErr:     presence.ErrMalformedEvent,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			store := memory.New()
			p := New(Config{Store: store, Log: store})
			for _, e := range tt.history {
				_, err := p.Ingest(ctx, e)
				require.NoError(t, err)
			}

			outcome, err := p.Ingest(ctx, tt.input)
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, tt.expectedOutcome, outcome)
			if tt.expectedErr != nil {
				return
			}

			st, ok, err := store.Get(ctx, tt.input.DeviceID)
			require.NoError(t, err)
			require.True(t, ok)
			assert.Equal(t, tt.expectedState, st.State)
			assert.True(t, st.LastEventTime.Equal(tt.expectedLast))
		})
	}
}

func Test_Ingest_DuplicateLogsOnce(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := New(Config{Store: store, Log: store})

	e := disconnect("sensor-4", 100, false)
	outcome, err := p.Ingest(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, presence.OutcomePendingDisconnect, outcome)

	outcome, err = p.Ingest(ctx, e)
	require.NoError(t, err)
	assert.Equal(t, presence.OutcomeStale, outcome)

	entries, err := store.Between(ctx, "sensor-4", at(0), at(1000))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	st, _, _ := store.Get(ctx, "sensor-4")
	require.NotNil(t, st.PendingSince)
	assert.True(t, st.PendingSince.Equal(at(100)))
}

func Test_Ingest_ReconnectClearsNotified(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := New(Config{Store: store, Log: store})

	_, err := p.Ingest(ctx, disconnect("sensor-2", 0, false))
	require.NoError(t, err)
	ok, err := store.ConfirmEpisode(ctx, "sensor-2", at(0))
	require.NoError(t, err)
	require.True(t, ok)

	outcome, err := p.Ingest(ctx, connect("sensor-2", 2000))
	require.NoError(t, err)
	assert.Equal(t, presence.OutcomeReconnected, outcome)

	st, _, _ := store.Get(ctx, "sensor-2")
	assert.Nil(t, st.LastNotifiedEventTime)
	assert.Nil(t, st.PendingSince)
}

func Test_Ingest_StoreFailures(t *testing.T) {
	cases := []struct {
		name        string
		setup       func(*memory.Store) (presence.StatusStore, presence.Appender)
		expectedErr error
	}{
		{
			name: "log append failed",
			setup: func(s *memory.Store) (presence.StatusStore, presence.Appender) {
				return s, failingLog{}
			},
			expectedErr: ErrLogAppend,
		},
		{
			name: "status load failed",
			setup: func(s *memory.Store) (presence.StatusStore, presence.Appender) {
				return &failingStore{Store: s, getErr: errors.New("timeout")}, s
			},
			expectedErr: ErrStatusLoad,
		},
		{
			name: "status write failed",
			setup: func(s *memory.Store) (presence.StatusStore, presence.Appender) {
				return &failingStore{Store: s, writeErr: errors.New("timeout")}, s
			},
			expectedErr: ErrStatusWrite,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			mem := memory.New()
			store, log := tt.setup(mem)
			p := New(Config{Store: store, Log: log})

			outcome, err := p.Ingest(ctx, disconnect("sensor-1", 10, false))
			assert.ErrorIs(t, err, tt.expectedErr)
			assert.Equal(t, presence.OutcomeUnknown, outcome)
			assert.NotEqual(t, presence.OutcomeStale, outcome, "a failed write is not a stale event")

			_, ok, _ := mem.Get(ctx, "sensor-1")
			assert.False(t, ok, "no status may be committed on failure")
		})
	}
}

func Test_Ingest_ConcurrentSameDevice(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	p := New(Config{Store: store, Log: store})

	events := make([]presence.Event, 0, 200)
	for i := int64(1); i <= 200; i++ {
		if i%2 == 0 {
			events = append(events, connect("sensor-9", i))
		} else {
			events = append(events, disconnect("sensor-9", i, false))
		}
	}
	rand.New(rand.NewSource(1)).Shuffle(len(events), func(i, j int) {
		events[i], events[j] = events[j], events[i]
	})

	var wg sync.WaitGroup
	for _, e := range events {
		wg.Go(func() {
			_, err := p.Ingest(ctx, e)
			assert.NoError(t, err)
		})
	}
	wg.Wait()

	st, ok, err := store.Get(ctx, "sensor-9")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, st.LastEventTime.Equal(at(200)))
	assert.Equal(t, presence.StateConnected, st.State)
}
