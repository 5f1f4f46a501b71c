package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"presence-monitor/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func pending(id string, sec int64) presence.Transition {
	tr, _ := presence.TransitionFor(presence.Event{DeviceID: id, EventTime: at(sec), Kind: presence.KindDisconnected})
	return tr
}

func Test_Upsert(t *testing.T) {
	ctx := context.Background()
	s := New()

	applied, err := s.Upsert(ctx, pending("sensor-1", 100))
	require.NoError(t, err)
	assert.True(t, applied)

	// same time and older times never overwrite
	applied, err = s.Upsert(ctx, pending("sensor-1", 100))
	require.NoError(t, err)
	assert.False(t, applied)

	connect, _ := presence.TransitionFor(presence.Event{DeviceID: "sensor-1", EventTime: at(50), Kind: presence.KindConnected})
	applied, err = s.Upsert(ctx, connect)
	require.NoError(t, err)
	assert.False(t, applied)

	st, ok, err := s.Get(ctx, "sensor-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, presence.StatePendingDisconnect, st.State)
	assert.True(t, st.LastEventTime.Equal(at(100)))
}

func Test_ScanPending(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 5; i++ {
		_, err := s.Upsert(ctx, pending(fmt.Sprintf("dev-%d", i), int64(i*100)))
		require.NoError(t, err)
	}
	planned, _ := presence.TransitionFor(presence.Event{DeviceID: "dev-planned", EventTime: at(0), Kind: presence.KindDisconnected, Planned: true})
	_, err := s.Upsert(ctx, planned)
	require.NoError(t, err)

	page, err := s.ScanPending(ctx, presence.ScanQuery{Cutoff: at(300), Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "dev-0", page[0].DeviceID)
	assert.Equal(t, "dev-1", page[1].DeviceID)

	page, err = s.ScanPending(ctx, presence.ScanQuery{Cutoff: at(300), After: "dev-1", Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, "dev-2", page[0].DeviceID)
	assert.Equal(t, "dev-3", page[1].DeviceID)

	page, err = s.ScanPending(ctx, presence.ScanQuery{Cutoff: at(300), After: "dev-3", Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func Test_EpisodeLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Upsert(ctx, pending("sensor-2", 0))
	require.NoError(t, err)

	now := at(905)
	ok, err := s.ClaimEpisode(ctx, "sensor-2", at(0), now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, ok)

	// a second claimant loses while the lease holds
	ok, err = s.ClaimEpisode(ctx, "sensor-2", at(0), now, now.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok)

	// wrong episode never confirms
	ok, err = s.ConfirmEpisode(ctx, "sensor-2", at(1))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = s.ConfirmEpisode(ctx, "sensor-2", at(0))
	require.NoError(t, err)
	assert.True(t, ok)

	st, _, _ := s.Get(ctx, "sensor-2")
	assert.Equal(t, presence.StateDisconnected, st.State)
	assert.Nil(t, st.PendingSince)
	assert.Nil(t, st.ClaimedUntil)
	require.NotNil(t, st.LastNotifiedEventTime)
	assert.True(t, st.LastNotifiedEventTime.Equal(at(0)))
}

func Test_ClaimExpires(t *testing.T) {
	ctx := context.Background()
	s := New()
	_, err := s.Upsert(ctx, pending("sensor-2", 0))
	require.NoError(t, err)

	ok, err := s.ClaimEpisode(ctx, "sensor-2", at(0), at(900), at(960))
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.ClaimEpisode(ctx, "sensor-2", at(0), at(961), at(1020))
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.ReleaseEpisode(ctx, "sensor-2", at(0)))
	st, _, _ := s.Get(ctx, "sensor-2")
	assert.Nil(t, st.ClaimedUntil)
	assert.Equal(t, presence.StatePendingDisconnect, st.State)
}

func Test_EventLog(t *testing.T) {
	ctx := context.Background()
	s := New()
	e := presence.Event{DeviceID: "sensor-4", EventTime: at(100), Kind: presence.KindDisconnected}

	require.NoError(t, s.Append(ctx, presence.NewLogEntry(e, at(101))))
	require.NoError(t, s.Append(ctx, presence.NewLogEntry(e, at(102))))
	require.NoError(t, s.Append(ctx, presence.NewLogEntry(presence.Event{DeviceID: "sensor-4", EventTime: at(50), Kind: presence.KindConnected}, at(103))))

	got, err := s.Between(ctx, "sensor-4", at(0), at(200))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].EventTime.Equal(at(50)))
	assert.True(t, got[1].RecordedAt.Equal(at(101)))
}
