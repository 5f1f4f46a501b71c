package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"presence-monitor/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func open(t *testing.T) *DB {
	t.Helper()
	d, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "presence.db")})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func Test_Upsert(t *testing.T) {
	ctx := context.Background()
	d := open(t)
	tr, _ := presence.TransitionFor(presence.Event{DeviceID: "sensor-1", EventTime: at(100), Kind: presence.KindDisconnected})

	applied, err := d.Upsert(ctx, tr)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = d.Upsert(ctx, tr)
	require.NoError(t, err)
	assert.False(t, applied)

	st, ok, err := d.Get(ctx, "sensor-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, presence.StatePendingDisconnect, st.State)
	assert.True(t, st.LastEventTime.Equal(at(100)))
	require.NotNil(t, st.PendingSince)
	assert.True(t, st.PendingSince.Equal(at(100)))

	_, ok, err = d.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func Test_EpisodeLifecycle(t *testing.T) {
	ctx := context.Background()
	d := open(t)
	tr, _ := presence.TransitionFor(presence.Event{DeviceID: "sensor-2", EventTime: at(0), Kind: presence.KindDisconnected})
	_, err := d.Upsert(ctx, tr)
	require.NoError(t, err)

	page, err := d.ScanPending(ctx, presence.ScanQuery{Cutoff: at(5), Limit: 10})
	require.NoError(t, err)
	require.Len(t, page, 1)

	ok, err := d.ClaimEpisode(ctx, "sensor-2", at(0), at(905), at(965))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.ClaimEpisode(ctx, "sensor-2", at(0), at(906), at(966))
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = d.ConfirmEpisode(ctx, "sensor-2", at(0))
	require.NoError(t, err)
	assert.True(t, ok)

	st, _, err := d.Get(ctx, "sensor-2")
	require.NoError(t, err)
	assert.Equal(t, presence.StateDisconnected, st.State)
	require.NotNil(t, st.LastNotifiedEventTime)
	assert.True(t, st.LastNotifiedEventTime.Equal(at(0)))

	page, err = d.ScanPending(ctx, presence.ScanQuery{Cutoff: at(5000), Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, page)

	reconnect, _ := presence.TransitionFor(presence.Event{DeviceID: "sensor-2", EventTime: at(2000), Kind: presence.KindConnected})
	applied, err := d.Upsert(ctx, reconnect)
	require.NoError(t, err)
	assert.True(t, applied)
	st, _, err = d.Get(ctx, "sensor-2")
	require.NoError(t, err)
	assert.Nil(t, st.LastNotifiedEventTime)
}

func Test_EventLog(t *testing.T) {
	ctx := context.Background()
	d := open(t)
	e := presence.Event{DeviceID: "sensor-4", EventTime: at(100), Kind: presence.KindDisconnected, Planned: true}

	require.NoError(t, d.Append(ctx, presence.NewLogEntry(e, at(101))))
	require.NoError(t, d.Append(ctx, presence.NewLogEntry(e, at(102))))

	got, err := d.Between(ctx, "sensor-4", at(0), at(200))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].Planned)
	assert.True(t, got[0].RecordedAt.Equal(at(101)))
}
