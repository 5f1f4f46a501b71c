package cmd

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"presence-monitor/internal/config"
	"presence-monitor/internal/journal"
	"presence-monitor/internal/presence"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_openBackend_MemoryWithJournal(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "events.cbor")
	b, err := openBackend(ctx, config.Config{
		Store:   config.StoreConfig{Backend: config.BackendMemory},
		Journal: config.JournalConfig{Path: path},
	})
	require.NoError(t, err)

	at := time.Unix(100, 0).UTC()
	entry := presence.LogEntry{DeviceID: "d1", EventTime: at, Kind: presence.KindDisconnected, RecordedAt: at}
	require.NoError(t, b.log.Append(ctx, entry))
	require.NoError(t, b.Close())

	entries, err := b.log.Between(ctx, "d1", at, at)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	r, err := journal.NewReader(path, "d1")
	require.NoError(t, err)
	defer r.Close()
	rec, err := r.Next()
	require.NoError(t, err)
	assert.Equal(t, "d1", rec.DeviceID)
}

func Test_openBackend_UnknownBackend(t *testing.T) {
	_, err := openBackend(context.Background(), config.Config{Store: config.StoreConfig{Backend: "redis"}})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

type countingNotifier struct{ n int }

func (c *countingNotifier) Notify(context.Context, string, string, time.Time) error {
	c.n++
	return nil
}

func Test_sweepTask(t *testing.T) {
	ctx := context.Background()
	c := config.Config{
		Store: config.StoreConfig{Backend: config.BackendMemory},
		Sweep: config.SweepConfig{PageSize: 10},
	}
	b, err := openBackend(ctx, c)
	require.NoError(t, err)

	_, err = b.status.Upsert(ctx, presence.Transition{
		DeviceID:     "d1",
		State:        presence.StatePendingDisconnect,
		EventTime:    time.Unix(100, 0).UTC(),
		PendingSince: ptr(time.Unix(100, 0).UTC()),
	})
	require.NoError(t, err)

	n := &countingNotifier{}
	task := sweepTask(newSweeper(c, b, n, nil), 5*time.Minute)
	require.NoError(t, task(ctx, time.Unix(399, 0)))
	assert.Zero(t, n.n)
	require.NoError(t, task(ctx, time.Unix(400, 0)))
	assert.Equal(t, 1, n.n)
}

func ptr[T any](v T) *T { return &v }

func Test_configCmd_RedactsSecrets(t *testing.T) {
	cfg = config.Config{
		DebounceWindow: 90 * time.Second,
		HTTP:           config.HTTPConfig{Addr: ":8080", JWTSecret: "top"},
		Notifier:       config.NotifierConfig{Kind: config.NotifierWebhook, AuthToken: "tok"},
	}
	var out bytes.Buffer
	configCmd.SetOut(&out)
	require.NoError(t, configCmd.RunE(configCmd, nil))

	assert.Contains(t, out.String(), "debounce_window: 1m30s")
	assert.Contains(t, out.String(), "jwt_secret: <redacted>")
	assert.Contains(t, out.String(), "auth_token: <redacted>")
}
