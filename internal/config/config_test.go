package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Load(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		env     map[string]string
		check   func(t *testing.T, cfg Config)
		wantErr error
	}{
		{
			name: "defaults",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 5*time.Minute, cfg.DebounceWindow)
				assert.Equal(t, BackendPostgres, cfg.Store.Backend)
				assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
				assert.Equal(t, 500, cfg.Sweep.PageSize)
			},
		},
		{
			name: "file overrides defaults",
			yaml: "debounce_window: 90s\nstore:\n  backend: sqlite\nsqlite:\n  path: /tmp/p.db\nsweep:\n  page_size: 50\n",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 90*time.Second, cfg.DebounceWindow)
				assert.Equal(t, BackendSQLite, cfg.Store.Backend)
				assert.Equal(t, "/tmp/p.db", cfg.SQLite.Path)
				assert.Equal(t, 50, cfg.Sweep.PageSize)
			},
		},
		{
			name: "environment overrides file",
			yaml: "debounce_window: 90s\n",
			env: map[string]string{
				"PRESENCE_DEBOUNCE_WINDOW": "2m",
				"PRESENCE_KAFKA_BROKERS":   "k1:9092,k2:9092",
				"PRESENCE_NOTIFIER_KIND":   "log",
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 2*time.Minute, cfg.DebounceWindow)
				assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
				assert.Equal(t, NotifierLog, cfg.Notifier.Kind)
			},
		},
		{
			name:    "unknown backend",
			env:     map[string]string{"PRESENCE_STORE_BACKEND": "redis"},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "webhook without url",
			env:     map[string]string{"PRESENCE_NOTIFIER_KIND": "webhook"},
			wantErr: ErrInvalidConfig,
		},
		{
			name:    "claim lease shorter than a dispatch",
			yaml:    "sweep:\n  claim_ttl: 10s\nnotifier:\n  timeout: 10s\n",
			wantErr: ErrInvalidConfig,
		},
		{
			name: "claim lease longer than a dispatch",
			yaml: "sweep:\n  claim_ttl: 30s\nnotifier:\n  timeout: 10s\n",
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, 30*time.Second, cfg.Sweep.ClaimTTL)
			},
		},
		{
			name:    "non positive window",
			yaml:    "debounce_window: 0s\n",
			wantErr: ErrInvalidConfig,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			for k, v := range c.env {
				t.Setenv(k, v)
			}
			path := ""
			if c.yaml != "" {
				path = filepath.Join(t.TempDir(), "presence.yaml")
				require.NoError(t, os.WriteFile(path, []byte(c.yaml), 0o600))
			}

			cfg, err := Load(path)
			if c.wantErr != nil {
				assert.ErrorIs(t, err, c.wantErr)
				return
			}
			require.NoError(t, err)
			c.check(t, cfg)
		})
	}
}

func Test_Load_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrReadConfig)
}
