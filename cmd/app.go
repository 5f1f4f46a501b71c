package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"presence-monitor/internal/alert"
	"presence-monitor/internal/config"
	"presence-monitor/internal/db"
	"presence-monitor/internal/journal"
	"presence-monitor/internal/memory"
	"presence-monitor/internal/metrics"
	"presence-monitor/internal/presence"
	"presence-monitor/internal/sqlite"
	"presence-monitor/internal/sweeper"

	"github.com/hashicorp/go-multierror"
)

// backend bundles whichever store the configuration selects.
type backend struct {
	status  presence.StatusStore
	log     presence.EventLog
	locker  sweeper.Locker
	ping    func(ctx context.Context) error
	closers []func() error
}

func (b *backend) Close() error {
	var result *multierror.Error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// statusAndLog is the read side the HTTP API needs.
type statusAndLog struct {
	presence.StatusStore
	presence.EventLog
}

func openBackend(ctx context.Context, cfg config.Config) (*backend, error) {
	b := &backend{}
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		pg, err := db.Init(ctx, db.Config{
			ConnString:     cfg.Postgres.ConnString,
			MigrationsPath: cfg.Postgres.MigrationsPath,
			Timeout:        cfg.Store.Timeout,
		})
		if err != nil {
			return nil, err
		}
		b.status, b.log, b.ping = pg, pg, pg.Ping
		b.locker = pg.Locker(db.SweepLockKey)
		b.closers = append(b.closers, func() error { pg.Close(); return nil })
	case config.BackendSQLite:
		lite, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLite.Path, Timeout: cfg.Store.Timeout})
		if err != nil {
			return nil, err
		}
		b.status, b.log, b.ping = lite, lite, lite.Ping
		b.closers = append(b.closers, lite.Close)
	case config.BackendMemory:
		mem := memory.New()
		b.status, b.log = mem, mem
	default:
		return nil, fmt.Errorf("%w: store.backend %q", config.ErrInvalidConfig, cfg.Store.Backend)
	}

	if cfg.Journal.Path != "" {
		j, err := journal.Open(cfg.Journal.Path)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.log = presence.NewMultiLog(b.log, j)
		b.closers = append(b.closers, j.Close)
	}
	slog.InfoContext(ctx, "Store ready", "backend", cfg.Store.Backend, "journal", cfg.Journal.Path)
	return b, nil
}

func newPublisher(cfg config.Config) (alert.Publisher, func() error) {
	switch cfg.Notifier.Kind {
	case config.NotifierWebhook:
		return alert.NewWebhookPublisher(alert.WebhookConfig{
			URL:     cfg.Notifier.WebhookURL,
			Token:   cfg.Notifier.AuthToken,
			Timeout: cfg.Notifier.Timeout,
			Retries: cfg.Notifier.Retries,
		}), func() error { return nil }
	case config.NotifierLog:
		return alert.LogPublisher{}, func() error { return nil }
	default:
		p := alert.NewKafkaPublisher(alert.KafkaConfig{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.AlertsTopic,
		})
		return p, p.Close
	}
}

func newSweeper(cfg config.Config, b *backend, n sweeper.Notifier, m *metrics.Metrics) *sweeper.Sweeper {
	return sweeper.New(sweeper.Config{
		Store:       b.status,
		Notifier:    n,
		Locker:      b.locker,
		PageSize:    cfg.Sweep.PageSize,
		MaxPages:    cfg.Sweep.MaxPages,
		Concurrency: cfg.Sweep.Concurrency,
		ClaimTTL:    cfg.Sweep.ClaimTTL,
		Metrics:     m,
	})
}

// sweepTask adapts a sweeper to the scheduler; an overlapping tick is not an
// error.
func sweepTask(s *sweeper.Sweeper, window time.Duration) func(ctx context.Context, now time.Time) error {
	return func(ctx context.Context, now time.Time) error {
		_, err := s.Sweep(ctx, now, window)
		if errors.Is(err, sweeper.ErrSweepInProgress) {
			slog.InfoContext(ctx, "Sweep skipped, another sweep is running")
			return nil
		}
		return err
	}
}
