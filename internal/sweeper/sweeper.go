package sweeper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"presence-monitor/internal/alert"
	"presence-monitor/internal/metrics"
	"presence-monitor/internal/presence"

	"github.com/hashicorp/go-multierror"
	"github.com/sourcegraph/conc/pool"
)

var (
	ErrSweepInProgress = errors.New("sweep already in progress")
	ErrLockFailed      = errors.New("sweep lock failed")
	ErrScanFailed      = errors.New("pending scan failed")
	ErrDeviceFailed    = errors.New("device sweep failed")
)

const (
	maxLeaseMargin     = 5 * time.Second
	defaultPageSize    = 500
	defaultConcurrency = 8
	defaultClaimTTL    = time.Minute
)

type Notifier interface {
	Notify(ctx context.Context, deviceID, reason string, episodeTime time.Time) error
}

// Locker provides mutual exclusion across processes. TryLock never blocks; ok
// is false when another holder has the lock.
type Locker interface {
	TryLock(ctx context.Context) (unlock func(), ok bool, err error)
}

type Config struct {
	Store    presence.StatusStore
	Notifier Notifier
	// Locker is optional; the sweeper always excludes overlapping runs within
	// its own process.
	Locker Locker
	// PageSize is the number of pending rows read per scan page.
	PageSize int
	// MaxPages bounds the pages one invocation scans; 0 means until exhausted.
	MaxPages int
	// Concurrency is the number of devices processed in parallel per page.
	Concurrency int
	// ClaimTTL is how long a claimed episode stays leased to this sweep. A
	// dispatch is cancelled before its lease runs out.
	ClaimTTL time.Duration
	Metrics  *metrics.Metrics
	// Clock times claim leases; defaults to time.Now. Leases always run on
	// this clock, never on the now passed to Sweep.
	Clock func() time.Time
}

type Sweeper struct {
	mu          sync.Mutex
	store       presence.StatusStore
	notifier    Notifier
	locker      Locker
	pageSize    int
	maxPages    int
	concurrency int
	claimTTL    time.Duration
	metrics     *metrics.Metrics
	clock       func() time.Time
}

func New(cfg Config) *Sweeper {
	s := &Sweeper{
		store:       cfg.Store,
		notifier:    cfg.Notifier,
		locker:      cfg.Locker,
		pageSize:    cfg.PageSize,
		maxPages:    cfg.MaxPages,
		concurrency: cfg.Concurrency,
		claimTTL:    cfg.ClaimTTL,
		metrics:     cfg.Metrics,
		clock:       cfg.Clock,
	}
	if s.clock == nil {
		s.clock = time.Now
	}
	if s.pageSize <= 0 {
		s.pageSize = defaultPageSize
	}
	if s.concurrency <= 0 {
		s.concurrency = defaultConcurrency
	}
	if s.claimTTL <= 0 {
		s.claimTTL = defaultClaimTTL
	}
	return s
}

// Sweep confirms every pending disconnect whose debounce window has elapsed at
// now and returns how many alerts were dispatched. An overlapping call returns
// ErrSweepInProgress without touching the store. Per-device failures do not
// stop the sweep; a failed page read stops it and leaves the rest of the scan
// to the next invocation.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time, window time.Duration) (int, error) {
	const fn = "Sweeper:Sweep"
	if !s.mu.TryLock() {
		s.metrics.SweepFinished("skipped", 0, 0)
		return 0, fmt.Errorf("%s:%w", fn, ErrSweepInProgress)
	}
	defer s.mu.Unlock()

	if s.locker != nil {
		unlock, ok, err := s.locker.TryLock(ctx)
		if err != nil {
			s.metrics.SweepFinished("error", 0, 0)
			return 0, fmt.Errorf("%s:%w:%w", fn, ErrLockFailed, err)
		}
		if !ok {
			s.metrics.SweepFinished("skipped", 0, 0)
			return 0, fmt.Errorf("%s:%w", fn, ErrSweepInProgress)
		}
		defer unlock()
	}

	started := time.Now()
	run := &sweepRun{now: now.UTC(), window: window}
	err := s.scan(ctx, run)

	result := "ok"
	if err != nil {
		result = "error"
	}
	fired := int(run.fired.Load())
	s.metrics.SweepFinished(result, int(run.scanned.Load()), time.Since(started))
	slog.InfoContext(ctx, "Sweep finished",
		"now", run.now,
		"window", window.String(),
		"scanned", run.scanned.Load(),
		"alerts", fired,
		"error", err,
	)
	return fired, err
}

type sweepRun struct {
	now     time.Time
	window  time.Duration
	fired   atomic.Int64
	scanned atomic.Int64

	mu   sync.Mutex
	errs *multierror.Error
}

func (r *sweepRun) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = multierror.Append(r.errs, err)
}

func (r *sweepRun) err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.errs.ErrorOrNil()
}

func (s *Sweeper) scan(ctx context.Context, run *sweepRun) error {
	const fn = "Sweeper:scan"
	cutoff := run.now.Add(-run.window)
	after := ""
	for pages := 0; s.maxPages == 0 || pages < s.maxPages; pages++ {
		if err := ctx.Err(); err != nil {
			run.fail(err)
			return run.err()
		}
		page, err := s.store.ScanPending(ctx, presence.ScanQuery{Cutoff: cutoff, After: after, Limit: s.pageSize})
		if err != nil {
			run.fail(fmt.Errorf("%s:%w:%w", fn, ErrScanFailed, err))
			return run.err()
		}

		p := pool.New().WithMaxGoroutines(s.concurrency)
		for _, observed := range page {
			p.Go(func() {
				s.process(ctx, run, observed)
			})
		}
		p.Wait()
		run.scanned.Add(int64(len(page)))

		if len(page) < s.pageSize {
			return run.err()
		}
		after = page[len(page)-1].DeviceID
	}
	slog.InfoContext(ctx, "Sweep page budget reached, remaining devices deferred",
		"max_pages", s.maxPages,
		"last_device_id", after,
	)
	return run.err()
}

// process handles one pending row observed by the scan. The re-read, the claim
// and the confirm are each conditional on the episode seen here, so a reconnect
// or another sweep racing with this one turns every later step into a no-op.
func (s *Sweeper) process(ctx context.Context, run *sweepRun, observed presence.DeviceStatus) {
	const fn = "Sweeper:process"
	if !observed.Due(run.now, run.window) {
		return
	}
	id := observed.DeviceID
	episode := observed.Episode()

	current, ok, err := s.store.Get(ctx, id)
	if err != nil {
		run.fail(fmt.Errorf("%s:%w: %s: %w", fn, ErrDeviceFailed, id, err))
		return
	}
	if !ok || current.State != presence.StatePendingDisconnect || !current.LastEventTime.Equal(episode) {
		slog.InfoContext(ctx, "Device changed since scan, skipping", "device_id", id)
		return
	}
	if current.Notified() {
		return
	}

	leasedAt := s.clock().UTC()
	until := leasedAt.Add(s.claimTTL)
	claimed, err := s.store.ClaimEpisode(ctx, id, episode, leasedAt, until)
	if err != nil {
		run.fail(fmt.Errorf("%s:%w: %s: %w", fn, ErrDeviceFailed, id, err))
		return
	}
	if !claimed {
		slog.InfoContext(ctx, "Episode claimed elsewhere, skipping", "device_id", id, "episode", episode)
		return
	}

	// the dispatch must finish while the lease is still ours
	notifyCtx, cancel := context.WithDeadline(ctx, until.Add(-leaseMargin(s.claimTTL)))
	err = s.notifier.Notify(notifyCtx, id, alert.ReasonUnplannedDisconnect, episode)
	cancel()
	if err != nil {
		s.metrics.AlertFailed()
		slog.ErrorContext(ctx, "Alert dispatch failed, will retry next sweep",
			"device_id", id,
			"episode", episode,
			"error", err,
		)
		if rerr := s.store.ReleaseEpisode(ctx, id, episode); rerr != nil {
			slog.ErrorContext(ctx, "Releasing claim failed, lease will expire", "device_id", id, "error", rerr)
		}
		run.fail(fmt.Errorf("%s:%w: %s: %w", fn, ErrDeviceFailed, id, err))
		return
	}
	s.metrics.AlertDispatched()
	run.fired.Add(1)

	confirmed, err := s.store.ConfirmEpisode(ctx, id, episode)
	if err != nil {
		// the alert went out; the lease keeps other sweeps off until it expires
		run.fail(fmt.Errorf("%s:%w: %s: %w", fn, ErrDeviceFailed, id, err))
		return
	}
	if !confirmed {
		slog.WarnContext(ctx, "Device changed while alert was in flight", "device_id", id, "episode", episode)
	}
}

// leaseMargin is the slack kept between a dispatch deadline and the lease end.
func leaseMargin(ttl time.Duration) time.Duration {
	return min(ttl/10, maxLeaseMargin)
}
