package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Task is one scheduled run. now is the tick time.
type Task func(ctx context.Context, now time.Time) error

type SchedulerConfig struct {
	Name     string
	Interval time.Duration
	Task     Task
	// Now defaults to time.Now.
	Now func() time.Time
}

// Scheduler runs a task once at start and then on every tick. Ticks that
// arrive while the task is still running are dropped by the ticker.
type Scheduler struct {
	name     string
	interval time.Duration
	task     Task
	now      func() time.Time
}

func NewScheduler(cfg SchedulerConfig) *Scheduler {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		name:     cfg.Name,
		interval: cfg.Interval,
		task:     cfg.Task,
		now:      now,
	}
}

func (s *Scheduler) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Scheduler started", "scheduler", s.name, "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Scheduler stopped", "scheduler", s.name)
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.task(ctx, s.now()); err != nil && !errors.Is(err, context.Canceled) {
		slog.ErrorContext(ctx, "Scheduled task failed", "scheduler", s.name, "error", err)
	}
}
