package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Config struct {
	Name      string
	Processor Processor
	// MaxBackoff caps the pause between consecutive failed iterations.
	MaxBackoff time.Duration
}

type Processor interface {
	ProcessMessage(ctx context.Context) error
}

type Worker struct {
	name      string
	processor Processor
	backoff   *backoff.ExponentialBackOff
}

func New(cfg Config) *Worker {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	if cfg.MaxBackoff > 0 {
		b.MaxInterval = cfg.MaxBackoff
	}
	if b.InitialInterval > b.MaxInterval {
		b.InitialInterval = b.MaxInterval
	}
	b.MaxElapsedTime = 0
	return &Worker{
		name:      cfg.Name,
		processor: cfg.Processor,
		backoff:   b,
	}
}

// Run calls the processor until ctx is cancelled. A failed iteration pauses the
// loop with exponential backoff; a successful one resets it.
func (w *Worker) Run(ctx context.Context) {
	slog.InfoContext(ctx, "Worker started...", "worker", w.name)
	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Worker stopped...", "worker", w.name)
			return
		default:
		}

		err := w.processor.ProcessMessage(ctx)
		if err == nil {
			w.backoff.Reset()
			continue
		}
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			continue
		}
		pause := w.backoff.NextBackOff()
		slog.ErrorContext(ctx, "Worker iteration failed", "worker", w.name, "error", err, "retry_in", pause.String())
		select {
		case <-ctx.Done():
		case <-time.After(pause):
		}
	}
}
