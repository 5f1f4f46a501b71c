package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

// WaitForBroker dials the broker with exponential backoff until it answers or
// maxWait elapses.
func WaitForBroker(ctx context.Context, broker string, maxWait time.Duration) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 5 * time.Second
	policy.MaxElapsedTime = maxWait

	dial := func() error {
		dialCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		conn, err := kafka.DialContext(dialCtx, "tcp", broker)
		if err != nil {
			slog.InfoContext(ctx, "Broker not ready", "broker", broker, "error", err)
			return err
		}
		conn.Close()
		return nil
	}
	if err := backoff.Retry(dial, backoff.WithContext(policy, ctx)); err != nil {
		return fmt.Errorf("broker %s not reachable after %s: %w", broker, maxWait, err)
	}
	slog.InfoContext(ctx, "Broker is ready", "broker", broker)
	return nil
}
