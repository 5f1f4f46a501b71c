package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	k "presence-monitor/internal/kafka" // alias to avoid name conflict
	"presence-monitor/internal/metrics"
	"presence-monitor/internal/presence"
	"presence-monitor/internal/worker"

	"github.com/cenkalti/backoff/v4"
	"github.com/segmentio/kafka-go"
)

//go:generate mockery --name Ingester --inpackage --with-expecter --filename mock_ingester.go

var (
	ErrReadMessage   = errors.New("read message failed")
	ErrCommitMessage = errors.New("commit message failed")
	ErrIngest        = errors.New("ingest failed")
)

type Ingester interface {
	Ingest(ctx context.Context, event presence.Event) (presence.Outcome, error)
}

type Config struct {
	Reader   k.Reader
	Ingester Ingester
	Metrics  *metrics.Metrics
	// RetryMaxInterval caps the pause between attempts on a store failure.
	RetryMaxInterval time.Duration
}

// ReaderConfig builds the consumer-group reader used in production.
type ReaderConfig struct {
	Brokers         []string
	ConsumerGroupID string
	Topic           string
}

func NewReader(cfg ReaderConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers: cfg.Brokers,
		GroupID: cfg.ConsumerGroupID,
		Topic:   cfg.Topic,
	})
}

// Consumer reads presence events from Kafka and feeds them to the parser. An
// offset is committed only once its event is applied, found stale, or
// rejected as malformed.
type Consumer struct {
	worker   *worker.Worker
	reader   k.Reader
	ingester Ingester
	metrics  *metrics.Metrics
	retryMax time.Duration
}

func New(cfg Config) *Consumer {
	c := &Consumer{
		reader:   cfg.Reader,
		ingester: cfg.Ingester,
		metrics:  cfg.Metrics,
		retryMax: cfg.RetryMaxInterval,
	}
	if c.retryMax <= 0 {
		c.retryMax = 10 * time.Second
	}
	c.worker = worker.New(worker.Config{
		Name:      "ingest-worker",
		Processor: c,
	})
	return c
}

func (c *Consumer) Run(ctx context.Context) {
	c.worker.Run(ctx)
}

func (c *Consumer) Close(ctx context.Context) {
	slog.InfoContext(ctx, "Closing ingest resources...")
	if err := c.reader.Close(); err != nil {
		slog.ErrorContext(ctx, "Error closing reader", "error", err)
	}
}

func (c *Consumer) ProcessMessage(ctx context.Context) error {
	const fn = "Consumer:ProcessMessage"
	m, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrReadMessage, err)
	}

	var record k.PresenceRecord
	if err := json.Unmarshal(m.Value, &record); err != nil {
		c.metrics.EventMalformed()
		slog.WarnContext(ctx, "Undecodable event, skipping",
			"error", err,
			"partition", m.Partition,
			"offset", m.Offset,
		)
		return c.commit(ctx, m)
	}

	if err := c.ingest(ctx, record.Event()); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrIngest, err)
	}
	return c.commit(ctx, m)
}

// ingest retries store failures until they clear or ctx ends. Malformed events
// are not retried.
func (c *Consumer) ingest(ctx context.Context, event presence.Event) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = min(100*time.Millisecond, c.retryMax)
	policy.MaxInterval = c.retryMax
	policy.MaxElapsedTime = 0

	op := func() error {
		_, err := c.ingester.Ingest(ctx, event)
		if errors.Is(err, presence.ErrMalformedEvent) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, next time.Duration) {
		slog.ErrorContext(ctx, "Ingest failed, retrying",
			"device_id", event.DeviceID,
			"error", err,
			"retry_in", next.String(),
		)
	}
	err := backoff.RetryNotify(op, backoff.WithContext(policy, ctx), notify)
	if errors.Is(err, presence.ErrMalformedEvent) {
		return nil
	}
	return err
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) error {
	const fn = "Consumer:commit"
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		return fmt.Errorf("%s:%w:%w", fn, ErrCommitMessage, err)
	}
	return nil
}
