package alert

import (
	"context"
	"encoding/json"
	"fmt"

	k "presence-monitor/internal/kafka"

	"github.com/segmentio/kafka-go"
)

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// KafkaPublisher writes alerts keyed by device id, so all alerts for one device
// land on one partition in order.
type KafkaPublisher struct {
	writer k.Writer
}

func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:      cfg.Brokers,
			Topic:        cfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: int(kafka.RequireAll),
		}),
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, msg Message) error {
	record := k.StructuredConnectRecord{
		Schema:  k.AlertSchema,
		Payload: msg.Payload(),
	}
	out, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal alert: %w", err)
	}
	return p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(msg.DeviceID), Value: out})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
