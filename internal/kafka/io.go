package kafka

import (
	"context"

	"github.com/segmentio/kafka-go"
)

//go:generate mockery --name Reader --inpackage --with-expecter --unroll-variadic=false --filename mock_reader.go
//go:generate mockery --name Writer --inpackage --with-expecter --unroll-variadic=false --filename mock_writer.go

// Reader is the subset of *kafka.Reader the consumers use. Messages are
// committed explicitly so a failed store write leads to redelivery.
type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var (
	_ Reader = (*kafka.Reader)(nil)
	_ Writer = (*kafka.Writer)(nil)
)
