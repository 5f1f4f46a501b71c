package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	k "presence-monitor/internal/kafka"
	"presence-monitor/internal/presence"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	mock "github.com/stretchr/testify/mock"
)

func message(t *testing.T, record k.PresenceRecord) kafka.Message {
	t.Helper()
	data, err := json.Marshal(record)
	assert.NoError(t, err)
	return kafka.Message{Key: []byte(record.DeviceID), Value: data, Offset: 7}
}

func Test_ProcessMessage(t *testing.T) {
	record := k.PresenceRecord{DeviceID: "device123", EventType: "disconnected", Timestamp: k.UnixMillis(time.UnixMilli(1_700_000_000_000))}
	event := presence.Event{
		DeviceID:  "device123",
		EventTime: time.UnixMilli(1_700_000_000_000).UTC(),
		Kind:      presence.KindDisconnected,
	}

	cases := []struct {
		name           string
		inputMessage   func() kafka.Message
		setupReader    func(kafka.Message) k.Reader
		setupIngester  func() Ingester
		contextTimeout time.Duration
		expectedErr    error
	}{
		{
			name:         "valid message is applied and committed",
			inputMessage: func() kafka.Message { return message(t, record) },
			setupReader: func(m kafka.Message) k.Reader {
				r := k.NewMockReader(t)
				r.EXPECT().FetchMessage(mock.Anything).Return(m, nil)
				r.EXPECT().CommitMessages(mock.Anything, []kafka.Message{m}).Return(nil)
				return r
			},
			setupIngester: func() Ingester {
				i := NewMockIngester(t)
				i.EXPECT().Ingest(mock.Anything, event).Return(presence.OutcomePendingDisconnect, nil)
				return i
			},
		},
		{
			name:         "stale event is committed",
			inputMessage: func() kafka.Message { return message(t, record) },
			setupReader: func(m kafka.Message) k.Reader {
				r := k.NewMockReader(t)
				r.EXPECT().FetchMessage(mock.Anything).Return(m, nil)
				r.EXPECT().CommitMessages(mock.Anything, []kafka.Message{m}).Return(nil)
				return r
			},
			setupIngester: func() Ingester {
				i := NewMockIngester(t)
				i.EXPECT().Ingest(mock.Anything, event).Return(presence.OutcomeStale, nil)
				return i
			},
		},
		{
			name: "reader failed",
			inputMessage: func() kafka.Message {
				return kafka.Message{}
			},
			setupReader: func(m kafka.Message) k.Reader {
				r := k.NewMockReader(t)
				r.EXPECT().FetchMessage(mock.Anything).Return(m, errors.New("failed"))
				return r
			},
			setupIngester: func() Ingester { return NewMockIngester(t) },
			expectedErr:   ErrReadMessage,
		},
		{
			name: "invalid message JSON is skipped",
			inputMessage: func() kafka.Message {
				return kafka.Message{Key: []byte("device123"), Value: []byte("invalid-json")}
			},
			setupReader: func(m kafka.Message) k.Reader {
				r := k.NewMockReader(t)
				r.EXPECT().FetchMessage(mock.Anything).Return(m, nil)
				r.EXPECT().CommitMessages(mock.Anything, []kafka.Message{m}).Return(nil)
				return r
			},
			setupIngester: func() Ingester { return NewMockIngester(t) },
		},
		{
			name: "malformed event is committed without retry",
			inputMessage: func() kafka.Message {
				return message(t, k.PresenceRecord{DeviceID: "", EventType: "connected", Timestamp: k.UnixMillis(time.UnixMilli(1))})
			},
			setupReader: func(m kafka.Message) k.Reader {
				r := k.NewMockReader(t)
				r.EXPECT().FetchMessage(mock.Anything).Return(m, nil)
				r.EXPECT().CommitMessages(mock.Anything, []kafka.Message{m}).Return(nil)
				return r
			},
			setupIngester: func() Ingester {
				i := NewMockIngester(t)
				i.EXPECT().Ingest(mock.Anything, mock.Anything).
					Return(presence.OutcomeUnknown, &presence.MalformedEventError{Reason: "empty device id"}).
					Once()
				return i
			},
		},
		{
			name:         "store failure is retried before commit",
			inputMessage: func() kafka.Message { return message(t, record) },
			setupReader: func(m kafka.Message) k.Reader {
				r := k.NewMockReader(t)
				r.EXPECT().FetchMessage(mock.Anything).Return(m, nil)
				r.EXPECT().CommitMessages(mock.Anything, []kafka.Message{m}).Return(nil)
				return r
			},
			setupIngester: func() Ingester {
				i := NewMockIngester(t)
				i.EXPECT().Ingest(mock.Anything, event).Return(presence.OutcomeUnknown, errors.New("db down")).Once()
				i.EXPECT().Ingest(mock.Anything, event).Return(presence.OutcomePendingDisconnect, nil).Once()
				return i
			},
		},
		{
			name:         "store failure until shutdown leaves offset uncommitted",
			inputMessage: func() kafka.Message { return message(t, record) },
			setupReader: func(m kafka.Message) k.Reader {
				r := k.NewMockReader(t)
				r.EXPECT().FetchMessage(mock.Anything).Return(m, nil)
				return r
			},
			setupIngester: func() Ingester {
				i := NewMockIngester(t)
				i.EXPECT().Ingest(mock.Anything, event).Return(presence.OutcomeUnknown, errors.New("db down"))
				return i
			},
			contextTimeout: 50 * time.Millisecond,
			expectedErr:    ErrIngest,
		},
		{
			name:         "commit failed",
			inputMessage: func() kafka.Message { return message(t, record) },
			setupReader: func(m kafka.Message) k.Reader {
				r := k.NewMockReader(t)
				r.EXPECT().FetchMessage(mock.Anything).Return(m, nil)
				r.EXPECT().CommitMessages(mock.Anything, []kafka.Message{m}).Return(errors.New("rebalance"))
				return r
			},
			setupIngester: func() Ingester {
				i := NewMockIngester(t)
				i.EXPECT().Ingest(mock.Anything, event).Return(presence.OutcomeReconnected, nil)
				return i
			},
			expectedErr: ErrCommitMessage,
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			ctx := context.Background()
			if c.contextTimeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, c.contextTimeout)
				defer cancel()
			}
			consumer := New(Config{
				Reader:           c.setupReader(c.inputMessage()),
				Ingester:         c.setupIngester(),
				RetryMaxInterval: 10 * time.Millisecond,
			})

			err := consumer.ProcessMessage(ctx)
			if c.expectedErr != nil {
				assert.ErrorIs(t, err, c.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
