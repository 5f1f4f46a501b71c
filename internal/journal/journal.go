// Package journal keeps an append-only CBOR file of every accepted presence
// event. It complements the store's event log for offline replay and debugging;
// unlike the store it records duplicate deliveries too.
package journal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"presence-monitor/internal/presence"

	"github.com/fxamacker/cbor/v2"
)

var ErrClosed = errors.New("journal closed")

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.EncOptions{
		Sort:        cbor.SortCanonical,
		IndefLength: cbor.IndefLengthForbidden,
		Time:        cbor.TimeRFC3339Nano,
	}.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create journal CBOR encoder mode: %v", err))
	}
	decMode, err = cbor.DecOptions{
		DupMapKey: cbor.DupMapKeyQuiet,
	}.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create journal CBOR decoder mode: %v", err))
	}
}

// Record is the on-disk form; integer keys keep it compact.
type Record struct {
	DeviceID   string    `cbor:"1,keyasint"`
	EventTime  time.Time `cbor:"2,keyasint"`
	Kind       string    `cbor:"3,keyasint"`
	Planned    bool      `cbor:"4,keyasint,omitempty"`
	RecordedAt time.Time `cbor:"5,keyasint"`
}

func (r Record) Entry() presence.LogEntry {
	return presence.LogEntry{
		DeviceID:   r.DeviceID,
		EventTime:  r.EventTime.UTC(),
		Kind:       presence.Kind(r.Kind),
		Planned:    r.Planned,
		RecordedAt: r.RecordedAt.UTC(),
	}
}

// File appends records to a journal file. Safe for concurrent use.
type File struct {
	mu      sync.Mutex
	file    *os.File
	encoder *cbor.Encoder
	closed  bool
}

func Open(path string) (*File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	return &File{file: f, encoder: encMode.NewEncoder(f)}, nil
}

func (j *File) Append(_ context.Context, entry presence.LogEntry) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return ErrClosed
	}
	return j.encoder.Encode(Record{
		DeviceID:   entry.DeviceID,
		EventTime:  entry.EventTime,
		Kind:       string(entry.Kind),
		Planned:    entry.Planned,
		RecordedAt: entry.RecordedAt,
	})
}

// Close is safe to call more than once.
func (j *File) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.file.Close()
}

// Reader streams records back out of a journal file, optionally for one device.
type Reader struct {
	file     *os.File
	decoder  *cbor.Decoder
	deviceID string
}

func NewReader(path, deviceID string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{file: f, decoder: decMode.NewDecoder(f), deviceID: deviceID}, nil
}

// Next returns io.EOF once the file is exhausted.
func (r *Reader) Next() (Record, error) {
	for {
		var rec Record
		if err := r.decoder.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				return Record{}, io.EOF
			}
			return Record{}, err
		}
		if r.deviceID == "" || rec.DeviceID == r.deviceID {
			return rec, nil
		}
	}
}

func (r *Reader) Close() error {
	return r.file.Close()
}

var _ presence.Appender = (*File)(nil)
