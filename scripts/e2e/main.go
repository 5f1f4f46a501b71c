package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	k "presence-monitor/internal/kafka"

	"github.com/segmentio/kafka-go"
)

// Publishes three devices to the events topic, then reads the alerts topic
// and checks that only the device that stayed away was reported, exactly once.
//
// Run the service with a short debounce_window (e.g. 10s) and sweep.interval
// (e.g. 2s) before starting this.
func main() {
	broker := flag.String("broker", "localhost:9092", "kafka broker")
	eventsTopic := flag.String("events", "device-events", "events topic")
	alertsTopic := flag.String("alerts", "device-alerts", "alerts topic")
	wait := flag.Duration("wait", 30*time.Second, "how long to collect alerts")
	flag.Parse()

	ctx := context.Background()
	runID := time.Now().Format("150405")
	flapper, dropped, parked := "flapper-"+runID, "dropped-"+runID, "parked-"+runID

	now := time.Now()
	records := []k.PresenceRecord{
		{DeviceID: flapper, EventType: k.EventConnected, Timestamp: k.UnixMillis(now.Add(-4 * time.Second))},
		{DeviceID: flapper, EventType: k.EventDisconnected, Timestamp: k.UnixMillis(now.Add(-3 * time.Second))},
		{DeviceID: flapper, EventType: k.EventConnected, Timestamp: k.UnixMillis(now.Add(-2 * time.Second))},
		{DeviceID: dropped, EventType: k.EventConnected, Timestamp: k.UnixMillis(now.Add(-4 * time.Second))},
		{DeviceID: dropped, EventType: k.EventDisconnected, Timestamp: k.UnixMillis(now.Add(-3 * time.Second))},
		// redelivery of the same disconnect
		{DeviceID: dropped, EventType: k.EventDisconnected, Timestamp: k.UnixMillis(now.Add(-3 * time.Second))},
		{DeviceID: parked, EventType: k.EventDisconnected, Timestamp: k.UnixMillis(now.Add(-3 * time.Second)), Planned: true},
	}

	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  []string{*broker},
		Topic:    *eventsTopic,
		Balancer: &kafka.Hash{},
	})
	defer writer.Close()

	messages := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		value, err := json.Marshal(r)
		if err != nil {
			panic(err)
		}
		messages = append(messages, kafka.Message{Key: []byte(r.DeviceID), Value: value})
	}
	if err := writer.WriteMessages(ctx, messages...); err != nil {
		panic(fmt.Errorf("failed to write messages: %w", err))
	}
	fmt.Printf("Published %d events to %s\n", len(messages), *eventsTopic)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     []string{*broker},
		Topic:       *alertsTopic,
		StartOffset: kafka.LastOffset,
	})
	defer reader.Close()

	alerts := map[string]int{}
	readCtx, cancel := context.WithTimeout(ctx, *wait)
	defer cancel()
	for {
		m, err := reader.ReadMessage(readCtx)
		if err != nil {
			break
		}
		var record k.StructuredConnectRecord
		if err := json.Unmarshal(m.Value, &record); err != nil {
			fmt.Printf("undecodable alert: %v\n", err)
			continue
		}
		alerts[record.Payload.DeviceID]++
		fmt.Printf("Alert: %+v\n", record.Payload)
	}

	ok := alerts[dropped] == 1 && alerts[flapper] == 0 && alerts[parked] == 0
	fmt.Printf("alerts dropped=%d flapper=%d parked=%d\n", alerts[dropped], alerts[flapper], alerts[parked])
	if !ok {
		fmt.Println("FAIL")
		os.Exit(1)
	}
	fmt.Println("PASS")
}
