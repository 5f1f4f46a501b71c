package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"

	"presence-monitor/internal/api"
)

// Posts a flapping device and a dropped device through the HTTP ingest route
// and prints their status and event log.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "service base URL")
	token := flag.String("token", "", "bearer token for POST /events")
	flag.Parse()

	now := time.Now().UTC()
	events := []api.DeviceEvent{
		{DeviceID: "flapper", EventType: "connected", Timestamp: now.Add(-3 * time.Minute).Format(time.RFC3339)},
		{DeviceID: "flapper", EventType: "disconnected", Timestamp: now.Add(-2 * time.Minute).Format(time.RFC3339)},
		{DeviceID: "flapper", EventType: "connected", Timestamp: now.Add(-1 * time.Minute).Format(time.RFC3339)},
		{DeviceID: "dropped", EventType: "connected", Timestamp: now.Add(-3 * time.Minute).Format(time.RFC3339)},
		{DeviceID: "dropped", EventType: "disconnected", Timestamp: now.Add(-2 * time.Minute).Format(time.RFC3339)},
		{DeviceID: "parked", EventType: "disconnected", Timestamp: now.Add(-2 * time.Minute).Format(time.RFC3339), Planned: true},
	}
	payload, _ := json.Marshal(api.CreateDeviceEventsRequest{Events: events})

	req, err := http.NewRequest(http.MethodPost, *baseURL+"/events", bytes.NewBuffer(payload))
	if err != nil {
		panic(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if *token != "" {
		req.Header.Set("Authorization", "Bearer "+*token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		panic(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	fmt.Println("POST /events status:", resp.Status)
	fmt.Println(string(body))

	start := now.Add(-1 * time.Hour).Format(time.RFC3339)
	end := now.Add(1 * time.Hour).Format(time.RFC3339)
	for _, id := range []string{"flapper", "dropped", "parked"} {
		var status api.DeviceStatusResponse
		getJSON(fmt.Sprintf("%s/devices/%s", *baseURL, id), &status)
		fmt.Printf("%s status: %+v\n", id, status)

		var timeline api.GetDeviceTimelineResponse
		getJSON(fmt.Sprintf("%s/devices/%s/events?start=%s&end=%s", *baseURL, id, start, end), &timeline)
		fmt.Printf("%s events: %+v\n", id, timeline.Events)
	}
}

func getJSON(url string, out any) {
	resp, err := http.Get(url)
	if err != nil {
		panic(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		fmt.Printf("GET %s: HTTP %d %s\n", url, resp.StatusCode, body)
		return
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		panic(err)
	}
}
