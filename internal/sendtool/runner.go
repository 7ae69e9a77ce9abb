// Package sendtool submits conversion events to a running relay instance.
// It backs the send-conversion command used for smoke testing deployments.
package sendtool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"time"
)

// Run loads the events from the configured file and submits them one by one.
// A file may hold a single event object or an array of them.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}

	events, err := loadEvents(config.EventFile)
	if err != nil {
		return err
	}
	stats.EventsLoaded = len(events)
	if len(events) == 0 {
		return errors.New("no events to send")
	}

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/conversions"

	for i, event := range events {
		if config.Verbose {
			log.Printf("submitting event %d/%d", i+1, len(events))
		}

		ack, rejection, err := client.PostConversion(ctx, url, event, config.TraceID)
		if err != nil {
			return err
		}
		if rejection != nil {
			stats.EventsRejected++
			log.Printf("event %d rejected: %s: %s", i+1, rejection.Code, rejection.Message)
			continue
		}

		stats.EventsRelayed++
		if config.Verbose {
			log.Printf("event %d relayed, trace %s", i+1, ack.TraceID)
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	log.Printf("done: %d relayed, %d rejected in %s",
		stats.EventsRelayed, stats.EventsRejected, stats.Duration.Round(time.Millisecond))

	if stats.EventsRejected > 0 {
		return fmt.Errorf("%d of %d events rejected", stats.EventsRejected, stats.EventsLoaded)
	}
	return nil
}

// loadEvents reads event payloads from path; "-" reads stdin.
func loadEvents(path string) ([]map[string]any, error) {
	var raw []byte
	var err error
	if path == "-" {
		raw, err = io.ReadAll(os.Stdin)
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	// Try an array first, then a single object.
	var events []map[string]any
	if err := json.Unmarshal(raw, &events); err == nil {
		return events, nil
	}
	var single map[string]any
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("failed to parse events: %w", err)
	}
	return []map[string]any{single}, nil
}
