package sendtool

import "time"

// Config holds configuration for one send-conversion run.
type Config struct {
	BaseURL   string        // Base URL of the relay service
	EventFile string        // Path to the event JSON file, "-" for stdin
	TraceID   string        // Trace id forwarded into audit records
	Timeout   time.Duration // HTTP request timeout
	Verbose   bool          // Enable verbose logging
}

// AckResponse represents the response from a conversion submission.
type AckResponse struct {
	Status  string `json:"status"`
	TraceID string `json:"trace_id"`
}

// ErrorResponse represents a rejection from the relay.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Stats holds run statistics.
type Stats struct {
	EventsLoaded   int
	EventsRelayed  int
	EventsRejected int
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
}
