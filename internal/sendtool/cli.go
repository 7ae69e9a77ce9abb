package sendtool

import (
	"os"
)

// ShowHelp prints usage information for the send-conversion tool.
func ShowHelp() {
	os.Stdout.WriteString(`Conversion Send Tool
====================

Submits conversion events to a running relay instance.

Usage:
  go run cmd/send-conversion/main.go [options]

Options:
  -url string
        Base URL of the relay service (default "http://localhost:9080")
  -file string
        Event JSON file; a single object or an array. "-" reads stdin (default "-")
  -trace string
        Trace id to forward into audit records (default: server-generated)
  -timeout duration
        HTTP request timeout (default 30s)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Send a single event from stdin
  echo '{"event_name":"purchase","value":49.99,"currency":"EUR","order_id":"A1"}' | \
    go run cmd/send-conversion/main.go

  # Send a batch from a file with a fixed trace id
  go run cmd/send-conversion/main.go -file events.json -trace smoke-test-1
`)
}
