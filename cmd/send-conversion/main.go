package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/convrelay/internal/sendtool"
)

// Default configuration constants.
const (
	defaultTimeout    = 30 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL   = flag.String("url", "http://localhost:9080", "Base URL of the relay service")
		eventFile = flag.String("file", "-", "Event JSON file; \"-\" reads stdin")
		traceID   = flag.String("trace", "", "Trace id to forward into audit records")
		timeout   = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		verbose   = flag.Bool("verbose", false, "Enable verbose logging")
		help      = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		sendtool.ShowHelp()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &sendtool.Config{
		BaseURL:   *baseURL,
		EventFile: *eventFile,
		TraceID:   *traceID,
		Timeout:   *timeout,
		Verbose:   *verbose,
	}

	if err := sendtool.Run(ctx, config); err != nil {
		os.Stderr.WriteString("send failed: " + err.Error() + "\n")
		os.Exit(1)
	}
}
