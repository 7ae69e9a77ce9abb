package upload

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	// ErrConfiguration marks malformed delivery configuration, e.g. a
	// container key missing a segment. Never retried.
	ErrConfiguration = errors.New("invalid upload configuration")

	// ErrAuth marks a failed refresh exchange or a second 401 after the
	// single auth retry. Terminal for the invocation.
	ErrAuth = errors.New("authentication failed")

	// ErrUpstream marks a non-2xx/3xx, non-401 response from the ingestion
	// endpoint. Terminal, not retried.
	ErrUpstream = errors.New("upstream rejected conversion")

	// ErrTransport marks a network-level failure before any status was
	// obtained. Terminal here; transport-level retry is not this layer's job.
	ErrTransport = errors.New("transport failure")
)
