// Package timestamp converts epoch-millisecond instants to the civil UTC
// string format expected by the conversion upload API.
package timestamp

import "time"

// Layout is the civil portion of the output; the fixed "+00:00" suffix labels
// the result as UTC.
const layout = "2006-01-02 15:04:05"

// Encode renders a non-negative epoch-millisecond value as
// "YYYY-MM-DD HH:MM:SS+00:00" in UTC. Total for any non-negative input.
func Encode(epochMillis int64) string {
	return time.UnixMilli(epochMillis).UTC().Format(layout) + "+00:00"
}

// FromTime renders a time.Time in the same fixed format.
func FromTime(t time.Time) string {
	return t.UTC().Format(layout) + "+00:00"
}
