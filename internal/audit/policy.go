package audit

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Policy controls when audit records are emitted.
type Policy string

// Policy states: always emit, never emit, or emit only when the host runtime
// reports a debug/preview mode.
const (
	PolicyAlways Policy = "always"
	PolicyNever  Policy = "never"
	PolicyDebug  Policy = "debug"
)

// ParsePolicy maps user input to a Policy. Empty input means debug-gated,
// matching the behavior of leaving the logging setting untouched.
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always", "yes":
		return PolicyAlways, nil
	case "never", "no":
		return PolicyNever, nil
	case "", "debug":
		return PolicyDebug, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
	}
}

// DebugReporter reports whether the host runtime is in a debug/preview mode.
type DebugReporter func() bool

// EnvDebugReporter consults CONVRELAY_DEBUG and CONVRELAY_PREVIEW; either
// being truthy enables debug-gated auditing.
func EnvDebugReporter() bool {
	for _, key := range []string{"CONVRELAY_DEBUG", "CONVRELAY_PREVIEW"} {
		if v, err := strconv.ParseBool(os.Getenv(key)); err == nil && v {
			return true
		}
	}
	return false
}
