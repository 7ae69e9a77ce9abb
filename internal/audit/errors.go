package audit

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrUnknownPolicy = errors.New("unknown audit policy")
	ErrSinkEmit      = errors.New("audit sink emit failed")
)
