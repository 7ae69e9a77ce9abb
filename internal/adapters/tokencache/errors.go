package tokencache

import "errors"

// Sentinel error kinds for this package. These allow errors.Is/As from callers.
var (
	ErrMiss  = errors.New("credential not cached")
	ErrRead  = errors.New("credential read failed")
	ErrWrite = errors.New("credential write failed")
)
