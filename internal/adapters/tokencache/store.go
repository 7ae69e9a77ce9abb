// Package tokencache provides the credential cache gateway: read and write a
// cached access credential keyed by a caller-supplied path. Credential
// lifetime is owned by the remote authorization server; callers refresh
// reactively on auth failures, never preemptively. Concurrent writers are
// tolerated with last-write-wins semantics.
package tokencache

import (
	"context"

	"github.com/okian/convrelay/internal/domain/model"
)

// Store is the credential cache contract.
type Store interface {
	// Read returns the credential cached under path, or ErrMiss when absent.
	Read(ctx context.Context, path string) (model.Credential, error)

	// Write persists cred under path, replacing any previous value.
	Write(ctx context.Context, path string, cred model.Credential) error
}
