package tokencache

import (
	"context"
	"sync"

	"github.com/okian/convrelay/internal/domain/model"
)

// MemoryStore keeps credentials in process memory. Used for local runs and
// tests; a restart forgets everything, which only costs one extra refresh.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[string]model.Credential
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[string]model.Credential),
	}
}

// Read returns the credential cached under path, or ErrMiss.
func (s *MemoryStore) Read(_ context.Context, path string) (model.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cred, ok := s.creds[path]
	if !ok {
		return model.Credential{}, ErrMiss
	}
	return cred, nil
}

// Write stores cred under path, last write wins.
func (s *MemoryStore) Write(_ context.Context, path string, cred model.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds[path] = cred
	return nil
}
