package sessionstore

import (
	"context"
	"sync"

	"github.com/embercove/voicelink/domain/entities"
	"github.com/embercove/voicelink/domain/repositories"
)

// MemoryStore is an in-memory SessionStore for tests and throwaway runs.
type MemoryStore struct {
	mu      sync.Mutex
	session *entities.Session
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored session identity.
func (s *MemoryStore) Load(ctx context.Context) (*entities.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.session == nil {
		return nil, repositories.ErrSessionNotFound
	}
	copied := *s.session
	return &copied, nil
}

// Save replaces the stored session identity.
func (s *MemoryStore) Save(ctx context.Context, session *entities.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := *session
	s.session = &copied
	return nil
}
