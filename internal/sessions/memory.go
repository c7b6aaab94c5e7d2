package sessions

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store safe for concurrent use.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]uint
	newID    func() string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]uint),
		newID:    newID,
	}
}

func (s *MemoryStore) Create(ctx context.Context, userID uint) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < maxCreateAttempts; i++ {
		id := s.newID()
		if _, exists := s.sessions[id]; exists {
			continue
		}
		s.sessions[id] = userID
		return id, nil
	}
	return "", ErrIDCollision
}

func (s *MemoryStore) Resolve(ctx context.Context, id string) (uint, bool, error) {
	if id == "" {
		return 0, false, nil
	}
	s.mu.RLock()
	userID, ok := s.sessions[id]
	s.mu.RUnlock()
	return userID, ok, nil
}

func (s *MemoryStore) Revoke(ctx context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

// Len returns the number of open sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}
