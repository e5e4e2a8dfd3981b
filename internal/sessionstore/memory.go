package sessionstore

import (
	"context"
	"sync"

	"github.com/imobiai/leadqual-server-go/internal/model"
)

// MemoryStore is a process-local Store for tests and single-instance runs.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.PairingSession
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]model.PairingSession),
	}
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.PairingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	copy := session
	return &copy, nil
}

func (s *MemoryStore) Put(_ context.Context, session *model.PairingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}
