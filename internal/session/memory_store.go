package session

import (
	"context"
	"sync"
	"time"

	"pos_service/internal/domain"
)

// MemoryStore keeps sessions in process. Used when REDIS_ADDR is unset.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	now      func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]domain.Session),
		now:      time.Now,
	}
}

func (s *MemoryStore) Create(_ context.Context, session *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.Token] = *session
	s.sweep()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, token string) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if session.Expired(s.now()) {
		delete(s.sessions, token)
		return nil, domain.ErrSessionNotFound
	}
	return &session, nil
}

func (s *MemoryStore) Delete(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error {
	return nil
}

// sweep drops expired sessions. Caller holds mu.
func (s *MemoryStore) sweep() {
	now := s.now()
	for token, session := range s.sessions {
		if session.Expired(now) {
			delete(s.sessions, token)
		}
	}
}
