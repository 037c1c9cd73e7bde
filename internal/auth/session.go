package auth

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

const DefaultIdleTimeout = time.Hour

// Session is one logged in administrator.
type Session struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// SessionStore keeps admin sessions. A session is valid while it has been
// used within the idle timeout; Touch refreshes it.
type SessionStore interface {
	Create(ctx context.Context, now time.Time) (Session, error)
	// Touch refreshes the session and reports whether it is still valid.
	// An idle session is removed.
	Touch(ctx context.Context, id string, now time.Time) (bool, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context, now time.Time) (int, error)
	// Sweep removes idle sessions and returns how many were removed.
	Sweep(ctx context.Context, now time.Time) (int, error)
}

// MemorySessionStore is a process scoped SessionStore. It starts empty and
// is lost on restart.
type MemorySessionStore struct {
	mu          sync.Mutex
	sessions    map[string]Session
	idleTimeout time.Duration
}

func NewMemorySessionStore(idleTimeout time.Duration) *MemorySessionStore {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	return &MemorySessionStore{
		sessions:    make(map[string]Session),
		idleTimeout: idleTimeout,
	}
}

func (s *MemorySessionStore) Create(_ context.Context, now time.Time) (Session, error) {
	session := Session{
		ID:           uuid.NewString(),
		CreatedAt:    now,
		LastActivity: now,
	}

	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	return session, nil
}

func (s *MemorySessionStore) Touch(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return false, nil
	}
	if s.idle(session, now) {
		delete(s.sessions, id)
		return false, nil
	}

	session.LastActivity = now
	s.sessions[id] = session
	return true, nil
}

func (s *MemorySessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}

func (s *MemorySessionStore) Count(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, session := range s.sessions {
		if !s.idle(session, now) {
			count++
		}
	}
	return count, nil
}

func (s *MemorySessionStore) Sweep(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, session := range s.sessions {
		if s.idle(session, now) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemorySessionStore) idle(session Session, now time.Time) bool {
	return now.Sub(session.LastActivity) >= s.idleTimeout
}
