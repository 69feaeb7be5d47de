package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// sessionStore tracks logged-in admin sessions in memory. Tokens are
// random UUIDs handed out as cookies; sessions expire after an idle
// timeout and are swept lazily on access. A restart logs everyone out,
// which is fine for a single-admin tool.
type sessionStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	expiries map[string]time.Time
	now      func() time.Time
}

func newSessionStore(ttl time.Duration) *sessionStore {
	return &sessionStore{
		ttl:      ttl,
		expiries: map[string]time.Time{},
		now:      time.Now,
	}
}

// Create registers a new session and returns its token.
func (s *sessionStore) Create() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.expiries[token] = s.now().Add(s.ttl)
	s.mu.Unlock()
	return token
}

// Valid reports whether the token names a live session, refreshing its
// idle timeout when it does.
func (s *sessionStore) Valid(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for t, exp := range s.expiries {
		if now.After(exp) {
			delete(s.expiries, t)
		}
	}

	if _, ok := s.expiries[token]; !ok {
		return false
	}
	s.expiries[token] = now.Add(s.ttl)
	return true
}

// Delete ends a session.
func (s *sessionStore) Delete(token string) {
	s.mu.Lock()
	delete(s.expiries, token)
	s.mu.Unlock()
}
