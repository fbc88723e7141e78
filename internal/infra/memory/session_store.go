package memory

import (
	"sort"
	"sync"

	"persona-card-service/internal/app"
)

// SessionHooks observe the watched-target set. OnWatch runs on every
// GetOrCreate, OnRelease when an empty session is dropped. Both run under the
// store lock and must not call back into it.
type SessionHooks struct {
	OnWatch   func(targetID string)
	OnRelease func(targetID string)
}

// SessionStore is an in-memory implementation of app.SessionRepository.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*app.Session
	hooks    SessionHooks
}

func NewSessionStore() *SessionStore {
	return NewSessionStoreWithHooks(SessionHooks{})
}

// NewSessionStoreWithHooks lets other adapters mirror the watched set.
func NewSessionStoreWithHooks(hooks SessionHooks) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]*app.Session),
		hooks:    hooks,
	}
}

func (s *SessionStore) GetOrCreate(targetID string) *app.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[targetID]
	if !ok {
		session = app.NewSession(targetID)
		s.sessions[targetID] = session
	}
	if s.hooks.OnWatch != nil {
		s.hooks.OnWatch(targetID)
	}
	return session
}

func (s *SessionStore) Get(targetID string) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[targetID]
	return session, ok
}

func (s *SessionStore) DeleteIfEmpty(targetID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[targetID]
	if !ok || !session.IsEmpty() {
		return
	}
	delete(s.sessions, targetID)
	if s.hooks.OnRelease != nil {
		s.hooks.OnRelease(targetID)
	}
}

// Watched returns the targets that currently hold a session, sorted.
func (s *SessionStore) Watched() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
