package app

import (
	"sync"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/metrics"
)

// SessionRepository abstracts where live card sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(targetID string) *Session
	Get(targetID string) (*Session, bool)
	DeleteIfEmpty(targetID string)
}

// Session fans out card snapshots of one target to its subscribers.
type Session struct {
	id          string
	mu          sync.RWMutex
	last        *domain.CardSnapshot
	subscribers map[chan domain.CardSnapshot]struct{}
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string) *Session {
	return &Session{
		id:          id,
		subscribers: make(map[chan domain.CardSnapshot]struct{}),
	}
}

// ID returns the target the session belongs to.
func (s *Session) ID() string { return s.id }

// IsEmpty reports whether nobody is subscribed.
func (s *Session) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subscribers) == 0
}

// subscribe registers a listener and primes it with initial.
func (s *Session) subscribe(initial domain.CardSnapshot) (<-chan domain.CardSnapshot, func()) {
	ch := make(chan domain.CardSnapshot, 8)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	if s.last == nil || !s.last.UpdatedAt.After(initial.UpdatedAt) {
		s.last = &initial
	}
	ch <- *s.last
	s.mu.Unlock()
	metrics.Subscribers.Inc()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
			metrics.Subscribers.Dec()
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

func (s *Session) publish(snap domain.CardSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &snap
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
			// slow subscriber: replace its oldest pending snapshot
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
}

// closeAll disconnects every subscriber; used when the target is deleted.
func (s *Session) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
		metrics.Subscribers.Dec()
	}
}
