package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"persona-card-service/internal/infra/memory"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Broadcast stays in process; Redis only carries a liveness marker per
// watched card so other instances and operators can see which cards have
// open subscribers.
type SessionStore struct {
	*memory.SessionStore
	client *redis.Client
	ttl    time.Duration
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	s := &SessionStore{client: client, ttl: ttl}
	s.SessionStore = memory.NewSessionStoreWithHooks(memory.SessionHooks{
		// refreshed on every subscribe so long-lived cards stay marked
		OnWatch: func(targetID string) {
			_ = s.client.Set(context.Background(), s.key(targetID), "1", s.ttl).Err()
		},
		OnRelease: func(targetID string) {
			_ = s.client.Del(context.Background(), s.key(targetID)).Err()
		},
	})
	return s
}

// Live reports whether any instance has marked targetID as watched.
func (s *SessionStore) Live(ctx context.Context, targetID string) (bool, error) {
	n, err := s.client.Exists(ctx, s.key(targetID)).Result()
	return n > 0, err
}

func (s *SessionStore) key(targetID string) string {
	return "persona:session:" + targetID
}
