package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/metrics"
)

// BankLoader fetches question bank content from a backing store (files, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) ([]domain.Question, error)
}

// BankRepository caches whole question banks in Redis and falls back to a
// loader on cache miss. Banks are stored as one JSON blob per bank:
//
//	SET persona:bank:{bankID} [{...}, ...] EX ttl
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rndMu  sync.Mutex
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, bankID string) ([]domain.Question, error) {
	if qs, ok := r.cached(ctx, bankID); ok {
		metrics.BankLookups.WithLabelValues("redis", "hit").Inc()
		return qs, nil
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if qs, ok := r.cached(ctx, bankID); ok {
			return qs, nil
		}
		metrics.BankLookups.WithLabelValues("redis", "miss").Inc()

		qs, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(qs); err == nil {
			// best-effort: a failed write only costs another load
			_ = r.client.Set(ctx, r.key(bankID), data, r.ttlWithJitter()).Err()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops a cached bank so the next read reloads it.
func (r *BankRepository) Invalidate(ctx context.Context, bankID string) error {
	return r.client.Del(ctx, r.key(bankID)).Err()
}

func (r *BankRepository) cached(ctx context.Context, bankID string) ([]domain.Question, bool) {
	data, err := r.client.Get(ctx, r.key(bankID)).Bytes()
	if err != nil {
		return nil, false
	}
	var qs []domain.Question
	if err := json.Unmarshal(data, &qs); err != nil || len(qs) == 0 {
		return nil, false
	}
	return qs, true
}

func (r *BankRepository) key(bankID string) string {
	return "persona:bank:" + bankID
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
