package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/metrics"
)

// BankLoader fetches question bank content from a backing store (files, Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, bankID string) ([]domain.Question, error)
}

// BankRepository caches question banks with TTL to avoid repeated loads.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	questions []domain.Question
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

// GetBank returns a cached bank or loads it once for concurrent callers.
// A ttl of zero disables caching.
func (r *BankRepository) GetBank(ctx context.Context, bankID string) ([]domain.Question, error) {
	if qs, ok := r.cached(bankID); ok {
		metrics.BankLookups.WithLabelValues("memory", "hit").Inc()
		return qs, nil
	}

	result, err, _ := r.sf.Do(bankID, func() (interface{}, error) {
		if qs, ok := r.cached(bankID); ok {
			return qs, nil
		}
		metrics.BankLookups.WithLabelValues("memory", "miss").Inc()

		qs, err := r.loader.LoadBank(ctx, bankID)
		if err != nil {
			return nil, err
		}
		if r.ttl > 0 {
			r.mu.Lock()
			r.cache[bankID] = cachedBank{
				questions: qs,
				expiresAt: r.clock().Add(r.ttlWithJitter()),
			}
			r.mu.Unlock()
		}
		return qs, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]domain.Question), nil
}

// Invalidate drops a cached bank so the next read reloads it.
func (r *BankRepository) Invalidate(bankID string) {
	r.mu.Lock()
	delete(r.cache, bankID)
	r.mu.Unlock()
}

func (r *BankRepository) cached(bankID string) ([]domain.Question, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[bankID]; ok && entry.expiresAt.After(now) {
		return entry.questions, true
	}
	return nil, false
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticBankLoader struct {
	banks map[string][]domain.Question
}

func NewStaticBankLoader(banks map[string][]domain.Question) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, bankID string) ([]domain.Question, error) {
	if qs, ok := l.banks[bankID]; ok {
		return qs, nil
	}
	return nil, domain.ErrBankNotFound
}
