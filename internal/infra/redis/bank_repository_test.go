package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/infra/memory"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(map[string][]domain.Question{
			"default": sampleBank(),
		}),
	}
	repo := NewBankRepository(client, loader, time.Minute)

	qs, err := repo.GetBank(context.Background(), "default")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 || len(qs) != 2 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if !mr.Exists("persona:bank:default") {
		t.Fatalf("expected bank blob in redis")
	}
	if ttl := mr.TTL("persona:bank:default"); ttl < time.Minute || ttl > 66*time.Second {
		t.Fatalf("expected ttl with up to 10%% jitter, got %v", ttl)
	}

	// Second call should hit cache, loader not incremented.
	qs, _ = repo.GetBank(context.Background(), "default")
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if qs[1].GroupTag != "mentor" || qs[1].Fatigue != 2 {
		t.Fatalf("expected full question round-trip, got %+v", qs[1])
	}

	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetBank(context.Background(), "default")
	if loader.calls != 2 {
		t.Fatalf("expected reload after expiry, loader calls=%d", loader.calls)
	}

	if err := repo.Invalidate(context.Background(), "default"); err != nil || mr.Exists("persona:bank:default") {
		t.Fatalf("expected invalidate to drop the blob, err=%v", err)
	}
}

type countingLoader struct {
	memory.BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, bankID string) ([]domain.Question, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, bankID)
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{ID: "Q01", Targets: []string{domain.AxisWisdom}, Fatigue: 1, GroupTag: "self"},
		{ID: "Q02", Targets: []string{domain.AxisEmpathy}, Fatigue: 2, GroupTag: "mentor"},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
