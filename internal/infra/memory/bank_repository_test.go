package memory

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"persona-card-service/internal/domain"
)

func TestBankRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string][]domain.Question{
			"default": sampleBank(),
		}),
	}
	repo := NewBankRepository(loader, time.Minute)

	if _, err := repo.GetBank(context.Background(), "default"); err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls.Load() != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls.Load())
	}

	qs, err := repo.GetBank(context.Background(), "default")
	if err != nil {
		t.Fatalf("get bank 2: %v", err)
	}
	if loader.calls.Load() != 1 || len(qs) != 2 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls.Load())
	}

	repo.Invalidate("default")
	if _, err := repo.GetBank(context.Background(), "default"); err != nil {
		t.Fatalf("get bank 3: %v", err)
	}
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after invalidate, got %d", loader.calls.Load())
	}
}

func TestBankRepositoryExpires(t *testing.T) {
	loader := &countingLoader{BankLoader: NewStaticBankLoader(map[string][]domain.Question{"default": sampleBank()})}
	repo := NewBankRepository(loader, time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetBank(context.Background(), "default")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetBank(context.Background(), "default")
	if loader.calls.Load() != 2 {
		t.Fatalf("expected reload after ttl, got %d", loader.calls.Load())
	}
}

func TestBankRepositoryCollapsesConcurrentLoads(t *testing.T) {
	release := make(chan struct{})
	loader := &countingLoader{
		BankLoader: NewStaticBankLoader(map[string][]domain.Question{"default": sampleBank()}),
		gate:       release,
	}
	repo := NewBankRepository(loader, time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repo.GetBank(context.Background(), "default"); err != nil {
				t.Errorf("get bank: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if loader.calls.Load() != 1 {
		t.Fatalf("expected a single load, got %d", loader.calls.Load())
	}
}

func TestBankRepositoryMissing(t *testing.T) {
	repo := NewBankRepository(NewStaticBankLoader(nil), time.Minute)
	if _, err := repo.GetBank(context.Background(), "nope"); !errors.Is(err, domain.ErrBankNotFound) {
		t.Fatalf("expected ErrBankNotFound, got %v", err)
	}
}

type countingLoader struct {
	BankLoader
	calls atomic.Int32
	gate  chan struct{}
}

func (l *countingLoader) LoadBank(ctx context.Context, bankID string) ([]domain.Question, error) {
	l.calls.Add(1)
	if l.gate != nil {
		<-l.gate
	}
	return l.BankLoader.LoadBank(ctx, bankID)
}

func sampleBank() []domain.Question {
	return []domain.Question{
		{ID: "Q01", Targets: []string{domain.AxisWisdom}, Fatigue: 1, GroupTag: "self"},
		{ID: "Q02", Targets: []string{domain.AxisEmpathy}, Fatigue: 2, GroupTag: "mentor"},
	}
}
