package memory

import (
	"context"
	"sync"

	"persona-card-service/internal/domain"
)

// CardStore keeps targets and their answer records in process memory.
type CardStore struct {
	mu      sync.RWMutex
	targets map[string]domain.Target
	records map[string][]domain.AnswerRecord
}

func NewCardStore() *CardStore {
	return &CardStore{
		targets: make(map[string]domain.Target),
		records: make(map[string][]domain.AnswerRecord),
	}
}

func (s *CardStore) ListByTarget(_ context.Context, targetID string) ([]domain.AnswerRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := s.records[targetID]
	out := make([]domain.AnswerRecord, len(recs))
	copy(out, recs)
	return out, nil
}

func (s *CardStore) Append(_ context.Context, rec domain.AnswerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.ScoringTargetID] = append(s.records[rec.ScoringTargetID], rec)
	return nil
}

func (s *CardStore) DeleteByTarget(_ context.Context, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, targetID)
	return nil
}

func (s *CardStore) GetTarget(_ context.Context, id string) (domain.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[id]
	if !ok {
		return domain.Target{}, domain.ErrTargetNotFound
	}
	return t, nil
}

func (s *CardStore) SaveTarget(_ context.Context, t domain.Target) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[t.ID] = t
	return nil
}

func (s *CardStore) DeleteTarget(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.targets, id)
	return nil
}

func (s *CardStore) ListTargets(_ context.Context) ([]domain.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Target, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, t)
	}
	return out, nil
}
