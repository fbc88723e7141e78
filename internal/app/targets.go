package app

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
)

// CreateTarget creates a persona card.
func (s *CardService) CreateTarget(ctx context.Context, name string) (domain.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createTargetLocked(ctx, name, "")
}

func (s *CardService) createTargetLocked(ctx context.Context, name, color string) (domain.Target, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultTargetName
	}
	if color == "" {
		var err error
		if color, err = s.pickColor(ctx); err != nil {
			return domain.Target{}, err
		}
	}
	t := domain.Target{ID: s.newID(), Name: name, Color: color, CreatedAt: s.now().UTC()}
	if err := s.store.SaveTarget(ctx, t); err != nil {
		return domain.Target{}, fmt.Errorf("save target: %w", err)
	}
	return t, nil
}

// ListTargets returns every persisted target, oldest first.
func (s *CardService) ListTargets(ctx context.Context) ([]domain.Target, error) {
	targets, err := s.store.ListTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	sort.SliceStable(targets, func(i, j int) bool {
		if !targets[i].CreatedAt.Equal(targets[j].CreatedAt) {
			return targets[i].CreatedAt.Before(targets[j].CreatedAt)
		}
		return targets[i].ID < targets[j].ID
	})
	return targets, nil
}

// RenameTarget changes a target's display name.
func (s *CardService) RenameTarget(ctx context.Context, id, name string) (domain.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, err := s.store.GetTarget(ctx, id)
	if err != nil {
		return domain.Target{}, err
	}
	if name = strings.TrimSpace(name); name != "" {
		t.Name = name
	}
	if err := s.store.SaveTarget(ctx, t); err != nil {
		return domain.Target{}, fmt.Errorf("save target: %w", err)
	}
	s.publishLocked(ctx, t)
	return t, nil
}

// DeleteTarget removes a target together with all of its records.
func (s *CardService) DeleteTarget(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.store.GetTarget(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeleteByTarget(ctx, id); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	if err := s.store.DeleteTarget(ctx, id); err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	if session, ok := s.sessions.Get(id); ok {
		session.closeAll()
		s.sessions.DeleteIfEmpty(id)
	}
	return nil
}

// PromoteDraft moves every draft record into a new persona card. Hashes are
// recomputed because they are scoped to the target.
func (s *CardService) PromoteDraft(ctx context.Context, name string) (domain.Target, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.store.ListByTarget(ctx, domain.DraftTargetID)
	if err != nil {
		return domain.Target{}, fmt.Errorf("list draft: %w", err)
	}
	if len(records) == 0 {
		return domain.Target{}, domain.ErrNoDraft
	}
	draft, err := s.lookupTarget(ctx, domain.DraftTargetID)
	if err != nil {
		return domain.Target{}, err
	}

	t, err := s.createTargetLocked(ctx, name, "")
	if err != nil {
		return domain.Target{}, err
	}
	for _, rec := range records {
		rec.ScoringTargetID = t.ID
		rec.DedupHash = engine.RecordHash(rec)
		if err := s.store.Append(ctx, rec); err != nil {
			s.discardTargetLocked(ctx, t.ID)
			return domain.Target{}, fmt.Errorf("append record: %w", err)
		}
	}
	t.LastQuestionID = draft.LastQuestionID
	if err := s.store.SaveTarget(ctx, t); err != nil {
		s.discardTargetLocked(ctx, t.ID)
		return domain.Target{}, fmt.Errorf("save target: %w", err)
	}
	if err := s.store.DeleteByTarget(ctx, domain.DraftTargetID); err != nil {
		return domain.Target{}, fmt.Errorf("clear draft: %w", err)
	}
	if err := s.store.DeleteTarget(ctx, domain.DraftTargetID); err != nil {
		return domain.Target{}, fmt.Errorf("clear draft: %w", err)
	}

	s.publishLocked(ctx, draft)
	return t, nil
}

// discardTargetLocked removes a half-written target so a failed promotion or
// import can be retried without leaving an orphan card behind.
func (s *CardService) discardTargetLocked(ctx context.Context, id string) {
	if err := s.store.DeleteByTarget(ctx, id); err != nil {
		log.Printf("discard records of %s: %v", id, err)
	}
	if err := s.store.DeleteTarget(ctx, id); err != nil {
		log.Printf("discard target %s: %v", id, err)
	}
}

// publishLocked pushes a fresh snapshot of t to its subscribers, if any.
func (s *CardService) publishLocked(ctx context.Context, t domain.Target) {
	session, ok := s.sessions.Get(t.ID)
	if !ok {
		return
	}
	records, err := s.store.ListByTarget(ctx, t.ID)
	if err != nil {
		return
	}
	session.publish(s.snapshot(ctx, t, records))
}

// pickColor returns the first pool color no target uses yet, cycling when all
// are taken.
func (s *CardService) pickColor(ctx context.Context) (string, error) {
	targets, err := s.store.ListTargets(ctx)
	if err != nil {
		return "", fmt.Errorf("list targets: %w", err)
	}
	used := make(map[string]struct{}, len(targets))
	personas := 0
	for _, t := range targets {
		if t.Draft {
			continue
		}
		personas++
		used[strings.ToLower(t.Color)] = struct{}{}
	}
	for _, c := range ColorPool {
		if _, ok := used[strings.ToLower(c)]; !ok {
			return c, nil
		}
	}
	return ColorPool[personas%len(ColorPool)], nil
}
