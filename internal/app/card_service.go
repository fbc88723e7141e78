package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
	"persona-card-service/internal/metrics"
)

// AnswerRepository stores normalized answer records per scoring target.
type AnswerRepository interface {
	ListByTarget(ctx context.Context, targetID string) ([]domain.AnswerRecord, error)
	Append(ctx context.Context, rec domain.AnswerRecord) error
	DeleteByTarget(ctx context.Context, targetID string) error
}

// TargetRepository stores scoring targets (persona cards and the draft).
type TargetRepository interface {
	GetTarget(ctx context.Context, id string) (domain.Target, error)
	SaveTarget(ctx context.Context, t domain.Target) error
	DeleteTarget(ctx context.Context, id string) error
	ListTargets(ctx context.Context) ([]domain.Target, error)
}

// CardStore is the persistence a card service needs.
type CardStore interface {
	AnswerRepository
	TargetRepository
}

// BankRepository loads question bank content (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, bankID string) ([]domain.Question, error)
}

// Submit outcomes.
const (
	StatusSaved     = "saved"
	StatusDuplicate = "duplicate"
	StatusRejected  = "rejected"
)

// SubmitResult reports what happened to one submitted record.
type SubmitResult struct {
	Status    string               `json:"status"`
	TargetID  string               `json:"targetId"`
	Hash      string               `json:"hash,omitempty"`
	Record    *domain.AnswerRecord `json:"record,omitempty"`
	Aggregate *domain.Aggregate    `json:"aggregate,omitempty"`
	Next      *domain.Question     `json:"next,omitempty"`
	Errors    []string             `json:"errors,omitempty"`
}

// ColorPool is handed out to new targets in order, first unused wins.
var ColorPool = []string{"#67d1ff", "#9bffa3", "#ffd36a", "#ff6b6b", "#b28dff", "#7ff6ff", "#ffa7d1", "#a8ff7f"}

const (
	defaultTargetName = "Unnamed"
	draftTargetName   = "Draft"
)

// Option configures a CardService.
type Option func(*CardService)

// WithBankID selects the question bank used for selection.
func WithBankID(id string) Option { return func(s *CardService) { s.bankID = id } }

// WithPresets sets the archetypes used for nearest-preset matching.
func WithPresets(p []domain.Preset) Option { return func(s *CardService) { s.presets = p } }

// WithClock is used by tests for deterministic timestamps.
func WithClock(now func() time.Time) Option { return func(s *CardService) { s.now = now } }

// WithIDGenerator replaces uuid target ids.
func WithIDGenerator(gen func() string) Option { return func(s *CardService) { s.newID = gen } }

// CardService contains the persona card use cases.
type CardService struct {
	engine   *engine.Engine
	store    CardStore
	banks    BankRepository
	sessions SessionRepository
	bankID   string
	presets  []domain.Preset
	now      func() time.Time
	newID    func() string

	// mu serializes read-check-append so duplicate detection is atomic.
	mu sync.Mutex
}

func NewCardService(eng *engine.Engine, store CardStore, banks BankRepository, sessions SessionRepository, opts ...Option) *CardService {
	s := &CardService{
		engine:   eng,
		store:    store,
		banks:    banks,
		sessions: sessions,
		bankID:   "default",
		now:      time.Now,
		newID:    func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine exposes the scoring engine for read-only callers.
func (s *CardService) Engine() *engine.Engine { return s.engine }

// Bank returns the active question bank.
func (s *CardService) Bank(ctx context.Context) ([]domain.Question, error) {
	return s.banks.GetBank(ctx, s.bankID)
}

// Question returns one bank question by id.
func (s *CardService) Question(ctx context.Context, id string) (domain.Question, error) {
	bank, err := s.Bank(ctx)
	if err != nil {
		return domain.Question{}, err
	}
	for _, q := range bank {
		if q.ID == id {
			return q, nil
		}
	}
	return domain.Question{}, domain.ErrQuestionNotFound
}

// Submit validates a raw model response and stores it under targetID. An
// empty targetID addresses the draft; unknown ids are created on first use.
// Duplicates are reported through the result, not as an error.
func (s *CardService) Submit(ctx context.Context, targetID string, raw []byte, modelLabel string) (SubmitResult, error) {
	start := time.Now()
	defer func() { metrics.SubmitDuration.Observe(time.Since(start).Seconds()) }()

	if targetID == "" {
		targetID = domain.DraftTargetID
	}
	res := s.engine.ValidateJSON(raw)
	if !res.OK {
		metrics.Submissions.WithLabelValues(StatusRejected).Inc()
		return SubmitResult{Status: StatusRejected, TargetID: targetID, Errors: res.Errors}, res.Err()
	}
	rec := *res.Normalized

	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.ensureTarget(ctx, targetID)
	if err != nil {
		return SubmitResult{}, err
	}
	records, err := s.store.ListByTarget(ctx, targetID)
	if err != nil {
		return SubmitResult{}, fmt.Errorf("list records: %w", err)
	}

	hash := engine.DedupHash(rec.ScoredAnswer, targetID)
	if engine.IsDuplicate(records, targetID, hash) {
		metrics.Submissions.WithLabelValues(StatusDuplicate).Inc()
		agg := s.engine.Aggregate(records)
		out := SubmitResult{Status: StatusDuplicate, TargetID: targetID, Hash: hash, Aggregate: &agg}
		if next, err := s.next(ctx, records, target.LastQuestionID); err == nil {
			out.Next = &next
		}
		return out, nil
	}

	rec.ScoringTargetID = targetID
	rec.DedupHash = hash
	if rec.SavedAt.IsZero() {
		rec.SavedAt = s.now().UTC()
	}
	if modelLabel != "" {
		rec.ModelLabel = modelLabel
	}
	if err := s.store.Append(ctx, rec); err != nil {
		return SubmitResult{}, fmt.Errorf("append record: %w", err)
	}
	records = append(records, rec)

	target.LastQuestionID = rec.QuestionID
	if err := s.store.SaveTarget(ctx, target); err != nil {
		return SubmitResult{}, fmt.Errorf("save target: %w", err)
	}
	metrics.Submissions.WithLabelValues(StatusSaved).Inc()

	snap := s.snapshot(ctx, target, records)
	s.broadcast(snap)

	return SubmitResult{
		Status:    StatusSaved,
		TargetID:  targetID,
		Hash:      hash,
		Record:    &rec,
		Aggregate: &snap.Aggregate,
		Next:      snap.Next,
	}, nil
}

// Aggregate recomputes the derived view of one target.
func (s *CardService) Aggregate(ctx context.Context, targetID string) (domain.Aggregate, error) {
	target, err := s.lookupTarget(ctx, targetID)
	if err != nil {
		return domain.Aggregate{}, err
	}
	records, err := s.store.ListByTarget(ctx, target.ID)
	if err != nil {
		return domain.Aggregate{}, fmt.Errorf("list records: %w", err)
	}
	return s.engine.Aggregate(records), nil
}

// NextQuestion picks the question to ask a target next.
func (s *CardService) NextQuestion(ctx context.Context, targetID string) (domain.Question, error) {
	target, err := s.lookupTarget(ctx, targetID)
	if err != nil {
		return domain.Question{}, err
	}
	records, err := s.store.ListByTarget(ctx, target.ID)
	if err != nil {
		return domain.Question{}, fmt.Errorf("list records: %w", err)
	}
	return s.next(ctx, records, target.LastQuestionID)
}

// Card returns the full snapshot of one target.
func (s *CardService) Card(ctx context.Context, targetID string) (domain.CardSnapshot, error) {
	target, err := s.lookupTarget(ctx, targetID)
	if err != nil {
		return domain.CardSnapshot{}, err
	}
	records, err := s.store.ListByTarget(ctx, target.ID)
	if err != nil {
		return domain.CardSnapshot{}, fmt.Errorf("list records: %w", err)
	}
	return s.snapshot(ctx, target, records), nil
}

// Records returns the stored records of one target.
func (s *CardService) Records(ctx context.Context, targetID string) ([]domain.AnswerRecord, error) {
	target, err := s.lookupTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	return s.store.ListByTarget(ctx, target.ID)
}

// Subscribe returns a channel that receives card snapshots for a target.
// The caller must invoke the returned cancel function to avoid leaks.
func (s *CardService) Subscribe(ctx context.Context, targetID string) (<-chan domain.CardSnapshot, func(), error) {
	if targetID == "" {
		targetID = domain.DraftTargetID
	}
	snap, err := s.Card(ctx, targetID)
	if err != nil {
		return nil, nil, err
	}
	session := s.sessions.GetOrCreate(targetID)
	ch, cancel := session.subscribe(snap)
	return ch, func() {
		cancel()
		s.sessions.DeleteIfEmpty(targetID)
	}, nil
}

func (s *CardService) next(ctx context.Context, records []domain.AnswerRecord, lastQuestionID string) (domain.Question, error) {
	bank, err := s.banks.GetBank(ctx, s.bankID)
	if err != nil {
		return domain.Question{}, err
	}
	return s.engine.Next(bank, records, lastQuestionID)
}

func (s *CardService) snapshot(ctx context.Context, target domain.Target, records []domain.AnswerRecord) domain.CardSnapshot {
	snap := domain.CardSnapshot{
		Target:    target,
		Aggregate: s.engine.Aggregate(records),
		Answered:  len(records),
		UpdatedAt: s.now().UTC(),
	}
	if next, err := s.next(ctx, records, target.LastQuestionID); err == nil {
		snap.Next = &next
	} else {
		log.Printf("next question for %s: %v", target.ID, err)
	}
	if len(records) > 0 {
		snap.Preset = engine.NearestPreset(s.presets, snap.Aggregate)
	}
	return snap
}

func (s *CardService) broadcast(snap domain.CardSnapshot) {
	if session, ok := s.sessions.Get(snap.Target.ID); ok {
		session.publish(snap)
	}
}

// lookupTarget resolves a target. The draft always exists, even before its
// first answer.
func (s *CardService) lookupTarget(ctx context.Context, targetID string) (domain.Target, error) {
	if targetID == "" {
		targetID = domain.DraftTargetID
	}
	t, err := s.store.GetTarget(ctx, targetID)
	if errors.Is(err, domain.ErrTargetNotFound) && targetID == domain.DraftTargetID {
		return s.draftTarget(), nil
	}
	return t, err
}

// ensureTarget is lookupTarget that persists targets on first use.
func (s *CardService) ensureTarget(ctx context.Context, targetID string) (domain.Target, error) {
	t, err := s.store.GetTarget(ctx, targetID)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, domain.ErrTargetNotFound) {
		return domain.Target{}, fmt.Errorf("get target: %w", err)
	}
	if targetID == domain.DraftTargetID {
		t = s.draftTarget()
	} else {
		color, err := s.pickColor(ctx)
		if err != nil {
			return domain.Target{}, err
		}
		t = domain.Target{ID: targetID, Name: defaultTargetName, Color: color, CreatedAt: s.now().UTC()}
	}
	if err := s.store.SaveTarget(ctx, t); err != nil {
		return domain.Target{}, fmt.Errorf("save target: %w", err)
	}
	return t, nil
}

func (s *CardService) draftTarget() domain.Target {
	return domain.Target{ID: domain.DraftTargetID, Name: draftTargetName, Draft: true, CreatedAt: s.now().UTC()}
}
