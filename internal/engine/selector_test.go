package engine_test

import (
	"errors"
	"testing"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
)

func question(id, group string, fatigue float64, targets ...string) domain.Question {
	return domain.Question{ID: id, GroupTag: group, Fatigue: fatigue, Targets: targets}
}

func TestNextPrefersPriorityAxes(t *testing.T) {
	e := engine.New(engine.Options{})
	bank := []domain.Question{
		question("Q01", "a", 2, domain.AxisWisdom),
		question("Q02", "b", 2, domain.AxisPracticality),
	}

	// No records: every need is 100, practicality and empathy get the bonus.
	cands := e.Rank(bank, nil, "")
	if cands[0].Score != 80 || cands[1].Score != 92 {
		t.Fatalf("unexpected scores %v / %v", cands[0].Score, cands[1].Score)
	}
	next, err := e.Next(bank, nil, "")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.ID != "Q02" {
		t.Fatalf("expected Q02, got %s", next.ID)
	}
}

func TestNextAvoidsRepeatingGroup(t *testing.T) {
	e := engine.New(engine.Options{})
	bank := []domain.Question{
		question("Z", "role", 1, domain.AxisEmpathy),
		question("A", "role", 1, domain.AxisKnowledge),
		question("B", "other", 1, domain.AxisKnowledge),
	}
	records := []domain.AnswerRecord{rec("Z", 50, 60, 20)}

	cands := e.Rank(bank, records, "Z")
	if cands[0].Eligible {
		t.Fatalf("expected answered question to be ineligible")
	}
	if gap := cands[2].Score - cands[1].Score; gap != 8 {
		t.Fatalf("expected role penalty gap of 8, got %v", gap)
	}
	next, err := e.Next(bank, records, "Z")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.ID != "B" {
		t.Fatalf("expected B, got %s", next.ID)
	}

	// Without a last question the two tie and the earlier entry wins.
	next, _ = e.Next(bank, records, "")
	if next.ID != "A" {
		t.Fatalf("expected tie to go to A, got %s", next.ID)
	}
}

func TestNextFallsBackWhenExhausted(t *testing.T) {
	e := engine.New(engine.Options{})
	bank := []domain.Question{
		question("Q01", "a", 1, domain.AxisWisdom),
		question("Q02", "b", 1, domain.AxisEmpathy),
	}
	records := []domain.AnswerRecord{rec("Q02", 50, 50, 10), rec("Q01", 50, 50, 10)}

	next, err := e.Next(bank, records, "Q01")
	if err != nil {
		t.Fatalf("next: %v", err)
	}
	if next.ID != "Q01" {
		t.Fatalf("expected first bank entry, got %s", next.ID)
	}
}

func TestNextSkipsAnswered(t *testing.T) {
	e := engine.New(engine.Options{})
	bank := []domain.Question{
		question("Q01", "a", 0, domain.AxisPracticality, domain.AxisEmpathy),
		question("Q02", "b", 3, domain.AxisWisdom),
	}
	next, _ := e.Next(bank, []domain.AnswerRecord{rec("Q01", 50, 10, 10)}, "")
	if next.ID != "Q02" {
		t.Fatalf("expected Q02, got %s", next.ID)
	}
}

func TestNextEmptyBank(t *testing.T) {
	e := engine.New(engine.Options{})
	if _, err := e.Next(nil, nil, ""); !errors.Is(err, domain.ErrEmptyBank) {
		t.Fatalf("expected ErrEmptyBank, got %v", err)
	}
}

func TestTuningOverrides(t *testing.T) {
	e := engine.New(engine.Options{Tuning: engine.Tuning{RolePenalty: 30}})
	if e.Tuning().RolePenalty != 30 || e.Tuning().PriorityBonus != 12 {
		t.Fatalf("expected override merged with defaults, got %+v", e.Tuning())
	}
	bank := []domain.Question{
		question("Z", "role", 1, domain.AxisEmpathy),
		question("A", "role", 1, domain.AxisKnowledge),
		question("B", "other", 1, domain.AxisKnowledge),
	}
	cands := e.Rank(bank, nil, "Z")
	if gap := cands[2].Score - cands[1].Score; gap != 30 {
		t.Fatalf("expected configured penalty, got %v", gap)
	}
}
