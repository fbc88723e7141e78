package engine

import (
	"sort"

	"persona-card-service/internal/domain"
)

// Candidate is the scoring breakdown of one bank question.
type Candidate struct {
	Question    domain.Question `json:"question"`
	Eligible    bool            `json:"eligible"`
	InfoGain    float64         `json:"infoGain"`
	FatigueCost float64         `json:"fatigueCost"`
	RolePenalty float64         `json:"rolePenalty"`
	Score       float64         `json:"score"`
}

// Selector picks the next question with a greedy information-gain score.
type Selector struct {
	tuning Tuning
	agg    *Aggregator
}

// NewSelector returns a selector that derives confidence through agg.
func NewSelector(t Tuning, agg *Aggregator) *Selector {
	return &Selector{tuning: t.Merge(), agg: agg}
}

// Next returns the highest scoring unanswered question. Ties go to the
// earlier bank entry. When every question has been answered it loops back to
// the first one.
func (s *Selector) Next(bank []domain.Question, records []domain.AnswerRecord, lastQuestionID string) (domain.Question, error) {
	if len(bank) == 0 {
		return domain.Question{}, domain.ErrEmptyBank
	}
	var (
		best  *Candidate
		cands = s.Rank(bank, records, lastQuestionID)
	)
	for i := range cands {
		if !cands[i].Eligible {
			continue
		}
		if best == nil || cands[i].Score > best.Score {
			best = &cands[i]
		}
	}
	if best == nil {
		return bank[0], nil
	}
	return best.Question, nil
}

// Rank scores every bank question in bank order.
func (s *Selector) Rank(bank []domain.Question, records []domain.AnswerRecord, lastQuestionID string) []Candidate {
	answered := make(map[string]struct{}, len(records))
	for _, r := range records {
		answered[r.QuestionID] = struct{}{}
	}

	need, priority := s.needs(records)

	lastGroup, hasLast := "", false
	if lastQuestionID != "" {
		for _, q := range bank {
			if q.ID == lastQuestionID {
				lastGroup, hasLast = q.GroupTag, true
				break
			}
		}
	}

	out := make([]Candidate, 0, len(bank))
	for _, q := range bank {
		c := Candidate{Question: q}
		_, done := answered[q.ID]
		c.Eligible = !done

		for _, axis := range q.Targets {
			if n, ok := need[axis]; ok {
				c.InfoGain += float64(n)
			}
			if _, ok := priority[axis]; ok {
				c.InfoGain += float64(s.tuning.PriorityBonus)
			}
		}
		c.FatigueCost = q.Fatigue * s.tuning.FatigueMultiplier
		if hasLast && q.GroupTag == lastGroup {
			c.RolePenalty = float64(s.tuning.RolePenalty)
		}
		c.Score = c.InfoGain - c.FatigueCost - c.RolePenalty
		out = append(out, c)
	}
	return out
}

// needs returns 100 - confidence per axis and the set of the neediest axes.
// Axes with equal need keep their canonical order.
func (s *Selector) needs(records []domain.AnswerRecord) (map[string]int, map[string]struct{}) {
	conf := s.agg.Aggregate(records).Confidence

	axes := append([]string(nil), domain.ConfidenceAxes...)
	need := make(map[string]int, len(axes))
	for _, axis := range axes {
		c, _ := conf.Get(axis)
		need[axis] = 100 - c
	}
	sort.SliceStable(axes, func(i, j int) bool {
		return need[axes[i]] > need[axes[j]]
	})

	n := s.tuning.PriorityAxes
	if n > len(axes) {
		n = len(axes)
	}
	priority := make(map[string]struct{}, n)
	for _, axis := range axes[:n] {
		priority[axis] = struct{}{}
	}
	return need, priority
}
