// Package engine validates, migrates, deduplicates and aggregates scored
// essay answers and picks the next question to ask. Everything here is a pure
// function of its inputs.
package engine

import "persona-card-service/internal/domain"

// Options configures an Engine.
type Options struct {
	Tuning       Tuning
	Labels       QuadrantLabels
	StrictRanges bool
	Registry     *Registry
}

// Engine bundles the validator, aggregator and selector behind one value.
type Engine struct {
	registry   *Registry
	tuning     Tuning
	validator  *Validator
	aggregator *Aggregator
	selector   *Selector
}

// New builds an Engine. Zero options give the reference behavior.
func New(opts Options) *Engine {
	reg := opts.Registry
	if reg == nil {
		reg = DefaultRegistry()
	}
	tuning := opts.Tuning.Merge()
	agg := NewAggregator(tuning, opts.Labels)
	return &Engine{
		registry:   reg,
		tuning:     tuning,
		validator:  NewValidator(reg, tuning.MaxEffort, opts.StrictRanges),
		aggregator: agg,
		selector:   NewSelector(tuning, agg),
	}
}

// Registry returns the schema registry in use.
func (e *Engine) Registry() *Registry { return e.registry }

// Tuning returns the effective constants.
func (e *Engine) Tuning() Tuning { return e.tuning }

// Validate validates a decoded JSON value.
func (e *Engine) Validate(input any) Result { return e.validator.Validate(input) }

// ValidateJSON validates raw JSON.
func (e *Engine) ValidateJSON(data []byte) Result { return e.validator.ValidateJSON(data) }

// Aggregate recomputes the view over one target's records.
func (e *Engine) Aggregate(records []domain.AnswerRecord) domain.Aggregate {
	return e.aggregator.Aggregate(records)
}

// Next selects the next question for one target.
func (e *Engine) Next(bank []domain.Question, records []domain.AnswerRecord, lastQuestionID string) (domain.Question, error) {
	return e.selector.Next(bank, records, lastQuestionID)
}

// Rank returns the selector's per-question breakdown.
func (e *Engine) Rank(bank []domain.Question, records []domain.AnswerRecord, lastQuestionID string) []Candidate {
	return e.selector.Rank(bank, records, lastQuestionID)
}
