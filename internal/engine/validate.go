package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"persona-card-service/internal/domain"
)

// Result is the outcome of validating one record. Errors lists every
// violation found; Normalized is set only when OK.
type Result struct {
	OK         bool                 `json:"ok"`
	Errors     []string             `json:"errors"`
	Normalized *domain.AnswerRecord `json:"normalized"`

	err error
}

// Err converts a failed result into an error: domain.ErrUnknownSchemaVersion
// (wrapped) or a *domain.ValidationError. It is nil when OK.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	if r.err != nil {
		return r.err
	}
	return &domain.ValidationError{Errors: r.Errors}
}

// UnknownVersion reports whether the record was rejected for its schema tag.
func (r Result) UnknownVersion() bool {
	return errors.Is(r.err, domain.ErrUnknownSchemaVersion)
}

// Validator validates and migrates model-supplied records.
type Validator struct {
	registry  *Registry
	maxEffort int
	strict    bool
}

// NewValidator returns a validator for reg. With strict set, out-of-range
// numbers are errors instead of being clamped.
func NewValidator(reg *Registry, maxEffort int, strict bool) *Validator {
	if maxEffort <= 0 {
		maxEffort = DefaultTuning().MaxEffort
	}
	return &Validator{registry: reg, maxEffort: maxEffort, strict: strict}
}

// ValidateJSON decodes data and validates it. Malformed JSON is reported as a
// failed result, never as a panic.
func (v *Validator) ValidateJSON(data []byte) Result {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj any
	if err := dec.Decode(&obj); err != nil {
		return Result{Errors: []string{fmt.Sprintf("invalid JSON: %v", err)}}
	}
	if err := dec.Decode(new(json.RawMessage)); err != io.EOF {
		return Result{Errors: []string{"invalid JSON: trailing data after the record"}}
	}
	return v.Validate(obj)
}

// Validate checks a decoded JSON value and returns it in the current schema.
func (v *Validator) Validate(input any) Result {
	obj, ok := input.(map[string]any)
	if !ok {
		return Result{Errors: []string{"Not an object."}}
	}
	migrated, err := v.registry.Migrate(obj)
	if err != nil {
		return Result{Errors: []string{err.Error()}, err: err}
	}

	c := &checker{strict: v.strict}
	rec := &domain.AnswerRecord{}
	rec.SchemaVersion = v.registry.Current()

	if qid, ok := migrated["question_id"].(string); ok && qid != "" {
		rec.QuestionID = qid
	} else {
		c.fail("question_id missing.")
	}

	if axes := c.object(migrated, "axes"); axes != nil {
		for _, axis := range domain.CoreAxes {
			rec.Axes.Set(axis, c.score(axes, "axes", axis, 100))
		}
	}
	if meta := c.object(migrated, "meta"); meta != nil {
		rec.Meta.Calibration = c.score(meta, "meta", "calibration", 100)
		rec.Meta.Frivolity = c.score(meta, "meta", "frivolity", 100)
	}
	if conf := c.object(migrated, "confidence"); conf != nil {
		for _, axis := range domain.ConfidenceAxes {
			rec.Confidence.Set(axis, c.score(conf, "confidence", axis, 100))
		}
	}
	if effort := c.object(migrated, "effort"); effort != nil {
		f, ok := number(effort["points_awarded"])
		if !ok || (v.strict && (math.Round(f) < 0 || math.Round(f) > float64(v.maxEffort))) {
			c.fail(fmt.Sprintf("effort.points_awarded must be an int 0..%d", v.maxEffort))
		} else {
			rec.Effort.PointsAwarded = clampRound(f, 0, v.maxEffort)
		}
		if why, ok := effort["why"].(string); ok {
			rec.Effort.Why = why
		} else {
			c.fail("effort.why must be a string")
		}
	}
	if signals := c.object(migrated, "signals"); signals != nil {
		rec.Signals.KeyQuotes = c.strings(signals, "signals", "key_quotes")
		rec.Signals.Observations = c.strings(signals, "signals", "observations")
	}
	if flags := c.object(migrated, "risk_flags"); flags != nil {
		rec.RiskFlags.MissedPoint = c.flag(flags, "risk_flags", "missed_point")
		rec.RiskFlags.Incoherent = c.flag(flags, "risk_flags", "incoherent")
		rec.RiskFlags.LikelyTrolling = c.flag(flags, "risk_flags", "likely_trolling")
		rec.RiskFlags.DelusionRisk = c.flag(flags, "risk_flags", "delusion_risk")
		rec.RiskFlags.CrueltyRisk = c.flag(flags, "risk_flags", "cruelty_risk")
	}
	if nc := c.object(migrated, "needs_clarification"); nc != nil {
		rec.NeedsClarification.IsNeeded = c.flag(nc, "needs_clarification", "is_needed")
		rec.NeedsClarification.Why = c.text(nc, "needs_clarification", "why")
		rec.NeedsClarification.ReExplain = c.text(nc, "needs_clarification", "re_explain")
		rec.NeedsClarification.ReAskPrompt = c.text(nc, "needs_clarification", "re_ask_prompt")
	}
	if notes := c.object(migrated, "notes"); notes != nil {
		rec.Notes.OneSentenceProfile = c.text(notes, "notes", "one_sentence_profile")
		rec.Notes.WhatShiftedThisScore = c.text(notes, "notes", "what_shifted_this_score")
	}

	// Envelope fields survive re-validation on import; target and hash are
	// always recomputed by the caller.
	if raw, ok := migrated["saved_at"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
			rec.SavedAt = t
		}
	}
	if label, ok := migrated["model_label"].(string); ok {
		rec.ModelLabel = label
	}

	if len(c.errs) > 0 {
		return Result{Errors: c.errs}
	}
	return Result{OK: true, Errors: []string{}, Normalized: rec}
}

// checker accumulates field errors so one pass reports every violation.
type checker struct {
	errs   []string
	strict bool
}

func (c *checker) fail(msg string) {
	c.errs = append(c.errs, msg)
}

func (c *checker) object(obj map[string]any, key string) map[string]any {
	m, ok := obj[key].(map[string]any)
	if !ok {
		c.fail(key + " missing.")
		return nil
	}
	return m
}

func (c *checker) score(obj map[string]any, group, key string, max int) int {
	f, ok := number(obj[key])
	if !ok {
		c.fail(fmt.Sprintf("%s.%s must be 0..%d", group, key, max))
		return 0
	}
	r := math.Round(f)
	if c.strict && (r < 0 || r > float64(max)) {
		c.fail(fmt.Sprintf("%s.%s must be 0..%d", group, key, max))
		return 0
	}
	return clampRound(r, 0, max)
}

func (c *checker) flag(obj map[string]any, group, key string) bool {
	raw, present := obj[key]
	if !present || raw == nil {
		return false
	}
	b, ok := raw.(bool)
	if !ok {
		c.fail(fmt.Sprintf("%s.%s must be a boolean", group, key))
	}
	return b
}

func (c *checker) text(obj map[string]any, group, key string) string {
	raw, present := obj[key]
	if !present || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		c.fail(fmt.Sprintf("%s.%s must be a string", group, key))
	}
	return s
}

func (c *checker) strings(obj map[string]any, group, key string) []string {
	out := []string{}
	raw, present := obj[key]
	if !present || raw == nil {
		return out
	}
	list, ok := raw.([]any)
	if !ok {
		c.fail(fmt.Sprintf("%s.%s must be a list of strings", group, key))
		return out
	}
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			c.fail(fmt.Sprintf("%s.%s must be a list of strings", group, key))
			return []string{}
		}
		out = append(out, s)
	}
	return out
}

// number accepts JSON numbers in any decoded form; strings, booleans and
// non-finite values are rejected.
func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// clampRound rounds f and clamps it to [lo, hi] before converting, since
// float-to-int conversion of out-of-range values is implementation defined.
func clampRound(f float64, lo, hi int) int {
	return int(math.Max(float64(lo), math.Min(float64(hi), math.Round(f))))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
