package engine_test

import (
	"encoding/json"
	"testing"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
)

// currentJSON is a complete, in-range record in the current schema.
const currentJSON = `{
  "schema_version": "persona.schema.v3",
  "question_id": "Q01",
  "axes": {"practicality": 70, "empathy": 70, "knowledge": 70, "wisdom": 70},
  "meta": {"calibration": 75, "frivolity": 5},
  "confidence": {"practicality": 80, "empathy": 80, "knowledge": 80, "wisdom": 80, "calibration": 80},
  "effort": {"points_awarded": 40, "why": "Clear tradeoffs and self-awareness."},
  "signals": {"key_quotes": ["I would call the owner first"], "observations": ["Weighs lateness against honesty."]},
  "risk_flags": {"missed_point": false, "incoherent": false, "likely_trolling": false, "delusion_risk": false, "cruelty_risk": false},
  "needs_clarification": {"is_needed": false, "why": "", "re_explain": "", "re_ask_prompt": ""},
  "notes": {"one_sentence_profile": "Grounded and considerate.", "what_shifted_this_score": "Explicit plan."}
}`

func decode(t *testing.T, raw string) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return out
}

func mustValidate(t *testing.T, e *engine.Engine, input any) domain.AnswerRecord {
	t.Helper()
	res := e.Validate(input)
	if !res.OK {
		t.Fatalf("expected valid record, got errors %v", res.Errors)
	}
	return *res.Normalized
}

func toMap(t *testing.T, v any) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

// rec builds a normalized record with uniform axes and confidence.
func rec(qid string, axis, conf, points int) domain.AnswerRecord {
	var r domain.AnswerRecord
	r.SchemaVersion = engine.CurrentSchema
	r.QuestionID = qid
	r.Axes = domain.Axes{Practicality: axis, Empathy: axis, Knowledge: axis, Wisdom: axis}
	r.Meta = domain.Meta{Calibration: axis, Frivolity: 0}
	r.Confidence = domain.Confidence{Practicality: conf, Empathy: conf, Knowledge: conf, Wisdom: conf, Calibration: conf}
	r.Effort = domain.Effort{PointsAwarded: points, Why: "test"}
	return r
}
