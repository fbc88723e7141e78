package domain

import "time"

// Axis names. Order matters: it is the canonical iteration order used by the
// aggregator and as the tie-break order when ranking axis need.
const (
	AxisPracticality = "practicality"
	AxisEmpathy      = "empathy"
	AxisKnowledge    = "knowledge"
	AxisWisdom       = "wisdom"
	AxisCalibration  = "calibration"
)

// CoreAxes are the four personality dimensions.
var CoreAxes = []string{AxisPracticality, AxisEmpathy, AxisKnowledge, AxisWisdom}

// ConfidenceAxes are the axes that carry a confidence value (core axes plus calibration).
var ConfidenceAxes = []string{AxisPracticality, AxisEmpathy, AxisKnowledge, AxisWisdom, AxisCalibration}

// DraftTargetID is the scoring target used when no persona has been chosen yet.
const DraftTargetID = "draft"

// Axes holds the four core trait scores (0..100).
type Axes struct {
	Practicality int `json:"practicality"`
	Empathy      int `json:"empathy"`
	Knowledge    int `json:"knowledge"`
	Wisdom       int `json:"wisdom"`
}

// Get returns the score of a core axis by name.
func (a Axes) Get(axis string) (int, bool) {
	switch axis {
	case AxisPracticality:
		return a.Practicality, true
	case AxisEmpathy:
		return a.Empathy, true
	case AxisKnowledge:
		return a.Knowledge, true
	case AxisWisdom:
		return a.Wisdom, true
	}
	return 0, false
}

// Set assigns the score of a core axis by name.
func (a *Axes) Set(axis string, v int) {
	switch axis {
	case AxisPracticality:
		a.Practicality = v
	case AxisEmpathy:
		a.Empathy = v
	case AxisKnowledge:
		a.Knowledge = v
	case AxisWisdom:
		a.Wisdom = v
	}
}

// Meta holds the secondary answer-quality signals (0..100).
type Meta struct {
	Calibration int `json:"calibration"`
	Frivolity   int `json:"frivolity"`
}

// Confidence is the per-axis confidence (0..100) of a record or aggregate.
type Confidence struct {
	Practicality int `json:"practicality"`
	Empathy      int `json:"empathy"`
	Knowledge    int `json:"knowledge"`
	Wisdom       int `json:"wisdom"`
	Calibration  int `json:"calibration"`
}

// Get returns the confidence of an axis by name (calibration included).
func (c Confidence) Get(axis string) (int, bool) {
	switch axis {
	case AxisPracticality:
		return c.Practicality, true
	case AxisEmpathy:
		return c.Empathy, true
	case AxisKnowledge:
		return c.Knowledge, true
	case AxisWisdom:
		return c.Wisdom, true
	case AxisCalibration:
		return c.Calibration, true
	}
	return 0, false
}

// Set assigns the confidence of an axis by name.
func (c *Confidence) Set(axis string, v int) {
	switch axis {
	case AxisPracticality:
		c.Practicality = v
	case AxisEmpathy:
		c.Empathy = v
	case AxisKnowledge:
		c.Knowledge = v
	case AxisWisdom:
		c.Wisdom = v
	case AxisCalibration:
		c.Calibration = v
	}
}

// Effort is the diagnostic richness reward of an answer.
type Effort struct {
	PointsAwarded int    `json:"points_awarded"`
	Why           string `json:"why"`
}

// Signals are display-only excerpts from the essay.
type Signals struct {
	KeyQuotes    []string `json:"key_quotes"`
	Observations []string `json:"observations"`
}

// RiskFlags are advisory and never enter the aggregate math.
type RiskFlags struct {
	MissedPoint    bool `json:"missed_point"`
	Incoherent     bool `json:"incoherent"`
	LikelyTrolling bool `json:"likely_trolling"`
	DelusionRisk   bool `json:"delusion_risk"`
	CrueltyRisk    bool `json:"cruelty_risk"`
}

// Clarification is a structured follow-up request from the scorer.
type Clarification struct {
	IsNeeded    bool   `json:"is_needed"`
	Why         string `json:"why"`
	ReExplain   string `json:"re_explain"`
	ReAskPrompt string `json:"re_ask_prompt"`
}

// Notes are free-text summaries from the scorer.
type Notes struct {
	OneSentenceProfile   string `json:"one_sentence_profile"`
	WhatShiftedThisScore string `json:"what_shifted_this_score"`
}

// ScoredAnswer is the model-produced part of a record, in the current schema shape.
// The dedup hash is computed over this content only.
type ScoredAnswer struct {
	SchemaVersion      string        `json:"schema_version"`
	QuestionID         string        `json:"question_id"`
	Axes               Axes          `json:"axes"`
	Meta               Meta          `json:"meta"`
	Confidence         Confidence    `json:"confidence"`
	Effort             Effort        `json:"effort"`
	Signals            Signals       `json:"signals"`
	RiskFlags          RiskFlags     `json:"risk_flags"`
	NeedsClarification Clarification `json:"needs_clarification"`
	Notes              Notes         `json:"notes"`
}

// AnswerRecord is a normalized answer plus its persistence envelope.
type AnswerRecord struct {
	ScoredAnswer
	ScoringTargetID string    `json:"scoring_target_id,omitempty"`
	DedupHash       string    `json:"dedup_hash,omitempty"`
	SavedAt         time.Time `json:"saved_at"`
	ModelLabel      string    `json:"model_label,omitempty"`
}

// Target is a named accumulation bucket for answers (a persona card or the draft).
type Target struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Color          string    `json:"color,omitempty"`
	Draft          bool      `json:"draft,omitempty"`
	LastQuestionID string    `json:"last_question_id,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Question is a static bank entry.
type Question struct {
	ID       string   `json:"id" yaml:"id" validate:"required"`
	Title    string   `json:"title,omitempty" yaml:"title"`
	Scenario string   `json:"scenario" yaml:"scenario"`
	Targets  []string `json:"targets" yaml:"targets" validate:"dive,oneof=practicality empathy knowledge wisdom calibration"`
	Fatigue  float64  `json:"fatigue" yaml:"fatigue" validate:"gte=0"`
	Role     string   `json:"role,omitempty" yaml:"role"`
	GroupTag string   `json:"group_tag" yaml:"group_tag"`
	Tags     []string `json:"tags,omitempty" yaml:"tags"`
	Image    string   `json:"image,omitempty" yaml:"image"`
}

// Quadrant is a target's position on the trait plane.
type Quadrant struct {
	X     int    `json:"x"`
	Y     int    `json:"y"`
	Label string `json:"label"`
}

// Points summarizes accumulated effort.
type Points struct {
	Now   int `json:"now"`
	Total int `json:"total"`
}

// Aggregate is the derived view over one target's records. It is never stored.
type Aggregate struct {
	Axes       Axes       `json:"axes"`
	Meta       Meta       `json:"meta"`
	Confidence Confidence `json:"confidence"`
	Quadrant   Quadrant   `json:"quadrant"`
	Points     Points     `json:"points"`
	Unlocked   bool       `json:"unlocked"`
}

// Preset is a named archetype placed on the trait plane.
type Preset struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	X           float64 `json:"x" yaml:"x"`
	Y           float64 `json:"y" yaml:"y"`
	Calibration float64 `json:"calibration" yaml:"calibration"`
	Frivolity   float64 `json:"frivolity" yaml:"frivolity"`
	Image       string  `json:"image,omitempty" yaml:"image"`
}

// CardSnapshot is what subscribers of a target receive after every change.
type CardSnapshot struct {
	Target    Target    `json:"target"`
	Aggregate Aggregate `json:"aggregate"`
	Answered  int       `json:"answered"`
	Next      *Question `json:"next,omitempty"`
	Preset    *Preset   `json:"preset,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ExportFormatV2 tags the current card export package.
const ExportFormatV2 = "persona3d.persona_export.v2"

// ExportFormatV1 tags the legacy card export package ({persona, answers}).
const ExportFormatV1 = "persona3d.persona_export.v1"

// ExportPackage is a self-describing card export.
type ExportPackage struct {
	SchemaVersion string         `json:"schema_version"`
	ExportedAt    time.Time      `json:"exported_at"`
	Target        Target         `json:"target"`
	Records       []AnswerRecord `json:"records"`
}

// ImportFailure describes one record that was dropped during import.
type ImportFailure struct {
	Index  int      `json:"index"`
	Errors []string `json:"errors"`
}

// ImportResult reports a best-effort import of one card.
type ImportResult struct {
	TargetID   string          `json:"targetId"`
	Imported   int             `json:"imported"`
	Dropped    int             `json:"dropped"`
	Duplicates int             `json:"duplicates"`
	Failures   []ImportFailure `json:"failures,omitempty"`
}
