// Package prompts renders the instructions handed to the external scoring model.
package prompts

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("prompts").
	Funcs(template.FuncMap{"join": strings.Join}).
	ParseFS(templateFS, "templates/*.tmpl"))

var axisNotes = map[string]string{
	domain.AxisPracticality: "Plans, executes, optimizes, handles tradeoffs, acts under constraints.",
	domain.AxisEmpathy:      "Reads people, cares, protects dignity, avoids cruelty, understands feelings.",
	domain.AxisKnowledge:    "Breadth/depth of concepts, curiosity, retention, structured thinking.",
	domain.AxisWisdom:       "Judgment, long-term thinking, ethics under pressure, sees second-order effects.",
	domain.AxisCalibration:  "Groundedness + epistemic humility. Spots uncertainty, updates beliefs, avoids magical thinking.",
	"frivolity":             "Signals joking/trolling/roleplay for fun. High flags interpretability.",
}

// Builder renders prompts for one schema version.
type Builder struct {
	schema    string
	maxEffort int
}

// New returns a builder. Empty or zero arguments take the engine defaults.
func New(schema string, maxEffort int) *Builder {
	if schema == "" {
		schema = engine.CurrentSchema
	}
	if maxEffort <= 0 {
		maxEffort = engine.DefaultTuning().MaxEffort
	}
	return &Builder{schema: schema, maxEffort: maxEffort}
}

// Primer is sent once to set up the scoring model.
func (b *Builder) Primer() (string, error) {
	return render("primer.tmpl", map[string]any{
		"Schema":    b.schema,
		"CoreAxes":  domain.CoreAxes,
		"MaxEffort": b.maxEffort,
	})
}

// Question asks the model to score an answer to q.
func (b *Builder) Question(q domain.Question) (string, error) {
	ref, err := json.MarshalIndent(map[string]any{
		"version":       b.schema,
		"core_axes":     domain.CoreAxes,
		"meta_axes":     []string{domain.AxisCalibration, "frivolity"},
		"ranges":        "All axes 0..100 inclusive. Higher = more of that trait.",
		"effort_points": fmt.Sprintf("effort.points_awarded is an integer 0..%d. Points represent answer richness and diagnostic value.", b.maxEffort),
		"notes":         axisNotes,
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal schema reference: %w", err)
	}
	return render("question.tmpl", map[string]any{
		"Schema":    b.schema,
		"Reference": string(ref),
		"Question":  q,
	})
}

// overviewRecord is the subset of a record the overview prompt needs.
type overviewRecord struct {
	QuestionID string            `json:"question_id"`
	Axes       domain.Axes       `json:"axes"`
	Meta       domain.Meta       `json:"meta"`
	Confidence domain.Confidence `json:"confidence"`
	Effort     domain.Effort     `json:"effort"`
	Notes      domain.Notes      `json:"notes"`
	RiskFlags  domain.RiskFlags  `json:"risk_flags"`
	Signals    domain.Signals    `json:"signals"`
}

// Overview asks the model for a persona summary of records.
func (b *Builder) Overview(records []domain.AnswerRecord) (string, error) {
	packed := make([]overviewRecord, 0, len(records))
	for _, r := range records {
		packed = append(packed, overviewRecord{
			QuestionID: r.QuestionID,
			Axes:       r.Axes,
			Meta:       r.Meta,
			Confidence: r.Confidence,
			Effort:     r.Effort,
			Notes:      r.Notes,
			RiskFlags:  r.RiskFlags,
			Signals:    r.Signals,
		})
	}
	data, err := json.MarshalIndent(packed, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal records: %w", err)
	}
	return render("overview.tmpl", map[string]any{"Records": string(data)})
}

func render(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
