package app

import (
	"context"
	"encoding/json"
	"fmt"

	"persona-card-service/internal/domain"
	"persona-card-service/internal/engine"
	"persona-card-service/internal/metrics"
)

// Export packages one target with all of its records.
func (s *CardService) Export(ctx context.Context, targetID string) (domain.ExportPackage, error) {
	target, err := s.lookupTarget(ctx, targetID)
	if err != nil {
		return domain.ExportPackage{}, err
	}
	records, err := s.store.ListByTarget(ctx, target.ID)
	if err != nil {
		return domain.ExportPackage{}, fmt.Errorf("list records: %w", err)
	}
	if records == nil {
		records = []domain.AnswerRecord{}
	}
	return domain.ExportPackage{
		SchemaVersion: domain.ExportFormatV2,
		ExportedAt:    s.now().UTC(),
		Target:        target,
		Records:       records,
	}, nil
}

// importPackage accepts the current export, the legacy card export
// ({persona, answers}) and the legacy whole-session export
// ({personas, answers}).
type importPackage struct {
	SchemaVersion string            `json:"schema_version"`
	Target        *importTarget     `json:"target"`
	Records       []json.RawMessage `json:"records"`
	Persona       *importTarget     `json:"persona"`
	Personas      []importTarget    `json:"personas"`
	Answers       []json.RawMessage `json:"answers"`
}

type importTarget struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Import stores every card in a package under fresh target ids so imports
// never collide with existing cards. Records are validated one by one;
// invalid records and in-package duplicates are dropped and counted.
func (s *CardService) Import(ctx context.Context, raw []byte) ([]domain.ImportResult, error) {
	var pkg importPackage
	if err := json.Unmarshal(raw, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnknownExportFormat, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case pkg.SchemaVersion == domain.ExportFormatV2:
		res, err := s.importCard(ctx, pkg.Target, pkg.Records)
		if err != nil {
			return nil, err
		}
		return []domain.ImportResult{res}, nil
	case pkg.SchemaVersion == domain.ExportFormatV1:
		res, err := s.importCard(ctx, pkg.Persona, pkg.Answers)
		if err != nil {
			return nil, err
		}
		return []domain.ImportResult{res}, nil
	case pkg.SchemaVersion == "" && pkg.Personas != nil && pkg.Answers != nil:
		return s.importSession(ctx, pkg.Personas, pkg.Answers)
	}
	return nil, domain.ErrUnknownExportFormat
}

func (s *CardService) importSession(ctx context.Context, personas []importTarget, answers []json.RawMessage) ([]domain.ImportResult, error) {
	var owner struct {
		PersonaID string `json:"persona_id"`
	}
	byPersona := make(map[string][]json.RawMessage, len(personas))
	for _, a := range answers {
		owner.PersonaID = ""
		if err := json.Unmarshal(a, &owner); err != nil {
			continue
		}
		byPersona[owner.PersonaID] = append(byPersona[owner.PersonaID], a)
	}

	out := make([]domain.ImportResult, 0, len(personas))
	for i := range personas {
		res, err := s.importCard(ctx, &personas[i], byPersona[personas[i].ID])
		if err != nil {
			return out, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *CardService) importCard(ctx context.Context, src *importTarget, raws []json.RawMessage) (domain.ImportResult, error) {
	if src == nil {
		src = &importTarget{}
	}
	target, err := s.createTargetLocked(ctx, src.Name, src.Color)
	if err != nil {
		return domain.ImportResult{}, err
	}

	result := domain.ImportResult{TargetID: target.ID}
	seen := make(map[string]struct{}, len(raws))
	for i, raw := range raws {
		res := s.engine.ValidateJSON(raw)
		if !res.OK {
			result.Dropped++
			result.Failures = append(result.Failures, domain.ImportFailure{Index: i, Errors: res.Errors})
			continue
		}
		rec := *res.Normalized
		rec.ScoringTargetID = target.ID
		rec.DedupHash = engine.RecordHash(rec)
		if _, dup := seen[rec.DedupHash]; dup {
			result.Dropped++
			result.Duplicates++
			continue
		}
		seen[rec.DedupHash] = struct{}{}
		if rec.SavedAt.IsZero() {
			rec.SavedAt = s.now().UTC()
		}
		if err := s.store.Append(ctx, rec); err != nil {
			s.discardTargetLocked(ctx, target.ID)
			return domain.ImportResult{}, fmt.Errorf("append record: %w", err)
		}
		target.LastQuestionID = rec.QuestionID
		result.Imported++
	}
	if err := s.store.SaveTarget(ctx, target); err != nil {
		s.discardTargetLocked(ctx, target.ID)
		return domain.ImportResult{}, fmt.Errorf("save target: %w", err)
	}

	metrics.ImportedRecords.WithLabelValues("imported").Add(float64(result.Imported))
	metrics.ImportedRecords.WithLabelValues("invalid").Add(float64(result.Dropped - result.Duplicates))
	metrics.ImportedRecords.WithLabelValues("duplicate").Add(float64(result.Duplicates))
	return result, nil
}
