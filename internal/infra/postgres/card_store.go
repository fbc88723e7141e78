package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"persona-card-service/internal/domain"
)

// CardStore keeps targets and answer records as JSONB rows.
type CardStore struct {
	pool *pgxpool.Pool
}

func NewCardStore(pool *pgxpool.Pool) *CardStore {
	return &CardStore{pool: pool}
}

func (s *CardStore) ListByTarget(ctx context.Context, targetID string) ([]domain.AnswerRecord, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM answer_records WHERE target_id=$1 ORDER BY seq`, targetID)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var out []domain.AnswerRecord
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		var rec domain.AnswerRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *CardStore) Append(ctx context.Context, rec domain.AnswerRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO answer_records (target_id, dedup_hash, question_id, data, saved_at) VALUES ($1, $2, $3, $4, $5)`,
		rec.ScoringTargetID, rec.DedupHash, rec.QuestionID, string(data), rec.SavedAt)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	return nil
}

func (s *CardStore) DeleteByTarget(ctx context.Context, targetID string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM answer_records WHERE target_id=$1`, targetID); err != nil {
		return fmt.Errorf("delete records: %w", err)
	}
	return nil
}

func (s *CardStore) GetTarget(ctx context.Context, id string) (domain.Target, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM targets WHERE id=$1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Target{}, domain.ErrTargetNotFound
	}
	if err != nil {
		return domain.Target{}, fmt.Errorf("load target: %w", err)
	}
	var t domain.Target
	if err := json.Unmarshal(raw, &t); err != nil {
		return domain.Target{}, fmt.Errorf("unmarshal target: %w", err)
	}
	return t, nil
}

func (s *CardStore) SaveTarget(ctx context.Context, t domain.Target) error {
	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal target: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO targets (id, data, created_at) VALUES ($1, $2, $3) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`,
		t.ID, string(data), t.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert target: %w", err)
	}
	return nil
}

func (s *CardStore) DeleteTarget(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM targets WHERE id=$1`, id); err != nil {
		return fmt.Errorf("delete target: %w", err)
	}
	return nil
}

func (s *CardStore) ListTargets(ctx context.Context) ([]domain.Target, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM targets ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer rows.Close()

	var out []domain.Target
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		var t domain.Target
		if err := json.Unmarshal(raw, &t); err != nil {
			return nil, fmt.Errorf("unmarshal target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
