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

// BankLoader loads question bank JSONB from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, bankID string) ([]domain.Question, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM question_banks WHERE id=$1`, bankID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrBankNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bank: %w", err)
	}
	var qs []domain.Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return nil, fmt.Errorf("unmarshal bank: %w", err)
	}
	return qs, nil
}

// SaveBank stores or replaces a bank.
func (l *BankLoader) SaveBank(ctx context.Context, bankID string, qs []domain.Question) error {
	data, err := json.Marshal(qs)
	if err != nil {
		return fmt.Errorf("marshal bank: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO question_banks (id, data) VALUES ($1, $2) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data, updated_at=now()`,
		bankID, string(data))
	if err != nil {
		return fmt.Errorf("save bank: %w", err)
	}
	return nil
}
