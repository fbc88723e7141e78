package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_targets.sql
var createTargetsSQL string

//go:embed 0002_create_answer_records.sql
var createAnswerRecordsSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			for _, stmt := range []string{
				createTargetsSQL,
				createAnswerRecordsSQL,
				`CREATE INDEX IF NOT EXISTS answer_records_target_idx ON answer_records (target_id, seq)`,
			} {
				if _, err := db.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
			return nil
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.ExecContext(ctx, `DROP TABLE IF EXISTS answer_records, targets`)
			return err
		},
	)
}
