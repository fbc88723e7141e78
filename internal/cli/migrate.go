package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"persona-card-service/internal/bank"
	"persona-card-service/internal/config"
	"persona-card-service/internal/domain"
	"persona-card-service/internal/infra/postgres"
	pgmigrations "persona-card-service/internal/infra/postgres/migrations"
)

// NewMigrateCmd applies database migrations and seeds the question bank.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var bankFile string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations and seed the question bank",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			if bankFile == "" {
				return seedDefaultBank(cmd.Context(), cfg)
			}
			return importBankFile(cmd.Context(), cfg, bankFile)
		},
	}
	cmd.Flags().StringVar(&bankFile, "bank", "", "YAML or JSON bank file to store under the configured bank id")
	return cmd
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)

	if err := migrator.Init(ctx); err != nil {
		return err
	}

	group, err := migrator.Migrate(ctx)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Printf("no new migrations")
		return nil
	}
	log.Printf("migrations applied: %s", group)
	return nil
}

// seedDefaultBank stores the built-in bank when the configured one is absent.
func seedDefaultBank(ctx context.Context, cfg config.Config) error {
	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	loader := postgres.NewBankLoader(pool)
	if _, err := loader.LoadBank(ctx, cfg.BankID()); !errors.Is(err, domain.ErrBankNotFound) {
		return err
	}
	fatigue := cfg.EngineOptions().Tuning.Merge().DefaultFatigue
	if err := loader.SaveBank(ctx, cfg.BankID(), bank.Default(fatigue)); err != nil {
		return err
	}
	log.Printf("seeded question bank %q", cfg.BankID())
	return nil
}

func importBankFile(ctx context.Context, cfg config.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fatigue := cfg.EngineOptions().Tuning.Merge().DefaultFatigue
	questions, err := bank.Parse(data, bank.FormatFromPath(path), fatigue)
	if err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	if err := postgres.NewBankLoader(pool).SaveBank(ctx, cfg.BankID(), questions); err != nil {
		return err
	}
	log.Printf("stored %d questions as bank %q", len(questions), cfg.BankID())
	return nil
}
