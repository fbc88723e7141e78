package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"persona-card-service/internal/app"
	"persona-card-service/internal/bank"
	"persona-card-service/internal/config"
	"persona-card-service/internal/engine"
	"persona-card-service/internal/infra/memory"
	"persona-card-service/internal/infra/postgres"
	infraredis "persona-card-service/internal/infra/redis"
	"persona-card-service/internal/infra/sqlite"
	"persona-card-service/internal/prompts"
	transport "persona-card-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the persona card server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	backend, err := cfg.Backend()
	if err != nil {
		return err
	}
	if backend == config.StoragePostgres {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
		if err := seedDefaultBank(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	deps, err := buildDeps(ctx, cfg, backend)
	if err != nil {
		return err
	}
	defer deps.close()

	eng := engine.New(cfg.EngineOptions())
	service := app.NewCardService(eng, deps.store, deps.banks, deps.sessions,
		app.WithBankID(cfg.BankID()),
		app.WithPresets(bank.DefaultPresets()),
	)
	builder := prompts.New(eng.Registry().Current(), eng.Tuning().MaxEffort)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      transport.NewRouter(service, builder, deps.sessions),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting persona card service on :%s (storage=%s)", finalPort, backend)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sessionStore is the hub the service broadcasts through and the operator
// endpoints inspect.
type sessionStore interface {
	app.SessionRepository
	transport.SessionInspector
}

type deps struct {
	store    app.CardStore
	banks    app.BankRepository
	sessions sessionStore
	closers  []func()
}

func (d *deps) close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		d.closers[i]()
	}
}

// buildDeps opens the configured backend. Redis, when configured, also
// caches the question bank and marks watched cards whatever the backend.
func buildDeps(ctx context.Context, cfg config.Config, backend string) (*deps, error) {
	d := &deps{}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		d.closers = append(d.closers, func() { _ = redisClient.Close() })
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if backend == config.StoragePostgres {
		var err error
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, pool.Close)
	}

	switch backend {
	case config.StorageMemory:
		d.store = memory.NewCardStore()
	case config.StorageRedis:
		if redisClient == nil {
			return nil, fmt.Errorf("redis addr not configured")
		}
		d.store = infraredis.NewCardStore(redisClient)
	case config.StoragePostgres:
		d.store = postgres.NewCardStore(pool)
	case config.StorageSQLite:
		path := cfg.SQLite.Path
		if path == "" {
			path = "persona-cards.db"
		}
		store, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, func() { _ = store.Close() })
		d.store = store
	}

	fatigue := cfg.EngineOptions().Tuning.Merge().DefaultFatigue
	var loader memory.BankLoader = bank.NewFileLoader(cfg.Bank.Dir, fatigue)
	if pool != nil {
		loader = postgres.NewBankLoader(pool)
	}

	bankTTL := config.TTLDuration(cfg.Bank.TTL, 10*time.Minute)
	if redisClient != nil {
		d.banks = infraredis.NewBankRepository(redisClient, loader, bankTTL)
		d.sessions = infraredis.NewSessionStore(redisClient, redisTTL)
	} else {
		d.banks = memory.NewBankRepository(loader, bankTTL)
		d.sessions = memory.NewSessionStore()
	}
	return d, nil
}
