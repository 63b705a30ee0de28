// Command worker runs the asynq task server that executes one search
// per task, dispatching into the Orchestrator built by buildContainer.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"go.uber.org/dig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/caaa-research/engine/internal/config"
	"github.com/caaa-research/engine/internal/logger"
	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/orchestrator"
	"github.com/caaa-research/engine/internal/retriever"
	"github.com/caaa-research/engine/internal/scorer"
	"github.com/caaa-research/engine/internal/store"
	"github.com/caaa-research/engine/internal/synthesizer"
	"github.com/caaa-research/engine/internal/tracing"
	"github.com/caaa-research/engine/internal/types/interfaces"
)

func main() {
	configPath := flag.String("config", "", "path to config yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	shutdownTracing, err := tracing.Init("caaa-research-worker")
	if err != nil {
		log.Fatalf("initializing tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	container := buildContainer(cfg)

	if err := container.Invoke(func(handler *orchestrator.Handler, s interfaces.Store) error {
		if err := s.Ping(context.Background()); err != nil {
			log.Fatalf("database self-test failed: %v", err)
		}
		if err := pingRedis(context.Background(), cfg); err != nil {
			log.Fatalf("redis self-test failed: %v", err)
		}

		mux := asynq.NewServeMux()
		mux.HandleFunc(orchestrator.TaskTypeRunSearch, handler.Handle)

		srv := asynq.NewServer(
			asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB},
			asynq.Config{Concurrency: 1}, // one search at a time; the browser context is single-threaded
		)
		logger.Info(nil, "starting search worker", "redis_addr", cfg.Redis.Addr)
		return srv.Run(mux)
	}); err != nil {
		log.Fatalf("worker exited: %v", err)
	}
}

// pingRedis checks the task-queue backend is reachable before the
// asynq server starts, so a misconfigured address fails at boot
// instead of on the first dequeue.
func pingRedis(ctx context.Context, cfg *config.Config) error {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()
	return rdb.Ping(ctx).Err()
}

// buildContainer wires Store, Retriever, the reasoning-service backend,
// Scorer, Synthesizer and the Orchestrator as an explicit
// dig.Container value graph; nothing here is a package-level global.
func buildContainer(cfg *config.Config) *dig.Container {
	c := dig.New()

	must := func(err error) {
		if err != nil {
			log.Fatalf("wiring container: %v", err)
		}
	}

	must(c.Provide(func() *config.Config { return cfg }))

	must(c.Provide(func(cfg *config.Config) (*gorm.DB, error) {
		return gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	}))

	must(c.Provide(func(db *gorm.DB) interfaces.Store { return store.New(db) }))

	must(c.Provide(func(cfg *config.Config) (chat.Chat, error) {
		return chat.New(chat.Settings{
			Provider: cfg.Reasoning.Provider,
			BaseURL:  cfg.Reasoning.BaseURL,
			APIKey:   cfg.Reasoning.APIKey,
			Model:    cfg.Reasoning.Model,
		})
	}))

	must(c.Provide(func(cfg *config.Config) interfaces.Retriever {
		return retriever.New(cfg.Upstream.SearchURL, cfg.Browser.RemoteDebuggingURL, retriever.Timeouts{
			PageLoad:    cfg.Timeouts.PageLoad,
			ResultsWait: cfg.Timeouts.ResultsWait,
			MessageWait: cfg.Timeouts.MessageWait,
			PageBackoff: cfg.Timeouts.PageBackoff,
		})
	}))

	must(c.Provide(func(backend chat.Chat) interfaces.Scorer { return scorer.New(backend) }))
	must(c.Provide(func(backend chat.Chat) interfaces.Synthesizer { return synthesizer.New(backend) }))

	must(c.Provide(func(s interfaces.Store, r interfaces.Retriever, sc interfaces.Scorer, sy interfaces.Synthesizer) *orchestrator.Orchestrator {
		return orchestrator.New(s, r, sc, sy)
	}))
	must(c.Provide(orchestrator.NewHandler))

	return c
}
