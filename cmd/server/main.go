// Command server runs the thin HTTP surface: intent clarification,
// search submission, status and results polling, and feedback. It
// never runs retrieval, scoring, or
// synthesis itself — SubmitSearch only plans a SearchSpec and enqueues
// an asynq task; cmd/worker's Orchestrator does the actual work.
package main

import (
	"context"
	"flag"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/dig"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	_ "github.com/caaa-research/engine/docs"
	"github.com/caaa-research/engine/internal/clarifier"
	"github.com/caaa-research/engine/internal/config"
	"github.com/caaa-research/engine/internal/handler"
	"github.com/caaa-research/engine/internal/logger"
	"github.com/caaa-research/engine/internal/models/chat"
	"github.com/caaa-research/engine/internal/planner"
	"github.com/caaa-research/engine/internal/store"
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

	shutdownTracing, err := tracing.Init("caaa-research-server")
	if err != nil {
		log.Fatalf("initializing tracing: %v", err)
	}
	defer shutdownTracing(context.Background())

	container := buildContainer(cfg)

	if err := container.Invoke(func(s interfaces.Store, searchHandler *handler.SearchHandler) error {
		if err := s.Ping(context.Background()); err != nil {
			log.Fatalf("database self-test failed: %v", err)
		}
		if err := pingRedis(context.Background(), cfg); err != nil {
			log.Fatalf("redis self-test failed: %v", err)
		}

		r := gin.New()
		r.Use(gin.Recovery(), handler.ErrorMiddleware())

		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

		api := r.Group("/api/v1")
		{
			api.POST("/clarify", searchHandler.Clarify)
			api.POST("/searches", searchHandler.SubmitSearch)
			api.GET("/searches", searchHandler.RecentSearches)
			api.GET("/searches/:id", searchHandler.GetSearchStatus)
			api.GET("/searches/:id/results", searchHandler.GetSearchResults)
			api.POST("/searches/:id/feedback", searchHandler.SubmitSynthesisFeedback)
			api.POST("/searches/:id/messages/feedback", searchHandler.SubmitMessageFeedback)
		}

		logger.Info(nil, "starting HTTP server", "addr", cfg.HTTP.Addr)
		return r.Run(cfg.HTTP.Addr)
	}); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// pingRedis checks the task-dispatch backend is reachable before the
// server accepts submissions, so a misconfigured address fails at
// boot instead of on the first enqueue.
func pingRedis(ctx context.Context, cfg *config.Config) error {
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	defer rdb.Close()
	return rdb.Ping(ctx).Err()
}

// buildContainer wires Store, the reasoning-service backend, Clarifier,
// QueryPlanner, the asynq dispatch client, and the HTTP handler as an
// explicit dig.Container value graph, mirroring cmd/worker's
// buildContainer.
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

	must(c.Provide(func(backend chat.Chat) interfaces.Clarifier { return clarifier.New(backend) }))
	must(c.Provide(func(backend chat.Chat) interfaces.QueryPlanner { return planner.New(backend) }))

	must(c.Provide(func(cfg *config.Config) (*asynq.Client, error) {
		return asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}), nil
	}))

	must(c.Provide(handler.NewSearchHandler))

	return c
}
