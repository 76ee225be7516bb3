package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/notify-engine/internal/advisor"
	"github.com/ignite/notify-engine/internal/api"
	"github.com/ignite/notify-engine/internal/channels"
	"github.com/ignite/notify-engine/internal/config"
	"github.com/ignite/notify-engine/internal/delivery"
	"github.com/ignite/notify-engine/internal/eligibility"
	"github.com/ignite/notify-engine/internal/engagement"
	"github.com/ignite/notify-engine/internal/optimizer"
	"github.com/ignite/notify-engine/internal/pkg/distlock"
	"github.com/ignite/notify-engine/internal/pkg/logger"
	"github.com/ignite/notify-engine/internal/repository/postgres"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/redis/go-redis/v9"
)

func main() {
	configPath := "config.yaml"
	if len(os.Args) > 1 {
		configPath = os.Args[1]
	}
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	if cfg.Logging.RedactPII != nil {
		logger.SetRedactPII(*cfg.Logging.RedactPII)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()
	if cfg.Database.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	}
	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	log.Printf("[Main] Connected to database")

	contacts := postgres.NewContactRepo(db)
	history := postgres.NewHistoryRepo(db)
	audit := postgres.NewAuditRepo(db)

	registry := channels.NewRegistry(
		channels.NewEmailAdapter(cfg.Email),
		channels.NewSMSAdapter(cfg.SMS),
		channels.NewChatAdapter(cfg.Chat),
		channels.NewBusinessAdapter(cfg.Business),
	)

	gate := eligibility.NewGate(contacts, registry)
	aggregator := engagement.NewAggregator(history, cfg.Optimization.HistoryWindow)
	predictor := optimizer.NewPredictor(history, cfg.Optimization.EngagedSample)
	composer := optimizer.NewComposer(contacts, registry, aggregator, predictor)
	recorder := delivery.NewRecorder(history, audit)

	orchestrator := delivery.NewOrchestrator(
		contacts, registry, composer, recorder,
		delivery.OptionsFromConfig(cfg.Fallback),
	)

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("[Main] Redis unavailable, delivery locks disabled: %v", err)
		} else {
			orchestrator.WithLocks(&distlock.RedisFactory{Client: redisClient})
			log.Printf("[Main] Per-contact delivery locks enabled")
		}
	}

	if cfg.Advisor.Enabled {
		a, err := advisor.NewBedrockAdvisor(context.Background(), cfg.Advisor.Region, cfg.Advisor.ModelID)
		if err != nil {
			log.Printf("[Main] Advisor unavailable: %v", err)
		} else {
			orchestrator.WithAdvisor(a)
		}
	}

	server := api.NewServer(cfg.Server, api.NewHandlers(gate, composer, orchestrator, history))

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			log.Fatalf("server: %v", err)
		}
	case sig := <-stop:
		log.Printf("[Main] Received %s, shutting down", sig)
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Printf("[Main] Shutdown error: %v", err)
		}
	}
}
