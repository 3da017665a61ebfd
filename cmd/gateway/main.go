// The gateway accepts feedback over HTTP, enqueues it for the workers
// and serves the admin dashboard, analytics and settings endpoints.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/movein/sentiment-engine/internal/api"
	"github.com/movein/sentiment-engine/internal/config"
	"github.com/movein/sentiment-engine/internal/database"
	"github.com/movein/sentiment-engine/internal/history"
	"github.com/movein/sentiment-engine/internal/metrics"
	"github.com/movein/sentiment-engine/internal/queue"
	"github.com/movein/sentiment-engine/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.NewStore(cfg.Database.URL, cfg.Database.PoolMin, cfg.Database.PoolMax)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	hot, err := store.NewScoreStore(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.PoolSize)
	if err != nil {
		slog.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer hot.Close()

	publisher, err := queue.NewPublisher(cfg.RabbitMQ.URL)
	if err != nil {
		slog.Error("failed to connect to rabbitmq", "error", err)
		os.Exit(1)
	}
	defer publisher.Close()

	reconstructor := history.NewReconstructor(db, cfg.Pipeline.EMAAlpha)

	settings := api.NewSettings(api.PipelineSettings{
		EMAAlpha:           cfg.Pipeline.EMAAlpha,
		AlertThreshold:     cfg.Pipeline.AlertThreshold,
		AlertCooldownHours: cfg.Pipeline.AlertCooldownHours,
	})
	settings.OnUpdate(func(s api.PipelineSettings) {
		reconstructor.SetAlpha(s.EMAAlpha)
	})

	server := api.NewServer(publisher, hot, db, reconstructor, settings, metrics.New())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx, ":"+cfg.Server.Port); err != nil {
		slog.Error("gateway stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("gateway shut down cleanly")
}
