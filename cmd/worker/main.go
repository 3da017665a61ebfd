// The worker consumes feedback from the queue, scores it, maintains the
// per-driver moving averages and fires low-score alerts. It also serves
// the live score stream and its own metrics.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/movein/sentiment-engine/internal/alerting"
	"github.com/movein/sentiment-engine/internal/api"
	"github.com/movein/sentiment-engine/internal/config"
	"github.com/movein/sentiment-engine/internal/database"
	"github.com/movein/sentiment-engine/internal/events"
	"github.com/movein/sentiment-engine/internal/metrics"
	"github.com/movein/sentiment-engine/internal/queue"
	"github.com/movein/sentiment-engine/internal/sentiment"
	"github.com/movein/sentiment-engine/internal/store"
	"github.com/movein/sentiment-engine/internal/worker"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

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

	sink, cleanup, err := buildSink(ctx, cfg)
	if err != nil {
		slog.Error("failed to build alert sink", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	analyzer := sentiment.NewRuleBased(
		sentiment.WithFuzzyMatching(cfg.Pipeline.FuzzyEnabled),
		sentiment.WithFuzzyThreshold(cfg.Pipeline.FuzzyThreshold),
	)

	bus := events.NewBus()
	processor := worker.NewProcessor(analyzer, db, hot, sink, bus, metrics.New(), worker.Options{
		EMAAlpha:       cfg.Pipeline.EMAAlpha,
		AlertThreshold: cfg.Pipeline.AlertThreshold,
		AlertCooldown:  time.Duration(cfg.Pipeline.AlertCooldownHours) * time.Hour,
	})

	go serveAux(ctx, cfg.Server.WorkerPort, bus)

	consumer := queue.NewConsumer(cfg.RabbitMQ.URL, cfg.RabbitMQ.PrefetchCount, processor)
	if err := consumer.Start(ctx); err != nil && ctx.Err() == nil {
		slog.Error("consumer stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("worker shut down cleanly")
}

// buildSink picks the alert destination from the config. The returned
// cleanup drains in-flight alerts on shutdown.
func buildSink(ctx context.Context, cfg *config.Config) (worker.AlertSink, func(), error) {
	switch cfg.Alerting.Sink {
	case "webhook":
		s := alerting.NewWebhookSink(cfg.Alerting.WebhookURL, 0)
		return s, s.Shutdown, nil
	case "pubsub":
		s, err := alerting.NewPubSubSink(ctx, cfg.Alerting.PubSubProject, cfg.Alerting.PubSubTopic)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return alerting.NewLogSink(), func() {}, nil
	}
}

// serveAux exposes the live score stream and Prometheus metrics.
func serveAux(ctx context.Context, port string, bus *events.Bus) {
	mux := http.NewServeMux()
	mux.Handle("/ws/scores", api.NewScoreStream(bus))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("worker aux listening", "addr", srv.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("worker aux server failed", "error", err)
	}
}
