// Package api exposes the HTTP surface of the pipeline: the public
// ingestion endpoint plus the admin dashboard, analytics and settings
// views backed by the hot store and the durable log.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/movein/sentiment-engine/internal/core"
	"github.com/movein/sentiment-engine/internal/database"
	"github.com/movein/sentiment-engine/internal/history"
	"github.com/movein/sentiment-engine/internal/metrics"
)

// FeedbackPublisher enqueues accepted feedback for async processing.
type FeedbackPublisher interface {
	PublishFeedback(ctx context.Context, event *core.FeedbackEvent) error
}

// HotReader is the read-only slice of the Redis layer the admin views use.
type HotReader interface {
	AllDriverScores(ctx context.Context) (map[int64]core.DriverReputation, error)
}

// DurableReader is the read-only slice of the Postgres layer the admin
// views use.
type DurableReader interface {
	ListDrivers(ctx context.Context) ([]core.Driver, error)
	FeedbackVolume(ctx context.Context) ([]database.VolumePoint, error)
	SentimentDistribution(ctx context.Context) ([]database.DistributionBucket, error)
	DriverPerformances(ctx context.Context) ([]database.DriverPerformance, error)
	EntityTrends(ctx context.Context) ([]database.EntityTrend, error)
}

// Server wires the HTTP routes for the gateway process.
type Server struct {
	publisher FeedbackPublisher
	hot       HotReader
	db        DurableReader
	history   *history.Reconstructor
	settings  *Settings
	limiter   *RateLimiter
	metrics   *metrics.Metrics
}

func NewServer(publisher FeedbackPublisher, hot HotReader, db DurableReader, rec *history.Reconstructor, settings *Settings, m *metrics.Metrics) *Server {
	return &Server{
		publisher: publisher,
		hot:       hot,
		db:        db,
		history:   rec,
		settings:  settings,
		limiter:   NewRateLimiter(0),
		metrics:   m,
	}
}

// Router builds the gateway route table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestIDMiddleware, corsMiddleware)

	r.Handle("/feedback", s.limiter.Middleware(http.HandlerFunc(s.handleSubmitFeedback))).Methods("POST")
	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	r.HandleFunc("/admin/dashboard", s.handleDashboard).Methods("GET")
	r.HandleFunc("/admin/driver/{id}/history", s.handleDriverHistory).Methods("GET")
	r.HandleFunc("/admin/analytics", s.handleAnalytics).Methods("GET")
	r.HandleFunc("/admin/settings", s.handleGetSettings).Methods("GET")
	r.HandleFunc("/admin/settings", s.handleUpdateSettings).Methods("PUT")

	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	return r
}

// Start serves the router until ctx is cancelled, then drains with a
// short grace period.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// requestIDMiddleware tags every response; clients quote the id when
// reporting problems.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r)
	})
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		slog.Warn("failed to encode response", "error", err)
	}
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}
