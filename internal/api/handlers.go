package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/movein/sentiment-engine/internal/core"
)

// handleSubmitFeedback validates the payload and enqueues it. The 202
// means accepted for processing, not processed.
func (s *Server) handleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	var event core.FeedbackEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := event.Validate(); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.publisher.PublishFeedback(r.Context(), &event); err != nil {
		slog.Error("failed to enqueue feedback", "feedback_id", event.FeedbackID, "error", err)
		respondError(w, http.StatusServiceUnavailable, "feedback queue unavailable")
		return
	}

	s.metrics.FeedbackPublished.WithLabelValues(string(event.EntityType)).Inc()
	respondJSON(w, http.StatusAccepted, map[string]string{
		"feedback_id": event.FeedbackID,
		"status":      "accepted",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleDashboard joins every hot score with the driver roster and
// flags drivers sitting under the alert threshold.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	scores, err := s.hot.AllDriverScores(ctx)
	if err != nil {
		slog.Error("failed to read hot scores", "error", err)
		respondError(w, http.StatusInternalServerError, "score store unavailable")
		return
	}
	drivers, err := s.db.ListDrivers(ctx)
	if err != nil {
		slog.Error("failed to list drivers", "error", err)
		respondError(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	names := make(map[int64]string, len(drivers))
	for _, d := range drivers {
		names[d.ID] = d.Name
	}

	threshold := s.settings.Snapshot().AlertThreshold
	out := make([]core.DriverScore, 0, len(scores))
	for id, rep := range scores {
		name, ok := names[id]
		if !ok {
			name = "driver " + strconv.FormatInt(id, 10)
		}
		out = append(out, core.DriverScore{
			DriverID:    id,
			DriverName:  name,
			AvgScore:    rep.AvgScore,
			LastUpdated: rep.LastUpdated,
			AlertStatus: rep.AvgScore < threshold,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{"drivers": out})
}

func (s *Server) handleDriverHistory(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "driver id must be a positive integer")
		return
	}

	h, err := s.history.DriverHistory(r.Context(), id)
	if err != nil {
		slog.Error("failed to reconstruct history", "driver_id", id, "error", err)
		respondError(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	respondJSON(w, http.StatusOK, h)
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	volume, err := s.db.FeedbackVolume(ctx)
	if err != nil {
		slog.Error("analytics volume query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	distribution, err := s.db.SentimentDistribution(ctx)
	if err != nil {
		slog.Error("analytics distribution query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	performances, err := s.db.DriverPerformances(ctx)
	if err != nil {
		slog.Error("analytics performance query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "database unavailable")
		return
	}
	trends, err := s.db.EntityTrends(ctx)
	if err != nil {
		slog.Error("analytics trends query failed", "error", err)
		respondError(w, http.StatusInternalServerError, "database unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"feedback_volume":        volume,
		"sentiment_distribution": distribution,
		"driver_performance":     performances,
		"entity_trends":          trends,
	})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.settings.Snapshot())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var next PipelineSettings
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		respondError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if err := s.settings.Update(next); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	slog.Info("pipeline settings updated",
		"ema_alpha", next.EMAAlpha,
		"alert_threshold", next.AlertThreshold,
		"alert_cooldown_hours", next.AlertCooldownHours)
	respondJSON(w, http.StatusOK, next)
}
