// Package worker holds the queue-side half of the pipeline: it consumes
// feedback events, scores them, folds the score into the driver's moving
// average and persists the result.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/movein/sentiment-engine/internal/core"
	"github.com/movein/sentiment-engine/internal/database"
	"github.com/movein/sentiment-engine/internal/events"
	"github.com/movein/sentiment-engine/internal/metrics"
	"github.com/movein/sentiment-engine/internal/sentiment"
)

// DurableStore is the slice of the Postgres layer the processor needs.
type DurableStore interface {
	FeedbackExists(ctx context.Context, feedbackID string) (bool, error)
	InsertFeedback(ctx context.Context, f core.ScoredFeedback) error
}

// HotStore is the slice of the Redis layer the processor needs.
type HotStore interface {
	GetDriverScore(ctx context.Context, driverID int64) (core.DriverReputation, bool, error)
	SetDriverScore(ctx context.Context, driverID int64, avgScore float64, lastUpdated time.Time) error
	AlertLockExists(ctx context.Context, driverID int64) (bool, error)
	SetAlertLock(ctx context.Context, driverID int64, ttl time.Duration) error
}

// AlertSink receives low-score notifications.
type AlertSink interface {
	Emit(ctx context.Context, driverID int64, score float64)
}

// Processor handles one queue message end to end. A nil return means
// the message is settled and must be acked; a returned error means it
// goes to the dead-letter queue.
type Processor struct {
	analyzer sentiment.Analyzer
	db       DurableStore
	hot      HotStore
	sink     AlertSink
	bus      *events.Bus
	metrics  *metrics.Metrics
	clock    func() time.Time

	alpha          float64
	alertThreshold float64
	alertCooldown  time.Duration
}

// Options tunes the pipeline parameters. Start from DefaultOptions;
// every field is taken literally, including AlertThreshold = 0.
type Options struct {
	EMAAlpha       float64
	AlertThreshold float64
	AlertCooldown  time.Duration
}

// DefaultOptions returns the documented pipeline defaults.
func DefaultOptions() Options {
	return Options{
		EMAAlpha:       0.1,
		AlertThreshold: 2.5,
		AlertCooldown:  24 * time.Hour,
	}
}

func NewProcessor(analyzer sentiment.Analyzer, db DurableStore, hot HotStore, sink AlertSink, bus *events.Bus, m *metrics.Metrics, opts Options) *Processor {
	p := &Processor{
		analyzer:       analyzer,
		db:             db,
		hot:            hot,
		sink:           sink,
		bus:            bus,
		metrics:        m,
		clock:          time.Now,
		alpha:          opts.EMAAlpha,
		alertThreshold: opts.AlertThreshold,
		alertCooldown:  opts.AlertCooldown,
	}
	// Zero is a legal threshold, so only out-of-range values fall back.
	defaults := DefaultOptions()
	if p.alpha <= 0 || p.alpha > 1 {
		p.alpha = defaults.EMAAlpha
	}
	if p.alertThreshold < -5 || p.alertThreshold > 5 {
		p.alertThreshold = defaults.AlertThreshold
	}
	if p.alertCooldown <= 0 {
		p.alertCooldown = defaults.AlertCooldown
	}
	return p
}

// Handle implements queue.Handler.
func (p *Processor) Handle(ctx context.Context, body []byte) error {
	start := p.clock()
	defer func() {
		p.metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	var event core.FeedbackEvent
	if err := json.Unmarshal(body, &event); err != nil {
		p.metrics.FeedbackProcessed.WithLabelValues(errTypeValidation).Inc()
		return validationError("malformed feedback payload: %v", err)
	}
	if err := event.Validate(); err != nil {
		p.metrics.FeedbackProcessed.WithLabelValues(errTypeValidation).Inc()
		return validationError("invalid feedback event: %v", err)
	}

	log := slog.With("feedback_id", event.FeedbackID, "driver_id", event.DriverID)

	exists, err := p.db.FeedbackExists(ctx, event.FeedbackID)
	if err != nil {
		p.metrics.FeedbackProcessed.WithLabelValues(errTypeDatabase).Inc()
		return databaseError(fmt.Errorf("idempotency check: %w", err))
	}
	if exists {
		log.Info("duplicate feedback, skipping")
		p.metrics.FeedbackProcessed.WithLabelValues("duplicate").Inc()
		return nil
	}

	score := p.analyzer.Analyze(event.Text)
	p.metrics.SentimentScore.Observe(score)

	rep, ok, err := p.hot.GetDriverScore(ctx, event.DriverID)
	if err != nil {
		p.metrics.FeedbackProcessed.WithLabelValues("unknown_error").Inc()
		return fmt.Errorf("read driver score: %w", err)
	}
	oldAvg := core.NeutralScore
	if ok {
		oldAvg = rep.AvgScore
	}
	newAvg := core.EMA(p.alpha, oldAvg, score)

	// Both stores record when the feedback happened, not when it was
	// processed; the timeline replay depends on that.
	if err := p.hot.SetDriverScore(ctx, event.DriverID, newAvg, event.Timestamp); err != nil {
		p.metrics.FeedbackProcessed.WithLabelValues("unknown_error").Inc()
		return fmt.Errorf("write driver score: %w", err)
	}

	err = p.db.InsertFeedback(ctx, core.ScoredFeedback{
		FeedbackID:     event.FeedbackID,
		DriverID:       event.DriverID,
		EntityType:     event.EntityType,
		Text:           event.Text,
		SentimentScore: score,
		CreatedAt:      event.Timestamp,
	})
	switch {
	case errors.Is(err, database.ErrDuplicateFeedback):
		// Lost a race with a concurrent delivery of the same event. The
		// hot store was already updated by the winner's EMA step too,
		// which slightly overweights this sample; the durable log stays
		// exactly-once and the admin timeline is unaffected.
		log.Warn("concurrent duplicate insert, skipping")
		p.metrics.FeedbackProcessed.WithLabelValues("duplicate").Inc()
		return nil
	case err != nil:
		p.metrics.FeedbackProcessed.WithLabelValues(errTypeDatabase).Inc()
		return databaseError(fmt.Errorf("insert feedback: %w", err))
	}

	alerted := p.maybeAlert(ctx, log, event.DriverID, newAvg)

	p.metrics.FeedbackProcessed.WithLabelValues("processed").Inc()
	p.metrics.DriverReputations.WithLabelValues(strconv.FormatInt(event.DriverID, 10)).Set(newAvg)

	if p.bus != nil {
		p.bus.Publish(events.ScoreUpdate{
			DriverID:   event.DriverID,
			FeedbackID: event.FeedbackID,
			Sentiment:  score,
			AvgScore:   newAvg,
			Alerted:    alerted,
			Timestamp:  p.clock().UTC(),
		})
	}

	log.Info("feedback processed",
		"sentiment_score", score,
		"avg_score", newAvg,
		"alerted", alerted)
	return nil
}

// maybeAlert fires the low-score sink when the average crosses the
// threshold and no cooldown lock is held. Alerting failures never fail
// the message: the score is already durable by this point.
func (p *Processor) maybeAlert(ctx context.Context, log *slog.Logger, driverID int64, avg float64) bool {
	if avg >= p.alertThreshold {
		return false
	}

	locked, err := p.hot.AlertLockExists(ctx, driverID)
	if err != nil {
		log.Warn("alert lock check failed, skipping alert", "error", err)
		return false
	}
	if locked {
		p.metrics.AlertsSuppressed.Inc()
		return false
	}

	p.sink.Emit(ctx, driverID, avg)
	p.metrics.AlertsDispatched.Inc()

	if err := p.hot.SetAlertLock(ctx, driverID, p.alertCooldown); err != nil {
		log.Warn("failed to set alert cooldown lock", "error", err)
	}
	return true
}
