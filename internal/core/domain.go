package core

import (
	"fmt"
	"strings"
	"time"
)

// EntityType identifies what a piece of feedback is about.
type EntityType string

const (
	EntityDriver  EntityType = "driver"
	EntityTrip    EntityType = "trip"
	EntityApp     EntityType = "app"
	EntityMarshal EntityType = "marshal"
)

// Valid reports whether the entity type is one of the recognized values.
func (e EntityType) Valid() bool {
	switch e {
	case EntityDriver, EntityTrip, EntityApp, EntityMarshal:
		return true
	}
	return false
}

// FeedbackEvent is the immutable wire payload submitted by clients and
// carried through the queue. feedback_id is assigned by the client and
// doubles as the idempotency key.
type FeedbackEvent struct {
	FeedbackID string     `json:"feedback_id"`
	DriverID   int64      `json:"driver_id"`
	EntityType EntityType `json:"entity_type"`
	Text       string     `json:"text"`
	Timestamp  time.Time  `json:"timestamp"`
}

// Validate checks the schema constraints on a decoded event.
func (f *FeedbackEvent) Validate() error {
	if strings.TrimSpace(f.FeedbackID) == "" {
		return fmt.Errorf("feedback_id is required")
	}
	if f.DriverID <= 0 {
		return fmt.Errorf("driver_id must be positive, got %d", f.DriverID)
	}
	if !f.EntityType.Valid() {
		return fmt.Errorf("entity_type %q is not one of driver|trip|app|marshal", f.EntityType)
	}
	if f.Text == "" {
		return fmt.Errorf("text is required")
	}
	if f.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	return nil
}

// ScoredFeedback is a FeedbackEvent with its derived sentiment score.
// Exactly one row per feedback_id is persisted to the durable log.
type ScoredFeedback struct {
	FeedbackID     string     `json:"feedback_id"`
	DriverID       int64      `json:"driver_id"`
	EntityType     EntityType `json:"entity_type"`
	Text           string     `json:"feedback_text"`
	SentimentScore float64    `json:"sentiment_score"`
	CreatedAt      time.Time  `json:"created_at"`
}

// DriverReputation is the hot, mutable per-driver state.
// NeutralScore seeds the EMA for drivers with no prior feedback.
type DriverReputation struct {
	AvgScore    float64   `json:"avg_score"`
	LastUpdated time.Time `json:"last_updated"`
}

// NeutralScore is the EMA seed for drivers never scored before.
const NeutralScore = 3.0

// Driver is the externally managed identity record; read-only here.
type Driver struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// DriverScore is the dashboard view of a driver's live reputation.
type DriverScore struct {
	DriverID    int64     `json:"driver_id"`
	DriverName  string    `json:"driver_name"`
	AvgScore    float64   `json:"avg_score"`
	LastUpdated time.Time `json:"last_updated"`
	AlertStatus bool      `json:"alert_status"`
}

// FeedbackRecord is a single durable-log row as returned to admin views.
type FeedbackRecord struct {
	FeedbackID     string    `json:"feedback_id"`
	FeedbackText   string    `json:"feedback_text"`
	SentimentScore float64   `json:"sentiment_score"`
	CreatedAt      time.Time `json:"created_at"`
}

// ScorePoint is one step of a reconstructed score timeline.
type ScorePoint struct {
	Timestamp time.Time `json:"timestamp"`
	AvgScore  float64   `json:"avg_score"`
}

// DriverHistory bundles the raw records with the replayed EMA timeline.
// The timeline is derived and may differ from the live hot-store value
// when events arrived out of timestamp order.
type DriverHistory struct {
	DriverID        int64            `json:"driver_id"`
	FeedbackRecords []FeedbackRecord `json:"feedback_records"`
	ScoreTimeline   []ScorePoint     `json:"score_timeline"`
}

// EMA computes one exponential-moving-average step.
func EMA(alpha, oldAvg, sample float64) float64 {
	return alpha*sample + (1-alpha)*oldAvg
}
