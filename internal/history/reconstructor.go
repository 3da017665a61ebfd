// Package history rebuilds a driver's score timeline from the durable
// feedback log. The hot store only keeps the latest average; replaying
// the EMA over the log recovers every intermediate value.
package history

import (
	"context"
	"fmt"
	"sync"

	"github.com/movein/sentiment-engine/internal/core"
)

// DurableLog is the slice of the Postgres layer the reconstructor reads.
type DurableLog interface {
	DriverFeedbackHistory(ctx context.Context, driverID int64) ([]core.FeedbackRecord, error)
}

type Reconstructor struct {
	db DurableLog

	mu    sync.RWMutex
	alpha float64
}

func NewReconstructor(db DurableLog, alpha float64) *Reconstructor {
	if alpha <= 0 || alpha > 1 {
		alpha = 0.1
	}
	return &Reconstructor{db: db, alpha: alpha}
}

// SetAlpha changes the smoothing factor used for future replays. Out of
// range values are ignored.
func (r *Reconstructor) SetAlpha(alpha float64) {
	if alpha <= 0 || alpha > 1 {
		return
	}
	r.mu.Lock()
	r.alpha = alpha
	r.mu.Unlock()
}

func (r *Reconstructor) currentAlpha() float64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.alpha
}

// DriverHistory returns the raw records and the replayed score
// timeline, both newest first.
func (r *Reconstructor) DriverHistory(ctx context.Context, driverID int64) (core.DriverHistory, error) {
	records, err := r.db.DriverFeedbackHistory(ctx, driverID)
	if err != nil {
		return core.DriverHistory{}, fmt.Errorf("load feedback history: %w", err)
	}
	return core.DriverHistory{
		DriverID:        driverID,
		FeedbackRecords: records,
		ScoreTimeline:   Replay(r.currentAlpha(), records),
	}, nil
}

// Replay folds the records through the EMA in chronological order,
// seeded from the neutral score, then returns the points newest first
// so timeline[i] pairs with records[i]. Records arrive newest first,
// as the durable log returns them.
func Replay(alpha float64, records []core.FeedbackRecord) []core.ScorePoint {
	timeline := make([]core.ScorePoint, len(records))
	avg := core.NeutralScore
	for i := len(records) - 1; i >= 0; i-- {
		avg = core.EMA(alpha, avg, records[i].SentimentScore)
		timeline[i] = core.ScorePoint{
			Timestamp: records[i].CreatedAt,
			AvgScore:  avg,
		}
	}
	return timeline
}
