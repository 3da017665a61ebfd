package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/movein/sentiment-engine/internal/core"
)

type stubLog struct {
	records []core.FeedbackRecord
	err     error
}

func (s stubLog) DriverFeedbackHistory(context.Context, int64) ([]core.FeedbackRecord, error) {
	return s.records, s.err
}

func record(id string, score float64, at time.Time) core.FeedbackRecord {
	return core.FeedbackRecord{FeedbackID: id, FeedbackText: "t", SentimentScore: score, CreatedAt: at}
}

func TestReplaySeedsFromNeutral(t *testing.T) {
	at := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	timeline := Replay(0.1, []core.FeedbackRecord{record("fb-1", 1.0, at)})

	require.Len(t, timeline, 1)
	assert.InDelta(t, 2.8, timeline[0].AvgScore, 1e-9)
	assert.Equal(t, at, timeline[0].Timestamp)
}

func TestReplayFoldsChronologicallyReturnsNewestFirst(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	// Newest first, as the durable log returns them.
	records := []core.FeedbackRecord{
		record("fb-3", -3.0, base.Add(2*time.Hour)),
		record("fb-2", 2.0, base.Add(time.Hour)),
		record("fb-1", 1.0, base),
	}

	timeline := Replay(0.1, records)
	require.Len(t, timeline, 3)

	// Chronologically:
	//   fb-1: EMA(0.1, 3.0, 1.0) = 2.8
	//   fb-2: EMA(0.1, 2.8, 2.0) = 2.72
	//   fb-3: EMA(0.1, 2.72, -3.0) = 2.148
	// Returned newest first, mirroring the records.
	assert.InDelta(t, 2.148, timeline[0].AvgScore, 1e-9)
	assert.InDelta(t, 2.72, timeline[1].AvgScore, 1e-9)
	assert.InDelta(t, 2.8, timeline[2].AvgScore, 1e-9)

	assert.Equal(t, records[0].CreatedAt, timeline[0].Timestamp)
	assert.Equal(t, records[2].CreatedAt, timeline[2].Timestamp)
}

func TestReplayEmptyLog(t *testing.T) {
	assert.Empty(t, Replay(0.1, nil))
}

func TestDriverHistoryKeepsRecordOrder(t *testing.T) {
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	records := []core.FeedbackRecord{
		record("fb-2", 2.0, base.Add(time.Hour)),
		record("fb-1", 1.0, base),
	}
	r := NewReconstructor(stubLog{records: records}, 0.1)

	h, err := r.DriverHistory(context.Background(), 42)
	require.NoError(t, err)
	assert.EqualValues(t, 42, h.DriverID)
	// Both slices are newest first and aligned by index.
	assert.Equal(t, "fb-2", h.FeedbackRecords[0].FeedbackID)
	assert.Equal(t, base.Add(time.Hour), h.ScoreTimeline[0].Timestamp)
}

func TestDriverHistoryPropagatesError(t *testing.T) {
	r := NewReconstructor(stubLog{err: errors.New("boom")}, 0.1)
	_, err := r.DriverHistory(context.Background(), 42)
	assert.Error(t, err)
}
