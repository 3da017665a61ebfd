package store

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*ScoreStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	s, err := NewScoreStore(mr.Addr(), "", 0, 10)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	return s, mr
}

func TestScoreRoundTrip(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 8, 26, 12, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetDriverScore(ctx, 7, 2.4, ts))

	rep, ok, err := s.GetDriverScore(ctx, 7)
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 2.4, rep.AvgScore, 1e-9)
	assert.True(t, rep.LastUpdated.Equal(ts))
}

func TestScoreMissingDriver(t *testing.T) {
	s, _ := newTestStore(t)

	_, ok, err := s.GetDriverScore(context.Background(), 42)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestScoreWireLayout(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 8, 26, 12, 30, 0, 0, time.UTC)
	require.NoError(t, s.SetDriverScore(ctx, 7, 2.4, ts))

	raw := mr.HGet("driver_scores", "7")
	assert.JSONEq(t, `{"avg_score":2.4,"last_updated":"2026-08-26T12:30:00Z"}`, raw)
}

func TestAllDriverScores(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, s.SetDriverScore(ctx, 1, 3.2, now))
	require.NoError(t, s.SetDriverScore(ctx, 2, 1.9, now))

	// Malformed entries are skipped, not fatal.
	mr.HSet("driver_scores", "not-a-driver", "{}")
	mr.HSet("driver_scores", "3", "not json")

	scores, err := s.AllDriverScores(ctx)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.InDelta(t, 3.2, scores[1].AvgScore, 1e-9)
	assert.InDelta(t, 1.9, scores[2].AvgScore, 1e-9)
}

func TestAlertLockLifecycle(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	locked, err := s.AlertLockExists(ctx, 9)
	require.NoError(t, err)
	assert.False(t, locked)

	require.NoError(t, s.SetAlertLock(ctx, 9, 24*time.Hour))

	locked, err = s.AlertLockExists(ctx, 9)
	require.NoError(t, err)
	assert.True(t, locked)

	// Lock for one driver does not leak to another.
	locked, err = s.AlertLockExists(ctx, 10)
	require.NoError(t, err)
	assert.False(t, locked)

	// Expiry clears the lock.
	mr.FastForward(24*time.Hour + time.Second)
	locked, err = s.AlertLockExists(ctx, 9)
	require.NoError(t, err)
	assert.False(t, locked)
}
