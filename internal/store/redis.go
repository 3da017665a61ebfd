// Package store provides the Redis-backed hot score store. It holds the
// live per-driver reputation hash and the TTL-bearing alert locks; the
// durable log in Postgres remains the audit authority.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/movein/sentiment-engine/internal/core"
)

const (
	scoresKey      = "driver_scores"
	alertLockedFmt = "driver_alert_sent:%d"
)

// ScoreStore wraps go-redis v9 with the hot-store layout: one hash keyed
// by driver id for reputations, plus per-driver alert-lock keys.
type ScoreStore struct {
	rdb *redis.Client
}

// scoreEntry is the JSON value stored per hash field. last_updated keeps
// the original "Z"-suffixed layout so other readers of the hash keep working.
type scoreEntry struct {
	AvgScore    float64 `json:"avg_score"`
	LastUpdated string  `json:"last_updated"`
}

// NewScoreStore connects to Redis and verifies connectivity with a ping.
func NewScoreStore(addr, password string, db, poolSize int) (*ScoreStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     poolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed (%s): %w", addr, err)
	}

	slog.Info("Redis connected", "addr", addr, "db", db, "pool_size", poolSize)
	return &ScoreStore{rdb: rdb}, nil
}

// Close shuts down the underlying redis client.
func (s *ScoreStore) Close() error {
	return s.rdb.Close()
}

// GetDriverScore returns the live reputation for a driver, or ok=false
// when the driver has never been scored.
func (s *ScoreStore) GetDriverScore(ctx context.Context, driverID int64) (core.DriverReputation, bool, error) {
	raw, err := s.rdb.HGet(ctx, scoresKey, strconv.FormatInt(driverID, 10)).Result()
	if err == redis.Nil {
		return core.DriverReputation{}, false, nil
	}
	if err != nil {
		return core.DriverReputation{}, false, fmt.Errorf("hget %s/%d: %w", scoresKey, driverID, err)
	}

	var entry scoreEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return core.DriverReputation{}, false, fmt.Errorf("decode score for driver %d: %w", driverID, err)
	}

	rep := core.DriverReputation{AvgScore: entry.AvgScore}
	if ts, err := parseStoredTime(entry.LastUpdated); err == nil {
		rep.LastUpdated = ts
	}
	return rep, true, nil
}

// SetDriverScore overwrites the hot entry for a driver.
func (s *ScoreStore) SetDriverScore(ctx context.Context, driverID int64, avgScore float64, lastUpdated time.Time) error {
	entry := scoreEntry{
		AvgScore:    avgScore,
		LastUpdated: formatStoredTime(lastUpdated),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode score for driver %d: %w", driverID, err)
	}

	if err := s.rdb.HSet(ctx, scoresKey, strconv.FormatInt(driverID, 10), raw).Err(); err != nil {
		return fmt.Errorf("hset %s/%d: %w", scoresKey, driverID, err)
	}
	return nil
}

// AllDriverScores returns every live reputation, keyed by driver id.
// Entries that fail to decode are skipped with a warning rather than
// failing the whole listing.
func (s *ScoreStore) AllDriverScores(ctx context.Context) (map[int64]core.DriverReputation, error) {
	raw, err := s.rdb.HGetAll(ctx, scoresKey).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall %s: %w", scoresKey, err)
	}

	out := make(map[int64]core.DriverReputation, len(raw))
	for field, val := range raw {
		driverID, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			slog.Warn("skipping malformed driver id in hot store", "field", field)
			continue
		}
		var entry scoreEntry
		if err := json.Unmarshal([]byte(val), &entry); err != nil {
			slog.Warn("skipping malformed score entry", "driver_id", driverID, "error", err)
			continue
		}
		rep := core.DriverReputation{AvgScore: entry.AvgScore}
		if ts, err := parseStoredTime(entry.LastUpdated); err == nil {
			rep.LastUpdated = ts
		}
		out[driverID] = rep
	}
	return out, nil
}

// AlertLockExists reports whether an alert was dispatched for the driver
// within the cooldown window.
func (s *ScoreStore) AlertLockExists(ctx context.Context, driverID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, fmt.Sprintf(alertLockedFmt, driverID)).Result()
	if err != nil {
		return false, fmt.Errorf("exists alert lock for driver %d: %w", driverID, err)
	}
	return n > 0, nil
}

// SetAlertLock marks the driver as alerted for the duration of the cooldown.
func (s *ScoreStore) SetAlertLock(ctx context.Context, driverID int64, ttl time.Duration) error {
	key := fmt.Sprintf(alertLockedFmt, driverID)
	if err := s.rdb.SetEx(ctx, key, "1", ttl).Err(); err != nil {
		return fmt.Errorf("setex %s: %w", key, err)
	}
	return nil
}

// formatStoredTime renders the wire layout: naive UTC with a "Z" suffix.
func formatStoredTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.999999") + "Z"
}

func parseStoredTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02T15:04:05.999999", s)
}
