// Package database is the durable log: an append-only feedback table keyed
// by the client-supplied feedback_id, plus the externally managed driver
// directory. It is the audit authority; the hot store may run ahead of it.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"github.com/movein/sentiment-engine/internal/core"
)

// commandTimeout bounds every statement issued through this store.
const commandTimeout = 60 * time.Second

// ErrDuplicateFeedback is returned when the feedback_id uniqueness
// constraint rejects an insert.
var ErrDuplicateFeedback = errors.New("feedback_id already recorded")

// Store wraps a pooled *sql.DB with the feedback-log operations.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres pool with the configured bounds and verifies
// connectivity.
func NewStore(dsn string, poolMin, poolMax int) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	db.SetMaxOpenConns(poolMax)
	db.SetMaxIdleConns(poolMin)
	db.SetConnMaxIdleTime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	slog.Info("Postgres pool created", "pool_min", poolMin, "pool_max", poolMax)
	return &Store{db: db}, nil
}

// NewStoreWithDB wraps an existing handle; used by tests.
func NewStoreWithDB(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// FeedbackExists is the idempotency probe for a feedback_id.
func (s *Store) FeedbackExists(ctx context.Context, feedbackID string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM feedback_log WHERE feedback_id = $1)`,
		feedbackID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("feedback exists %s: %w", feedbackID, err)
	}
	return exists, nil
}

// InsertFeedback appends one scored row. The unique index on feedback_id
// is what enforces at-most-one durable effect per event; a constraint hit
// surfaces as ErrDuplicateFeedback.
func (s *Store) InsertFeedback(ctx context.Context, f core.ScoredFeedback) error {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_log
		   (feedback_id, driver_id, entity_type, feedback_text, sentiment_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		f.FeedbackID, f.DriverID, string(f.EntityType), f.Text, f.SentimentScore, f.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return fmt.Errorf("insert feedback %s: %w", f.FeedbackID, ErrDuplicateFeedback)
		}
		return fmt.Errorf("insert feedback %s: %w", f.FeedbackID, err)
	}
	return nil
}

// DriverFeedbackHistory returns every scored row for a driver, newest first.
func (s *Store) DriverFeedbackHistory(ctx context.Context, driverID int64) ([]core.FeedbackRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT feedback_id, feedback_text, sentiment_score, created_at
		   FROM feedback_log
		  WHERE driver_id = $1
		  ORDER BY created_at DESC`,
		driverID,
	)
	if err != nil {
		return nil, fmt.Errorf("feedback history for driver %d: %w", driverID, err)
	}
	defer rows.Close()

	var records []core.FeedbackRecord
	for rows.Next() {
		var r core.FeedbackRecord
		if err := rows.Scan(&r.FeedbackID, &r.FeedbackText, &r.SentimentScore, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan feedback row: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// ListDrivers returns the driver directory.
func (s *Store) ListDrivers(ctx context.Context) ([]core.Driver, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM drivers`)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []core.Driver
	for rows.Next() {
		var d core.Driver
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, fmt.Errorf("scan driver row: %w", err)
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}
