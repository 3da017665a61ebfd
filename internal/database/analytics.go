package database

import (
	"context"
	"fmt"
	"time"
)

// VolumePoint is one day of feedback volume.
type VolumePoint struct {
	Date         time.Time `json:"date"`
	Count        int64     `json:"count"`
	AvgSentiment float64   `json:"avg_sentiment"`
}

// DistributionBucket is one sentiment category slice.
type DistributionBucket struct {
	Category string  `json:"category"`
	Count    int64   `json:"count"`
	AvgScore float64 `json:"avg_score"`
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
}

// DriverPerformance aggregates a driver's feedback.
type DriverPerformance struct {
	DriverName    string    `json:"driver_name"`
	FeedbackCount int64     `json:"feedback_count"`
	AvgScore      float64   `json:"avg_score"`
	FirstFeedback time.Time `json:"first_feedback"`
	LastFeedback  time.Time `json:"last_feedback"`
}

// EntityTrend aggregates sentiment per entity type.
type EntityTrend struct {
	EntityType   string  `json:"entity_type"`
	Count        int64   `json:"count"`
	AvgSentiment float64 `json:"avg_sentiment"`
}

// FeedbackVolume returns per-day feedback counts for the last 30 days,
// newest first.
func (s *Store) FeedbackVolume(ctx context.Context) ([]VolumePoint, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT DATE(created_at) AS date,
		        COUNT(*) AS count,
		        COALESCE(AVG(sentiment_score), 0) AS avg_sentiment
		   FROM feedback_log
		  WHERE created_at >= NOW() - INTERVAL '30 days'
		  GROUP BY DATE(created_at)
		  ORDER BY date DESC
		  LIMIT 30`,
	)
	if err != nil {
		return nil, fmt.Errorf("feedback volume: %w", err)
	}
	defer rows.Close()

	var points []VolumePoint
	for rows.Next() {
		var p VolumePoint
		if err := rows.Scan(&p.Date, &p.Count, &p.AvgSentiment); err != nil {
			return nil, fmt.Errorf("scan volume row: %w", err)
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// SentimentDistribution buckets all rows into positive/neutral/negative
// at the +-0.5 boundaries.
func (s *Store) SentimentDistribution(ctx context.Context) ([]DistributionBucket, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT CASE
		          WHEN sentiment_score > 0.5 THEN 'positive'
		          WHEN sentiment_score < -0.5 THEN 'negative'
		          ELSE 'neutral'
		        END AS category,
		        COUNT(*) AS count,
		        AVG(sentiment_score) AS avg_score,
		        MIN(sentiment_score) AS min_score,
		        MAX(sentiment_score) AS max_score
		   FROM feedback_log
		  GROUP BY category
		  ORDER BY category`,
	)
	if err != nil {
		return nil, fmt.Errorf("sentiment distribution: %w", err)
	}
	defer rows.Close()

	var buckets []DistributionBucket
	for rows.Next() {
		var b DistributionBucket
		if err := rows.Scan(&b.Category, &b.Count, &b.AvgScore, &b.MinScore, &b.MaxScore); err != nil {
			return nil, fmt.Errorf("scan distribution row: %w", err)
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// DriverPerformances lists per-driver aggregates for drivers with at
// least three feedbacks, best average first.
func (s *Store) DriverPerformances(ctx context.Context) ([]DriverPerformance, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT d.name AS driver_name,
		        COUNT(f.feedback_id) AS feedback_count,
		        AVG(f.sentiment_score) AS avg_score,
		        MIN(f.created_at) AS first_feedback,
		        MAX(f.created_at) AS last_feedback
		   FROM drivers d
		   JOIN feedback_log f ON d.id = f.driver_id
		  GROUP BY d.id, d.name
		 HAVING COUNT(f.feedback_id) >= 3
		  ORDER BY avg_score DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("driver performances: %w", err)
	}
	defer rows.Close()

	var perfs []DriverPerformance
	for rows.Next() {
		var p DriverPerformance
		if err := rows.Scan(&p.DriverName, &p.FeedbackCount, &p.AvgScore, &p.FirstFeedback, &p.LastFeedback); err != nil {
			return nil, fmt.Errorf("scan performance row: %w", err)
		}
		perfs = append(perfs, p)
	}
	return perfs, rows.Err()
}

// EntityTrends aggregates counts and average sentiment per entity type.
func (s *Store) EntityTrends(ctx context.Context) ([]EntityTrend, error) {
	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx,
		`SELECT entity_type,
		        COUNT(*) AS count,
		        AVG(sentiment_score) AS avg_sentiment
		   FROM feedback_log
		  GROUP BY entity_type`,
	)
	if err != nil {
		return nil, fmt.Errorf("entity trends: %w", err)
	}
	defer rows.Close()

	var trends []EntityTrend
	for rows.Next() {
		var t EntityTrend
		if err := rows.Scan(&t.EntityType, &t.Count, &t.AvgSentiment); err != nil {
			return nil, fmt.Errorf("scan trend row: %w", err)
		}
		trends = append(trends, t)
	}
	return trends, rows.Err()
}
