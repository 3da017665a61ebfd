// Package metrics registers the Prometheus instruments for the feedback
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the sentiment pipeline.
type Metrics struct {
	// Ingress
	FeedbackPublished *prometheus.CounterVec

	// Worker
	FeedbackProcessed  *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	SentimentScore     prometheus.Histogram

	// Alerting
	AlertsDispatched  prometheus.Counter
	AlertsSuppressed  prometheus.Counter
	DriverReputations *prometheus.GaugeVec
}

// New creates and registers all pipeline metrics on the default registry.
func New() *Metrics {
	return &Metrics{
		FeedbackPublished: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_published_total",
				Help: "Feedback events accepted by the ingestion endpoint and enqueued",
			},
			[]string{"entity_type"},
		),

		FeedbackProcessed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feedback_processed_total",
				Help: "Queue messages settled by the worker",
			},
			// result: processed, duplicate, validation_error, database_error, unknown_error
			[]string{"result"},
		),

		ProcessingDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "feedback_processing_duration_seconds",
				Help:    "End-to-end handling time for one queue message",
				Buckets: prometheus.DefBuckets,
			},
		),

		SentimentScore: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "feedback_sentiment_score",
				Help:    "Distribution of computed sentiment scores",
				Buckets: []float64{-5, -4, -3, -2, -1, -0.5, 0, 0.5, 1, 2, 3, 4, 5},
			},
		),

		AlertsDispatched: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driver_alerts_dispatched_total",
				Help: "Low-score alerts actually emitted",
			},
		),

		AlertsSuppressed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "driver_alerts_suppressed_total",
				Help: "Low-score alerts suppressed by the cooldown lock",
			},
		),

		DriverReputations: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "driver_reputation_score",
				Help: "Live smoothed reputation per driver",
			},
			[]string{"driver_id"},
		),
	}
}
