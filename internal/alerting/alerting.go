// Package alerting dispatches low-score driver alerts. Sinks are
// fire-and-forget: the processor never blocks on, retries through, or
// fails because of alert delivery.
package alerting

import (
	"context"
	"log/slog"
)

// Sink receives low-score notifications. Implementations must not
// propagate delivery failures back to the caller.
type Sink interface {
	Emit(ctx context.Context, driverID int64, score float64)
}

// LogSink records alerts in the structured log. It is the default sink
// and the one used in development.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Emit(ctx context.Context, driverID int64, score float64) {
	slog.Warn("driver score below alert threshold",
		"alert_type", "low_score",
		"driver_id", driverID,
		"score", score)
}

var _ Sink = (*LogSink)(nil)
