package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// AlertEvent is the JSON payload delivered to a webhook endpoint.
type AlertEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	DriverID  int64     `json:"driver_id"`
	Score     float64   `json:"score"`
	Timestamp time.Time `json:"timestamp"`
}

// WebhookSink posts alerts to an HTTP endpoint from a background worker
// pool. Emit never blocks: when the buffer is full the alert is dropped
// with a warning, keeping backpressure away from the processor.
type WebhookSink struct {
	url        string
	httpClient *http.Client
	queue      chan *AlertEvent
	wg         sync.WaitGroup
}

// NewWebhookSink starts the delivery workers.
func NewWebhookSink(url string, workers int) *WebhookSink {
	if workers <= 0 {
		workers = 4
	}
	s := &WebhookSink{
		url: url,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		queue: make(chan *AlertEvent, 1000),
	}

	for i := 0; i < workers; i++ {
		s.wg.Add(1)
		go s.worker()
	}

	return s
}

func (s *WebhookSink) Emit(ctx context.Context, driverID int64, score float64) {
	event := &AlertEvent{
		ID:        "alert-" + uuid.NewString(),
		Type:      "driver.score.low",
		DriverID:  driverID,
		Score:     score,
		Timestamp: time.Now().UTC(),
	}

	select {
	case s.queue <- event:
	default:
		slog.Warn("alert queue full, dropping alert", "driver_id", driverID, "event_id", event.ID)
	}
}

func (s *WebhookSink) worker() {
	defer s.wg.Done()

	for event := range s.queue {
		s.deliver(event)
	}
}

func (s *WebhookSink) deliver(event *AlertEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal alert event", "error", err)
		return
	}

	req, err := http.NewRequest(http.MethodPost, s.url, bytes.NewReader(payload))
	if err != nil {
		slog.Error("failed to create alert request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Alert-Event-ID", event.ID)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		slog.Error("alert delivery failed", "url", s.url, "event_id", event.ID, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		slog.Warn("alert endpoint returned error",
			"status", resp.StatusCode, "event_id", event.ID)
		return
	}
	slog.Info("alert delivered", "event_id", event.ID, "driver_id", event.DriverID)
}

// Shutdown drains the queue and stops the workers.
func (s *WebhookSink) Shutdown() {
	close(s.queue)
	s.wg.Wait()
}

var _ Sink = (*WebhookSink)(nil)
