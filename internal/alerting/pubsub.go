package alerting

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"
)

// PubSubSink publishes alerts to a Google Cloud Pub/Sub topic for
// downstream notifiers (SMS, ops paging). Publish results are checked
// off the hot path so a slow broker never slows the processor.
type PubSubSink struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewPubSubSink connects and creates the topic if it does not exist.
func NewPubSubSink(ctx context.Context, projectID, topicID string) (*PubSubSink, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub.NewClient: %w", err)
	}

	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("topic.Exists: %w", err)
	}
	if !exists {
		topic, err = client.CreateTopic(ctx, topicID)
		if err != nil {
			client.Close()
			return nil, fmt.Errorf("CreateTopic: %w", err)
		}
		slog.Info("created alert topic", "topic", topicID)
	}

	slog.Info("Pub/Sub alert sink connected", "topic", topic.String())
	return &PubSubSink{client: client, topic: topic}, nil
}

func (s *PubSubSink) Emit(ctx context.Context, driverID int64, score float64) {
	event := &AlertEvent{
		ID:        "alert-" + uuid.NewString(),
		Type:      "driver.score.low",
		DriverID:  driverID,
		Score:     score,
		Timestamp: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal alert event", "error", err)
		return
	}

	result := s.topic.Publish(context.Background(), &pubsub.Message{
		Data: payload,
		Attributes: map[string]string{
			"event-type": event.Type,
			"event-id":   event.ID,
			"driver-id":  strconv.FormatInt(driverID, 10),
		},
	})

	go func() {
		serverID, err := result.Get(context.Background())
		if err != nil {
			slog.Error("alert publish failed", "event_id", event.ID, "error", err)
			return
		}
		slog.Info("alert published", "event_id", event.ID, "msg_id", serverID)
	}()
}

// Close stops the topic's publish goroutines and the client.
func (s *PubSubSink) Close() error {
	s.topic.Stop()
	return s.client.Close()
}

var _ Sink = (*PubSubSink)(nil)
