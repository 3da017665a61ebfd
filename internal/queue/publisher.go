package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/movein/sentiment-engine/internal/core"
)

// Publisher pushes feedback events onto the work queue with persistent
// delivery. A publish failure is surfaced to the caller so the ingress
// can return a 5xx and the client can retry.
type Publisher struct {
	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher connects, opens a channel and declares the queue topology.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queues: %w", err)
	}

	slog.Info("RabbitMQ publisher connected", "queue", FeedbackQueue, "dlq", FeedbackDLQ)
	return &Publisher{conn: conn, ch: ch}, nil
}

// PublishFeedback enqueues one event as a persistent JSON message.
func (p *Publisher) PublishFeedback(ctx context.Context, event *core.FeedbackEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode feedback %s: %w", event.FeedbackID, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		"",            // default exchange
		FeedbackQueue, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish feedback %s: %w", event.FeedbackID, err)
	}

	slog.Info("feedback published",
		"feedback_id", event.FeedbackID,
		"driver_id", event.DriverID,
		"queue", FeedbackQueue)
	return nil
}

// Close shuts down the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil {
		p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
