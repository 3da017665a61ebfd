package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	baseReconnectDelay = 1 * time.Second
	maxReconnectDelay  = 30 * time.Second
)

// Handler processes one message body. A nil return acknowledges the
// message. A non-nil return dead-letters it; if the error implements
// Classified the DLQ headers carry its error type, otherwise the
// failure is recorded as unknown_error.
type Handler interface {
	Handle(ctx context.Context, body []byte) error
}

// Classified is implemented by handler errors that know their DLQ
// error type and, optionally, carry a captured stack.
type Classified interface {
	error
	ErrorType() string
	Traceback() string
}

// Consumer drains the work queue with manual acks and bounded prefetch.
// On connection loss it reconnects with exponential backoff.
type Consumer struct {
	url      string
	prefetch int
	handler  Handler

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewConsumer creates a consumer; no connection is made until Start.
func NewConsumer(url string, prefetch int, handler Handler) *Consumer {
	return &Consumer{
		url:      url,
		prefetch: prefetch,
		handler:  handler,
	}
}

// Start consumes until the context is cancelled. Each delivery is handled
// on its own goroutine; the broker's prefetch bound is what limits the
// number of messages in flight.
func (c *Consumer) Start(ctx context.Context) error {
	delay := baseReconnectDelay

	for {
		err := c.consume(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			slog.Error("consumer connection lost", "error", err, "retry_in", delay)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}
}

func (c *Consumer) consume(ctx context.Context) error {
	conn, err := dial(c.url)
	if err != nil {
		return fmt.Errorf("amqp dial: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		return fmt.Errorf("amqp qos: %w", err)
	}

	if err := declareTopology(ch); err != nil {
		return fmt.Errorf("declare queues: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.ch = ch
	c.mu.Unlock()

	deliveries, err := ch.Consume(
		FeedbackQueue,
		"",    // consumer tag (auto-generated)
		false, // auto-ack off: ack only after all side effects
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("amqp consume: %w", err)
	}

	slog.Info("consuming feedback queue",
		"queue", FeedbackQueue,
		"dlq", FeedbackDLQ,
		"prefetch", c.prefetch)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				c.dispatch(ctx, d)
			}(d)
		}
	}
}

// dispatch runs the handler and settles the delivery: ack on success,
// dead-letter plus nack-without-requeue on failure. A failed DLQ publish
// leaves the message unacked so the broker redelivers it.
func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	err := c.handler.Handle(ctx, d.Body)
	if err == nil {
		if ackErr := d.Ack(false); ackErr != nil {
			slog.Error("ack failed", "delivery_tag", d.DeliveryTag, "error", ackErr)
		}
		return
	}

	errType := "unknown_error"
	traceback := ""
	var classified Classified
	if errors.As(err, &classified) {
		errType = classified.ErrorType()
		traceback = classified.Traceback()
	}

	slog.Error("message processing failed",
		"delivery_tag", d.DeliveryTag,
		"error_type", errType,
		"error", err)

	if dlqErr := c.sendToDLQ(ctx, d.Body, errType, err.Error(), traceback); dlqErr != nil {
		slog.Error("dead-letter publish failed; leaving message unacked for redelivery",
			"delivery_tag", d.DeliveryTag, "error", dlqErr)
		return
	}

	if nackErr := d.Nack(false, false); nackErr != nil {
		slog.Error("nack failed", "delivery_tag", d.DeliveryTag, "error", nackErr)
	}
}

// sendToDLQ publishes the original body to the dead-letter queue with the
// diagnostic headers operators rely on when reprocessing.
func (c *Consumer) sendToDLQ(ctx context.Context, body []byte, errType, errMsg, traceback string) error {
	headers := amqp.Table{
		HeaderErrorType:     errType,
		HeaderErrorMessage:  errMsg,
		HeaderFailedAt:      time.Now().UTC().Format(time.RFC3339),
		HeaderOriginalQueue: FeedbackQueue,
	}
	if traceback != "" {
		headers[HeaderTraceback] = truncate(traceback, maxTracebackSize)
	}

	c.mu.Lock()
	ch := c.ch
	c.mu.Unlock()
	if ch == nil {
		return fmt.Errorf("channel not initialized")
	}

	err := ch.PublishWithContext(ctx,
		"",
		FeedbackDLQ,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Headers:      headers,
			Body:         body,
		},
	)
	if err != nil {
		return err
	}

	slog.Warn("message dead-lettered", "error_type", errType, "dlq", FeedbackDLQ)
	return nil
}
