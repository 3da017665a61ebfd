// Package queue is the RabbitMQ transport for feedback events: a durable
// work queue paired with a dead-letter queue, persistent JSON messages,
// manual acknowledgement and bounded prefetch.
package queue

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// FeedbackQueue carries submitted feedback to the processor worker.
	FeedbackQueue = "feedback_queue"
	// FeedbackDLQ receives messages the worker could not process.
	FeedbackDLQ = "feedback_dlq"

	heartbeat        = 600 * time.Second
	maxTracebackSize = 1000
)

// DLQ header names. Operators filter the dead-letter queue on these.
const (
	HeaderErrorType     = "x-error-type"
	HeaderErrorMessage  = "x-error-message"
	HeaderFailedAt      = "x-failed-at"
	HeaderOriginalQueue = "x-original-queue"
	HeaderTraceback     = "x-error-traceback"
)

// dial opens a connection with the long heartbeat the pipeline expects;
// workers can sit idle well past default heartbeat intervals.
func dial(url string) (*amqp.Connection, error) {
	return amqp.DialConfig(url, amqp.Config{
		Heartbeat: heartbeat,
	})
}

// declareTopology creates both queues. Declaration is idempotent, so the
// publisher and every consumer all declare on startup; whoever connects
// first wins. Dead-lettering is done by an explicit publish carrying
// the diagnostic headers, so the work queue carries no broker-side DLX
// arguments: a nacked message must not reach the DLQ a second time,
// headerless.
func declareTopology(ch *amqp.Channel) error {
	if _, err := ch.QueueDeclare(
		FeedbackDLQ,
		true,  // durable
		false, // auto-delete
		false, // exclusive
		false, // no-wait
		nil,
	); err != nil {
		return err
	}

	_, err := ch.QueueDeclare(
		FeedbackQueue,
		true,
		false,
		false,
		false,
		workQueueArgs(),
	)
	return err
}

// workQueueArgs returns the declare arguments for the work queue. Kept
// empty on purpose: with x-dead-letter-exchange set, the nack after the
// explicit DLQ publish would make the broker enqueue a second copy
// without the x-error-* headers.
func workQueueArgs() amqp.Table {
	return nil
}

// truncate caps the traceback header so a deep stack cannot bloat the DLQ.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
