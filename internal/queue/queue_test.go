package queue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTruncateCapsLongStrings(t *testing.T) {
	long := strings.Repeat("x", 2*maxTracebackSize)
	assert.Len(t, truncate(long, maxTracebackSize), maxTracebackSize)
	assert.Equal(t, "short", truncate("short", maxTracebackSize))
}

func TestQueueNames(t *testing.T) {
	// Both processes declare the same topology; these names are part of
	// the operational contract (DLQ tooling filters on them).
	assert.Equal(t, "feedback_queue", FeedbackQueue)
	assert.Equal(t, "feedback_dlq", FeedbackDLQ)
}

func TestWorkQueueHasNoBrokerDeadLettering(t *testing.T) {
	// Failed messages reach the DLQ only through the explicit publish
	// that attaches the x-error-* headers. A broker-side DLX would add
	// a second, headerless copy on nack.
	args := workQueueArgs()
	assert.NotContains(t, args, "x-dead-letter-exchange")
	assert.NotContains(t, args, "x-dead-letter-routing-key")
}
