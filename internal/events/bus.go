// Package events is the in-process fan-out for live score updates. The
// worker publishes one event per processed feedback; the websocket layer
// subscribes and streams them to dashboards.
package events

import (
	"sync"
	"time"
)

// ScoreUpdate is emitted after each successful hot-store write.
type ScoreUpdate struct {
	DriverID   int64     `json:"driver_id"`
	FeedbackID string    `json:"feedback_id"`
	Sentiment  float64   `json:"sentiment_score"`
	AvgScore   float64   `json:"avg_score"`
	Alerted    bool      `json:"alerted"`
	Timestamp  time.Time `json:"timestamp"`
}

// Bus is an in-process pub/sub for score updates. Delivery is best
// effort: a subscriber that falls behind loses events rather than
// blocking the worker.
type Bus struct {
	mu         sync.RWMutex
	subs       []chan ScoreUpdate
	bufferSize int
}

func NewBus() *Bus {
	return &Bus{bufferSize: 100}
}

// Subscribe returns a channel that receives all future score updates.
func (b *Bus) Subscribe() chan ScoreUpdate {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan ScoreUpdate, b.bufferSize)
	b.subs = append(b.subs, ch)
	return ch
}

// Unsubscribe removes and closes a subscription channel.
func (b *Bus) Unsubscribe(ch chan ScoreUpdate) {
	b.mu.Lock()
	defer b.mu.Unlock()

	filtered := b.subs[:0]
	for _, s := range b.subs {
		if s != ch {
			filtered = append(filtered, s)
		}
	}
	b.subs = filtered
	close(ch)
}

// Publish fans an update out to every subscriber without blocking.
func (b *Bus) Publish(update ScoreUpdate) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs {
		select {
		case ch <- update:
		default:
			// Subscriber buffer full, drop.
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
