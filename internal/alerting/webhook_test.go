package alerting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookSinkDeliversAlert(t *testing.T) {
	var (
		mu       sync.Mutex
		received []AlertEvent
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event AlertEvent
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, event.ID, r.Header.Get("X-Alert-Event-ID"))

		mu.Lock()
		received = append(received, event)
		mu.Unlock()
	}))
	defer ts.Close()

	sink := NewWebhookSink(ts.URL, 1)
	sink.Emit(context.Background(), 42, 2.1)
	sink.Shutdown()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "driver.score.low", received[0].Type)
	assert.EqualValues(t, 42, received[0].DriverID)
	assert.Equal(t, 2.1, received[0].Score)
	assert.NotEmpty(t, received[0].ID)
}

func TestWebhookSinkSurvivesEndpointErrors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	sink := NewWebhookSink(ts.URL, 1)
	sink.Emit(context.Background(), 7, 1.0)
	sink.Emit(context.Background(), 8, 1.5)
	// Shutdown drains without panicking despite the failing endpoint.
	sink.Shutdown()
}
