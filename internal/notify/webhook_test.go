package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"field-service/internal/config"
)

func TestWebhookQueue_Delivers(t *testing.T) {
	var mu sync.Mutex
	var received []Event

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var event Event
		require.NoError(t, json.NewDecoder(r.Body).Decode(&event))
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Notify.ServiceURL = server.URL
	cfg.Notify.BufferSize = 4

	queue := NewWebhookQueue(cfg, zerolog.Nop())

	requestID := uuid.New()
	queue.Publish(Event{
		Type:       EventStatusChanged,
		RequestID:  requestID,
		Status:     "ASSIGNED",
		CustomerID: uuid.New(),
		OccurredAt: time.Now().UTC(),
	})
	queue.Close()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, EventStatusChanged, received[0].Type)
	assert.Equal(t, requestID, received[0].RequestID)
}

func TestWebhookQueue_PublishDuringShutdownDoesNotPanic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Notify.ServiceURL = server.URL
	cfg.Notify.BufferSize = 2

	queue := NewWebhookQueue(cfg, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			queue.Publish(Event{Type: EventStatusChanged, RequestID: uuid.New()})
		}
	}()

	queue.Close()
	<-done

	// the queue is stopped; a late publish is discarded, never a panic
	queue.Publish(Event{Type: EventStatusChanged, RequestID: uuid.New()})
}

func TestWebhookQueue_FullBufferDropsWithoutBlocking(t *testing.T) {
	blocked := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-blocked
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	cfg := &config.Config{}
	cfg.Notify.ServiceURL = server.URL
	cfg.Notify.BufferSize = 1

	queue := NewWebhookQueue(cfg, zerolog.Nop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			queue.Publish(Event{Type: EventStatusChanged, RequestID: uuid.New()})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full buffer")
	}

	close(blocked)
	queue.Close()
}
