package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"field-service/internal/config"
	"field-service/internal/metrics"
)

// WebhookQueue posts events to the notification service over HTTP. Publish
// only enqueues; a single background goroutine drains the buffer. When the
// buffer is full the event is dropped with a warning.
type WebhookQueue struct {
	serviceURL    string
	internalToken string
	httpClient    *http.Client
	events        chan Event
	stop          chan struct{}
	done          chan struct{}
	log           zerolog.Logger
}

func NewWebhookQueue(cfg *config.Config, log zerolog.Logger) *WebhookQueue {
	q := &WebhookQueue{
		serviceURL:    cfg.Notify.ServiceURL,
		internalToken: cfg.Notify.InternalToken,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		events: make(chan Event, cfg.Notify.BufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
		log:    log,
	}
	go q.drain()
	return q
}

func (q *WebhookQueue) Publish(event Event) {
	select {
	case q.events <- event:
	default:
		q.log.Warn().
			Str("type", string(event.Type)).
			Str("request_id", event.RequestID.String()).
			Msg("notification buffer full, event dropped")
	}
}

// Close stops the drain goroutine after the buffer empties. The events
// channel is never closed, so Publish stays safe to call concurrently with
// shutdown; anything published afterwards is simply never delivered.
func (q *WebhookQueue) Close() {
	close(q.stop)
	<-q.done
}

func (q *WebhookQueue) drain() {
	defer close(q.done)
	for {
		select {
		case event := <-q.events:
			q.handle(event)
		case <-q.stop:
			for {
				select {
				case event := <-q.events:
					q.handle(event)
				default:
					return
				}
			}
		}
	}
}

func (q *WebhookQueue) handle(event Event) {
	if err := q.deliver(event); err != nil {
		q.log.Warn().Err(err).
			Str("type", string(event.Type)).
			Str("request_id", event.RequestID.String()).
			Msg("notification delivery failed")
		return
	}
	metrics.NotificationsPublished.Inc()
}

func (q *WebhookQueue) deliver(event Event) error {
	if q.serviceURL == "" {
		return fmt.Errorf("notification service URL is not configured")
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.serviceURL+"/internal/notifications", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if q.internalToken != "" {
		req.Header.Set("X-Internal-Token", q.internalToken)
	}

	resp, err := q.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notification service returned %d", resp.StatusCode)
	}
	return nil
}
