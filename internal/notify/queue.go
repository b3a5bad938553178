package notify

import (
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventAssignmentOffered EventType = "assignment_offered"
	EventStatusChanged     EventType = "status_changed"
)

// Event is the outbound notification payload. Delivery is fire-and-forget;
// the engines never learn whether anyone received it.
type Event struct {
	Type         EventType  `json:"type"`
	RequestID    uuid.UUID  `json:"request_id"`
	Status       string     `json:"status"`
	CustomerID   uuid.UUID  `json:"customer_id"`
	TechnicianID *uuid.UUID `json:"technician_id,omitempty"`
	OccurredAt   time.Time  `json:"occurred_at"`
}

// Queue accepts events without blocking the caller. Implementations must not
// return delivery errors to the publishing engine.
type Queue interface {
	Publish(event Event)
}

// NopQueue discards everything. Used in tests and when no notification
// service is configured.
type NopQueue struct{}

func (NopQueue) Publish(Event) {}
