package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AssignmentAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "field_service_assignment_attempts_total",
		Help: "Technician assignment attempts by outcome.",
	}, []string{"outcome"})

	InvoicesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "field_service_invoices_issued_total",
		Help: "Invoices created by the billing engine.",
	})

	NotificationsPublished = promauto.NewCounter(prometheus.CounterOpts{
		Name: "field_service_notifications_published_total",
		Help: "Notification events delivered to the notification service.",
	})
)

const (
	OutcomeAssigned = "assigned"
	OutcomeConflict = "conflict"
	OutcomeRejected = "rejected"
)
