package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type RequestStatus string

const (
	RequestStatusRequested  RequestStatus = "REQUESTED"
	RequestStatusAssigned   RequestStatus = "ASSIGNED"
	RequestStatusInProgress RequestStatus = "IN_PROGRESS"
	RequestStatusCompleted  RequestStatus = "COMPLETED"
	RequestStatusClosed     RequestStatus = "CLOSED"
	RequestStatusCancelled  RequestStatus = "CANCELLED"
)

type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

type ServiceRequest struct {
	ID           uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	CustomerID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"customer_id"`
	TechnicianID *uuid.UUID    `gorm:"type:uuid;index" json:"technician_id"`
	CategoryID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"category_id"`

	// Snapshot of the category at creation time. Window and price math always
	// reads these fields, never the live category row.
	CategoryName       string  `gorm:"type:varchar(255);not null" json:"category_name"`
	CategoryBaseCharge float64 `gorm:"not null" json:"category_base_charge"`
	CategorySlaHours   int     `gorm:"not null" json:"category_sla_hours"`

	IssueDescription string        `gorm:"type:text;not null" json:"issue_description"`
	Priority         Priority      `gorm:"type:request_priority;not null" json:"priority"`
	Status           RequestStatus `gorm:"type:request_status;not null" json:"status"`

	ScheduledDate   *time.Time `json:"scheduled_date"`
	PlannedStartAt  *time.Time `json:"planned_start_at"`
	WorkStartedAt   *time.Time `json:"work_started_at"`
	WorkEndedAt     *time.Time `json:"work_ended_at"`
	CompletedAt     *time.Time `json:"completed_at"`
	ResolutionNotes string     `gorm:"type:text" json:"resolution_notes"`
	TotalPrice      float64    `json:"total_price"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (ServiceRequest) TableName() string {
	return "service_requests"
}

func (r *ServiceRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// CommitmentWindow is the half-open interval during which the assigned
// technician is occupied by this request. The second return is false when the
// request has no scheduled date and therefore blocks nothing.
func (r *ServiceRequest) CommitmentWindow() (start, end time.Time, ok bool) {
	if r.ScheduledDate == nil {
		return time.Time{}, time.Time{}, false
	}
	start = *r.ScheduledDate
	end = start.Add(time.Duration(r.CategorySlaHours) * time.Hour)
	return start, end, true
}

// IsTerminal reports whether no further transitions are defined from s.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusClosed || s == RequestStatusCancelled
}

// Blocks reports whether a request in this status occupies its technician's
// schedule.
func (s RequestStatus) Blocks() bool {
	return s == RequestStatusAssigned || s == RequestStatusInProgress
}
