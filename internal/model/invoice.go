package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type InvoiceStatus string

const (
	InvoiceStatusPending InvoiceStatus = "PENDING"
	InvoiceStatusPaid    InvoiceStatus = "PAID"
)

type Invoice struct {
	ID               uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ServiceRequestID uuid.UUID     `gorm:"type:uuid;not null;uniqueIndex" json:"service_request_id"`
	Amount           float64       `gorm:"not null" json:"amount"`
	Status           InvoiceStatus `gorm:"type:invoice_status;not null" json:"status"`
	PaidAt           *time.Time    `json:"paid_at"`
	CreatedAt        time.Time     `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time     `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Invoice) TableName() string {
	return "invoices"
}

func (i *Invoice) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
