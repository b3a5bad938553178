package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"field-service/internal/metrics"
	"field-service/internal/model"
	"field-service/internal/repository"
)

// Priority multipliers applied to the category base charge. Medium is the
// baseline. TODO: confirm the low/high ratios with billing before the first
// production invoice run.
var priorityMultipliers = map[model.Priority]float64{
	model.PriorityLow:    0.8,
	model.PriorityMedium: 1.0,
	model.PriorityHigh:   1.5,
}

type BillingService struct {
	requestRepo *repository.RequestRepository
	invoiceRepo *repository.InvoiceRepository
	log         zerolog.Logger
}

func NewBillingService(requestRepo *repository.RequestRepository, invoiceRepo *repository.InvoiceRepository, log zerolog.Logger) *BillingService {
	return &BillingService{
		requestRepo: requestRepo,
		invoiceRepo: invoiceRepo,
		log:         log,
	}
}

// CreateInvoiceIfMissing prices the request from its category snapshot and
// inserts a pending invoice. Idempotent: if an invoice already exists for the
// request it is returned unchanged. The request is always saved here, in the
// same transaction as a new invoice, so completion stamps set by the caller
// commit with the invoice or not at all.
func (s *BillingService) CreateInvoiceIfMissing(ctx context.Context, request *model.ServiceRequest) (*model.Invoice, error) {
	existing, err := s.invoiceRepo.GetByRequestID(ctx, request.ID)
	if err == nil {
		request.TotalPrice = existing.Amount
		if err := s.requestRepo.Update(ctx, request); err != nil {
			return nil, err
		}
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	multiplier, ok := priorityMultipliers[request.Priority]
	if !ok {
		multiplier = priorityMultipliers[model.PriorityMedium]
	}
	amount := request.CategoryBaseCharge * multiplier
	if amount <= 0 {
		return nil, ErrInvalidInput
	}

	request.TotalPrice = amount
	invoice := &model.Invoice{
		ServiceRequestID: request.ID,
		Amount:           amount,
		Status:           model.InvoiceStatusPending,
	}

	if err := s.invoiceRepo.CreateWithRequest(ctx, invoice, request); err != nil {
		return nil, err
	}

	metrics.InvoicesIssued.Inc()
	s.log.Info().
		Str("request_id", request.ID.String()).
		Float64("amount", amount).
		Msg("invoice created")
	return invoice, nil
}

// PayInvoice marks a pending invoice paid. When the owning request is already
// completed it advances to closed; otherwise the request is left alone.
func (s *BillingService) PayInvoice(ctx context.Context, principal model.Principal, invoiceID string) error {
	if !principal.IsCustomer() && !principal.IsManager() {
		return ErrPermissionDenied
	}

	id, err := parseID(invoiceID)
	if err != nil {
		return ErrInvalidInput
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	request, err := s.requestRepo.GetByID(ctx, invoice.ServiceRequestID)
	if err != nil {
		return err
	}

	if principal.IsCustomer() && request.CustomerID != principal.UserID {
		return ErrPermissionDenied
	}
	if invoice.Status == model.InvoiceStatusPaid {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	invoice.Status = model.InvoiceStatusPaid
	invoice.PaidAt = &now
	if err := s.invoiceRepo.Update(ctx, invoice); err != nil {
		return err
	}

	if request.Status == model.RequestStatusCompleted {
		request.Status = model.RequestStatusClosed
		if err := s.requestRepo.Update(ctx, request); err != nil {
			return err
		}
	}

	return nil
}

// GetInvoices returns the caller's invoices: customers see invoices of their
// own requests, managers see everything. Ownership is filtered at the request
// level.
func (s *BillingService) GetInvoices(ctx context.Context, principal model.Principal) ([]model.Invoice, error) {
	switch {
	case principal.IsManager():
		return s.invoiceRepo.ListAll(ctx)
	case principal.IsCustomer():
		return s.invoiceRepo.ListByCustomer(ctx, principal.UserID)
	default:
		return nil, ErrPermissionDenied
	}
}
