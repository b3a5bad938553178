package service

import (
	"context"

	"field-service/internal/model"
	"field-service/internal/repository"
)

// Stats is the fixed-shape dashboard aggregate.
type Stats struct {
	TotalRequests int64                    `json:"total_requests"`
	StatusSummary []repository.StatusCount `json:"status_summary"`
	TotalRevenue  float64                  `json:"total_revenue"`
}

type DashboardService struct {
	requestRepo *repository.RequestRepository
	invoiceRepo *repository.InvoiceRepository
}

func NewDashboardService(requestRepo *repository.RequestRepository, invoiceRepo *repository.InvoiceRepository) *DashboardService {
	return &DashboardService{
		requestRepo: requestRepo,
		invoiceRepo: invoiceRepo,
	}
}

// GetStats reports request counts per status and revenue from paid invoices.
func (s *DashboardService) GetStats(ctx context.Context, principal model.Principal) (*Stats, error) {
	if !principal.IsManager() {
		return nil, ErrPermissionDenied
	}

	total, err := s.requestRepo.CountAll(ctx)
	if err != nil {
		return nil, err
	}

	summary, err := s.requestRepo.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}

	revenue, err := s.invoiceRepo.SumPaid(ctx)
	if err != nil {
		return nil, err
	}

	return &Stats{
		TotalRequests: total,
		StatusSummary: summary,
		TotalRevenue:  revenue,
	}, nil
}
