package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"field-service/internal/metrics"
	"field-service/internal/model"
	"field-service/internal/notify"
	"field-service/internal/repository"
)

// Legal forced transitions, keyed by current status. Assignment, rejection
// and the work-tracking transitions have their own guarded operations; this
// table backs UpdateStatus and the cancellation check. Terminal statuses have
// no entries.
var allowedTransitions = map[model.RequestStatus][]model.RequestStatus{
	model.RequestStatusRequested:  {model.RequestStatusCancelled},
	model.RequestStatusAssigned:   {model.RequestStatusRequested, model.RequestStatusInProgress, model.RequestStatusCompleted},
	model.RequestStatusInProgress: {model.RequestStatusCompleted},
	model.RequestStatusCompleted:  {model.RequestStatusClosed},
}

func transitionAllowed(from, to model.RequestStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RequestService owns the request state machine. Every mutation is gated on
// the caller's role and checked against the current status before anything is
// written; failures leave the request untouched.
type RequestService struct {
	requestRepo  *repository.RequestRepository
	categoryRepo *repository.CategoryRepository
	userRepo     *repository.UserRepository
	availability *AvailabilityService
	billing      *BillingService
	queue        notify.Queue
	log          zerolog.Logger

	// Serializes check-then-commit per technician so two concurrent
	// assignments for the same technician cannot both pass the conflict
	// check. Different technicians never contend.
	assignLocks sync.Map
}

func NewRequestService(
	requestRepo *repository.RequestRepository,
	categoryRepo *repository.CategoryRepository,
	userRepo *repository.UserRepository,
	availability *AvailabilityService,
	billing *BillingService,
	queue notify.Queue,
	log zerolog.Logger,
) *RequestService {
	return &RequestService{
		requestRepo:  requestRepo,
		categoryRepo: categoryRepo,
		userRepo:     userRepo,
		availability: availability,
		billing:      billing,
		queue:        queue,
		log:          log,
	}
}

func (s *RequestService) technicianLock(id uuid.UUID) *sync.Mutex {
	lock, _ := s.assignLocks.LoadOrStore(id, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

func parseID(raw string) (uuid.UUID, error) {
	return uuid.Parse(strings.TrimSpace(raw))
}

type CreateRequestInput struct {
	CategoryID       string
	IssueDescription string
	Priority         string
	ScheduledDate    *time.Time
}

func (s *RequestService) Create(ctx context.Context, principal model.Principal, input CreateRequestInput) (*model.ServiceRequest, error) {
	if !principal.IsCustomer() {
		return nil, ErrPermissionDenied
	}

	categoryID, err := parseID(input.CategoryID)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.IssueDescription) == "" {
		return nil, ErrInvalidInput
	}

	priority := model.PriorityMedium
	if input.Priority != "" {
		priority = model.Priority(strings.ToUpper(strings.TrimSpace(input.Priority)))
		switch priority {
		case model.PriorityLow, model.PriorityMedium, model.PriorityHigh:
		default:
			return nil, ErrInvalidInput
		}
	}

	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	var scheduled *time.Time
	if input.ScheduledDate != nil {
		utc := input.ScheduledDate.UTC()
		scheduled = &utc
	}

	request := &model.ServiceRequest{
		CustomerID:         principal.UserID,
		CategoryID:         category.ID,
		CategoryName:       category.Name,
		CategoryBaseCharge: category.BaseCharge,
		CategorySlaHours:   category.SlaHours,
		IssueDescription:   input.IssueDescription,
		Priority:           priority,
		Status:             model.RequestStatusRequested,
		ScheduledDate:      scheduled,
	}

	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

type AssignTechnicianInput struct {
	RequestID    string
	TechnicianID string
}

// AssignTechnician offers a request to a technician. The availability check
// and the status write run under the per-technician lock, so a second
// overlapping assignment for the same technician observes the first one.
func (s *RequestService) AssignTechnician(ctx context.Context, principal model.Principal, input AssignTechnicianInput) (*model.ServiceRequest, error) {
	if !principal.IsManager() {
		return nil, ErrPermissionDenied
	}

	requestID, err := parseID(input.RequestID)
	if err != nil {
		return nil, ErrInvalidInput
	}
	technicianID, err := parseID(input.TechnicianID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	technician, err := s.userRepo.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if technician.Role != model.RoleTechnician {
		return nil, ErrInvalidInput
	}

	lock := s.technicianLock(technicianID)
	lock.Lock()
	defer lock.Unlock()

	request, err := s.requestRepo.GetByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if request.Status != model.RequestStatusRequested {
		return nil, ErrInvalidTransition
	}

	if request.ScheduledDate != nil {
		conflict, err := s.availability.HasConflict(ctx, technicianID, *request.ScheduledDate, request.CategorySlaHours, nil)
		if err != nil {
			return nil, err
		}
		if conflict {
			metrics.AssignmentAttempts.WithLabelValues(metrics.OutcomeConflict).Inc()
			s.log.Warn().
				Str("request_id", request.ID.String()).
				Str("technician_id", technicianID.String()).
				Msg("assignment refused, technician has an overlapping commitment")
			return nil, ErrConflict
		}
	}

	request.TechnicianID = &technicianID
	request.Status = model.RequestStatusAssigned
	if err := s.requestRepo.Update(ctx, request); err != nil {
		return nil, err
	}

	metrics.AssignmentAttempts.WithLabelValues(metrics.OutcomeAssigned).Inc()
	s.log.Info().
		Str("request_id", request.ID.String()).
		Str("technician_id", technicianID.String()).
		Msg("technician assigned")
	s.queue.Publish(notify.Event{
		Type:         notify.EventAssignmentOffered,
		RequestID:    request.ID,
		Status:       string(request.Status),
		CustomerID:   request.CustomerID,
		TechnicianID: request.TechnicianID,
		OccurredAt:   time.Now().UTC(),
	})

	return request, nil
}

// RespondToAssignment records the assigned technician's accept or reject.
// Accepting keeps the request assigned and pins the planned start in UTC;
// rejecting hands the request back to the pool.
func (s *RequestService) RespondToAssignment(ctx context.Context, principal model.Principal, requestID string, accepted bool, plannedStart *time.Time) (*model.ServiceRequest, error) {
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}

	id, err := parseID(requestID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if request.TechnicianID == nil || *request.TechnicianID != principal.UserID {
		return nil, ErrPermissionDenied
	}
	if request.Status != model.RequestStatusAssigned {
		return nil, ErrInvalidTransition
	}

	if accepted {
		if plannedStart == nil {
			return nil, ErrInvalidInput
		}
		planned := plannedStart.UTC()
		request.PlannedStartAt = &planned
	} else {
		request.TechnicianID = nil
		request.PlannedStartAt = nil
		request.Status = model.RequestStatusRequested
		metrics.AssignmentAttempts.WithLabelValues(metrics.OutcomeRejected).Inc()
	}

	if err := s.requestRepo.Update(ctx, request); err != nil {
		return nil, err
	}

	s.publishStatusChanged(request)
	return request, nil
}

func (s *RequestService) StartWork(ctx context.Context, principal model.Principal, requestID string, timestamp time.Time) (*model.ServiceRequest, error) {
	request, err := s.loadForTechnician(ctx, principal, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.RequestStatusAssigned {
		return nil, ErrInvalidTransition
	}

	started := timestamp.UTC()
	request.WorkStartedAt = &started
	request.Status = model.RequestStatusInProgress
	if err := s.requestRepo.Update(ctx, request); err != nil {
		return nil, err
	}

	s.publishStatusChanged(request)
	return request, nil
}

// FinishWork completes the request and synchronously triggers billing: the
// request is priced from its category snapshot and a pending invoice is
// created if none exists. The completion stamps are only set in memory here;
// billing persists them together with the invoice, so a failed invoice write
// leaves the request in progress.
func (s *RequestService) FinishWork(ctx context.Context, principal model.Principal, requestID string, timestamp time.Time) (*model.ServiceRequest, error) {
	request, err := s.loadForTechnician(ctx, principal, requestID)
	if err != nil {
		return nil, err
	}
	if request.Status != model.RequestStatusInProgress {
		return nil, ErrInvalidTransition
	}

	ended := timestamp.UTC()
	request.WorkEndedAt = &ended
	request.CompletedAt = &ended
	request.Status = model.RequestStatusCompleted

	if _, err := s.billing.CreateInvoiceIfMissing(ctx, request); err != nil {
		return nil, err
	}

	s.publishStatusChanged(request)
	return request, nil
}

type UpdateStatusInput struct {
	RequestID       string
	Status          model.RequestStatus
	ResolutionNotes string
	WithBilling     bool
}

// UpdateStatus is the manager path for forcing a transition, e.g. direct
// completion without work tracking. Transitions into Completed stamp
// CompletedAt and, with billing enabled, price the request and create its
// invoice.
func (s *RequestService) UpdateStatus(ctx context.Context, principal model.Principal, input UpdateStatusInput) (*model.ServiceRequest, error) {
	if !principal.IsManager() {
		return nil, ErrPermissionDenied
	}

	id, err := parseID(input.RequestID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !transitionAllowed(request.Status, input.Status) {
		return nil, ErrInvalidTransition
	}

	request.Status = input.Status
	if input.ResolutionNotes != "" {
		request.ResolutionNotes = input.ResolutionNotes
	}
	if input.Status == model.RequestStatusCompleted {
		now := time.Now().UTC()
		request.CompletedAt = &now
	}
	if input.Status == model.RequestStatusRequested {
		request.TechnicianID = nil
		request.PlannedStartAt = nil
	}

	// With billing the invoice write persists the request; a failure there
	// must not leave a half-committed transition behind.
	if input.WithBilling && input.Status == model.RequestStatusCompleted {
		if _, err := s.billing.CreateInvoiceIfMissing(ctx, request); err != nil {
			return nil, err
		}
	} else {
		if err := s.requestRepo.Update(ctx, request); err != nil {
			return nil, err
		}
	}

	s.publishStatusChanged(request)
	return request, nil
}

// Cancel is the customer's business action, only valid before work starts.
func (s *RequestService) Cancel(ctx context.Context, principal model.Principal, requestID string) error {
	if !principal.IsCustomer() {
		return ErrPermissionDenied
	}

	id, err := parseID(requestID)
	if err != nil {
		return ErrInvalidInput
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if request.CustomerID != principal.UserID {
		return ErrPermissionDenied
	}
	if request.Status != model.RequestStatusRequested {
		return ErrInvalidTransition
	}

	request.Status = model.RequestStatusCancelled
	if err := s.requestRepo.Update(ctx, request); err != nil {
		return err
	}

	s.publishStatusChanged(request)
	return nil
}

// Reschedule moves the requested start. When a technician is already
// assigned, the new window is conflict-checked against their other
// commitments; on conflict the reschedule is refused and both the schedule
// and the assignment stay as they were.
func (s *RequestService) Reschedule(ctx context.Context, principal model.Principal, requestID string, newDate time.Time) (*model.ServiceRequest, error) {
	if !principal.IsCustomer() && !principal.IsManager() {
		return nil, ErrPermissionDenied
	}

	id, err := parseID(requestID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if principal.IsCustomer() && request.CustomerID != principal.UserID {
		return nil, ErrPermissionDenied
	}
	if request.Status != model.RequestStatusRequested && request.Status != model.RequestStatusAssigned {
		return nil, ErrInvalidTransition
	}

	utc := newDate.UTC()
	if request.TechnicianID != nil {
		lock := s.technicianLock(*request.TechnicianID)
		lock.Lock()
		defer lock.Unlock()

		conflict, err := s.availability.HasConflict(ctx, *request.TechnicianID, utc, request.CategorySlaHours, &request.ID)
		if err != nil {
			return nil, err
		}
		if conflict {
			metrics.AssignmentAttempts.WithLabelValues(metrics.OutcomeConflict).Inc()
			return nil, ErrConflict
		}
	}

	request.ScheduledDate = &utc
	if err := s.requestRepo.Update(ctx, request); err != nil {
		return nil, err
	}

	return request, nil
}

// GetByID applies read scoping: managers see everything, technicians their
// own assignments, customers their own requests. Unauthorized callers get
// not-found, never a hint that the request exists.
func (s *RequestService) GetByID(ctx context.Context, principal model.Principal, requestID string) (*model.ServiceRequest, error) {
	id, err := parseID(requestID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	switch {
	case principal.IsManager():
	case principal.IsTechnician():
		if request.TechnicianID == nil || *request.TechnicianID != principal.UserID {
			return nil, ErrNotFound
		}
	case principal.IsCustomer():
		if request.CustomerID != principal.UserID {
			return nil, ErrNotFound
		}
	default:
		return nil, ErrNotFound
	}

	return request, nil
}

func (s *RequestService) List(ctx context.Context, principal model.Principal, filter repository.RequestListFilter) ([]model.ServiceRequest, error) {
	switch {
	case principal.IsManager():
	case principal.IsCustomer():
		customerID := principal.UserID
		filter.CustomerID = &customerID
	case principal.IsTechnician():
		technicianID := principal.UserID
		filter.TechnicianID = &technicianID
	default:
		return nil, ErrPermissionDenied
	}

	return s.requestRepo.List(ctx, filter)
}

func (s *RequestService) loadForTechnician(ctx context.Context, principal model.Principal, requestID string) (*model.ServiceRequest, error) {
	if !principal.IsTechnician() {
		return nil, ErrPermissionDenied
	}

	id, err := parseID(requestID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	request, err := s.requestRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if request.TechnicianID == nil || *request.TechnicianID != principal.UserID {
		return nil, ErrPermissionDenied
	}

	return request, nil
}

func (s *RequestService) publishStatusChanged(request *model.ServiceRequest) {
	s.queue.Publish(notify.Event{
		Type:         notify.EventStatusChanged,
		RequestID:    request.ID,
		Status:       string(request.Status),
		CustomerID:   request.CustomerID,
		TechnicianID: request.TechnicianID,
		OccurredAt:   time.Now().UTC(),
	})
}
