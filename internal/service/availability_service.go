package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"field-service/internal/model"
	"field-service/internal/repository"
)

// AvailabilityService answers one question: is a technician free during a
// window. It never mutates state.
type AvailabilityService struct {
	requestRepo *repository.RequestRepository
	userRepo    *repository.UserRepository
}

func NewAvailabilityService(requestRepo *repository.RequestRepository, userRepo *repository.UserRepository) *AvailabilityService {
	return &AvailabilityService{
		requestRepo: requestRepo,
		userRepo:    userRepo,
	}
}

// overlaps tests two half-open intervals [aStart, aEnd) and [bStart, bEnd).
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// HasConflict reports whether the technician already has an assigned or
// in-progress request whose commitment window overlaps
// [start, start+durationHours). excludeID is used when rescheduling, so a
// request does not conflict with itself.
func (s *AvailabilityService) HasConflict(ctx context.Context, technicianID uuid.UUID, start time.Time, durationHours int, excludeID *uuid.UUID) (bool, error) {
	commitments, err := s.requestRepo.ListCommitments(ctx, technicianID, excludeID)
	if err != nil {
		return false, err
	}

	end := start.Add(time.Duration(durationHours) * time.Hour)
	for _, commitment := range commitments {
		cStart, cEnd, ok := commitment.CommitmentWindow()
		if !ok {
			continue
		}
		if overlaps(start, end, cStart, cEnd) {
			return true, nil
		}
	}
	return false, nil
}

// GetAvailableTechnicians returns every technician with no commitment
// overlapping the requested window. A technician with zero commitments is
// always available.
func (s *AvailabilityService) GetAvailableTechnicians(ctx context.Context, start time.Time, durationHours int) ([]model.User, error) {
	technicians, err := s.userRepo.ListTechnicians(ctx)
	if err != nil {
		return nil, err
	}

	commitments, err := s.requestRepo.ListAllCommitments(ctx)
	if err != nil {
		return nil, err
	}

	end := start.Add(time.Duration(durationHours) * time.Hour)
	busy := make(map[uuid.UUID]bool)
	for _, commitment := range commitments {
		if commitment.TechnicianID == nil {
			continue
		}
		cStart, cEnd, ok := commitment.CommitmentWindow()
		if !ok {
			continue
		}
		if overlaps(start, end, cStart, cEnd) {
			busy[*commitment.TechnicianID] = true
		}
	}

	available := make([]model.User, 0, len(technicians))
	for _, tech := range technicians {
		if !busy[tech.ID] {
			available = append(available, tech)
		}
	}
	return available, nil
}
