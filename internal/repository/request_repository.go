package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"field-service/internal/model"
)

type RequestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

func (r *RequestRepository) Create(ctx context.Context, request *model.ServiceRequest) error {
	return r.db.WithContext(ctx).Create(request).Error
}

func (r *RequestRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.ServiceRequest, error) {
	var request model.ServiceRequest
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, gorm.ErrRecordNotFound
		}
		return nil, err
	}
	return &request, nil
}

// Update replaces the whole row so all fields of a transition commit together.
func (r *RequestRepository) Update(ctx context.Context, request *model.ServiceRequest) error {
	return r.db.WithContext(ctx).Save(request).Error
}

type RequestListFilter struct {
	Status       *model.RequestStatus
	CustomerID   *uuid.UUID
	TechnicianID *uuid.UUID
	CategoryID   *uuid.UUID
}

func (r *RequestRepository) List(ctx context.Context, filter RequestListFilter) ([]model.ServiceRequest, error) {
	var requests []model.ServiceRequest
	query := r.db.WithContext(ctx).Model(&model.ServiceRequest{})

	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.TechnicianID != nil {
		query = query.Where("technician_id = ?", *filter.TechnicianID)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}

	if err := query.Order("created_at DESC").Find(&requests).Error; err != nil {
		return nil, err
	}

	return requests, nil
}

// ListCommitments returns the requests that currently occupy a technician's
// schedule: assigned or in-progress work with a scheduled date. Requests
// without a scheduled date block nothing. excludeID drops the request being
// rescheduled from its own conflict check.
func (r *RequestRepository) ListCommitments(ctx context.Context, technicianID uuid.UUID, excludeID *uuid.UUID) ([]model.ServiceRequest, error) {
	var requests []model.ServiceRequest
	query := r.db.WithContext(ctx).
		Where("technician_id = ?", technicianID).
		Where("status IN ?", []model.RequestStatus{model.RequestStatusAssigned, model.RequestStatusInProgress}).
		Where("scheduled_date IS NOT NULL")

	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}

	if err := query.Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// ListAllCommitments returns every schedule-blocking request across all
// technicians, for the availability sweep.
func (r *RequestRepository) ListAllCommitments(ctx context.Context) ([]model.ServiceRequest, error) {
	var requests []model.ServiceRequest
	err := r.db.WithContext(ctx).
		Where("technician_id IS NOT NULL").
		Where("status IN ?", []model.RequestStatus{model.RequestStatusAssigned, model.RequestStatusInProgress}).
		Where("scheduled_date IS NOT NULL").
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (r *RequestRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.ServiceRequest{}).Count(&count).Error
	return count, err
}

type StatusCount struct {
	Status model.RequestStatus `json:"status"`
	Count  int64               `json:"count"`
}

func (r *RequestRepository) CountByStatus(ctx context.Context) ([]StatusCount, error) {
	var counts []StatusCount
	err := r.db.WithContext(ctx).Model(&model.ServiceRequest{}).
		Select("status, count(*) as count").
		Group("status").
		Order("status").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}
