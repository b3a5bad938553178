package service

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"field-service/internal/model"
	"field-service/internal/repository"
)

// CategoryService manages the service catalog. Requests carry a snapshot of
// their category, so edits here never touch in-flight work.
type CategoryService struct {
	categoryRepo *repository.CategoryRepository
}

func NewCategoryService(categoryRepo *repository.CategoryRepository) *CategoryService {
	return &CategoryService{categoryRepo: categoryRepo}
}

type CategoryInput struct {
	Name        string
	Description string
	BaseCharge  float64
	SlaHours    int
}

func (s *CategoryService) Create(ctx context.Context, principal model.Principal, input CategoryInput) (*model.ServiceCategory, error) {
	if !principal.IsManager() {
		return nil, ErrPermissionDenied
	}
	if strings.TrimSpace(input.Name) == "" || input.BaseCharge <= 0 || input.SlaHours <= 0 {
		return nil, ErrInvalidInput
	}

	category := &model.ServiceCategory{
		Name:        input.Name,
		Description: input.Description,
		BaseCharge:  input.BaseCharge,
		SlaHours:    input.SlaHours,
	}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) List(ctx context.Context) ([]model.ServiceCategory, error) {
	return s.categoryRepo.List(ctx)
}

func (s *CategoryService) Update(ctx context.Context, principal model.Principal, id string, input CategoryInput) (*model.ServiceCategory, error) {
	if !principal.IsManager() {
		return nil, ErrPermissionDenied
	}

	categoryID, err := parseID(id)
	if err != nil {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.Name) == "" || input.BaseCharge <= 0 || input.SlaHours <= 0 {
		return nil, ErrInvalidInput
	}

	category, err := s.categoryRepo.GetByID(ctx, categoryID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	category.Name = input.Name
	category.Description = input.Description
	category.BaseCharge = input.BaseCharge
	category.SlaHours = input.SlaHours
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (s *CategoryService) Delete(ctx context.Context, principal model.Principal, id string) error {
	if !principal.IsManager() {
		return ErrPermissionDenied
	}

	categoryID, err := parseID(id)
	if err != nil {
		return ErrInvalidInput
	}

	if _, err := s.categoryRepo.GetByID(ctx, categoryID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}

	return s.categoryRepo.Delete(ctx, categoryID)
}
