package warehouse

import (
	"context"
	"time"

	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
	"ventari/pkg/logger"
)

// Service provides business logic for the Warehouse catalog.
type Service struct {
	repo Repository
}

// NewService creates a new Warehouse service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new warehouse.
func (s *Service) Create(ctx context.Context, wh *Warehouse) error {
	if id.IsNil(wh.ID) {
		wh.ID = id.New()
	}
	now := time.Now().UTC()
	wh.CreatedAt = now
	wh.UpdatedAt = now

	if err := wh.Validate(ctx); err != nil {
		return err
	}

	if existing, err := s.repo.GetByCode(ctx, wh.Code); err == nil && existing != nil {
		return apperror.NewDuplicate("warehouse", "code", wh.Code)
	} else if err != nil && !apperror.IsNotFound(err) {
		return err
	}

	if err := s.repo.Create(ctx, wh); err != nil {
		return err
	}

	logger.Info(ctx, "warehouse created", "id", wh.ID, "code", wh.Code)
	return nil
}

// Update validates and stores warehouse changes.
func (s *Service) Update(ctx context.Context, wh *Warehouse) error {
	if err := wh.Validate(ctx); err != nil {
		return err
	}

	current, err := s.repo.GetByID(ctx, wh.ID)
	if err != nil {
		return err
	}
	if current.Code != wh.Code {
		if existing, err := s.repo.GetByCode(ctx, wh.Code); err == nil && existing != nil {
			return apperror.NewDuplicate("warehouse", "code", wh.Code)
		} else if err != nil && !apperror.IsNotFound(err) {
			return err
		}
	}

	wh.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, wh); err != nil {
		return err
	}

	logger.Info(ctx, "warehouse updated", "id", wh.ID)
	return nil
}

// GetByID returns a warehouse or NOT_FOUND.
func (s *Service) GetByID(ctx context.Context, whID id.ID) (*Warehouse, error) {
	return s.repo.GetByID(ctx, whID)
}

// List returns warehouses matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Warehouse, error) {
	return s.repo.List(ctx, filter)
}
