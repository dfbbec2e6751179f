package product

import (
	"context"
	"time"

	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
	"ventari/pkg/logger"
)

// Service provides business logic for the Product catalog.
type Service struct {
	repo Repository
}

// NewService creates a new Product service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, p *Product) error {
	if id.IsNil(p.ID) {
		p.ID = id.New()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	if err := p.Validate(ctx); err != nil {
		return err
	}
	if err := s.checkParent(ctx, p); err != nil {
		return err
	}

	if existing, err := s.repo.GetBySKU(ctx, p.SKU); err == nil && existing != nil {
		return apperror.NewDuplicate("product", "sku", p.SKU)
	} else if err != nil && !apperror.IsNotFound(err) {
		return err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return err
	}

	logger.Info(ctx, "product created", "id", p.ID, "sku", p.SKU)
	return nil
}

// Update validates and stores product changes.
func (s *Service) Update(ctx context.Context, p *Product) error {
	if err := p.Validate(ctx); err != nil {
		return err
	}
	if err := s.checkParent(ctx, p); err != nil {
		return err
	}

	current, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	if current.SKU != p.SKU {
		if existing, err := s.repo.GetBySKU(ctx, p.SKU); err == nil && existing != nil {
			return apperror.NewDuplicate("product", "sku", p.SKU)
		} else if err != nil && !apperror.IsNotFound(err) {
			return err
		}
	}

	p.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, p); err != nil {
		return err
	}

	logger.Info(ctx, "product updated", "id", p.ID)
	return nil
}

// checkParent verifies the bulk/variant link.
func (s *Service) checkParent(ctx context.Context, p *Product) error {
	if !p.IsVariant() {
		return nil
	}
	parent, err := s.repo.GetByID(ctx, *p.ParentID)
	if err != nil {
		if apperror.IsNotFound(err) {
			return apperror.NewValidation("parent product does not exist").
				WithDetail("parent_id", p.ParentID.String())
		}
		return err
	}
	if !parent.IsBulk {
		return apperror.NewValidation("parent product is not a bulk product").
			WithDetail("parent_id", parent.ID.String())
	}
	return nil
}

// GetByID returns a product or NOT_FOUND.
func (s *Service) GetByID(ctx context.Context, productID id.ID) (*Product, error) {
	return s.repo.GetByID(ctx, productID)
}

// List returns products matching the filter.
func (s *Service) List(ctx context.Context, filter Filter) ([]Product, error) {
	return s.repo.List(ctx, filter)
}

// Variants returns the variants of a bulk product.
func (s *Service) Variants(ctx context.Context, parentID id.ID) ([]Product, error) {
	if _, err := s.repo.GetByID(ctx, parentID); err != nil {
		return nil, err
	}
	return s.repo.ListVariants(ctx, parentID)
}
