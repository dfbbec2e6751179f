package product

import (
	"context"

	"ventari/internal/core/id"
)

// Filter narrows product listings.
type Filter struct {
	Search     string
	IsBulk     *bool
	ParentID   *id.ID
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Repository defines the interface for Product persistence.
type Repository interface {
	Create(ctx context.Context, p *Product) error
	Update(ctx context.Context, p *Product) error

	// GetByID returns the product or a NOT_FOUND apperror.
	GetByID(ctx context.Context, productID id.ID) (*Product, error)

	// GetBySKU returns the product or a NOT_FOUND apperror.
	GetBySKU(ctx context.Context, sku string) (*Product, error)

	List(ctx context.Context, filter Filter) ([]Product, error)

	// ListVariants returns variants of a bulk product.
	ListVariants(ctx context.Context, parentID id.ID) ([]Product, error)
}
