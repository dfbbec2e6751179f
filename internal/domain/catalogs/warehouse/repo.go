package warehouse

import (
	"context"

	"ventari/internal/core/id"
)

// Filter narrows warehouse listings.
type Filter struct {
	Search     string
	Type       *WarehouseType
	ActiveOnly bool
}

// Repository defines the interface for Warehouse persistence.
type Repository interface {
	Create(ctx context.Context, wh *Warehouse) error
	Update(ctx context.Context, wh *Warehouse) error

	// GetByID returns the warehouse or a NOT_FOUND apperror.
	GetByID(ctx context.Context, whID id.ID) (*Warehouse, error)

	// GetByCode returns the warehouse or a NOT_FOUND apperror.
	GetByCode(ctx context.Context, code string) (*Warehouse, error)

	List(ctx context.Context, filter Filter) ([]Warehouse, error)
}
