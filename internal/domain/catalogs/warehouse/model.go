// Package warehouse provides the warehouse catalog.
// Warehouses are physical locations holding stock.
package warehouse

import (
	"context"
	"time"

	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
)

// WarehouseType defines the category of a warehouse.
type WarehouseType string

const (
	// TypeStandard holds sellable stock.
	TypeStandard WarehouseType = "standard"
	// TypeRejected holds damaged or quarantined goods.
	TypeRejected WarehouseType = "rejected"
	// TypeTransit holds goods between locations.
	TypeTransit WarehouseType = "transit"
)

// Warehouse represents a storage location for goods.
type Warehouse struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`

	// Type defines the warehouse category
	Type WarehouseType `db:"type" json:"type"`

	// Address is the physical address
	Address *string `db:"address" json:"address,omitempty"`

	// IsActive indicates if warehouse is operational.
	// Inactive warehouses reject adjustments and transfers.
	IsActive bool `db:"is_active" json:"isActive"`

	// AllowNegativeStock permits debits below zero on this warehouse
	AllowNegativeStock bool `db:"allow_negative_stock" json:"allowNegativeStock"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewWarehouse creates a new Warehouse with required fields.
func NewWarehouse(code, name string, whType WarehouseType) *Warehouse {
	now := time.Now().UTC()
	return &Warehouse{
		ID:        id.New(),
		Code:      code,
		Name:      name,
		Type:      whType,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks warehouse invariants.
func (w *Warehouse) Validate(ctx context.Context) error {
	if w.Name == "" {
		return apperror.NewValidation("warehouse name is required")
	}
	if w.Code == "" {
		return apperror.NewValidation("warehouse code is required")
	}
	if !isValidWarehouseType(w.Type) {
		return apperror.NewValidation("invalid warehouse type").
			WithDetail("field", "type").
			WithDetail("value", string(w.Type))
	}
	return nil
}

// CanAcceptStock returns true if warehouse can accept stock.
func (w *Warehouse) CanAcceptStock() bool {
	return w.IsActive
}

// CanIssueStock returns true if warehouse can issue stock.
func (w *Warehouse) CanIssueStock() bool {
	return w.IsActive
}

func isValidWarehouseType(t WarehouseType) bool {
	switch t {
	case TypeStandard, TypeRejected, TypeTransit:
		return true
	}
	return false
}
