// Package product provides the product catalog, including bulk products
// and the variant links used by stock breakdown.
package product

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
	"ventari/internal/core/types"
)

// Product represents a sellable or storable item.
//
// A bulk product (IsBulk) decomposes into variant products; a variant
// points back via ParentID and carries the ConversionRatio (variant units
// credited per one bulk unit broken down).
type Product struct {
	ID   id.ID  `db:"id" json:"id"`
	SKU  string `db:"sku" json:"sku"`
	Name string `db:"name" json:"name"`

	// Unit is the display unit (pcs, case, kg, l).
	Unit string `db:"unit" json:"unit"`

	// IsDiscrete marks countable units; breakdown credits on a discrete
	// product must be whole numbers.
	IsDiscrete bool `db:"is_discrete" json:"isDiscrete"`

	IsBulk   bool   `db:"is_bulk" json:"isBulk"`
	ParentID *id.ID `db:"parent_id" json:"parentId,omitempty"`

	// ConversionRatio is positive only on variants.
	ConversionRatio decimal.Decimal `db:"conversion_ratio" json:"conversionRatio"`

	Price    types.Money `db:"price" json:"price"`
	IsActive bool        `db:"is_active" json:"isActive"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewProduct creates a product with required fields.
func NewProduct(sku, name, unit string) *Product {
	now := time.Now().UTC()
	return &Product{
		ID:         id.New(),
		SKU:        sku,
		Name:       name,
		Unit:       unit,
		IsDiscrete: true,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsVariant reports whether the product is a variant of a bulk product.
func (p *Product) IsVariant() bool {
	return p.ParentID != nil && !id.IsNil(*p.ParentID)
}

// Validate checks product invariants.
func (p *Product) Validate(ctx context.Context) error {
	if p.SKU == "" {
		return apperror.NewValidation("sku is required")
	}
	if p.Name == "" {
		return apperror.NewValidation("name is required")
	}
	if p.Unit == "" {
		return apperror.NewValidation("unit is required")
	}
	if p.Price.IsNegative() {
		return apperror.NewValidation("price must not be negative")
	}
	if p.IsVariant() {
		if p.IsBulk {
			return apperror.NewValidation("a bulk product cannot be a variant")
		}
		if !p.ConversionRatio.IsPositive() {
			return apperror.NewValidation("variant conversionRatio must be positive").
				WithDetail("conversion_ratio", p.ConversionRatio.String())
		}
	} else if !p.ConversionRatio.IsZero() {
		return apperror.NewValidation("conversionRatio is only valid on variants")
	}
	return nil
}
