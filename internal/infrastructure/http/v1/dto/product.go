package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"ventari/internal/core/id"
	"ventari/internal/domain/catalogs/product"
)

// CreateProductRequest for creating products.
type CreateProductRequest struct {
	SKU             string          `json:"sku" binding:"required"`
	Name            string          `json:"name" binding:"required"`
	Unit            string          `json:"unit" binding:"required"`
	IsDiscrete      *bool           `json:"isDiscrete"`
	IsBulk          bool            `json:"isBulk"`
	ParentID        *string         `json:"parentId"`
	ConversionRatio decimal.Decimal `json:"conversionRatio"`
	Price           decimal.Decimal `json:"price"`
}

// ToProduct converts the request to a domain product.
func (r *CreateProductRequest) ToProduct() (*product.Product, error) {
	p := product.NewProduct(r.SKU, r.Name, r.Unit)
	if r.IsDiscrete != nil {
		p.IsDiscrete = *r.IsDiscrete
	}
	p.IsBulk = r.IsBulk
	p.ConversionRatio = r.ConversionRatio
	p.Price = r.Price

	if r.ParentID != nil && *r.ParentID != "" {
		parentID, err := ParseID(*r.ParentID, "parentId")
		if err != nil {
			return nil, err
		}
		p.ParentID = &parentID
	}
	return p, nil
}

// UpdateProductRequest for updating products. Nil fields keep current values.
type UpdateProductRequest struct {
	SKU             *string          `json:"sku"`
	Name            *string          `json:"name"`
	Unit            *string          `json:"unit"`
	IsDiscrete      *bool            `json:"isDiscrete"`
	IsBulk          *bool            `json:"isBulk"`
	ParentID        *string          `json:"parentId"`
	ConversionRatio *decimal.Decimal `json:"conversionRatio"`
	Price           *decimal.Decimal `json:"price"`
	IsActive        *bool            `json:"isActive"`
}

// Apply overlays the request onto an existing product.
func (r *UpdateProductRequest) Apply(p *product.Product) error {
	if r.SKU != nil {
		p.SKU = *r.SKU
	}
	if r.Name != nil {
		p.Name = *r.Name
	}
	if r.Unit != nil {
		p.Unit = *r.Unit
	}
	if r.IsDiscrete != nil {
		p.IsDiscrete = *r.IsDiscrete
	}
	if r.IsBulk != nil {
		p.IsBulk = *r.IsBulk
	}
	if r.ParentID != nil {
		if *r.ParentID == "" {
			p.ParentID = nil
		} else {
			parentID, err := ParseID(*r.ParentID, "parentId")
			if err != nil {
				return err
			}
			p.ParentID = &parentID
		}
	}
	if r.ConversionRatio != nil {
		p.ConversionRatio = *r.ConversionRatio
	}
	if r.Price != nil {
		p.Price = *r.Price
	}
	if r.IsActive != nil {
		p.IsActive = *r.IsActive
	}
	return nil
}

// ProductQuery filters product listings.
type ProductQuery struct {
	Search     string `form:"search"`
	IsBulk     *bool  `form:"isBulk"`
	ActiveOnly bool   `form:"activeOnly"`
	Limit      int    `form:"limit"`
	Offset     int    `form:"offset"`
}

// ToFilter converts the query to a repository filter.
func (q *ProductQuery) ToFilter() product.Filter {
	return product.Filter{
		Search:     q.Search,
		IsBulk:     q.IsBulk,
		ActiveOnly: q.ActiveOnly,
		Limit:      q.Limit,
		Offset:     q.Offset,
	}
}

// ProductResponse represents a product in API responses.
type ProductResponse struct {
	ID              string          `json:"id"`
	SKU             string          `json:"sku"`
	Name            string          `json:"name"`
	Unit            string          `json:"unit"`
	IsDiscrete      bool            `json:"isDiscrete"`
	IsBulk          bool            `json:"isBulk"`
	ParentID        *string         `json:"parentId,omitempty"`
	ConversionRatio decimal.Decimal `json:"conversionRatio"`
	Price           decimal.Decimal `json:"price"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// FromProduct converts a product to a response DTO.
func FromProduct(p *product.Product) ProductResponse {
	resp := ProductResponse{
		ID:              p.ID.String(),
		SKU:             p.SKU,
		Name:            p.Name,
		Unit:            p.Unit,
		IsDiscrete:      p.IsDiscrete,
		IsBulk:          p.IsBulk,
		ConversionRatio: p.ConversionRatio,
		Price:           p.Price,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
	if p.ParentID != nil && !id.IsNil(*p.ParentID) {
		parent := p.ParentID.String()
		resp.ParentID = &parent
	}
	return resp
}

// FromProducts converts a slice of products.
func FromProducts(products []product.Product) []ProductResponse {
	out := make([]ProductResponse, len(products))
	for i := range products {
		out[i] = FromProduct(&products[i])
	}
	return out
}
