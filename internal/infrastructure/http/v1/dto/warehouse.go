package dto

import (
	"time"

	"ventari/internal/domain/catalogs/warehouse"
)

// CreateWarehouseRequest for creating warehouses.
type CreateWarehouseRequest struct {
	Code               string  `json:"code" binding:"required"`
	Name               string  `json:"name" binding:"required"`
	Type               string  `json:"type"`
	Address            *string `json:"address"`
	AllowNegativeStock bool    `json:"allowNegativeStock"`
}

// ToWarehouse converts the request to a domain warehouse.
func (r *CreateWarehouseRequest) ToWarehouse() *warehouse.Warehouse {
	whType := warehouse.WarehouseType(r.Type)
	if r.Type == "" {
		whType = warehouse.TypeStandard
	}
	wh := warehouse.NewWarehouse(r.Code, r.Name, whType)
	wh.Address = r.Address
	wh.AllowNegativeStock = r.AllowNegativeStock
	return wh
}

// UpdateWarehouseRequest for updating warehouses. Nil fields keep current
// values.
type UpdateWarehouseRequest struct {
	Code               *string `json:"code"`
	Name               *string `json:"name"`
	Type               *string `json:"type"`
	Address            *string `json:"address"`
	IsActive           *bool   `json:"isActive"`
	AllowNegativeStock *bool   `json:"allowNegativeStock"`
}

// Apply overlays the request onto an existing warehouse.
func (r *UpdateWarehouseRequest) Apply(wh *warehouse.Warehouse) {
	if r.Code != nil {
		wh.Code = *r.Code
	}
	if r.Name != nil {
		wh.Name = *r.Name
	}
	if r.Type != nil {
		wh.Type = warehouse.WarehouseType(*r.Type)
	}
	if r.Address != nil {
		wh.Address = r.Address
	}
	if r.IsActive != nil {
		wh.IsActive = *r.IsActive
	}
	if r.AllowNegativeStock != nil {
		wh.AllowNegativeStock = *r.AllowNegativeStock
	}
}

// WarehouseQuery filters warehouse listings.
type WarehouseQuery struct {
	Search     string `form:"search"`
	Type       string `form:"type"`
	ActiveOnly bool   `form:"activeOnly"`
}

// ToFilter converts the query to a repository filter.
func (q *WarehouseQuery) ToFilter() warehouse.Filter {
	f := warehouse.Filter{
		Search:     q.Search,
		ActiveOnly: q.ActiveOnly,
	}
	if q.Type != "" {
		t := warehouse.WarehouseType(q.Type)
		f.Type = &t
	}
	return f
}

// WarehouseResponse represents a warehouse in API responses.
type WarehouseResponse struct {
	ID                 string    `json:"id"`
	Code               string    `json:"code"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	Address            *string   `json:"address,omitempty"`
	IsActive           bool      `json:"isActive"`
	AllowNegativeStock bool      `json:"allowNegativeStock"`
	CreatedAt          time.Time `json:"createdAt"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// FromWarehouse converts a warehouse to a response DTO.
func FromWarehouse(wh *warehouse.Warehouse) WarehouseResponse {
	return WarehouseResponse{
		ID:                 wh.ID.String(),
		Code:               wh.Code,
		Name:               wh.Name,
		Type:               string(wh.Type),
		Address:            wh.Address,
		IsActive:           wh.IsActive,
		AllowNegativeStock: wh.AllowNegativeStock,
		CreatedAt:          wh.CreatedAt,
		UpdatedAt:          wh.UpdatedAt,
	}
}

// FromWarehouses converts a slice of warehouses.
func FromWarehouses(warehouses []warehouse.Warehouse) []WarehouseResponse {
	out := make([]WarehouseResponse, len(warehouses))
	for i := range warehouses {
		out[i] = FromWarehouse(&warehouses[i])
	}
	return out
}
