// Package stock provides the inventory ledger: current balances per
// (product, warehouse) and the append-only movement history behind them.
package stock

import (
	"time"

	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
	"ventari/internal/core/types"
)

// MovementType defines the direction of a ledger entry.
type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

// ReferenceType identifies the operation that caused a movement.
type ReferenceType string

const (
	ReferencePurchase   ReferenceType = "purchase"
	ReferenceSale       ReferenceType = "sale"
	ReferenceAdjustment ReferenceType = "adjustment"
	ReferenceTransfer   ReferenceType = "transfer"
	ReferenceReturn     ReferenceType = "return"
	ReferenceBreakdown  ReferenceType = "breakdown"
)

// AdjustmentType defines the user-facing intent of a manual adjustment.
type AdjustmentType string

const (
	AdjustmentAdd      AdjustmentType = "add"
	AdjustmentSubtract AdjustmentType = "subtract"
	AdjustmentSet      AdjustmentType = "set"
)

// StockRecord is the current quantity of one product at one warehouse.
// Created lazily on first movement; never deleted (zero is a valid state).
// Mutated only through the service's atomic delta primitive.
type StockRecord struct {
	ProductID   id.ID          `db:"product_id" json:"productId"`
	WarehouseID id.ID          `db:"warehouse_id" json:"warehouseId"`
	Quantity    types.Quantity `db:"quantity" json:"quantity"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updatedAt"`
}

// Movement is an immutable ledger entry. Rows are never updated or deleted.
// IDs are UUIDv7, so id order equals commit order per stock row (the row
// lock is held while the movement is inserted).
type Movement struct {
	ID            id.ID          `db:"id" json:"id"`
	ProductID     id.ID          `db:"product_id" json:"productId"`
	WarehouseID   id.ID          `db:"warehouse_id" json:"warehouseId"`
	MovementType  MovementType   `db:"movement_type" json:"movementType"`
	ReferenceType ReferenceType  `db:"reference_type" json:"referenceType"`
	ReferenceID   *id.ID         `db:"reference_id" json:"referenceId,omitempty"`
	QuantityBefore types.Quantity `db:"quantity_before" json:"quantityBefore"`
	QuantityChange types.Quantity `db:"quantity_change" json:"quantityChange"`
	QuantityAfter  types.Quantity `db:"quantity_after" json:"quantityAfter"`
	Reason        string         `db:"reason" json:"reason,omitempty"`
	Notes         string         `db:"notes" json:"notes,omitempty"`
	CreatedBy     string         `db:"created_by" json:"createdBy,omitempty"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
}

// Validate checks the ledger invariant before the row is committed.
func (m *Movement) Validate() error {
	if m.QuantityAfter != m.QuantityBefore+m.QuantityChange {
		return apperror.NewValidation("movement quantities are inconsistent").
			WithDetail("quantity_before", m.QuantityBefore.String()).
			WithDetail("quantity_change", m.QuantityChange.String()).
			WithDetail("quantity_after", m.QuantityAfter.String())
	}
	switch m.MovementType {
	case MovementIn, MovementOut, MovementAdjustment:
	default:
		return apperror.NewValidation("invalid movement type").
			WithDetail("movement_type", string(m.MovementType))
	}
	switch m.ReferenceType {
	case ReferencePurchase, ReferenceSale, ReferenceAdjustment,
		ReferenceTransfer, ReferenceReturn, ReferenceBreakdown:
	default:
		return apperror.NewValidation("invalid reference type").
			WithDetail("reference_type", string(m.ReferenceType))
	}
	return nil
}

// --- Service inputs and outputs ---

// AdjustmentInput describes a manual stock correction.
type AdjustmentInput struct {
	ProductID   id.ID          `json:"productId"`
	WarehouseID id.ID          `json:"warehouseId"`
	Type        AdjustmentType `json:"adjustmentType"`
	Quantity    types.Quantity `json:"quantity"`
	Reason      string         `json:"reason"`
	Notes       string         `json:"notes,omitempty"`
}

// Validate checks input invariants that do not require database state.
func (in *AdjustmentInput) Validate() error {
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("productId is required")
	}
	if id.IsNil(in.WarehouseID) {
		return apperror.NewValidation("warehouseId is required")
	}
	switch in.Type {
	case AdjustmentAdd, AdjustmentSubtract, AdjustmentSet:
	default:
		return apperror.NewValidation("adjustmentType must be add, subtract or set").
			WithDetail("adjustment_type", string(in.Type))
	}
	if in.Quantity.IsNegative() {
		return apperror.NewValidation("quantity must not be negative")
	}
	if in.Reason == "" {
		return apperror.NewValidation("reason is required")
	}
	return nil
}

// AdjustmentResult is the outcome of a single committed adjustment.
type AdjustmentResult struct {
	Stock    StockRecord `json:"stock"`
	Movement Movement    `json:"movement"`
}

// BatchItemResult reports the outcome of one item of a batch adjustment.
// Batch items run in independent transactions; a failed item never rolls
// back its predecessors.
type BatchItemResult struct {
	Index    int               `json:"index"`
	Success  bool              `json:"success"`
	Stock    *StockRecord      `json:"stock,omitempty"`
	Movement *Movement         `json:"movement,omitempty"`
	Error    *apperror.AppError `json:"error,omitempty"`
}

// EntryInput applies a stock effect on behalf of another operation
// (purchase receipt, sale completion, customer return).
type EntryInput struct {
	ProductID   id.ID          `json:"productId"`
	WarehouseID id.ID          `json:"warehouseId"`
	Quantity    types.Quantity `json:"quantity"`
	Reference   ReferenceType  `json:"referenceType"`
	ReferenceID *id.ID         `json:"referenceId,omitempty"`
	Notes       string         `json:"notes,omitempty"`
}

// Validate checks the entry input.
func (in *EntryInput) Validate() error {
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("productId is required")
	}
	if id.IsNil(in.WarehouseID) {
		return apperror.NewValidation("warehouseId is required")
	}
	if !in.Quantity.IsPositive() {
		return apperror.NewValidation("quantity must be positive")
	}
	switch in.Reference {
	case ReferencePurchase, ReferenceSale, ReferenceReturn:
	default:
		return apperror.NewValidation("referenceType must be purchase, sale or return").
			WithDetail("reference_type", string(in.Reference))
	}
	return nil
}

// direction returns the movement direction implied by the reference type.
func (in *EntryInput) direction() MovementType {
	if in.Reference == ReferenceSale {
		return MovementOut
	}
	return MovementIn
}

// TransferInput moves quantity of one product between two warehouses.
type TransferInput struct {
	ProductID       id.ID          `json:"productId"`
	FromWarehouseID id.ID          `json:"fromWarehouseId"`
	ToWarehouseID   id.ID          `json:"toWarehouseId"`
	Quantity        types.Quantity `json:"quantity"`
	Notes           string         `json:"notes,omitempty"`
}

// Validate checks transfer preconditions that do not require database state.
func (in *TransferInput) Validate() error {
	if id.IsNil(in.ProductID) {
		return apperror.NewValidation("productId is required")
	}
	if id.IsNil(in.FromWarehouseID) || id.IsNil(in.ToWarehouseID) {
		return apperror.NewValidation("fromWarehouseId and toWarehouseId are required")
	}
	if in.FromWarehouseID == in.ToWarehouseID {
		return apperror.NewValidation("source and destination warehouses must differ")
	}
	if in.Quantity < types.NewQuantityFromInt(1) {
		return apperror.NewValidation("quantity must be at least 1")
	}
	return nil
}

// TransferResult correlates the two legs of a committed transfer.
type TransferResult struct {
	TransferRef id.ID       `json:"transferRef"`
	From        StockRecord `json:"from"`
	To          StockRecord `json:"to"`
}

// BreakdownInput converts bulk-product stock into variant-product stock.
type BreakdownInput struct {
	BulkProductID   id.ID          `json:"bulkProductId"`
	TargetVariantID id.ID          `json:"targetVariantId"`
	WarehouseID     id.ID          `json:"warehouseId"`
	Quantity        types.Quantity `json:"quantity"`
	Notes           string         `json:"notes,omitempty"`
}

// Validate checks breakdown preconditions that do not require database state.
func (in *BreakdownInput) Validate() error {
	if id.IsNil(in.BulkProductID) || id.IsNil(in.TargetVariantID) {
		return apperror.NewValidation("bulkProductId and targetVariantId are required")
	}
	if id.IsNil(in.WarehouseID) {
		return apperror.NewValidation("warehouseId is required")
	}
	if in.Quantity < types.NewQuantityFromInt(1) {
		return apperror.NewValidation("quantity must be at least 1")
	}
	if !in.Quantity.IsWhole() {
		return apperror.NewValidation("bulk quantity must be a whole number")
	}
	return nil
}

// BreakdownResult reports both sides of a committed breakdown.
type BreakdownResult struct {
	BreakdownRef     id.ID          `json:"breakdownRef"`
	Bulk             StockRecord    `json:"bulk"`
	Variant          StockRecord    `json:"variant"`
	CreditedQuantity types.Quantity `json:"creditedQuantity"`
}

// --- Queries ---

// MovementFilter narrows ledger queries. Zero fields are ignored.
type MovementFilter struct {
	ProductID     *id.ID
	WarehouseID   *id.ID
	MovementType  *MovementType
	ReferenceType *ReferenceType
	From          *time.Time
	To            *time.Time
	Limit         int
	Offset        int
}

// StatsFilter selects the aggregation window for ledger statistics.
type StatsFilter struct {
	ProductID   *id.ID
	WarehouseID *id.ID
	From        *time.Time
	To          *time.Time
}

// Stats aggregates ledger entries over a window. Always computed from the
// ledger itself, never stored, so it cannot drift from the movements.
type Stats struct {
	TotalIn          types.Quantity `json:"totalIn"`
	TotalOut         types.Quantity `json:"totalOut"`
	TotalAdjustments types.Quantity `json:"totalAdjustments"`
	NetChange        types.Quantity `json:"netChange"`
	MovementCount    int64          `json:"movementCount"`
}
