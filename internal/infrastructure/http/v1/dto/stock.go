package dto

import (
	"fmt"
	"time"

	"ventari/internal/core/apperror"
	"ventari/internal/core/types"
	"ventari/internal/domain/stock"
)

// --- Requests ---

// AdjustStockRequest describes one manual stock correction.
type AdjustStockRequest struct {
	ProductID      string         `json:"productId" binding:"required"`
	WarehouseID    string         `json:"warehouseId" binding:"required"`
	AdjustmentType string         `json:"adjustmentType" binding:"required"`
	Quantity       types.Quantity `json:"quantity"`
	Reason         string         `json:"reason" binding:"required"`
	Notes          string         `json:"notes"`
}

// ToInput converts the request to a service input.
func (r *AdjustStockRequest) ToInput() (stock.AdjustmentInput, error) {
	productID, err := ParseID(r.ProductID, "productId")
	if err != nil {
		return stock.AdjustmentInput{}, err
	}
	warehouseID, err := ParseID(r.WarehouseID, "warehouseId")
	if err != nil {
		return stock.AdjustmentInput{}, err
	}
	return stock.AdjustmentInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Type:        stock.AdjustmentType(r.AdjustmentType),
		Quantity:    r.Quantity,
		Reason:      r.Reason,
		Notes:       r.Notes,
	}, nil
}

// BatchAdjustRequest carries an ordered list of adjustments.
type BatchAdjustRequest struct {
	Items []AdjustStockRequest `json:"items" binding:"required"`
}

// TransferRequest moves stock between warehouses.
type TransferRequest struct {
	ProductID       string         `json:"productId" binding:"required"`
	FromWarehouseID string         `json:"fromWarehouseId" binding:"required"`
	ToWarehouseID   string         `json:"toWarehouseId" binding:"required"`
	Quantity        types.Quantity `json:"quantity"`
	Notes           string         `json:"notes"`
}

// ToInput converts the request to a service input.
func (r *TransferRequest) ToInput() (stock.TransferInput, error) {
	productID, err := ParseID(r.ProductID, "productId")
	if err != nil {
		return stock.TransferInput{}, err
	}
	fromID, err := ParseID(r.FromWarehouseID, "fromWarehouseId")
	if err != nil {
		return stock.TransferInput{}, err
	}
	toID, err := ParseID(r.ToWarehouseID, "toWarehouseId")
	if err != nil {
		return stock.TransferInput{}, err
	}
	return stock.TransferInput{
		ProductID:       productID,
		FromWarehouseID: fromID,
		ToWarehouseID:   toID,
		Quantity:        r.Quantity,
		Notes:           r.Notes,
	}, nil
}

// BreakdownRequest converts bulk stock into a variant. The bulk product
// comes from the URL path.
type BreakdownRequest struct {
	TargetVariantID string         `json:"targetVariantId" binding:"required"`
	WarehouseID     string         `json:"warehouseId" binding:"required"`
	Quantity        types.Quantity `json:"quantity"`
	Notes           string         `json:"notes"`
}

// ToInput converts the request to a service input.
func (r *BreakdownRequest) ToInput(bulkProductID string) (stock.BreakdownInput, error) {
	bulkID, err := ParseID(bulkProductID, "productId")
	if err != nil {
		return stock.BreakdownInput{}, err
	}
	variantID, err := ParseID(r.TargetVariantID, "targetVariantId")
	if err != nil {
		return stock.BreakdownInput{}, err
	}
	warehouseID, err := ParseID(r.WarehouseID, "warehouseId")
	if err != nil {
		return stock.BreakdownInput{}, err
	}
	return stock.BreakdownInput{
		BulkProductID:   bulkID,
		TargetVariantID: variantID,
		WarehouseID:     warehouseID,
		Quantity:        r.Quantity,
		Notes:           r.Notes,
	}, nil
}

// RecordEntryRequest applies the stock effect of an external operation.
type RecordEntryRequest struct {
	ProductID   string         `json:"productId" binding:"required"`
	WarehouseID string         `json:"warehouseId" binding:"required"`
	Quantity    types.Quantity `json:"quantity"`
	Reference   string         `json:"referenceType" binding:"required"`
	ReferenceID *string        `json:"referenceId"`
	Notes       string         `json:"notes"`
}

// ToInput converts the request to a service input.
func (r *RecordEntryRequest) ToInput() (stock.EntryInput, error) {
	productID, err := ParseID(r.ProductID, "productId")
	if err != nil {
		return stock.EntryInput{}, err
	}
	warehouseID, err := ParseID(r.WarehouseID, "warehouseId")
	if err != nil {
		return stock.EntryInput{}, err
	}
	in := stock.EntryInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    r.Quantity,
		Reference:   stock.ReferenceType(r.Reference),
		Notes:       r.Notes,
	}
	if r.ReferenceID != nil && *r.ReferenceID != "" {
		refID, err := ParseID(*r.ReferenceID, "referenceId")
		if err != nil {
			return stock.EntryInput{}, err
		}
		in.ReferenceID = &refID
	}
	return in, nil
}

// MovementQuery filters the ledger listing. type is an alias for
// movementType, and page is an alternative to offset; both exist for
// client compatibility.
type MovementQuery struct {
	ProductID     string `form:"productId"`
	WarehouseID   string `form:"warehouseId"`
	MovementType  string `form:"movementType"`
	Type          string `form:"type"`
	ReferenceType string `form:"referenceType"`
	From          string `form:"from"`
	To            string `form:"to"`
	Limit         int    `form:"limit"`
	Offset        int    `form:"offset"`
	Page          int    `form:"page"`
}

// ToFilter converts the query to a repository filter.
func (q *MovementQuery) ToFilter() (stock.MovementFilter, error) {
	f := stock.MovementFilter{Limit: q.Limit, Offset: q.Offset}
	if q.MovementType == "" {
		q.MovementType = q.Type
	}
	if f.Offset == 0 && q.Page > 1 {
		limit := q.Limit
		if limit <= 0 {
			limit = 50
		}
		f.Offset = (q.Page - 1) * limit
	}

	if q.ProductID != "" {
		pid, err := ParseID(q.ProductID, "productId")
		if err != nil {
			return f, err
		}
		f.ProductID = &pid
	}
	if q.WarehouseID != "" {
		wid, err := ParseID(q.WarehouseID, "warehouseId")
		if err != nil {
			return f, err
		}
		f.WarehouseID = &wid
	}
	if q.MovementType != "" {
		mt := stock.MovementType(q.MovementType)
		f.MovementType = &mt
	}
	if q.ReferenceType != "" {
		rt := stock.ReferenceType(q.ReferenceType)
		f.ReferenceType = &rt
	}
	if q.From != "" {
		from, err := time.Parse(time.RFC3339, q.From)
		if err != nil {
			return f, apperror.NewValidation("from must be RFC 3339").WithDetail("from", q.From)
		}
		f.From = &from
	}
	if q.To != "" {
		to, err := time.Parse(time.RFC3339, q.To)
		if err != nil {
			return f, apperror.NewValidation("to must be RFC 3339").WithDetail("to", q.To)
		}
		f.To = &to
	}

	return f, nil
}

// --- Responses ---

// StockRecordResponse represents a current balance in API responses.
type StockRecordResponse struct {
	ProductID   string         `json:"productId"`
	WarehouseID string         `json:"warehouseId"`
	Quantity    types.Quantity `json:"quantity"`
	UpdatedAt   *time.Time     `json:"updatedAt,omitempty"`
}

// FromStockRecord converts a record to a response DTO.
func FromStockRecord(rec stock.StockRecord) StockRecordResponse {
	resp := StockRecordResponse{
		ProductID:   rec.ProductID.String(),
		WarehouseID: rec.WarehouseID.String(),
		Quantity:    rec.Quantity,
	}
	if !rec.UpdatedAt.IsZero() {
		t := rec.UpdatedAt
		resp.UpdatedAt = &t
	}
	return resp
}

// FromStockRecords converts a slice of records.
func FromStockRecords(records []stock.StockRecord) []StockRecordResponse {
	out := make([]StockRecordResponse, len(records))
	for i, rec := range records {
		out[i] = FromStockRecord(rec)
	}
	return out
}

// MovementResponse represents one ledger entry in API responses.
type MovementResponse struct {
	ID             string         `json:"id"`
	ProductID      string         `json:"productId"`
	WarehouseID    string         `json:"warehouseId"`
	MovementType   string         `json:"movementType"`
	ReferenceType  string         `json:"referenceType"`
	ReferenceID    *string        `json:"referenceId,omitempty"`
	QuantityBefore types.Quantity `json:"quantityBefore"`
	QuantityChange types.Quantity `json:"quantityChange"`
	QuantityAfter  types.Quantity `json:"quantityAfter"`
	Reason         string         `json:"reason,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	CreatedBy      string         `json:"createdBy,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// FromMovement converts a movement to a response DTO.
func FromMovement(m stock.Movement) MovementResponse {
	resp := MovementResponse{
		ID:             m.ID.String(),
		ProductID:      m.ProductID.String(),
		WarehouseID:    m.WarehouseID.String(),
		MovementType:   string(m.MovementType),
		ReferenceType:  string(m.ReferenceType),
		QuantityBefore: m.QuantityBefore,
		QuantityChange: m.QuantityChange,
		QuantityAfter:  m.QuantityAfter,
		Reason:         m.Reason,
		Notes:          m.Notes,
		CreatedBy:      m.CreatedBy,
		CreatedAt:      m.CreatedAt,
	}
	if m.ReferenceID != nil {
		ref := m.ReferenceID.String()
		resp.ReferenceID = &ref
	}
	return resp
}

// FromMovements converts a slice of movements.
func FromMovements(movements []stock.Movement) []MovementResponse {
	out := make([]MovementResponse, len(movements))
	for i, m := range movements {
		out[i] = FromMovement(m)
	}
	return out
}

// AdjustmentResponse is the outcome of a single committed adjustment.
type AdjustmentResponse struct {
	Message  string              `json:"message"`
	Stock    StockRecordResponse `json:"stock"`
	Movement MovementResponse    `json:"movement"`
}

// FromAdjustmentResult converts a service result.
func FromAdjustmentResult(res *stock.AdjustmentResult) AdjustmentResponse {
	return AdjustmentResponse{
		Message:  "stock adjusted",
		Stock:    FromStockRecord(res.Stock),
		Movement: FromMovement(res.Movement),
	}
}

// BatchItemResponse reports the outcome of one batch item.
type BatchItemResponse struct {
	Index    int                  `json:"index"`
	Success  bool                 `json:"success"`
	Stock    *StockRecordResponse `json:"stock,omitempty"`
	Movement *MovementResponse    `json:"movement,omitempty"`
	Error    *ErrorResponse       `json:"error,omitempty"`
}

// BatchAdjustResponse reports every item of a batch.
type BatchAdjustResponse struct {
	Message   string              `json:"message"`
	Results   []BatchItemResponse `json:"results"`
	Succeeded int                 `json:"succeeded"`
	Failed    int                 `json:"failed"`
}

// FromBatchResults converts service batch results.
func FromBatchResults(results []stock.BatchItemResult) BatchAdjustResponse {
	resp := BatchAdjustResponse{Results: make([]BatchItemResponse, len(results))}
	for i, r := range results {
		item := BatchItemResponse{Index: r.Index, Success: r.Success}
		if r.Stock != nil {
			s := FromStockRecord(*r.Stock)
			item.Stock = &s
		}
		if r.Movement != nil {
			m := FromMovement(*r.Movement)
			item.Movement = &m
		}
		item.Error = FromAppError(r.Error)
		resp.Results[i] = item
		if r.Success {
			resp.Succeeded++
		} else {
			resp.Failed++
		}
	}
	resp.Message = fmt.Sprintf("%d of %d adjustments applied", resp.Succeeded, len(results))
	return resp
}

// TransferResponse correlates both legs of a transfer.
type TransferResponse struct {
	Message     string              `json:"message"`
	TransferRef string              `json:"transferRef"`
	From        StockRecordResponse `json:"from"`
	To          StockRecordResponse `json:"to"`
}

// FromTransferResult converts a service result.
func FromTransferResult(res *stock.TransferResult) TransferResponse {
	return TransferResponse{
		Message:     "stock transferred",
		TransferRef: res.TransferRef.String(),
		From:        FromStockRecord(res.From),
		To:          FromStockRecord(res.To),
	}
}

// BreakdownResponse reports both sides of a breakdown.
type BreakdownResponse struct {
	Message          string              `json:"message"`
	BreakdownRef     string              `json:"breakdownRef"`
	Bulk             StockRecordResponse `json:"bulk"`
	Variant          StockRecordResponse `json:"variant"`
	CreditedQuantity types.Quantity      `json:"creditedQuantity"`
}

// FromBreakdownResult converts a service result.
func FromBreakdownResult(res *stock.BreakdownResult) BreakdownResponse {
	return BreakdownResponse{
		Message:          "bulk stock broken down",
		BreakdownRef:     res.BreakdownRef.String(),
		Bulk:             FromStockRecord(res.Bulk),
		Variant:          FromStockRecord(res.Variant),
		CreditedQuantity: res.CreditedQuantity,
	}
}

// StatsResponse aggregates the ledger over a period.
type StatsResponse struct {
	Period           string         `json:"period"`
	TotalIn          types.Quantity `json:"totalIn"`
	TotalOut         types.Quantity `json:"totalOut"`
	TotalAdjustments types.Quantity `json:"totalAdjustments"`
	NetChange        types.Quantity `json:"netChange"`
	MovementCount    int64          `json:"movementCount"`
}

// FromStats converts ledger stats.
func FromStats(period string, s stock.Stats) StatsResponse {
	if period == "" {
		period = "all"
	}
	return StatsResponse{
		Period:           period,
		TotalIn:          s.TotalIn,
		TotalOut:         s.TotalOut,
		TotalAdjustments: s.TotalAdjustments,
		NetChange:        s.NetChange,
		MovementCount:    s.MovementCount,
	}
}
