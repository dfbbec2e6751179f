// Package stock_repo provides the PostgreSQL implementation of the stock
// ledger repository.
package stock_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"

	"ventari/internal/core/id"
	"ventari/internal/core/types"
	"ventari/internal/domain/stock"
	"ventari/internal/infrastructure/storage/postgres"
)

const (
	recordsTable   = "stock_records"
	movementsTable = "stock_movements"
)

// querierSource resolves the querier for the current context, either the
// active transaction or the pool.
type querierSource interface {
	GetQuerier(ctx context.Context) postgres.Querier
}

// StockRepo implements stock.Repository.
type StockRepo struct {
	txm     querierSource
	builder squirrel.StatementBuilderType
}

// NewStockRepo creates a new stock repository.
func NewStockRepo(txm *postgres.TxManager) *StockRepo {
	return &StockRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// GetRecord returns the current record, or a zero-quantity record when the
// pair has never moved.
func (r *StockRepo) GetRecord(ctx context.Context, productID, warehouseID id.ID) (stock.StockRecord, error) {
	var rec stock.StockRecord

	q := r.builder.Select(
		"product_id", "warehouse_id", "quantity", "updated_at",
	).From(recordsTable).
		Where(squirrel.Eq{
			"product_id":   productID,
			"warehouse_id": warehouseID,
		}).Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return rec, fmt.Errorf("build query: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &rec, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return stock.StockRecord{
				ProductID:   productID,
				WarehouseID: warehouseID,
			}, nil
		}
		return rec, fmt.Errorf("get stock record: %w", err)
	}

	return rec, nil
}

// GetRecordForUpdate returns the record with a row-level lock held for the
// rest of the transaction. The lock is what prevents two concurrent mutations
// from reading the same quantity.
//
// FOR UPDATE on an absent row locks nothing, so for a pair that has never
// moved the row is materialized at zero first and then locked. If a
// concurrent transaction created it in between, the relock blocks until that
// transaction commits and reads its quantity.
func (r *StockRepo) GetRecordForUpdate(ctx context.Context, productID, warehouseID id.ID) (stock.StockRecord, error) {
	querier := r.txm.GetQuerier(ctx)

	rec, err := r.lockRecord(ctx, querier, productID, warehouseID)
	if err == nil {
		return rec, nil
	}
	if !pgxscan.NotFound(err) {
		return rec, postgres.WrapError(fmt.Errorf("get stock record for update: %w", err), "stock_record")
	}

	insertSQL := `
		INSERT INTO stock_records (product_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (product_id, warehouse_id) DO NOTHING
	`
	if _, err := querier.Exec(ctx, insertSQL, productID, warehouseID); err != nil {
		return stock.StockRecord{}, postgres.WrapError(fmt.Errorf("init stock record: %w", err), "stock_record")
	}

	rec, err = r.lockRecord(ctx, querier, productID, warehouseID)
	if err != nil {
		return rec, postgres.WrapError(fmt.Errorf("lock stock record: %w", err), "stock_record")
	}

	return rec, nil
}

func (r *StockRepo) lockRecord(ctx context.Context, querier postgres.Querier, productID, warehouseID id.ID) (stock.StockRecord, error) {
	var rec stock.StockRecord

	sql := `
		SELECT product_id, warehouse_id, quantity, updated_at
		FROM stock_records
		WHERE product_id = $1 AND warehouse_id = $2
		FOR UPDATE
	`

	err := pgxscan.Get(ctx, querier, &rec, sql, productID, warehouseID)
	return rec, err
}

// SaveRecord upserts the record. Mutation paths materialize and lock the
// row through GetRecordForUpdate first, so the write lands on a locked row.
func (r *StockRepo) SaveRecord(ctx context.Context, rec stock.StockRecord) error {
	sql := `
		INSERT INTO stock_records (product_id, warehouse_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (product_id, warehouse_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at
	`

	querier := r.txm.GetQuerier(ctx)
	_, err := querier.Exec(ctx, sql, rec.ProductID, rec.WarehouseID, rec.Quantity, rec.UpdatedAt)
	if err != nil {
		return postgres.WrapError(fmt.Errorf("save stock record: %w", err), "stock_record")
	}

	return nil
}

// CreateMovement appends an immutable ledger row.
func (r *StockRepo) CreateMovement(ctx context.Context, m stock.Movement) error {
	q := r.builder.Insert(movementsTable).Columns(
		"id", "product_id", "warehouse_id",
		"movement_type", "reference_type", "reference_id",
		"quantity_before", "quantity_change", "quantity_after",
		"reason", "notes", "created_by", "created_at",
	).Values(
		m.ID, m.ProductID, m.WarehouseID,
		m.MovementType, m.ReferenceType, m.ReferenceID,
		m.QuantityBefore, m.QuantityChange, m.QuantityAfter,
		m.Reason, m.Notes, m.CreatedBy, m.CreatedAt,
	)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.WrapError(fmt.Errorf("insert movement: %w", err), "stock_movement")
	}

	return nil
}

// movementsQuery applies the shared filter conditions.
func (r *StockRepo) movementsQuery(cols []string, f stock.MovementFilter) squirrel.SelectBuilder {
	q := r.builder.Select(cols...).From(movementsTable)

	if f.ProductID != nil {
		q = q.Where(squirrel.Eq{"product_id": *f.ProductID})
	}
	if f.WarehouseID != nil {
		q = q.Where(squirrel.Eq{"warehouse_id": *f.WarehouseID})
	}
	if f.MovementType != nil {
		q = q.Where(squirrel.Eq{"movement_type": *f.MovementType})
	}
	if f.ReferenceType != nil {
		q = q.Where(squirrel.Eq{"reference_type": *f.ReferenceType})
	}
	if f.From != nil {
		q = q.Where(squirrel.GtOrEq{"created_at": *f.From})
	}
	if f.To != nil {
		q = q.Where(squirrel.LtOrEq{"created_at": *f.To})
	}

	return q
}

// ListMovements returns ledger entries ordered newest first.
func (r *StockRepo) ListMovements(ctx context.Context, f stock.MovementFilter) ([]stock.Movement, error) {
	q := r.movementsQuery([]string{
		"id", "product_id", "warehouse_id",
		"movement_type", "reference_type", "reference_id",
		"quantity_before", "quantity_change", "quantity_after",
		"reason", "notes", "created_by", "created_at",
	}, f).OrderBy("created_at DESC", "id DESC")

	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	if f.Offset > 0 {
		q = q.Offset(uint64(f.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var movements []stock.Movement
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &movements, sql, args...); err != nil {
		return nil, fmt.Errorf("select movements: %w", err)
	}

	return movements, nil
}

// CountMovements returns the total matching the filter, ignoring paging.
func (r *StockRepo) CountMovements(ctx context.Context, f stock.MovementFilter) (int64, error) {
	q := r.movementsQuery([]string{"COUNT(*)"}, f)

	sql, args, err := q.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	var total int64
	querier := r.txm.GetQuerier(ctx)
	if err := querier.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}

	return total, nil
}

// GetStats aggregates the ledger in one pass.
func (r *StockRepo) GetStats(ctx context.Context, f stock.StatsFilter) (stock.Stats, error) {
	var stats stock.Stats

	args := []any{}
	conditions := "TRUE"
	argIndex := 1

	if f.ProductID != nil {
		conditions += fmt.Sprintf(" AND product_id = $%d", argIndex)
		args = append(args, *f.ProductID)
		argIndex++
	}
	if f.WarehouseID != nil {
		conditions += fmt.Sprintf(" AND warehouse_id = $%d", argIndex)
		args = append(args, *f.WarehouseID)
		argIndex++
	}
	if f.From != nil {
		conditions += fmt.Sprintf(" AND created_at >= $%d", argIndex)
		args = append(args, *f.From)
		argIndex++
	}
	if f.To != nil {
		conditions += fmt.Sprintf(" AND created_at <= $%d", argIndex)
		args = append(args, *f.To)
	}

	sql := fmt.Sprintf(`
		SELECT
			COALESCE(SUM(CASE WHEN movement_type = 'in' THEN quantity_change ELSE 0 END), 0) AS total_in,
			COALESCE(SUM(CASE WHEN movement_type = 'out' THEN -quantity_change ELSE 0 END), 0) AS total_out,
			COALESCE(SUM(CASE WHEN movement_type = 'adjustment' THEN quantity_change ELSE 0 END), 0) AS total_adjustments,
			COALESCE(SUM(quantity_change), 0) AS net_change,
			COUNT(*) AS movement_count
		FROM stock_movements
		WHERE %s
	`, conditions)

	var totalIn, totalOut, totalAdj, netChange int64
	querier := r.txm.GetQuerier(ctx)
	err := querier.QueryRow(ctx, sql, args...).Scan(&totalIn, &totalOut, &totalAdj, &netChange, &stats.MovementCount)
	if err != nil && err != pgx.ErrNoRows {
		return stats, fmt.Errorf("aggregate movements: %w", err)
	}

	stats.TotalIn = types.NewQuantityFromInt64Scaled(totalIn)
	stats.TotalOut = types.NewQuantityFromInt64Scaled(totalOut)
	stats.TotalAdjustments = types.NewQuantityFromInt64Scaled(totalAdj)
	stats.NetChange = types.NewQuantityFromInt64Scaled(netChange)

	return stats, nil
}

// GetRecordsByProduct returns records across warehouses.
func (r *StockRepo) GetRecordsByProduct(ctx context.Context, productID id.ID) ([]stock.StockRecord, error) {
	q := r.builder.Select(
		"product_id", "warehouse_id", "quantity", "updated_at",
	).From(recordsTable).
		Where(squirrel.Eq{"product_id": productID}).
		OrderBy("warehouse_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []stock.StockRecord
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}

	return records, nil
}

// GetRecordsByWarehouse returns records for one warehouse.
func (r *StockRepo) GetRecordsByWarehouse(ctx context.Context, warehouseID id.ID) ([]stock.StockRecord, error) {
	q := r.builder.Select(
		"product_id", "warehouse_id", "quantity", "updated_at",
	).From(recordsTable).
		Where(squirrel.Eq{"warehouse_id": warehouseID}).
		OrderBy("product_id")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var records []stock.StockRecord
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &records, sql, args...); err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}

	return records, nil
}

// Ensure interface compliance.
var _ stock.Repository = (*StockRepo)(nil)
