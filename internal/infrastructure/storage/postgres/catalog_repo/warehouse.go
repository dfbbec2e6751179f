package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
	"ventari/internal/domain/catalogs/warehouse"
	"ventari/internal/infrastructure/storage/postgres"
)

const warehousesTable = "warehouses"

var warehouseColumns = []string{
	"id", "code", "name", "type", "address",
	"is_active", "allow_negative_stock", "created_at", "updated_at",
}

// WarehouseRepo implements warehouse.Repository.
type WarehouseRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewWarehouseRepo creates a new warehouse repository.
func NewWarehouseRepo(txm *postgres.TxManager) *WarehouseRepo {
	return &WarehouseRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new warehouse.
func (r *WarehouseRepo) Create(ctx context.Context, wh *warehouse.Warehouse) error {
	q := r.builder.Insert(warehousesTable).
		Columns(warehouseColumns...).
		Values(
			wh.ID, wh.Code, wh.Name, wh.Type, wh.Address,
			wh.IsActive, wh.AllowNegativeStock, wh.CreatedAt, wh.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.WrapError(fmt.Errorf("insert warehouse: %w", err), "warehouse")
	}

	return nil
}

// Update stores warehouse changes.
func (r *WarehouseRepo) Update(ctx context.Context, wh *warehouse.Warehouse) error {
	q := r.builder.Update(warehousesTable).
		Set("code", wh.Code).
		Set("name", wh.Name).
		Set("type", wh.Type).
		Set("address", wh.Address).
		Set("is_active", wh.IsActive).
		Set("allow_negative_stock", wh.AllowNegativeStock).
		Set("updated_at", wh.UpdatedAt).
		Where(squirrel.Eq{"id": wh.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.WrapError(fmt.Errorf("update warehouse: %w", err), "warehouse")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("warehouse", wh.ID.String())
	}

	return nil
}

// GetByID returns the warehouse or a NOT_FOUND apperror.
func (r *WarehouseRepo) GetByID(ctx context.Context, whID id.ID) (*warehouse.Warehouse, error) {
	return r.getOne(ctx, squirrel.Eq{"id": whID}, whID.String())
}

// GetByCode returns the warehouse or a NOT_FOUND apperror.
func (r *WarehouseRepo) GetByCode(ctx context.Context, code string) (*warehouse.Warehouse, error) {
	return r.getOne(ctx, squirrel.Eq{"code": code}, code)
}

func (r *WarehouseRepo) getOne(ctx context.Context, where squirrel.Eq, key string) (*warehouse.Warehouse, error) {
	q := r.builder.Select(warehouseColumns...).
		From(warehousesTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var wh warehouse.Warehouse
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &wh, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("warehouse", key)
		}
		return nil, fmt.Errorf("get warehouse: %w", err)
	}

	return &wh, nil
}

// List returns warehouses matching the filter.
func (r *WarehouseRepo) List(ctx context.Context, filter warehouse.Filter) ([]warehouse.Warehouse, error) {
	q := r.builder.Select(warehouseColumns...).From(warehousesTable)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"code": pattern},
		})
	}
	if filter.Type != nil {
		q = q.Where(squirrel.Eq{"type": *filter.Type})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	q = q.OrderBy("code")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var warehouses []warehouse.Warehouse
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &warehouses, sql, args...); err != nil {
		return nil, fmt.Errorf("select warehouses: %w", err)
	}

	return warehouses, nil
}

// Ensure interface compliance.
var _ warehouse.Repository = (*WarehouseRepo)(nil)
