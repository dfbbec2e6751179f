// Package catalog_repo provides PostgreSQL implementations for the catalog
// repositories.
package catalog_repo

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"ventari/internal/core/apperror"
	"ventari/internal/core/id"
	"ventari/internal/domain/catalogs/product"
	"ventari/internal/infrastructure/storage/postgres"
)

const productsTable = "products"

var productColumns = []string{
	"id", "sku", "name", "unit",
	"is_discrete", "is_bulk", "parent_id", "conversion_ratio",
	"price", "is_active", "created_at", "updated_at",
}

// ProductRepo implements product.Repository.
type ProductRepo struct {
	txm     *postgres.TxManager
	builder squirrel.StatementBuilderType
}

// NewProductRepo creates a new product repository.
func NewProductRepo(txm *postgres.TxManager) *ProductRepo {
	return &ProductRepo{
		txm:     txm,
		builder: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// Create inserts a new product.
func (r *ProductRepo) Create(ctx context.Context, p *product.Product) error {
	q := r.builder.Insert(productsTable).
		Columns(productColumns...).
		Values(
			p.ID, p.SKU, p.Name, p.Unit,
			p.IsDiscrete, p.IsBulk, p.ParentID, p.ConversionRatio,
			p.Price, p.IsActive, p.CreatedAt, p.UpdatedAt,
		)

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	if _, err := querier.Exec(ctx, sql, args...); err != nil {
		return postgres.WrapError(fmt.Errorf("insert product: %w", err), "product")
	}

	return nil
}

// Update stores product changes.
func (r *ProductRepo) Update(ctx context.Context, p *product.Product) error {
	q := r.builder.Update(productsTable).
		Set("sku", p.SKU).
		Set("name", p.Name).
		Set("unit", p.Unit).
		Set("is_discrete", p.IsDiscrete).
		Set("is_bulk", p.IsBulk).
		Set("parent_id", p.ParentID).
		Set("conversion_ratio", p.ConversionRatio).
		Set("price", p.Price).
		Set("is_active", p.IsActive).
		Set("updated_at", p.UpdatedAt).
		Where(squirrel.Eq{"id": p.ID})

	sql, args, err := q.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	querier := r.txm.GetQuerier(ctx)
	tag, err := querier.Exec(ctx, sql, args...)
	if err != nil {
		return postgres.WrapError(fmt.Errorf("update product: %w", err), "product")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NewNotFound("product", p.ID.String())
	}

	return nil
}

// GetByID returns the product or a NOT_FOUND apperror.
func (r *ProductRepo) GetByID(ctx context.Context, productID id.ID) (*product.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"id": productID}, productID.String())
}

// GetBySKU returns the product or a NOT_FOUND apperror.
func (r *ProductRepo) GetBySKU(ctx context.Context, sku string) (*product.Product, error) {
	return r.getOne(ctx, squirrel.Eq{"sku": sku}, sku)
}

func (r *ProductRepo) getOne(ctx context.Context, where squirrel.Eq, key string) (*product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(where).
		Limit(1)

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var p product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Get(ctx, querier, &p, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, apperror.NewNotFound("product", key)
		}
		return nil, fmt.Errorf("get product: %w", err)
	}

	return &p, nil
}

// List returns products matching the filter.
func (r *ProductRepo) List(ctx context.Context, filter product.Filter) ([]product.Product, error) {
	q := r.builder.Select(productColumns...).From(productsTable)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		q = q.Where(squirrel.Or{
			squirrel.ILike{"name": pattern},
			squirrel.ILike{"sku": pattern},
		})
	}
	if filter.IsBulk != nil {
		q = q.Where(squirrel.Eq{"is_bulk": *filter.IsBulk})
	}
	if filter.ParentID != nil {
		q = q.Where(squirrel.Eq{"parent_id": *filter.ParentID})
	}
	if filter.ActiveOnly {
		q = q.Where(squirrel.Eq{"is_active": true})
	}

	q = q.OrderBy("name")
	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var products []product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &products, sql, args...); err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}

	return products, nil
}

// ListVariants returns variants of a bulk product.
func (r *ProductRepo) ListVariants(ctx context.Context, parentID id.ID) ([]product.Product, error) {
	q := r.builder.Select(productColumns...).
		From(productsTable).
		Where(squirrel.Eq{"parent_id": parentID}).
		OrderBy("name")

	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var variants []product.Product
	querier := r.txm.GetQuerier(ctx)
	if err := pgxscan.Select(ctx, querier, &variants, sql, args...); err != nil {
		return nil, fmt.Errorf("select variants: %w", err)
	}

	return variants, nil
}

// Ensure interface compliance.
var _ product.Repository = (*ProductRepo)(nil)
