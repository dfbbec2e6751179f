package stock

import (
	"context"

	"ventari/internal/core/id"
)

// Repository defines persistence for stock records and the movement ledger.
//
// Mutating methods are expected to run inside a transaction opened by the
// service; GetRecordForUpdate must hold a row lock until that transaction
// commits so two concurrent mutations can never read the same "before"
// quantity.
type Repository interface {
	// GetRecord returns the current record, or a zero-quantity record if
	// none exists yet. Never returns "not found".
	GetRecord(ctx context.Context, productID, warehouseID id.ID) (StockRecord, error)

	// GetRecordForUpdate is GetRecord with a row-level lock. For a pair
	// that has never moved it creates the zero-quantity row before
	// locking, so the lock is always held when the caller computes a
	// delta.
	GetRecordForUpdate(ctx context.Context, productID, warehouseID id.ID) (StockRecord, error)

	// SaveRecord writes the record locked by GetRecordForUpdate.
	SaveRecord(ctx context.Context, record StockRecord) error

	// CreateMovement appends an immutable ledger row.
	CreateMovement(ctx context.Context, movement Movement) error

	// ListMovements returns ledger entries ordered by creation descending.
	ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, error)

	// CountMovements returns the total matching ListMovements without limits.
	CountMovements(ctx context.Context, filter MovementFilter) (int64, error)

	// GetStats aggregates the ledger over a window.
	GetStats(ctx context.Context, filter StatsFilter) (Stats, error)

	// GetRecordsByProduct returns records across warehouses.
	GetRecordsByProduct(ctx context.Context, productID id.ID) ([]StockRecord, error)

	// GetRecordsByWarehouse returns records for one warehouse.
	GetRecordsByWarehouse(ctx context.Context, warehouseID id.ID) ([]StockRecord, error)
}
