package stock

import (
	"bytes"
	"context"
	"time"

	"ventari/internal/core/apperror"
	appctx "ventari/internal/core/context"
	"ventari/internal/core/id"
	"ventari/internal/core/tx"
	"ventari/internal/core/types"
	"ventari/internal/domain/catalogs/product"
	"ventari/internal/domain/catalogs/warehouse"
	"ventari/pkg/logger"
)

// ProductDirectory is the product catalog surface the ledger needs.
type ProductDirectory interface {
	GetByID(ctx context.Context, productID id.ID) (*product.Product, error)
}

// WarehouseDirectory is the warehouse catalog surface the ledger needs.
type WarehouseDirectory interface {
	GetByID(ctx context.Context, whID id.ID) (*warehouse.Warehouse, error)
}

// Invalidator drops cached per-product availability after a mutation.
// Failures are logged, never surfaced: the database is the source of truth
// and readers fall back to it.
type Invalidator interface {
	InvalidateProducts(ctx context.Context, productIDs ...id.ID) error
}

// Auditor records mutating operations for the audit trail.
type Auditor interface {
	Record(ctx context.Context, action string, entityID id.ID, payload any) error
}

// ServiceConfig wires the ledger service.
type ServiceConfig struct {
	Repo       Repository
	Products   ProductDirectory
	Warehouses WarehouseDirectory
	TxManager  tx.Manager

	// Optional
	Invalidator Invalidator
	Auditor     Auditor

	// MaxRetries bounds automatic retries on serialization conflicts.
	MaxRetries int
	RetryDelay time.Duration
}

// Service applies every stock mutation as one transaction over the affected
// rows: lock the record, compute the delta, write the record and exactly one
// ledger entry. Transfer and breakdown are two such legs in a single
// transaction sharing a correlation id.
type Service struct {
	repo        Repository
	products    ProductDirectory
	warehouses  WarehouseDirectory
	txm         tx.Manager
	invalidator Invalidator
	auditor     Auditor
	maxRetries  int
	retryDelay  time.Duration
}

// NewService creates the stock ledger service.
func NewService(cfg ServiceConfig) *Service {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = 25 * time.Millisecond
	}
	return &Service{
		repo:        cfg.Repo,
		products:    cfg.Products,
		warehouses:  cfg.Warehouses,
		txm:         cfg.TxManager,
		invalidator: cfg.Invalidator,
		auditor:     cfg.Auditor,
		maxRetries:  cfg.MaxRetries,
		retryDelay:  cfg.RetryDelay,
	}
}

// ledgerWrite is one leg of a mutation: a delta applied to a locked stock
// record plus its ledger entry. Must run inside an open transaction.
type ledgerWrite struct {
	productID     id.ID
	warehouseID   id.ID
	movementType  MovementType // derived from delta sign when empty
	referenceType ReferenceType
	referenceID   *id.ID
	reason        string
	notes         string
	allowNegative bool

	// delta computes the signed change from the locked current quantity.
	delta func(current types.Quantity) (types.Quantity, error)
}

// applyDelta is the single primitive every mutation goes through, so the
// ledger invariant (after = before + change, one entry per change) can
// never be bypassed.
func (s *Service) applyDelta(ctx context.Context, w ledgerWrite) (StockRecord, Movement, error) {
	rec, err := s.repo.GetRecordForUpdate(ctx, w.productID, w.warehouseID)
	if err != nil {
		return StockRecord{}, Movement{}, err
	}

	delta, err := w.delta(rec.Quantity)
	if err != nil {
		return StockRecord{}, Movement{}, err
	}

	before := rec.Quantity
	after := before + delta
	if after.IsNegative() && !w.allowNegative {
		return StockRecord{}, Movement{}, apperror.NewInsufficientStock(
			w.productID.String(), w.warehouseID.String(), delta.Abs(), before)
	}

	now := time.Now().UTC()
	rec.ProductID = w.productID
	rec.WarehouseID = w.warehouseID
	rec.Quantity = after
	rec.UpdatedAt = now
	if err := s.repo.SaveRecord(ctx, rec); err != nil {
		return StockRecord{}, Movement{}, err
	}

	mt := w.movementType
	if mt == "" {
		switch {
		case w.referenceType == ReferenceAdjustment:
			mt = MovementAdjustment
		case delta.IsNegative():
			mt = MovementOut
		default:
			mt = MovementIn
		}
	}

	m := Movement{
		ID:             id.New(),
		ProductID:      w.productID,
		WarehouseID:    w.warehouseID,
		MovementType:   mt,
		ReferenceType:  w.referenceType,
		ReferenceID:    w.referenceID,
		QuantityBefore: before,
		QuantityChange: delta,
		QuantityAfter:  after,
		Reason:         w.reason,
		Notes:          w.notes,
		CreatedBy:      appctx.GetUserID(ctx),
		CreatedAt:      now,
	}
	if err := m.Validate(); err != nil {
		return StockRecord{}, Movement{}, err
	}
	if err := s.repo.CreateMovement(ctx, m); err != nil {
		return StockRecord{}, Movement{}, err
	}

	return rec, m, nil
}

// Adjust applies a manual add/subtract/set correction with a mandatory reason.
func (s *Service) Adjust(ctx context.Context, in AdjustmentInput) (*AdjustmentResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	wh, err := s.warehouses.GetByID(ctx, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	if !wh.IsActive {
		return nil, apperror.NewValidation("warehouse is not active").
			WithDetail("warehouse_id", wh.ID.String())
	}
	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return nil, err
	}

	var res AdjustmentResult
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			rec, m, err := s.applyDelta(ctx, ledgerWrite{
				productID:     in.ProductID,
				warehouseID:   in.WarehouseID,
				referenceType: ReferenceAdjustment,
				reason:        in.Reason,
				notes:         in.Notes,
				allowNegative: wh.AllowNegativeStock,
				delta: func(current types.Quantity) (types.Quantity, error) {
					switch in.Type {
					case AdjustmentAdd:
						return in.Quantity, nil
					case AdjustmentSubtract:
						return in.Quantity.Neg(), nil
					default: // set: floor applies to the target value, not the delta sign
						return in.Quantity - current, nil
					}
				},
			})
			if err != nil {
				return err
			}
			res = AdjustmentResult{Stock: rec, Movement: m}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock adjusted",
		"product_id", in.ProductID,
		"warehouse_id", in.WarehouseID,
		"type", in.Type,
		"quantity_after", res.Stock.Quantity,
	)
	s.afterMutation(ctx, "stock.adjust", res.Movement.ID, res, in.ProductID)
	return &res, nil
}

// AdjustBatch applies an ordered sequence of adjustments, each in its own
// transaction. Items succeed or fail independently; the batch is not atomic.
func (s *Service) AdjustBatch(ctx context.Context, items []AdjustmentInput) []BatchItemResult {
	results := make([]BatchItemResult, len(items))
	for i, item := range items {
		res, err := s.Adjust(ctx, item)
		if err != nil {
			appErr, ok := apperror.AsAppError(err)
			if !ok {
				appErr = apperror.NewInternal(err)
			}
			results[i] = BatchItemResult{Index: i, Error: appErr}
			continue
		}
		results[i] = BatchItemResult{
			Index:    i,
			Success:  true,
			Stock:    &res.Stock,
			Movement: &res.Movement,
		}
	}
	return results
}

// RecordEntry applies the stock effect of another operation (purchase
// receipt, sale completion, customer return) through the same primitive.
func (s *Service) RecordEntry(ctx context.Context, in EntryInput) (*AdjustmentResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	wh, err := s.warehouses.GetByID(ctx, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	if !wh.IsActive {
		return nil, apperror.NewValidation("warehouse is not active").
			WithDetail("warehouse_id", wh.ID.String())
	}
	if _, err := s.products.GetByID(ctx, in.ProductID); err != nil {
		return nil, err
	}

	delta := in.Quantity
	if in.direction() == MovementOut {
		delta = delta.Neg()
	}

	var res AdjustmentResult
	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			rec, m, err := s.applyDelta(ctx, ledgerWrite{
				productID:     in.ProductID,
				warehouseID:   in.WarehouseID,
				movementType:  in.direction(),
				referenceType: in.Reference,
				referenceID:   in.ReferenceID,
				notes:         in.Notes,
				allowNegative: wh.AllowNegativeStock,
				delta: func(types.Quantity) (types.Quantity, error) {
					return delta, nil
				},
			})
			if err != nil {
				return err
			}
			res = AdjustmentResult{Stock: rec, Movement: m}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	s.afterMutation(ctx, "stock.entry", res.Movement.ID, res, in.ProductID)
	return &res, nil
}

// Transfer moves quantity between two warehouses as one atomic unit: both
// legs commit or neither does.
func (s *Service) Transfer(ctx context.Context, in TransferInput) (*TransferResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	from, err := s.warehouses.GetByID(ctx, in.FromWarehouseID)
	if err != nil {
		return nil, err
	}
	if !from.CanIssueStock() {
		return nil, apperror.NewValidation("source warehouse is not active").
			WithDetail("warehouse_id", from.ID.String())
	}
	to, err := s.warehouses.GetByID(ctx, in.ToWarehouseID)
	if err != nil {
		return nil, err
	}
	if !to.CanAcceptStock() {
		return nil, apperror.NewValidation("destination warehouse is not active").
			WithDetail("warehouse_id", to.ID.String())
	}

	p, err := s.products.GetByID(ctx, in.ProductID)
	if err != nil {
		return nil, err
	}
	if p.IsDiscrete && !in.Quantity.IsWhole() {
		return nil, apperror.NewValidation("quantity must be a whole number for a discrete unit").
			WithDetail("unit", p.Unit)
	}

	ref := id.New()
	res := TransferResult{TransferRef: ref}

	debit := ledgerWrite{
		productID:     in.ProductID,
		warehouseID:   in.FromWarehouseID,
		movementType:  MovementOut,
		referenceType: ReferenceTransfer,
		referenceID:   &ref,
		notes:         in.Notes,
		delta: func(types.Quantity) (types.Quantity, error) {
			return in.Quantity.Neg(), nil
		},
	}
	credit := ledgerWrite{
		productID:     in.ProductID,
		warehouseID:   in.ToWarehouseID,
		movementType:  MovementIn,
		referenceType: ReferenceTransfer,
		referenceID:   &ref,
		notes:         in.Notes,
		delta: func(types.Quantity) (types.Quantity, error) {
			return in.Quantity, nil
		},
	}

	// Lock rows in a fixed order so two opposite transfers on the same
	// product cannot deadlock.
	legs := []ledgerWrite{debit, credit}
	if bytes.Compare(in.ToWarehouseID[:], in.FromWarehouseID[:]) < 0 {
		legs = []ledgerWrite{credit, debit}
	}

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			for _, leg := range legs {
				rec, _, err := s.applyDelta(ctx, leg)
				if err != nil {
					return err
				}
				if leg.warehouseID == in.FromWarehouseID {
					res.From = rec
				} else {
					res.To = rec
				}
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock transferred",
		"product_id", in.ProductID,
		"from", in.FromWarehouseID,
		"to", in.ToWarehouseID,
		"quantity", in.Quantity,
		"transfer_ref", ref,
	)
	s.afterMutation(ctx, "stock.transfer", ref, res, in.ProductID)
	return &res, nil
}

// BreakDown converts bulk-product stock into variant-product stock at the
// variant's conversion ratio, atomically.
func (s *Service) BreakDown(ctx context.Context, in BreakdownInput) (*BreakdownResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	wh, err := s.warehouses.GetByID(ctx, in.WarehouseID)
	if err != nil {
		return nil, err
	}
	if !wh.IsActive {
		return nil, apperror.NewValidation("warehouse is not active").
			WithDetail("warehouse_id", wh.ID.String())
	}

	bulk, err := s.products.GetByID(ctx, in.BulkProductID)
	if err != nil {
		return nil, err
	}
	if !bulk.IsBulk {
		return nil, apperror.NewValidation("product is not a bulk product").
			WithDetail("product_id", bulk.ID.String())
	}

	variant, err := s.products.GetByID(ctx, in.TargetVariantID)
	if err != nil {
		return nil, err
	}
	if !variant.IsVariant() || *variant.ParentID != bulk.ID {
		return nil, apperror.NewValidation("target is not a variant of the bulk product").
			WithDetail("product_id", variant.ID.String()).
			WithDetail("bulk_product_id", bulk.ID.String())
	}

	credit, err := in.Quantity.MulRatio(variant.ConversionRatio)
	if err != nil {
		return nil, apperror.NewValidation("conversion produces an unrepresentable quantity").
			WithDetail("conversion_ratio", variant.ConversionRatio.String()).
			WithCause(err)
	}
	if variant.IsDiscrete && !credit.IsWhole() {
		return nil, apperror.NewValidation("conversion yields a fractional quantity for a discrete unit").
			WithDetail("conversion_ratio", variant.ConversionRatio.String()).
			WithDetail("credited_quantity", credit.String())
	}

	ref := id.New()
	res := BreakdownResult{BreakdownRef: ref, CreditedQuantity: credit}

	err = s.withRetry(ctx, func(ctx context.Context) error {
		return s.txm.RunInTransaction(ctx, func(ctx context.Context) error {
			bulkRec, _, err := s.applyDelta(ctx, ledgerWrite{
				productID:     in.BulkProductID,
				warehouseID:   in.WarehouseID,
				movementType:  MovementOut,
				referenceType: ReferenceBreakdown,
				referenceID:   &ref,
				notes:         in.Notes,
				delta: func(types.Quantity) (types.Quantity, error) {
					return in.Quantity.Neg(), nil
				},
			})
			if err != nil {
				return err
			}
			variantRec, _, err := s.applyDelta(ctx, ledgerWrite{
				productID:     in.TargetVariantID,
				warehouseID:   in.WarehouseID,
				movementType:  MovementIn,
				referenceType: ReferenceBreakdown,
				referenceID:   &ref,
				notes:         in.Notes,
				delta: func(types.Quantity) (types.Quantity, error) {
					return credit, nil
				},
			})
			if err != nil {
				return err
			}
			res.Bulk = bulkRec
			res.Variant = variantRec
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "bulk stock broken down",
		"bulk_product_id", in.BulkProductID,
		"variant_id", in.TargetVariantID,
		"quantity", in.Quantity,
		"credited", credit,
	)
	s.afterMutation(ctx, "stock.breakdown", ref, res, in.BulkProductID, in.TargetVariantID)
	return &res, nil
}

// --- Reads ---

// GetStock returns the current record for one (product, warehouse) pair.
func (s *Service) GetStock(ctx context.Context, productID, warehouseID id.ID) (StockRecord, error) {
	return s.repo.GetRecord(ctx, productID, warehouseID)
}

// StockByProduct returns records for a product across warehouses.
func (s *Service) StockByProduct(ctx context.Context, productID id.ID) ([]StockRecord, error) {
	if _, err := s.products.GetByID(ctx, productID); err != nil {
		return nil, err
	}
	return s.repo.GetRecordsByProduct(ctx, productID)
}

// StockByWarehouse returns records for one warehouse.
func (s *Service) StockByWarehouse(ctx context.Context, warehouseID id.ID) ([]StockRecord, error) {
	if _, err := s.warehouses.GetByID(ctx, warehouseID); err != nil {
		return nil, err
	}
	return s.repo.GetRecordsByWarehouse(ctx, warehouseID)
}

// ListMovements returns ledger entries newest first, plus the total count.
func (s *Service) ListMovements(ctx context.Context, filter MovementFilter) ([]Movement, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = 50
	}
	if filter.Limit > 200 {
		filter.Limit = 200
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	items, err := s.repo.ListMovements(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.CountMovements(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// MovementStats aggregates the ledger over a named period.
func (s *Service) MovementStats(ctx context.Context, period string, filter StatsFilter) (Stats, error) {
	from, err := periodStart(period, time.Now().UTC())
	if err != nil {
		return Stats{}, err
	}
	if from != nil {
		filter.From = from
	}
	return s.repo.GetStats(ctx, filter)
}

func periodStart(period string, now time.Time) (*time.Time, error) {
	var from time.Time
	switch period {
	case "", "all":
		return nil, nil
	case "today":
		from = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	case "week":
		from = now.AddDate(0, 0, -7)
	case "month":
		from = now.AddDate(0, -1, 0)
	default:
		return nil, apperror.NewValidation("period must be today, week, month or all").
			WithDetail("period", period)
	}
	return &from, nil
}

// --- Internals ---

// withRetry reruns fn on serialization conflicts a bounded number of times.
// Any other error, or exhaustion, is returned to the caller.
func (s *Service) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryDelay * time.Duration(attempt)):
			}
		}
		err = fn(ctx)
		if err == nil || !apperror.IsConcurrentModification(err) {
			return err
		}
		logger.Warn(ctx, "stock mutation conflict, retrying", "attempt", attempt+1)
	}
	return err
}

// afterMutation performs best-effort side effects after a commit: cache
// invalidation and the audit record. Neither can fail the mutation.
func (s *Service) afterMutation(ctx context.Context, action string, entityID id.ID, payload any, productIDs ...id.ID) {
	if s.invalidator != nil {
		if err := s.invalidator.InvalidateProducts(ctx, productIDs...); err != nil {
			logger.Warn(ctx, "availability cache invalidation failed", "error", err)
		}
	}
	if s.auditor != nil {
		if err := s.auditor.Record(ctx, action, entityID, payload); err != nil {
			logger.Warn(ctx, "audit record failed", "action", action, "error", err)
		}
	}
}
