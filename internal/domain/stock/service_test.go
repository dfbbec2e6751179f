package stock

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ventari/internal/core/apperror"
	appctx "ventari/internal/core/context"
	"ventari/internal/core/id"
	"ventari/internal/core/tx"
	"ventari/internal/core/types"
	"ventari/internal/domain/catalogs/product"
	"ventari/internal/domain/catalogs/warehouse"
)

// --- In-memory fakes ---

type recordKey struct {
	product   id.ID
	warehouse id.ID
}

type memStore struct {
	records   map[recordKey]StockRecord
	movements []Movement
}

func newMemStore() *memStore {
	return &memStore{records: make(map[recordKey]StockRecord)}
}

func (s *memStore) snapshot() *memStore {
	cp := newMemStore()
	for k, v := range s.records {
		cp.records[k] = v
	}
	cp.movements = append([]Movement(nil), s.movements...)
	return cp
}

func (s *memStore) restore(from *memStore) {
	s.records = from.records
	s.movements = from.movements
}

type memRepo struct {
	store *memStore

	// failSave injects a write failure, used for atomicity tests.
	failSave func(rec StockRecord) error
}

func (r *memRepo) GetRecord(_ context.Context, productID, warehouseID id.ID) (StockRecord, error) {
	if rec, ok := r.store.records[recordKey{productID, warehouseID}]; ok {
		return rec, nil
	}
	return StockRecord{ProductID: productID, WarehouseID: warehouseID}, nil
}

func (r *memRepo) GetRecordForUpdate(ctx context.Context, productID, warehouseID id.ID) (StockRecord, error) {
	return r.GetRecord(ctx, productID, warehouseID)
}

func (r *memRepo) SaveRecord(_ context.Context, rec StockRecord) error {
	if r.failSave != nil {
		if err := r.failSave(rec); err != nil {
			return err
		}
	}
	r.store.records[recordKey{rec.ProductID, rec.WarehouseID}] = rec
	return nil
}

func (r *memRepo) CreateMovement(_ context.Context, m Movement) error {
	r.store.movements = append(r.store.movements, m)
	return nil
}

func matches(m Movement, f MovementFilter) bool {
	if f.ProductID != nil && m.ProductID != *f.ProductID {
		return false
	}
	if f.WarehouseID != nil && m.WarehouseID != *f.WarehouseID {
		return false
	}
	if f.MovementType != nil && m.MovementType != *f.MovementType {
		return false
	}
	if f.ReferenceType != nil && m.ReferenceType != *f.ReferenceType {
		return false
	}
	if f.From != nil && m.CreatedAt.Before(*f.From) {
		return false
	}
	if f.To != nil && m.CreatedAt.After(*f.To) {
		return false
	}
	return true
}

func (r *memRepo) ListMovements(_ context.Context, f MovementFilter) ([]Movement, error) {
	var out []Movement
	for i := len(r.store.movements) - 1; i >= 0; i-- {
		if matches(r.store.movements[i], f) {
			out = append(out, r.store.movements[i])
		}
	}
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return nil, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (r *memRepo) CountMovements(_ context.Context, f MovementFilter) (int64, error) {
	var n int64
	for _, m := range r.store.movements {
		if matches(m, f) {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) GetStats(_ context.Context, f StatsFilter) (Stats, error) {
	var stats Stats
	mf := MovementFilter{ProductID: f.ProductID, WarehouseID: f.WarehouseID, From: f.From, To: f.To}
	for _, m := range r.store.movements {
		if !matches(m, mf) {
			continue
		}
		stats.MovementCount++
		stats.NetChange += m.QuantityChange
		switch m.MovementType {
		case MovementIn:
			stats.TotalIn += m.QuantityChange
		case MovementOut:
			stats.TotalOut += m.QuantityChange.Abs()
		case MovementAdjustment:
			stats.TotalAdjustments += m.QuantityChange
		}
	}
	return stats, nil
}

func (r *memRepo) GetRecordsByProduct(_ context.Context, productID id.ID) ([]StockRecord, error) {
	var out []StockRecord
	for k, v := range r.store.records {
		if k.product == productID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].WarehouseID.String() < out[j].WarehouseID.String()
	})
	return out, nil
}

func (r *memRepo) GetRecordsByWarehouse(_ context.Context, warehouseID id.ID) ([]StockRecord, error) {
	var out []StockRecord
	for k, v := range r.store.records {
		if k.warehouse == warehouseID {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ProductID.String() < out[j].ProductID.String()
	})
	return out, nil
}

// memTx restores the store on error, mirroring a rolled-back transaction.
type memTx struct {
	store *memStore
}

func (t *memTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	snap := t.store.snapshot()
	if err := fn(ctx); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

// flakyTx fails the first n attempts with a serialization conflict.
type flakyTx struct {
	inner    tx.Manager
	failures int
	calls    int
}

func (t *flakyTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	if t.calls <= t.failures {
		return apperror.NewConcurrentModification("stock_record", "contended")
	}
	return t.inner.RunInTransaction(ctx, fn)
}

type memProducts struct {
	byID map[id.ID]*product.Product
}

func (d *memProducts) GetByID(_ context.Context, productID id.ID) (*product.Product, error) {
	if p, ok := d.byID[productID]; ok {
		return p, nil
	}
	return nil, apperror.NewNotFound("product", productID.String())
}

type memWarehouses struct {
	byID map[id.ID]*warehouse.Warehouse
}

func (d *memWarehouses) GetByID(_ context.Context, whID id.ID) (*warehouse.Warehouse, error) {
	if w, ok := d.byID[whID]; ok {
		return w, nil
	}
	return nil, apperror.NewNotFound("warehouse", whID.String())
}

type spyInvalidator struct {
	invalidated []id.ID
}

func (s *spyInvalidator) InvalidateProducts(_ context.Context, productIDs ...id.ID) error {
	s.invalidated = append(s.invalidated, productIDs...)
	return nil
}

type spyAuditor struct {
	actions []string
}

func (s *spyAuditor) Record(_ context.Context, action string, _ id.ID, _ any) error {
	s.actions = append(s.actions, action)
	return nil
}

// --- Fixture ---

type fixture struct {
	svc   *Service
	repo  *memRepo
	store *memStore
	inv   *spyInvalidator
	aud   *spyAuditor

	p1      id.ID // plain discrete product
	bulk    id.ID // bulk product (cases)
	variant id.ID // variant of bulk, ratio 24
	liquid  id.ID // non-discrete variant of bulk, ratio 2.5
	w1      id.ID // active
	w2      id.ID // active
	wOff    id.ID // inactive
	wNeg    id.ID // active, negative stock allowed
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store: newMemStore(),
		inv:   &spyInvalidator{},
		aud:   &spyAuditor{},
	}
	f.repo = &memRepo{store: f.store}

	p1 := product.NewProduct("SKU-001", "Cola 330ml", "pcs")
	bulk := product.NewProduct("SKU-CASE", "Cola Case", "case")
	bulk.IsBulk = true
	variant := product.NewProduct("SKU-VAR", "Cola 330ml (from case)", "pcs")
	variant.ParentID = &bulk.ID
	variant.ConversionRatio = decimal.NewFromInt(24)
	liquid := product.NewProduct("SKU-LIQ", "Syrup", "l")
	liquid.IsDiscrete = false
	liquid.ParentID = &bulk.ID
	liquid.ConversionRatio = decimal.RequireFromString("2.5")

	w1 := warehouse.NewWarehouse("WH-01", "Main", warehouse.TypeStandard)
	w2 := warehouse.NewWarehouse("WH-02", "Store", warehouse.TypeStandard)
	wOff := warehouse.NewWarehouse("WH-03", "Closed", warehouse.TypeStandard)
	wOff.IsActive = false
	wNeg := warehouse.NewWarehouse("WH-04", "Backorder", warehouse.TypeStandard)
	wNeg.AllowNegativeStock = true

	f.p1, f.bulk, f.variant, f.liquid = p1.ID, bulk.ID, variant.ID, liquid.ID
	f.w1, f.w2, f.wOff, f.wNeg = w1.ID, w2.ID, wOff.ID, wNeg.ID

	f.svc = NewService(ServiceConfig{
		Repo: f.repo,
		Products: &memProducts{byID: map[id.ID]*product.Product{
			p1.ID: p1, bulk.ID: bulk, variant.ID: variant, liquid.ID: liquid,
		}},
		Warehouses: &memWarehouses{byID: map[id.ID]*warehouse.Warehouse{
			w1.ID: w1, w2.ID: w2, wOff.ID: wOff, wNeg.ID: wNeg,
		}},
		TxManager:   &memTx{store: f.store},
		Invalidator: f.inv,
		Auditor:     f.aud,
		RetryDelay:  time.Millisecond,
	})
	return f
}

func qty(n int64) types.Quantity { return types.NewQuantityFromInt(n) }

func (f *fixture) seed(t *testing.T, productID, warehouseID id.ID, n int64) {
	t.Helper()
	_, err := f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   productID,
		WarehouseID: warehouseID,
		Type:        AdjustmentAdd,
		Quantity:    qty(n),
		Reason:      "Initial Stock",
	})
	require.NoError(t, err)
}

func (f *fixture) quantity(productID, warehouseID id.ID) types.Quantity {
	rec, _ := f.repo.GetRecord(context.Background(), productID, warehouseID)
	return rec.Quantity
}

// --- Adjustments ---

func TestAdjustSubtract(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 100)

	res, err := f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Type:        AdjustmentSubtract,
		Quantity:    qty(30),
		Reason:      "Damaged Goods",
	})
	require.NoError(t, err)

	assert.Equal(t, qty(70), res.Stock.Quantity)
	assert.Equal(t, qty(100), res.Movement.QuantityBefore)
	assert.Equal(t, qty(-30), res.Movement.QuantityChange)
	assert.Equal(t, qty(70), res.Movement.QuantityAfter)
	assert.Equal(t, MovementAdjustment, res.Movement.MovementType)
	assert.Equal(t, ReferenceAdjustment, res.Movement.ReferenceType)
	assert.Equal(t, "Damaged Goods", res.Movement.Reason)
	assert.Equal(t, qty(70), f.quantity(f.p1, f.w1))
}

func TestAdjustInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 10)
	before := len(f.store.movements)

	_, err := f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Type:        AdjustmentSubtract,
		Quantity:    qty(50),
		Reason:      "Oversold",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, "10.0000", appErr.Details["available"])

	// Nothing changed, nothing recorded.
	assert.Equal(t, qty(10), f.quantity(f.p1, f.w1))
	assert.Len(t, f.store.movements, before)
}

func TestAdjustAddCreatesRecordLazily(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Type:        AdjustmentAdd,
		Quantity:    qty(5),
		Reason:      "Found in backroom",
	})
	require.NoError(t, err)
	assert.Equal(t, qty(5), res.Stock.Quantity)
	assert.Equal(t, qty(0), res.Movement.QuantityBefore)
}

func TestAdjustSet(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 40)

	// Set below current: implied negative delta, floor is the target value.
	res, err := f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Type:        AdjustmentSet,
		Quantity:    qty(25),
		Reason:      "Stock count",
	})
	require.NoError(t, err)
	assert.Equal(t, qty(25), res.Stock.Quantity)
	assert.Equal(t, qty(-15), res.Movement.QuantityChange)

	// Set to zero is a valid terminal state, not a deletion.
	res, err = f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Type:        AdjustmentSet,
		Quantity:    qty(0),
		Reason:      "Stock count",
	})
	require.NoError(t, err)
	assert.Equal(t, qty(0), res.Stock.Quantity)
	assert.Equal(t, qty(0), f.quantity(f.p1, f.w1))
}

func TestAdjustValidation(t *testing.T) {
	f := newFixture(t)

	cases := []struct {
		name string
		in   AdjustmentInput
	}{
		{"missing reason", AdjustmentInput{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentAdd, Quantity: qty(1)}},
		{"negative quantity", AdjustmentInput{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentAdd, Quantity: qty(-1), Reason: "x"}},
		{"bad type", AdjustmentInput{ProductID: f.p1, WarehouseID: f.w1, Type: "increment", Quantity: qty(1), Reason: "x"}},
		{"inactive warehouse", AdjustmentInput{ProductID: f.p1, WarehouseID: f.wOff, Type: AdjustmentAdd, Quantity: qty(1), Reason: "x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Adjust(context.Background(), tc.in)
			require.Error(t, err)
			appErr, ok := apperror.AsAppError(err)
			require.True(t, ok)
			assert.Equal(t, apperror.CodeValidation, appErr.Code)
		})
	}
}

func TestAdjustUnknownProduct(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   id.New(),
		WarehouseID: f.w1,
		Type:        AdjustmentAdd,
		Quantity:    qty(1),
		Reason:      "x",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsNotFound(err))
}

func TestAdjustNegativeStockAllowedByWarehouse(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.wNeg, 5)

	res, err := f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   f.p1,
		WarehouseID: f.wNeg,
		Type:        AdjustmentSubtract,
		Quantity:    qty(8),
		Reason:      "Backorder fulfilment",
	})
	require.NoError(t, err)
	assert.Equal(t, qty(-3), res.Stock.Quantity)
}

func TestAdjustRecordsActor(t *testing.T) {
	f := newFixture(t)
	ctx := appctx.WithUser(context.Background(), &appctx.UserContext{UserID: "u-42", Role: "manager"})

	res, err := f.svc.Adjust(ctx, AdjustmentInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Type:        AdjustmentAdd,
		Quantity:    qty(1),
		Reason:      "Recount",
	})
	require.NoError(t, err)
	assert.Equal(t, "u-42", res.Movement.CreatedBy)
}

func TestAdjustBatchPartialFailure(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 10)

	results := f.svc.AdjustBatch(context.Background(), []AdjustmentInput{
		{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentAdd, Quantity: qty(5), Reason: "a"},
		{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentSubtract, Quantity: qty(100), Reason: "b"},
		{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentSubtract, Quantity: qty(3), Reason: "c"},
	})
	require.Len(t, results, 3)

	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)
	require.NotNil(t, results[1].Error)
	assert.Equal(t, apperror.CodeInsufficientStock, results[1].Error.Code)
	assert.True(t, results[2].Success)

	// Items before and after the failure are committed: 10 + 5 - 3.
	assert.Equal(t, qty(12), f.quantity(f.p1, f.w1))
}

// --- External entries ---

func TestRecordEntrySaleAndPurchase(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 20)
	orderID := id.New()

	res, err := f.svc.RecordEntry(context.Background(), EntryInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Quantity:    qty(3),
		Reference:   ReferenceSale,
		ReferenceID: &orderID,
	})
	require.NoError(t, err)
	assert.Equal(t, qty(17), res.Stock.Quantity)
	assert.Equal(t, MovementOut, res.Movement.MovementType)
	require.NotNil(t, res.Movement.ReferenceID)
	assert.Equal(t, orderID, *res.Movement.ReferenceID)

	res, err = f.svc.RecordEntry(context.Background(), EntryInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Quantity:    qty(10),
		Reference:   ReferencePurchase,
	})
	require.NoError(t, err)
	assert.Equal(t, qty(27), res.Stock.Quantity)
	assert.Equal(t, MovementIn, res.Movement.MovementType)
}

// --- Transfers ---

func TestTransfer(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 50)

	res, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:       f.p1,
		FromWarehouseID: f.w1,
		ToWarehouseID:   f.w2,
		Quantity:        qty(20),
	})
	require.NoError(t, err)

	assert.Equal(t, qty(30), res.From.Quantity)
	assert.Equal(t, qty(20), res.To.Quantity)
	assert.Equal(t, qty(30), f.quantity(f.p1, f.w1))
	assert.Equal(t, qty(20), f.quantity(f.p1, f.w2))

	// Both legs share the transfer ref: one out, one in.
	ref := res.TransferRef
	var legs []Movement
	for _, m := range f.store.movements {
		if m.ReferenceID != nil && *m.ReferenceID == ref {
			legs = append(legs, m)
		}
	}
	require.Len(t, legs, 2)
	byType := map[MovementType]Movement{legs[0].MovementType: legs[0], legs[1].MovementType: legs[1]}
	assert.Equal(t, qty(-20), byType[MovementOut].QuantityChange)
	assert.Equal(t, f.w1, byType[MovementOut].WarehouseID)
	assert.Equal(t, qty(20), byType[MovementIn].QuantityChange)
	assert.Equal(t, f.w2, byType[MovementIn].WarehouseID)
}

func TestTransferSameWarehouse(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:       f.p1,
		FromWarehouseID: f.w1,
		ToWarehouseID:   f.w1,
		Quantity:        qty(1),
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestTransferInsufficientStock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 5)

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:       f.p1,
		FromWarehouseID: f.w1,
		ToWarehouseID:   f.w2,
		Quantity:        qty(10),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))

	// No partial transfer is observable.
	assert.Equal(t, qty(5), f.quantity(f.p1, f.w1))
	assert.Equal(t, qty(0), f.quantity(f.p1, f.w2))
}

func TestTransferInactiveDestination(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 5)

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:       f.p1,
		FromWarehouseID: f.w1,
		ToWarehouseID:   f.wOff,
		Quantity:        qty(1),
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestTransferRollsBackWhenCreditFails(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 50)
	movementsBefore := len(f.store.movements)

	// The credit leg's record write fails after the debit succeeded; the
	// transaction must roll the debit back.
	f.repo.failSave = func(rec StockRecord) error {
		if rec.WarehouseID == f.w2 {
			return fmt.Errorf("write failed")
		}
		return nil
	}
	defer func() { f.repo.failSave = nil }()

	_, err := f.svc.Transfer(context.Background(), TransferInput{
		ProductID:       f.p1,
		FromWarehouseID: f.w1,
		ToWarehouseID:   f.w2,
		Quantity:        qty(20),
	})
	require.Error(t, err)

	assert.Equal(t, qty(50), f.quantity(f.p1, f.w1))
	assert.Equal(t, qty(0), f.quantity(f.p1, f.w2))
	assert.Len(t, f.store.movements, movementsBefore)
}

// --- Breakdowns ---

func TestBreakDown(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.bulk, f.w1, 10)

	res, err := f.svc.BreakDown(context.Background(), BreakdownInput{
		BulkProductID:   f.bulk,
		TargetVariantID: f.variant,
		WarehouseID:     f.w1,
		Quantity:        qty(2),
	})
	require.NoError(t, err)

	assert.Equal(t, qty(8), res.Bulk.Quantity)
	assert.Equal(t, qty(48), res.Variant.Quantity)
	assert.Equal(t, qty(48), res.CreditedQuantity)
	assert.Equal(t, qty(8), f.quantity(f.bulk, f.w1))
	assert.Equal(t, qty(48), f.quantity(f.variant, f.w1))

	// Both movements carry the breakdown reference.
	var legs []Movement
	for _, m := range f.store.movements {
		if m.ReferenceType == ReferenceBreakdown {
			legs = append(legs, m)
		}
	}
	require.Len(t, legs, 2)
	for _, m := range legs {
		require.NotNil(t, m.ReferenceID)
		assert.Equal(t, res.BreakdownRef, *m.ReferenceID)
	}
}

func TestBreakDownExceedsStock(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.bulk, f.w1, 1)

	_, err := f.svc.BreakDown(context.Background(), BreakdownInput{
		BulkProductID:   f.bulk,
		TargetVariantID: f.variant,
		WarehouseID:     f.w1,
		Quantity:        qty(2),
	})
	require.Error(t, err)
	assert.True(t, apperror.IsInsufficientStock(err))
	assert.Equal(t, qty(1), f.quantity(f.bulk, f.w1))
	assert.Equal(t, qty(0), f.quantity(f.variant, f.w1))
}

func TestBreakDownWrongVariant(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.bulk, f.w1, 5)

	_, err := f.svc.BreakDown(context.Background(), BreakdownInput{
		BulkProductID:   f.bulk,
		TargetVariantID: f.p1, // not a variant of bulk
		WarehouseID:     f.w1,
		Quantity:        qty(1),
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestBreakDownFractionalCredit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.bulk, f.w1, 10)

	// A non-discrete variant may receive a fractional credit.
	res, err := f.svc.BreakDown(context.Background(), BreakdownInput{
		BulkProductID:   f.bulk,
		TargetVariantID: f.liquid,
		WarehouseID:     f.w1,
		Quantity:        qty(1),
	})
	require.NoError(t, err)
	assert.Equal(t, types.NewQuantityFromFloat64(2.5), res.CreditedQuantity)
}

func TestBreakDownFractionalCreditDiscreteUnit(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.bulk, f.w1, 10)

	// Repoint the discrete variant at a fractional ratio: must be rejected.
	fDiscrete := f.svc.products.(*memProducts).byID[f.variant]
	fDiscrete.ConversionRatio = decimal.RequireFromString("2.5")
	defer func() { fDiscrete.ConversionRatio = decimal.NewFromInt(24) }()

	_, err := f.svc.BreakDown(context.Background(), BreakdownInput{
		BulkProductID:   f.bulk,
		TargetVariantID: f.variant,
		WarehouseID:     f.w1,
		Quantity:        qty(1),
	})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

// --- Ledger properties ---

// Replaying all movements for a (product, warehouse) pair from zero must
// reproduce the current record exactly, and each entry must chain onto the
// previous one.
func TestLedgerReplayConsistency(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, f.p1, f.w1, 100)
	_, err := f.svc.Adjust(ctx, AdjustmentInput{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentSubtract, Quantity: qty(30), Reason: "Damaged"})
	require.NoError(t, err)
	_, err = f.svc.Transfer(ctx, TransferInput{ProductID: f.p1, FromWarehouseID: f.w1, ToWarehouseID: f.w2, Quantity: qty(25)})
	require.NoError(t, err)
	_, err = f.svc.Adjust(ctx, AdjustmentInput{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentSet, Quantity: qty(40), Reason: "Recount"})
	require.NoError(t, err)
	_, err = f.svc.RecordEntry(ctx, EntryInput{ProductID: f.p1, WarehouseID: f.w1, Quantity: qty(4), Reference: ReferenceSale})
	require.NoError(t, err)

	for _, whID := range []id.ID{f.w1, f.w2} {
		var replayed types.Quantity
		var prev *Movement
		for i := range f.store.movements {
			m := f.store.movements[i]
			if m.ProductID != f.p1 || m.WarehouseID != whID {
				continue
			}
			if prev != nil {
				assert.Equal(t, prev.QuantityAfter, m.QuantityBefore, "ledger chain broken")
			}
			assert.Equal(t, m.QuantityBefore+m.QuantityChange, m.QuantityAfter)
			replayed += m.QuantityChange
			prev = &f.store.movements[i]
		}
		assert.Equal(t, f.quantity(f.p1, whID), replayed, "replay mismatch for warehouse %s", whID)
	}
}

func TestQuantityNeverNegative(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, f.p1, f.w1, 10)

	// A mix of passing and failing operations; no intermediate state may
	// leave a standard warehouse negative.
	_, _ = f.svc.Adjust(ctx, AdjustmentInput{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentSubtract, Quantity: qty(30), Reason: "x"})
	_, _ = f.svc.Transfer(ctx, TransferInput{ProductID: f.p1, FromWarehouseID: f.w1, ToWarehouseID: f.w2, Quantity: qty(8)})
	_, _ = f.svc.Transfer(ctx, TransferInput{ProductID: f.p1, FromWarehouseID: f.w1, ToWarehouseID: f.w2, Quantity: qty(8)})
	_, _ = f.svc.RecordEntry(ctx, EntryInput{ProductID: f.p1, WarehouseID: f.w1, Quantity: qty(5), Reference: ReferenceSale})

	for _, m := range f.store.movements {
		if m.WarehouseID == f.wNeg {
			continue
		}
		assert.False(t, m.QuantityAfter.IsNegative(), "negative quantity in ledger")
	}
	assert.False(t, f.quantity(f.p1, f.w1).IsNegative())
	assert.False(t, f.quantity(f.p1, f.w2).IsNegative())
}

func TestIdempotentRead(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 7)

	first, err := f.svc.GetStock(context.Background(), f.p1, f.w1)
	require.NoError(t, err)
	second, err := f.svc.GetStock(context.Background(), f.p1, f.w1)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

// --- Queries ---

func TestListMovementsPagingAndFilter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, f.p1, f.w1, 100)
	for i := 0; i < 5; i++ {
		_, err := f.svc.Adjust(ctx, AdjustmentInput{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentSubtract, Quantity: qty(1), Reason: "shrinkage"})
		require.NoError(t, err)
	}
	_, err := f.svc.Transfer(ctx, TransferInput{ProductID: f.p1, FromWarehouseID: f.w1, ToWarehouseID: f.w2, Quantity: qty(10)})
	require.NoError(t, err)

	items, total, err := f.svc.ListMovements(ctx, MovementFilter{ProductID: &f.p1, Limit: 3})
	require.NoError(t, err)
	assert.Len(t, items, 3)
	assert.Equal(t, int64(8), total) // seed + 5 adjustments + 2 transfer legs

	// Newest first.
	for i := 1; i < len(items); i++ {
		assert.False(t, items[i-1].CreatedAt.Before(items[i].CreatedAt))
	}

	refType := ReferenceTransfer
	items, total, err = f.svc.ListMovements(ctx, MovementFilter{ProductID: &f.p1, ReferenceType: &refType})
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, int64(2), total)
}

func TestMovementStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.seed(t, f.p1, f.w1, 100) // adjustment +100
	_, err := f.svc.RecordEntry(ctx, EntryInput{ProductID: f.p1, WarehouseID: f.w1, Quantity: qty(40), Reference: ReferencePurchase})
	require.NoError(t, err)
	_, err = f.svc.RecordEntry(ctx, EntryInput{ProductID: f.p1, WarehouseID: f.w1, Quantity: qty(15), Reference: ReferenceSale})
	require.NoError(t, err)
	_, err = f.svc.Adjust(ctx, AdjustmentInput{ProductID: f.p1, WarehouseID: f.w1, Type: AdjustmentSubtract, Quantity: qty(5), Reason: "Damaged"})
	require.NoError(t, err)

	stats, err := f.svc.MovementStats(ctx, "all", StatsFilter{ProductID: &f.p1})
	require.NoError(t, err)
	assert.Equal(t, qty(40), stats.TotalIn)
	assert.Equal(t, qty(15), stats.TotalOut)
	assert.Equal(t, qty(95), stats.TotalAdjustments) // +100 - 5
	assert.Equal(t, qty(120), stats.NetChange)
	assert.Equal(t, int64(4), stats.MovementCount)
}

func TestMovementStatsBadPeriod(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.MovementStats(context.Background(), "fortnight", StatsFilter{})
	require.Error(t, err)
	appErr, _ := apperror.AsAppError(err)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 13, 45, 0, 0, time.UTC)

	from, err := periodStart("today", now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC), *from)

	from, err = periodStart("week", now)
	require.NoError(t, err)
	assert.Equal(t, now.AddDate(0, 0, -7), *from)

	from, err = periodStart("all", now)
	require.NoError(t, err)
	assert.Nil(t, from)
}

// --- Concurrency ---

func TestRetryOnSerializationConflict(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 10)

	flaky := &flakyTx{inner: &memTx{store: f.store}, failures: 2}
	f.svc.txm = flaky

	res, err := f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Type:        AdjustmentAdd,
		Quantity:    qty(1),
		Reason:      "Recount",
	})
	require.NoError(t, err)
	assert.Equal(t, qty(11), res.Stock.Quantity)
	assert.Equal(t, 3, flaky.calls)
}

func TestRetryExhaustionSurfacesConflict(t *testing.T) {
	f := newFixture(t)
	f.seed(t, f.p1, f.w1, 10)

	f.svc.txm = &flakyTx{inner: &memTx{store: f.store}, failures: 100}

	_, err := f.svc.Adjust(context.Background(), AdjustmentInput{
		ProductID:   f.p1,
		WarehouseID: f.w1,
		Type:        AdjustmentAdd,
		Quantity:    qty(1),
		Reason:      "Recount",
	})
	require.Error(t, err)
	assert.True(t, apperror.IsConcurrentModification(err))
	assert.Equal(t, qty(10), f.quantity(f.p1, f.w1))
}

// --- Side effects ---

func TestMutationsInvalidateAndAudit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.seed(t, f.bulk, f.w1, 10)
	f.inv.invalidated = nil
	f.aud.actions = nil

	_, err := f.svc.BreakDown(ctx, BreakdownInput{
		BulkProductID:   f.bulk,
		TargetVariantID: f.variant,
		WarehouseID:     f.w1,
		Quantity:        qty(1),
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []id.ID{f.bulk, f.variant}, f.inv.invalidated)
	assert.Equal(t, []string{"stock.breakdown"}, f.aud.actions)
}
