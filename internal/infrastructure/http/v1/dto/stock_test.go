package dto

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ventari/internal/core/apperror"
	"ventari/internal/domain/stock"
)

func TestMovementQueryToFilter(t *testing.T) {
	q := MovementQuery{
		ProductID:    "0190a2c3-0000-7000-8000-000000000001",
		MovementType: "in",
		From:         "2026-08-01T00:00:00Z",
		Limit:        20,
		Offset:       40,
	}

	f, err := q.ToFilter()
	require.NoError(t, err)
	require.NotNil(t, f.ProductID)
	assert.Equal(t, stock.MovementIn, *f.MovementType)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 40, f.Offset)
	require.NotNil(t, f.From)
	assert.Nil(t, f.To)
}

func TestMovementQueryAliases(t *testing.T) {
	// type is an alias for movementType, page maps to offset.
	q := MovementQuery{Type: "out", Limit: 25, Page: 3}

	f, err := q.ToFilter()
	require.NoError(t, err)
	require.NotNil(t, f.MovementType)
	assert.Equal(t, stock.MovementOut, *f.MovementType)
	assert.Equal(t, 50, f.Offset)
}

func TestMovementQueryPageWithoutLimit(t *testing.T) {
	q := MovementQuery{Page: 2}

	f, err := q.ToFilter()
	require.NoError(t, err)
	assert.Equal(t, 50, f.Offset) // default page size
}

func TestMovementQueryBadTimestamp(t *testing.T) {
	q := MovementQuery{From: "yesterday"}

	_, err := q.ToFilter()
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
}

func TestParseID(t *testing.T) {
	parsed, err := ParseID("0190a2c3-0000-7000-8000-000000000001", "productId")
	require.NoError(t, err)
	assert.Equal(t, "0190a2c3-0000-7000-8000-000000000001", parsed.String())

	_, err = ParseID("nope", "productId")
	appErr, ok := apperror.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeValidation, appErr.Code)
	assert.Equal(t, "productId", appErr.Details["field"])
}

func TestMutationResponsesCarryMessage(t *testing.T) {
	envelopes := map[string]any{
		"adjust":    FromAdjustmentResult(&stock.AdjustmentResult{}),
		"batch":     FromBatchResults([]stock.BatchItemResult{{Success: true}}),
		"transfer":  FromTransferResult(&stock.TransferResult{}),
		"breakdown": FromBreakdownResult(&stock.BreakdownResult{}),
	}

	for name, env := range envelopes {
		data, err := json.Marshal(env)
		require.NoError(t, err, name)

		var body map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &body), name)

		msg, ok := body["message"]
		require.True(t, ok, "%s envelope must carry a message", name)
		assert.NotEqual(t, `""`, string(msg), name)
	}
}

func TestBatchMessageCountsOutcomes(t *testing.T) {
	resp := FromBatchResults([]stock.BatchItemResult{
		{Index: 0, Success: true},
		{Index: 1, Success: false, Error: apperror.NewValidation("bad item")},
		{Index: 2, Success: true},
	})

	assert.Equal(t, "2 of 3 adjustments applied", resp.Message)
	assert.Equal(t, 2, resp.Succeeded)
	assert.Equal(t, 1, resp.Failed)
}

func TestBreakdownRequestToInput(t *testing.T) {
	req := BreakdownRequest{
		TargetVariantID: "0190a2c3-0000-7000-8000-000000000002",
		WarehouseID:     "0190a2c3-0000-7000-8000-000000000003",
	}

	in, err := req.ToInput("0190a2c3-0000-7000-8000-000000000001")
	require.NoError(t, err)
	assert.Equal(t, "0190a2c3-0000-7000-8000-000000000001", in.BulkProductID.String())
	assert.Equal(t, "0190a2c3-0000-7000-8000-000000000002", in.TargetVariantID.String())

	_, err = req.ToInput("bad")
	assert.Error(t, err)
}
