package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuantityConstruction(t *testing.T) {
	assert.Equal(t, Quantity(50_000), NewQuantityFromInt(5))
	assert.Equal(t, Quantity(25_000), NewQuantityFromFloat64(2.5))
	assert.Equal(t, Quantity(12_345), NewQuantityFromInt64Scaled(12_345))

	q, err := NewQuantityFromDecimal(decimal.RequireFromString("1.2345"))
	require.NoError(t, err)
	assert.Equal(t, Quantity(12_345), q)

	_, err = NewQuantityFromDecimal(decimal.RequireFromString("1.23456"))
	assert.Error(t, err)
}

func TestQuantityString(t *testing.T) {
	tests := []struct {
		q    Quantity
		want string
	}{
		{NewQuantityFromInt(0), "0.0000"},
		{NewQuantityFromInt(10), "10.0000"},
		{NewQuantityFromFloat64(2.5), "2.5000"},
		{NewQuantityFromInt(-3), "-3.0000"},
		{NewQuantityFromInt64Scaled(-5), "-0.0005"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.q.String())
	}
}

func TestQuantityJSONRoundTrip(t *testing.T) {
	data, err := json.Marshal(NewQuantityFromFloat64(12.5))
	require.NoError(t, err)
	assert.Equal(t, "12.5000", string(data))

	var q Quantity
	require.NoError(t, json.Unmarshal([]byte("12.5"), &q))
	assert.Equal(t, NewQuantityFromFloat64(12.5), q)

	// String form is accepted too.
	require.NoError(t, json.Unmarshal([]byte(`"-0.25"`), &q))
	assert.Equal(t, NewQuantityFromFloat64(-0.25), q)

	require.NoError(t, json.Unmarshal([]byte("null"), &q))
	assert.True(t, q.IsZero())
}

func TestQuantityMulRatio(t *testing.T) {
	got, err := NewQuantityFromInt(2).MulRatio(decimal.NewFromInt(24))
	require.NoError(t, err)
	assert.Equal(t, NewQuantityFromInt(48), got)

	got, err = NewQuantityFromInt(1).MulRatio(decimal.RequireFromString("2.5"))
	require.NoError(t, err)
	assert.Equal(t, NewQuantityFromFloat64(2.5), got)

	// 1 * 1/3 does not land on the 4-digit scale.
	third := decimal.NewFromInt(1).Div(decimal.NewFromInt(3))
	_, err = NewQuantityFromInt(1).MulRatio(third)
	assert.Error(t, err)
}

func TestQuantityIsWhole(t *testing.T) {
	assert.True(t, NewQuantityFromInt(7).IsWhole())
	assert.True(t, NewQuantityFromInt(0).IsWhole())
	assert.False(t, NewQuantityFromFloat64(7.5).IsWhole())
}

func TestQuantityArithmeticHelpers(t *testing.T) {
	q := NewQuantityFromInt(3)
	assert.Equal(t, NewQuantityFromInt(-3), q.Neg())
	assert.Equal(t, q, q.Neg().Abs())
	assert.True(t, q.IsPositive())
	assert.True(t, q.Neg().IsNegative())
	assert.InDelta(t, 3.0, q.Float64(), 1e-9)
	assert.Equal(t, "3", q.Decimal().String())
}
