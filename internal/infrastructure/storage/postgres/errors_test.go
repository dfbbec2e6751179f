package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ventari/internal/core/apperror"
)

func pgError(code string) error {
	return fmt.Errorf("exec: %w", &pgconn.PgError{Code: code, ConstraintName: "stock_records_pkey"})
}

func TestWrapErrorRetryableCodes(t *testing.T) {
	for _, code := range []string{
		pgSerializationFailure,
		pgDeadlockDetected,
		pgLockNotAvailable,
	} {
		wrapped := WrapError(pgError(code), "stock_record")
		assert.True(t, apperror.IsConcurrentModification(wrapped), "code %s must be retryable", code)
	}
}

func TestWrapErrorUniqueViolation(t *testing.T) {
	wrapped := WrapError(pgError(pgUniqueViolation), "stock_record")

	appErr, ok := apperror.AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, apperror.CodeConflict, appErr.Code)
	assert.Equal(t, "stock_records_pkey", appErr.Details["constraint"])
}

func TestWrapErrorPassthrough(t *testing.T) {
	plain := errors.New("connection refused")
	assert.Equal(t, plain, WrapError(plain, "stock_record"))
	assert.NoError(t, WrapError(nil, "stock_record"))

	other := pgError("42703") // undefined_column stays a plain error
	assert.Equal(t, other, WrapError(other, "stock_record"))
}

func TestDefaultTxOptionsBoundWaits(t *testing.T) {
	opts := DefaultTxOptions()

	// Every mutation runs with both timeouts so a hot balance row cannot
	// stall requests indefinitely.
	assert.Positive(t, opts.StatementTimeout)
	assert.Positive(t, opts.LockTimeout)
	assert.Less(t, opts.LockTimeout, opts.StatementTimeout)
}
