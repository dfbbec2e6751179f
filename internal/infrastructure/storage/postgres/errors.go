package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"ventari/internal/core/apperror"
)

// PostgreSQL error codes that matter to the ledger.
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"
)

// WrapError maps driver errors onto the application error taxonomy.
// Serialization failures, deadlocks and expired lock waits become
// CONCURRENT_MODIFICATION so the service layer can retry them; everything
// else passes through unchanged.
func WrapError(err error, entity string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return apperror.NewConcurrentModification(entity, pgErr.ConstraintName).WithCause(err)
		case pgUniqueViolation:
			return apperror.NewConflict("record already exists").
				WithDetail("constraint", pgErr.ConstraintName).
				WithCause(err)
		}
	}
	return err
}
