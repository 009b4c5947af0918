package persistence

import (
	"errors"
	"strings"

	"github.com/eduard0708/exits-saas-lms-sub008/internal/domain/shared"
	"github.com/jackc/pgx/v5/pgconn"
)

// Postgres SQLSTATE codes that mean "another writer got there first".
const (
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgUniqueViolation      = "23505"

	activeIssuanceIndex = "idx_cash_float_active_issuance"
)

// IsContentionError reports whether err is a transient conflict between
// concurrent writers on the same rows. Such errors are safe to retry from the
// start of the unit of work; everything else is not.
//
// A unique violation only counts when it comes from the collector-day balance
// key, which two first writers of the same day race to insert.
func IsContentionError(err error) bool {
	if err == nil {
		return false
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) && domainErr.Code == "OPTIMISTIC_LOCK_FAILED" {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgSerializationFailure, pgDeadlockDetected, pgLockNotAvailable:
			return true
		case pgUniqueViolation:
			return pgErr.ConstraintName == "idx_cash_balance_collector_date"
		}
		return false
	}

	// sqlite, used by tests, reports lock contention as plain text
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "UNIQUE constraint failed: collector_cash_balances")
}

// isActiveIssuanceConflict reports the partial unique index on cash_floats
// refusing a second pending or confirmed issuance for a collector-day.
func isActiveIssuanceConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == activeIssuanceIndex
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed: cash_floats.")
}
