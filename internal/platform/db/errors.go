package db

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// ConflictError wraps a transaction PostgreSQL aborted because of a
// concurrent writer. Retrying the request is safe.
type ConflictError struct {
	Err error
}

func (e *ConflictError) Error() string {
	return "platform/db: concurrent update, retry the request"
}

func (e *ConflictError) Unwrap() error { return e.Err }

func (e *ConflictError) StatusCode() int { return http.StatusConflict }

// IsUniqueViolation reports whether err is a PostgreSQL unique constraint violation.
func IsUniqueViolation(err error) bool {
	return hasCode(err, codeUniqueViolation)
}

// IsForeignKeyViolation reports whether err references a missing parent row.
func IsForeignKeyViolation(err error) bool {
	return hasCode(err, codeForeignKeyViolation)
}

// IsSerializationFailure reports whether the transaction lost a race with a
// concurrent one (serialization failure or deadlock).
func IsSerializationFailure(err error) bool {
	return hasCode(err, codeSerializationFailure) || hasCode(err, codeDeadlockDetected)
}

// IsNoRows reports whether the query returned no rows.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func asConflict(err error) error {
	var conflict *ConflictError
	if IsSerializationFailure(err) && !errors.As(err, &conflict) {
		return &ConflictError{Err: err}
	}
	return err
}

func hasCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == code
	}
	return false
}
