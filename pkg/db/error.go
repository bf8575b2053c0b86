package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// Postgres SQLSTATE codes the services react to.
const (
	PGUniqueViolation      = "23505"
	PGSerializationFailure = "40001"
	PGLockNotAvailable     = "55P03"
)

// Driver messages for unique violations on dialects that surface no typed
// error through gorm.
var duplicateKeyMessages = []string{
	"duplicate key value violates unique constraint",
	"Error 1062",
	"UNIQUE constraint failed",
}

func IsDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) || HasPGCode(err, PGUniqueViolation) {
		return true
	}
	msg := err.Error()
	for _, needle := range duplicateKeyMessages {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}

// HasPGCode reports whether err wraps a postgres error with the given code.
func HasPGCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsDriverError reports whether err came from the database rather than from
// a lookup miss.
func IsDriverError(err error) bool {
	if err == nil || errors.Is(err, gorm.ErrRecordNotFound) {
		return false
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) ||
		errors.Is(err, gorm.ErrInvalidDB) ||
		errors.Is(err, gorm.ErrInvalidTransaction) ||
		errors.Is(err, gorm.ErrMissingWhereClause) ||
		errors.Is(err, gorm.ErrInvalidData)
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
