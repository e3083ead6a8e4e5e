package repository

import (
	"errors"

	"factory/internal/apperror"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// notFound converts gorm.ErrRecordNotFound into the domain NotFoundError and
// passes every other error through unchanged.
func notFound(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(entity, id)
	}
	return err
}

// duplicate converts a unique violation into a DuplicateError.
func duplicate(err error, entity, field, value string) error {
	if err != nil && IsUniqueViolation(err) {
		return apperror.Duplicate(entity, field, value)
	}
	return err
}
