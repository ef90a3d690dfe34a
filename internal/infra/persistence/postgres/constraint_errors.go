package postgres

import (
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// PostgreSQL SQLSTATE codes the repositories translate into domain errors.
const (
	pgUniqueViolation  = "23505"
	pgNotNullViolation = "23502"
)

// isUniqueConstraintViolation reports a unique index violation. When constraint is
// non-empty only violations of that named constraint match.
func isUniqueConstraintViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation && (constraint == "" || pgErr.ConstraintName == constraint)
	}

	// TranslateError is not enabled on the session, but keep the gorm sentinel working if it ever is.
	return constraint == "" && errors.Is(err, gorm.ErrDuplicatedKey)
}

func isNotNullConstraintViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == pgNotNullViolation
}
