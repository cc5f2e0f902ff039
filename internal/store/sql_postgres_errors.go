package store

import (
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
)

// isUniqueViolation reports whether err is a PostgreSQL unique-constraint
// violation. SQLite errors never match; its callers rely on the conditional
// guards in the queries instead.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgerrcode.IsIntegrityConstraintViolation(pgErr.Code) &&
			pgErr.Code == pgerrcode.UniqueViolation
	}

	return false
}

// isForeignKeyViolation reports whether err is a PostgreSQL foreign-key
// violation, e.g. a link pointing at a missing item.
func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.ForeignKeyViolation
	}

	return false
}
