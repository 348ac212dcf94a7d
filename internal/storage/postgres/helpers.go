package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// derefString safely dereferences a string pointer, returning empty string if nil
func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

// nullString stores "" as NULL.
func nullString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// orNotFound maps a missing row to notFound and leaves other errors alone.
func orNotFound(err, notFound error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}
	return err
}

// isViolation reports whether err is the given constraint violation. An
// empty constraint matches any violation of that code.
func isViolation(err error, code, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != code {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// requireRow turns an UPDATE or DELETE that touched nothing into notFound.
func requireRow(tag pgconn.CommandTag, err error, notFound error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
