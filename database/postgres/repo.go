// Package postgres implements the folder and file repositories on PostgreSQL using pgx.
package postgres

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sagarc03/filedock"
)

// Tables is an alias for filedock.Tables for package compatibility.
type Tables = filedock.Tables

const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// mapError wraps err with op, translating missing rows and constraint
// violations into the filedock sentinels.
func mapError(op string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, filedock.ErrNotFound)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w: %s", op, filedock.ErrConflict, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", op, filedock.ErrNotFound, pgErr.ConstraintName)
		}
	}

	return fmt.Errorf("%s: %w", op, err)
}

func uuidStrings(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func quote(table string) string {
	return pgx.Identifier{table}.Sanitize()
}
