package shared

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// TranslatePgError maps well-known PostgreSQL failures to error kinds.
func TranslatePgError(err error, entity string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s %w", entity, ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s already exists", ErrConflict, entity)
		case pgForeignKeyViolation:
			return fmt.Errorf("%w: %s references a missing record", ErrValidation, entity)
		case pgCheckViolation:
			return fmt.Errorf("%w: %s violates constraint %s", ErrValidation, entity, pgErr.ConstraintName)
		}
	}
	return err
}
