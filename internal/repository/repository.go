package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// ConflictError reports a uniqueness violation on Field.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// IsConflict reports whether err is a ConflictError and returns it.
func IsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// DBTX is the subset of pgxpool.Pool used by the repositories. Tests and
// transactions can substitute their own implementation.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	uniqueViolation = "23505"
	// A key that is not a valid uuid cannot name any row.
	invalidTextRepresentation = "22P02"
)

// translate maps driver errors onto the repository vocabulary. constraints
// maps unique constraint names to the field reported in ConflictError.
func translate(err error, constraints map[string]string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		if field, ok := constraints[pgErr.ConstraintName]; ok {
			return &ConflictError{Field: field}
		}
		return &ConflictError{Field: "record"}
	case invalidTextRepresentation:
		return ErrNotFound
	}
	return err
}

func expectRows(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(err, nil)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
