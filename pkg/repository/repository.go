// Package repository provides database/sql helpers shared by the
// feature repositories: generic row scanning, transaction scoping,
// and driver error mapping.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Executor is the subset of database operations satisfied by both
// *sql.DB and *sql.Tx, allowing repository methods to run either
// standalone or inside a caller-owned transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Scanner abstracts sql.Row and sql.Rows for shared scan functions.
type Scanner interface {
	Scan(dest ...any) error
}

// ScanFunc maps a database row onto a value of type T.
type ScanFunc[T any] func(Scanner) (T, error)

// QueryOne executes a query expected to return a single row.
func QueryOne[T any](ctx context.Context, exec Executor, query string, args []any, scan ScanFunc[T]) (T, error) {
	return scan(exec.QueryRowContext(ctx, query, args...))
}

// QueryMany executes a query and scans all returned rows.
func QueryMany[T any](ctx context.Context, exec Executor, query string, args []any, scan ScanFunc[T]) ([]T, error) {
	rows, err := exec.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, v)
	}
	return results, rows.Err()
}

// ExecExpectOne executes a statement and fails with sql.ErrNoRows
// unless exactly one row was affected.
func ExecExpectOne(ctx context.Context, exec Executor, query string, args ...any) error {
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// WithTx runs fn inside a transaction, committing on success and
// rolling back on error or panic.
func WithTx[T any](ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) (T, error)) (T, error) {
	var zero T

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	result, err := fn(tx)
	if err != nil {
		tx.Rollback()
		return zero, err
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("commit transaction: %w", err)
	}
	return result, nil
}

// MapError translates low-level database errors into the domain
// sentinels supplied by the caller. Unique violations map to
// duplicate, missing rows map to notFound.
func MapError(err error, notFound, duplicate error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return duplicate
	}
	return err
}
