// Package repository persists conversion status records with sqlx. Queries
// use ? placeholders, which both MySQL and SQLite accept.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Queryable is the subset of *sqlx.DB and *sqlx.Tx the repositories use.
type Queryable interface {
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	NamedExecContext(ctx context.Context, query string, arg any) (sql.Result, error)
}

var (
	_ Queryable = (*sqlx.DB)(nil)
	_ Queryable = (*sqlx.Tx)(nil)
)

type txContextKey struct{}

// ContextWithTx returns a context that routes repository calls through tx.
func ContextWithTx(ctx context.Context, tx Queryable) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// TxFromContext returns the transaction stored by ContextWithTx, or nil.
func TxFromContext(ctx context.Context) Queryable {
	tx, _ := ctx.Value(txContextKey{}).(Queryable)
	return tx
}

// BaseRepository holds the lookups shared by tables keyed by a string id.
type BaseRepository[T any] struct {
	db    *sqlx.DB
	table string
}

// NewBaseRepository binds a base repository to table.
func NewBaseRepository[T any](db *sqlx.DB, table string) *BaseRepository[T] {
	return &BaseRepository[T]{db: db, table: table}
}

// getQueryable prefers a transaction carried by ctx.
func (r *BaseRepository[T]) getQueryable(ctx context.Context) Queryable {
	if tx := TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.db
}

// GetByID loads one row, or returns ErrNotFound.
func (r *BaseRepository[T]) GetByID(ctx context.Context, id string) (*T, error) {
	var row T
	query := fmt.Sprintf("SELECT * FROM %s WHERE id = ?", r.table)
	if err := r.getQueryable(ctx).GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, ParseDBError(err)
	}
	return &row, nil
}

// Delete removes one row, or returns ErrNotFound.
func (r *BaseRepository[T]) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf("DELETE FROM %s WHERE id = ?", r.table)
	result, err := r.getQueryable(ctx).ExecContext(ctx, query, id)
	if err != nil {
		return ParseDBError(err)
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return ParseDBError(err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// addFieldUpdate appends "column = ?" when value is set.
func addFieldUpdate[T any](sets *[]string, args *[]any, column string, value *T) {
	if value == nil {
		return
	}
	*sets = append(*sets, column+" = ?")
	*args = append(*args, *value)
}
