// Package store implements the SQL persistence layer over the extension
// entity graph: namespaces, extensions, versions, file resources and signing
// key pairs.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches both the pgx connection pool and pgx transactions, so the
// same queries run inside and outside a transaction. Lookups that find
// nothing return pgx.ErrNoRows; callers map that to their own errors.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Queries runs the gallery SQL against a pool or transaction.
type Queries struct {
	db DBTX
}

// New builds a query runner over the given pool or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a copy of the query runner bound to the transaction.
func (*Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}
