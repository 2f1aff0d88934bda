package executor

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by the executor's SQL steps. Both
// *pgxpool.Pool and pgx.Tx satisfy it; the executor runs every step through
// a transaction, and the read-side store queries the pool directly without
// this interface.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx is the transaction handle the executor needs: a Querier plus the
// commit/rollback pair. pgx.Tx satisfies this.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Beginner starts a transaction. *pgxpool.Pool satisfies this through the
// poolAdapter below; tests satisfy it with a fake that hands back a scripted
// Tx without touching a real database.
type Beginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (Tx, error)
}

// poolAdapter narrows *pgxpool.Pool's BeginTx (which returns the full
// pgx.Tx interface) down to our Beginner interface. The assignment in
// BeginTx is a legal interface-to-interface narrowing: pgx.Tx's method set
// is a superset of Tx's.
type poolAdapter struct {
	pool *pgxpool.Pool
}

// NewBeginner wraps a connection pool as a Beginner.
func NewBeginner(pool *pgxpool.Pool) Beginner {
	return &poolAdapter{pool: pool}
}

func (a *poolAdapter) BeginTx(ctx context.Context, opts pgx.TxOptions) (Tx, error) {
	tx, err := a.pool.BeginTx(ctx, opts)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

// rowsAffected is a small helper so call sites read like the spec's
// "rowcount is inspected" language rather than poking at pgconn directly.
func rowsAffected(tag pgconn.CommandTag) int64 {
	return tag.RowsAffected()
}
