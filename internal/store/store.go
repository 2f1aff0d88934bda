// Package store is the read-side query layer: account, transaction, and
// ledger lookups used by the HTTP handlers. It never mutates
// balances or transaction state — that is the transfer executor's job. The
// teacher's internal/store/postgres.go is the model for this package's
// shape; every query here is generalized from it to the UUID-keyed, five-
// table schema.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/ledgerops/internal/domain"
)

// ErrNotFound is returned when a lookup by id finds no row. Callers map it
// to a 404.
var ErrNotFound = errors.New("not found")

// Store is the connection-pool-backed read side. Unlike the executor it
// never opens a transaction of its own; every query here runs as a single
// statement against the pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool. The pool's lifecycle (Close) belongs to the
// caller.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// CreateAccount inserts a new ACTIVE account with a zero balance for owner
// and returns its generated id. Account creation itself is outside the
// transfer core's scope; this backs the POST /api/v1/accounts handler, not
// the transfer path.
func (s *Store) CreateAccount(ctx context.Context, owner uuid.UUID) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO accounts (account_id, user_id, status, current_balance) VALUES ($1, $2, 'ACTIVE', 0)`,
		id, owner,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: create account: %w", err)
	}
	return id, nil
}

// GetAccount retrieves a single account by id.
func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	var a domain.Account
	err := s.pool.QueryRow(ctx,
		`SELECT account_id, user_id, status, current_balance, created_at, frozen_at, terminated_at
		   FROM accounts WHERE account_id = $1`,
		id,
	).Scan(&a.AccountID, &a.UserID, &a.Status, &a.CurrentBalance, &a.CreatedAt, &a.FrozenAt, &a.TerminatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get account: %w", err)
	}
	return &a, nil
}

// GetTransaction retrieves a single transaction by id, including its stored
// response payload.
func (s *Store) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	var tr domain.Transaction
	err := s.pool.QueryRow(ctx,
		`SELECT transaction_id, status, type, initiator_user_id, from_account_id, to_account_id,
		        amount, idempotency_key, response_payload, failure_reason, created_at
		   FROM transactions WHERE transaction_id = $1`,
		id,
	).Scan(&tr.TransactionID, &tr.Status, &tr.Type, &tr.InitiatorUserID, &tr.FromAccountID, &tr.ToAccountID,
		&tr.Amount, &tr.IdempotencyKey, &tr.ResponsePayload, &tr.FailureReason, &tr.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: get transaction: %w", err)
	}
	return &tr, nil
}

// GetAccountLedgerEntries lists the ledger postings for an account, most
// recent first. It first checks the account exists so a typo'd id reports
// ErrNotFound rather than an empty, indistinguishable list.
func (s *Store) GetAccountLedgerEntries(ctx context.Context, accountID uuid.UUID) ([]domain.LedgerEntry, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE account_id = $1)`, accountID).Scan(&exists); err != nil {
		return nil, fmt.Errorf("store: check account exists: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	rows, err := s.pool.Query(ctx,
		`SELECT ledger_entry_id, amount, account_id, transaction_id, created_at
		   FROM ledger_entries WHERE account_id = $1 ORDER BY created_at DESC`,
		accountID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		if err := rows.Scan(&e.LedgerEntryID, &e.Amount, &e.AccountID, &e.TransactionID, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("store: scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: list ledger entries: %w", err)
	}
	return entries, nil
}

// CreateUser inserts a user row. Registration and password hashing are out
// of the core's scope; this exists only so callers such as the integration
// tests can satisfy the users FK that accounts require.
func (s *Store) CreateUser(ctx context.Context, username, passwordHash string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (user_id, username, password_hash) VALUES ($1, $2, $3)`,
		id, username, passwordHash,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("store: create user: %w", err)
	}
	return id, nil
}
