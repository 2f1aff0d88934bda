//go:build integration

// These tests exercise the read-side store against a real Postgres. They
// are gated behind the integration build tag because, unlike the executor's
// fake-Querier unit tests, there is no seam narrow enough to fake pgxpool.Pool
// itself.
package store

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/ledgerops/internal/store/migrate"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("DB_SOURCE")
	if dsn == "" {
		t.Skip("DB_SOURCE not set, skipping integration test")
	}

	ctx := context.Background()
	require.NoError(t, migrate.Up(ctx, dsn))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return New(pool)
}

func TestStore_CreateAndGetAccount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	userID, err := s.CreateUser(ctx, "alice-"+uuid.New().String(), "hash")
	require.NoError(t, err)

	accountID, err := s.CreateAccount(ctx, userID)
	require.NoError(t, err)

	acc, err := s.GetAccount(ctx, accountID)
	require.NoError(t, err)
	require.Equal(t, accountID, acc.AccountID)
	require.EqualValues(t, 0, acc.CurrentBalance)
}

func TestStore_GetAccount_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetAccount(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestStore_GetAccountLedgerEntries_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetAccountLedgerEntries(context.Background(), uuid.New())
	require.ErrorIs(t, err, ErrNotFound)
}
