package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/punchamoorthee/ledgerops/internal/domain"
)

// fakeAccount and fakeTransaction model just enough of the schema for the
// executor's SQL steps to operate against, without a live Postgres.
type fakeAccount struct {
	status  domain.AccountStatus
	balance int64
}

type fakeTransaction struct {
	id              uuid.UUID
	status          domain.TransactionStatus
	initiatorUserID uuid.UUID
	idempotencyKey  string
	payload         []byte
}

type fakeAudit struct {
	actorType domain.AuditActorType
	actorID   string
	action    string
	targetID  string
	outcome   domain.AuditOutcome
	reason    *string
}

type fakeLedgerEntry struct {
	accountID     uuid.UUID
	transactionID uuid.UUID
	amount        int64
}

// fakeStore is the shared table state a fakeBeginner's transactions read
// and mutate. flipStatusAfterDebit lets a test inject the race §4.5 guards
// against: the to-account's status changing between eligibility and credit.
type fakeStore struct {
	accounts     map[uuid.UUID]*fakeAccount
	transactions map[uuid.UUID]*fakeTransaction
	audits       []fakeAudit
	ledger       []fakeLedgerEntry

	flipStatusAfterDebit *uuid.UUID
	flippedStatus        domain.AccountStatus
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     map[uuid.UUID]*fakeAccount{},
		transactions: map[uuid.UUID]*fakeTransaction{},
	}
}

type fakeBeginner struct {
	store    *fakeStore
	beginErr error
}

func (b *fakeBeginner) BeginTx(ctx context.Context, opts pgx.TxOptions) (Tx, error) {
	if b.beginErr != nil {
		return nil, b.beginErr
	}
	return &fakeTx{store: b.store}, nil
}

type undoFunc func()

// fakeTx applies mutations to the shared store immediately and unwinds them
// on Rollback, approximating a real transaction's isolation for the
// executor's purposes.
type fakeTx struct {
	store *fakeStore
	undo  []undoFunc
	done  bool
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch {
	case strings.Contains(sql, "INSERT INTO transactions"):
		return t.insertTransaction(args)
	case strings.Contains(sql, "INSERT INTO audit_logs"):
		return t.insertAudit(args)
	case strings.Contains(sql, "INSERT INTO ledger_entries"):
		return t.insertLedgerEntries(args)
	case strings.Contains(sql, "SET status = 'REJECTED'"):
		return t.updateTerminal(args, domain.TransactionRejected)
	case strings.Contains(sql, "SET status = 'FAILED'"):
		return t.updateTerminal(args, domain.TransactionFailed)
	case strings.Contains(sql, "SET status = 'SUCCEEDED'"):
		return t.updateSucceeded(args)
	case strings.Contains(sql, "current_balance - $1"):
		return t.debit(args)
	case strings.Contains(sql, "current_balance + $1"):
		return t.credit(args)
	}
	return pgconn.CommandTag{}, fmt.Errorf("fakeTx.Exec: unhandled statement %q", sql)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	switch {
	case strings.Contains(sql, "SELECT transaction_id, status, response_payload"):
		initiator := args[0].(uuid.UUID)
		key := args[1].(string)
		for _, tr := range t.store.transactions {
			if tr.initiatorUserID == initiator && tr.idempotencyKey == key {
				return &fakeRow{values: []any{tr.id, tr.status, tr.payload}}
			}
		}
		return &fakeRow{err: pgx.ErrNoRows}
	case strings.Contains(sql, "SELECT status FROM accounts"):
		id := args[0].(uuid.UUID)
		acc, ok := t.store.accounts[id]
		if !ok {
			return &fakeRow{err: pgx.ErrNoRows}
		}
		return &fakeRow{values: []any{acc.status}}
	case strings.Contains(sql, "SELECT status FROM transactions"):
		id := args[0].(uuid.UUID)
		tr, ok := t.store.transactions[id]
		if !ok {
			return &fakeRow{err: pgx.ErrNoRows}
		}
		return &fakeRow{values: []any{tr.status}}
	}
	return &fakeRow{err: fmt.Errorf("fakeTx.QueryRow: unhandled statement %q", sql)}
}

func (t *fakeTx) Commit(ctx context.Context) error {
	t.done = true
	t.undo = nil
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.done = true
	return nil
}

func (t *fakeTx) insertTransaction(args []any) (pgconn.CommandTag, error) {
	id := args[0].(uuid.UUID)
	initiator := args[1].(uuid.UUID)
	key := args[5].(string)
	for _, tr := range t.store.transactions {
		if tr.initiatorUserID == initiator && tr.idempotencyKey == key {
			return pgconn.CommandTag{}, &pgconn.PgError{Code: "23505", ConstraintName: "transactions_transfer_idempotency_key_idx"}
		}
	}
	tr := &fakeTransaction{id: id, status: domain.TransactionPending, initiatorUserID: initiator, idempotencyKey: key}
	t.store.transactions[id] = tr
	t.undo = append(t.undo, func() { delete(t.store.transactions, id) })
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) insertAudit(args []any) (pgconn.CommandTag, error) {
	a := fakeAudit{
		actorType: args[1].(domain.AuditActorType),
		actorID:   args[2].(string),
		action:    args[3].(string),
		targetID:  args[4].(string),
		outcome:   args[5].(domain.AuditOutcome),
	}
	if r, ok := args[6].(*string); ok {
		a.reason = r
	}
	t.store.audits = append(t.store.audits, a)
	idx := len(t.store.audits) - 1
	t.undo = append(t.undo, func() { t.store.audits = append(t.store.audits[:idx], t.store.audits[idx+1:]...) })
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

func (t *fakeTx) insertLedgerEntries(args []any) (pgconn.CommandTag, error) {
	entries := []fakeLedgerEntry{
		{accountID: args[2].(uuid.UUID), transactionID: args[3].(uuid.UUID), amount: args[1].(int64)},
		{accountID: args[7].(uuid.UUID), transactionID: args[3].(uuid.UUID), amount: args[6].(int64)},
	}
	t.store.ledger = append(t.store.ledger, entries...)
	base := len(t.store.ledger) - len(entries)
	t.undo = append(t.undo, func() { t.store.ledger = t.store.ledger[:base] })
	return pgconn.NewCommandTag("INSERT 0 2"), nil
}

func (t *fakeTx) updateTerminal(args []any, status domain.TransactionStatus) (pgconn.CommandTag, error) {
	transactionID := args[2].(uuid.UUID)
	tr, ok := t.store.transactions[transactionID]
	if !ok {
		return pgconn.CommandTag{}, errors.New("fakeTx: no such transaction")
	}
	prev := tr.status
	prevPayload := tr.payload
	tr.status = status
	tr.payload = args[1].([]byte)
	t.undo = append(t.undo, func() { tr.status = prev; tr.payload = prevPayload })
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *fakeTx) updateSucceeded(args []any) (pgconn.CommandTag, error) {
	transactionID := args[1].(uuid.UUID)
	tr, ok := t.store.transactions[transactionID]
	if !ok {
		return pgconn.CommandTag{}, errors.New("fakeTx: no such transaction")
	}
	prev := tr.status
	prevPayload := tr.payload
	tr.status = domain.TransactionSucceeded
	tr.payload = args[0].([]byte)
	t.undo = append(t.undo, func() { tr.status = prev; tr.payload = prevPayload })
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *fakeTx) debit(args []any) (pgconn.CommandTag, error) {
	amount := args[0].(int64)
	accountID := args[1].(uuid.UUID)
	acc, ok := t.store.accounts[accountID]
	if !ok || acc.status != domain.AccountActive || acc.balance < amount {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	acc.balance -= amount
	t.undo = append(t.undo, func() { acc.balance += amount })
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

func (t *fakeTx) credit(args []any) (pgconn.CommandTag, error) {
	amount := args[0].(int64)
	accountID := args[1].(uuid.UUID)
	if t.store.flipStatusAfterDebit != nil && *t.store.flipStatusAfterDebit == accountID {
		acc := t.store.accounts[accountID]
		prev := acc.status
		acc.status = t.store.flippedStatus
		t.undo = append(t.undo, func() { acc.status = prev })
	}
	acc, ok := t.store.accounts[accountID]
	if !ok || acc.status != domain.AccountActive {
		return pgconn.NewCommandTag("UPDATE 0"), nil
	}
	acc.balance += amount
	t.undo = append(t.undo, func() { acc.balance -= amount })
	return pgconn.NewCommandTag("UPDATE 1"), nil
}

// fakeRow adapts a scripted set of column values, or an error, to pgx.Row.
type fakeRow struct {
	values []any
	err    error
}

func (r *fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("fakeRow: expected %d scan targets, got %d", len(r.values), len(dest))
	}
	for i, d := range dest {
		if err := scanInto(d, r.values[i]); err != nil {
			return err
		}
	}
	return nil
}

func scanInto(dest, val any) error {
	switch d := dest.(type) {
	case *uuid.UUID:
		v, ok := val.(uuid.UUID)
		if !ok {
			return fmt.Errorf("fakeRow: want uuid.UUID, got %T", val)
		}
		*d = v
	case *domain.TransactionStatus:
		v, ok := val.(domain.TransactionStatus)
		if !ok {
			return fmt.Errorf("fakeRow: want domain.TransactionStatus, got %T", val)
		}
		*d = v
	case *domain.AccountStatus:
		v, ok := val.(domain.AccountStatus)
		if !ok {
			return fmt.Errorf("fakeRow: want domain.AccountStatus, got %T", val)
		}
		*d = v
	case *[]byte:
		v, _ := val.([]byte)
		*d = v
	default:
		return fmt.Errorf("fakeRow: unsupported scan target %T", dest)
	}
	return nil
}
