// Package executor implements the Transfer Executor: the transactional
// state machine that coordinates a single money transfer across the
// accounts, transactions, ledger_entries, and audit_logs tables. It is the
// core described by the specification's §4 — idempotency resolution,
// admission, eligibility checking, conditional balance mutation, ledger and
// terminal writes, and the failure translator's compensating write.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/punchamoorthee/ledgerops/internal/domain"
	"github.com/punchamoorthee/ledgerops/internal/logging"
	"github.com/punchamoorthee/ledgerops/internal/metrics"
)

// maxAdmissionAttempts bounds the re-entry into idempotency resolution
// after a losing race on the admission INSERT's unique partial index. The
// spec calls for exactly one retry.
const maxAdmissionAttempts = 2

const pgUniqueViolation = "23505"

// TransferExecutor runs ProcessTransfer's job under a different name: the
// spec treats the entry-point name as an implementation choice (§9, open
// question), so this repository calls it Execute.
type TransferExecutor struct {
	db      Beginner
	log     logging.Logger
	metrics *metrics.Executor
}

// NewTransferExecutor builds a TransferExecutor over a transaction
// beginner. log and m may be nil; a nil logger and nil metrics are treated
// as no-ops so unit tests can omit them.
func NewTransferExecutor(db Beginner, log logging.Logger, m *metrics.Executor) *TransferExecutor {
	return &TransferExecutor{db: db, log: log, metrics: m}
}

// Execute runs one transfer to a terminal outcome. It never returns a
// non-nil error for a domain rejection or a successful replay; a non-nil
// error means an input fault (checked before any database work) or that
// result.Outcome == OutcomeSystemFault, in which case the error is also
// available as result.Fault.
func (e *TransferExecutor) Execute(ctx context.Context, in Input) (*Result, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}

	var result *Result
	for attempt := 0; attempt < maxAdmissionAttempts; attempt++ {
		var retry bool
		result, retry = e.attempt(ctx, in)
		if !retry {
			break
		}
	}
	if result == nil {
		// Every admission attempt lost its race; out of scope for a bounded
		// single retry, so this surfaces as a fault rather than recursing.
		result = e.systemFault(ctx, nil, in, ReasonUnknownFault, errors.New("admission retries exhausted"))
	}
	e.observe(result)
	return result, resultError(result)
}

func validateInput(in Input) error {
	if in.Amount <= 0 {
		return ErrInvalidAmount
	}
	if in.FromAccountID == in.ToAccountID {
		return ErrSameAccount
	}
	if in.IdempotencyKey == "" {
		return ErrMissingIdempotencyKey
	}
	return nil
}

func resultError(r *Result) error {
	if r.Outcome == OutcomeSystemFault {
		return r.Fault
	}
	return nil
}

func (e *TransferExecutor) observe(r *Result) {
	if e.metrics == nil {
		return
	}
	switch r.Outcome {
	case OutcomeSucceededResult:
		e.metrics.OutcomesTotal.WithLabelValues("succeeded", "").Inc()
	case OutcomeRejectedResult:
		e.metrics.OutcomesTotal.WithLabelValues("rejected", r.Rejected.Reason).Inc()
	case OutcomeSystemFault:
		reason := ReasonUnknownFault
		var sf *SystemFault
		if errors.As(r.Fault, &sf) {
			reason = sf.Reason
		}
		e.metrics.OutcomesTotal.WithLabelValues("system_fault", reason).Inc()
	}
}

// attempt runs one pass of §4.2-§4.6 inside a single database transaction.
// retry is true only when the admission INSERT lost a race against a
// concurrent admission for the same key and the caller should re-resolve
// idempotency in a fresh transaction.
func (e *TransferExecutor) attempt(ctx context.Context, in Input) (result *Result, retry bool) {
	transactionID := uuid.New()

	tx, err := e.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return e.systemFault(ctx, nil, in, ReasonUnknownFault, err), false
	}
	finalized := false
	defer func() {
		if !finalized {
			_ = tx.Rollback(ctx)
		}
	}()

	// fail rolls back the original transaction (per §4.7, the compensating
	// write must run in a fresh transaction started *after* the rollback,
	// never while the original still holds its row locks) and then runs the
	// failure translator.
	fail := func(txID *uuid.UUID, reason string, cause error) (*Result, bool) {
		_ = tx.Rollback(ctx)
		finalized = true
		return e.systemFault(ctx, txID, in, reason, cause), false
	}
	commit := func(res *Result) (*Result, bool) {
		if err := tx.Commit(ctx); err != nil {
			return fail(&transactionID, ReasonUnknownFault, err)
		}
		finalized = true
		return res, false
	}

	// §4.2 Idempotency Resolver.
	existing, found, err := lookupIdempotent(ctx, tx, in)
	if err != nil {
		return fail(nil, ReasonUnknownFault, err)
	}
	if found {
		res, ferr := e.replay(ctx, tx, existing)
		if ferr != nil {
			return fail(nil, ReasonUnknownFault, ferr)
		}
		return commit(res)
	}

	// §4.3 Admission: insert PENDING row + ATTEMPTED audit.
	if err := admit(ctx, tx, transactionID, in); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// A concurrent admission won the race; re-resolve idempotency in a
			// fresh transaction rather than retrying inside this aborted one.
			_ = tx.Rollback(ctx)
			finalized = true
			return nil, true
		}
		return fail(nil, ReasonUnknownFault, err)
	}
	if err := insertAudit(ctx, tx, domain.ActorUser, in.InitiatorUserID.String(), transactionID, domain.OutcomeAttempted, nil); err != nil {
		return fail(&transactionID, ReasonUnknownFault, err)
	}

	// §4.4 Eligibility Checker.
	reason, err := checkEligibility(ctx, tx, in)
	if err != nil {
		return fail(&transactionID, ReasonUnknownFault, err)
	}
	if reason != "" {
		res, ferr := e.reject(ctx, tx, transactionID, in, reason)
		if ferr != nil {
			return fail(&transactionID, ReasonUnknownFault, ferr)
		}
		return commit(res)
	}

	// §4.5 Balance Mutator: debit always precedes credit.
	debited, err := debit(ctx, tx, in, e.metrics)
	if err != nil {
		return fail(&transactionID, ReasonUnknownFault, err)
	}
	if !debited {
		res, ferr := e.reject(ctx, tx, transactionID, in, ReasonInsufficientFunds)
		if ferr != nil {
			return fail(&transactionID, ReasonUnknownFault, ferr)
		}
		return commit(res)
	}

	credited, err := credit(ctx, tx, in, e.metrics)
	if err != nil {
		return fail(&transactionID, ReasonUnknownFault, err)
	}
	if !credited {
		// The to-account was ACTIVE at §4.4 and no longer is: a system-failure
		// condition, not a domain rejection.
		return fail(&transactionID, ReasonCreditFailedRollback, nil)
	}

	// §4.6 Ledger & Terminal Writes.
	res, err := e.succeed(ctx, tx, transactionID, in)
	if err != nil {
		return fail(&transactionID, ReasonUnknownFault, err)
	}
	return commit(res)
}

type storedTransaction struct {
	transactionID uuid.UUID
	status        domain.TransactionStatus
	payload       []byte
}

func lookupIdempotent(ctx context.Context, q Querier, in Input) (storedTransaction, bool, error) {
	var st storedTransaction
	var payload []byte
	err := q.QueryRow(ctx,
		`SELECT transaction_id, status, response_payload
		   FROM transactions
		  WHERE initiator_user_id = $1 AND idempotency_key = $2 AND type = 'TRANSFER'`,
		in.InitiatorUserID, in.IdempotencyKey,
	).Scan(&st.transactionID, &st.status, &payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return storedTransaction{}, false, nil
		}
		return storedTransaction{}, false, err
	}
	st.payload = payload
	return st, true, nil
}

// replay handles the three possibilities §4.2 defines for a found row.
func (e *TransferExecutor) replay(ctx context.Context, q Querier, st storedTransaction) (*Result, error) {
	switch st.status {
	case domain.TransactionSucceeded, domain.TransactionRejected:
		var payload domain.ResponsePayload
		if len(st.payload) > 0 {
			if err := json.Unmarshal(st.payload, &payload); err != nil {
				return nil, err
			}
		}
		if st.status == domain.TransactionSucceeded {
			return &Result{
				Outcome: OutcomeSucceededResult,
				Succeeded: &Succeeded{
					TransactionID: st.transactionID,
					Amount:        payload.Amount,
					FromAccountID: derefUUID(payload.FromAccountID),
					ToAccountID:   derefUUID(payload.ToAccountID),
					Payload:       payload,
					Replayed:      true,
				},
			}, nil
		}
		return &Result{
			Outcome: OutcomeRejectedResult,
			Rejected: &Rejected{
				TransactionID: st.transactionID,
				Reason:        payload.Reason,
				Payload:       payload,
			},
		}, nil
	case domain.TransactionPending:
		payload := domain.NewRejectedPayload(st.transactionID, ReasonInFlight)
		return &Result{
			Outcome:  OutcomeRejectedResult,
			Rejected: &Rejected{TransactionID: st.transactionID, Reason: ReasonInFlight, Payload: payload},
		}, nil
	default: // FAILED
		payload := domain.NewRejectedPayload(st.transactionID, ReasonPreviousAttemptFailed)
		return &Result{
			Outcome:  OutcomeRejectedResult,
			Rejected: &Rejected{TransactionID: st.transactionID, Reason: ReasonPreviousAttemptFailed, Payload: payload},
		}, nil
	}
}

func admit(ctx context.Context, q Querier, transactionID uuid.UUID, in Input) error {
	_, err := q.Exec(ctx,
		`INSERT INTO transactions
		   (transaction_id, status, type, initiator_user_id, from_account_id, to_account_id, amount, idempotency_key, created_at)
		 VALUES ($1, 'PENDING', 'TRANSFER', $2, $3, $4, $5, $6, $7)`,
		transactionID, in.InitiatorUserID, in.FromAccountID, in.ToAccountID, in.Amount, in.IdempotencyKey, time.Now().UTC(),
	)
	return err
}

func insertAudit(ctx context.Context, q Querier, actorType domain.AuditActorType, actorID string, transactionID uuid.UUID, outcome domain.AuditOutcome, reason *string) error {
	targetID := transactionID.String()
	_, err := q.Exec(ctx,
		`INSERT INTO audit_logs
		   (audit_log_id, actor_type, actor_id, action, target_type, target_id, outcome, reason, created_at)
		 VALUES ($1, $2, $3, $4, 'TRANSACTION', $5, $6, $7, $8)`,
		uuid.New(), actorType, actorID, domain.ActionTransfer, targetID, outcome, reason, time.Now().UTC(),
	)
	return err
}

// checkEligibility returns "" when both accounts are eligible, or the first
// matching rejection reason in fixed priority order.
func checkEligibility(ctx context.Context, q Querier, in Input) (string, error) {
	fromStatus, err := accountStatus(ctx, q, in.FromAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReasonFromAccountNotFound, nil
		}
		return "", err
	}
	if fromStatus != domain.AccountActive {
		return ReasonFromAccountNotActive, nil
	}

	toStatus, err := accountStatus(ctx, q, in.ToAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ReasonToAccountNotFound, nil
		}
		return "", err
	}
	if toStatus != domain.AccountActive {
		return ReasonToAccountNotActive, nil
	}

	return "", nil
}

func accountStatus(ctx context.Context, q Querier, accountID uuid.UUID) (domain.AccountStatus, error) {
	var status domain.AccountStatus
	err := q.QueryRow(ctx, `SELECT status FROM accounts WHERE account_id = $1`, accountID).Scan(&status)
	return status, err
}

// debit performs the conditional debit UPDATE and reports whether it
// affected a row. A rowcount of zero means the funds check (or a
// concurrent status flip) failed; this is the only place the funds check
// happens, per §4.5 — a prior SELECT would be a TOCTOU bug.
func debit(ctx context.Context, q Querier, in Input, m *metrics.Executor) (bool, error) {
	start := time.Now()
	tag, err := q.Exec(ctx,
		`UPDATE accounts
		    SET current_balance = current_balance - $1
		  WHERE account_id = $2 AND status = 'ACTIVE' AND current_balance >= $1`,
		in.Amount, in.FromAccountID,
	)
	observeMutation(m, "debit", start)
	if err != nil {
		return false, err
	}
	return rowsAffected(tag) == 1, nil
}

// credit performs the conditional credit UPDATE. A rowcount of zero here is
// a system-failure condition, not a domain rejection, since eligibility
// already confirmed the to-account was ACTIVE.
func credit(ctx context.Context, q Querier, in Input, m *metrics.Executor) (bool, error) {
	start := time.Now()
	tag, err := q.Exec(ctx,
		`UPDATE accounts
		    SET current_balance = current_balance + $1
		  WHERE account_id = $2 AND status = 'ACTIVE'`,
		in.Amount, in.ToAccountID,
	)
	observeMutation(m, "credit", start)
	if err != nil {
		return false, err
	}
	return rowsAffected(tag) == 1, nil
}

func observeMutation(m *metrics.Executor, step string, start time.Time) {
	if m == nil {
		return
	}
	m.BalanceMutationDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}

// reject takes the rejection path shared by eligibility and
// insufficient-funds failures: update the transaction to REJECTED, store
// the payload, and append the terminal audit row.
func (e *TransferExecutor) reject(ctx context.Context, q Querier, transactionID uuid.UUID, in Input, reason string) (*Result, error) {
	payload := domain.NewRejectedPayload(transactionID, reason)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx,
		`UPDATE transactions SET status = 'REJECTED', failure_reason = $1, response_payload = $2 WHERE transaction_id = $3`,
		reason, body, transactionID,
	); err != nil {
		return nil, err
	}
	if err := insertAudit(ctx, q, domain.ActorUser, in.InitiatorUserID.String(), transactionID, domain.OutcomeRejected, &reason); err != nil {
		return nil, err
	}
	return &Result{
		Outcome:  OutcomeRejectedResult,
		Rejected: &Rejected{TransactionID: transactionID, Reason: reason, Payload: payload},
	}, nil
}

// succeed writes the two ledger entries, the SUCCEEDED transaction row, and
// the terminal SUCCEEDED audit row.
func (e *TransferExecutor) succeed(ctx context.Context, q Querier, transactionID uuid.UUID, in Input) (*Result, error) {
	now := time.Now().UTC()
	if _, err := q.Exec(ctx,
		`INSERT INTO ledger_entries (ledger_entry_id, amount, account_id, transaction_id, created_at)
		 VALUES ($1, $2, $3, $4, $5), ($6, $7, $8, $4, $5)`,
		uuid.New(), -in.Amount, in.FromAccountID,
		transactionID, now,
		uuid.New(), in.Amount, in.ToAccountID,
	); err != nil {
		return nil, err
	}

	payload := domain.NewSucceededPayload(transactionID, in.FromAccountID, in.ToAccountID, in.Amount)
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	if _, err := q.Exec(ctx,
		`UPDATE transactions SET status = 'SUCCEEDED', response_payload = $1 WHERE transaction_id = $2`,
		body, transactionID,
	); err != nil {
		return nil, err
	}
	if err := insertAudit(ctx, q, domain.ActorUser, in.InitiatorUserID.String(), transactionID, domain.OutcomeSucceeded, nil); err != nil {
		return nil, err
	}

	return &Result{
		Outcome: OutcomeSucceededResult,
		Succeeded: &Succeeded{
			TransactionID: transactionID,
			Amount:        in.Amount,
			FromAccountID: in.FromAccountID,
			ToAccountID:   in.ToAccountID,
			Payload:       payload,
		},
	}, nil
}

func derefUUID(u *uuid.UUID) uuid.UUID {
	if u == nil {
		return uuid.Nil
	}
	return *u
}
