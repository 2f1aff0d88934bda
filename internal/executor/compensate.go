package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/punchamoorthee/ledgerops/internal/domain"
)

// systemFault builds the OutcomeSystemFault result and, as a side effect,
// runs the failure translator's compensating write (§4.7) in a second,
// independent database transaction started after the original rolled back.
// txID is nil for faults detected before admission (e.g. the idempotency
// lookup itself failed); the compensating writer then uses a fresh id.
// Because the original transaction has already been rolled back, an
// admitted row is gone as well, so both cases normally take the insert
// branch of compensate.
func (e *TransferExecutor) systemFault(ctx context.Context, txID *uuid.UUID, in Input, reason string, cause error) *Result {
	fault := newFault(reason, cause)

	compID := uuid.New()
	if txID != nil {
		compID = *txID
	}

	if err := e.compensate(ctx, compID, in, reason); err != nil {
		// The compensating write itself failed. Its error is logged here and
		// not returned; the caller still receives the original SystemFault,
		// so it sees TRANSFER_SYSTEM_FAILURE with the original reason.
		if e.log != nil {
			e.log.Error(ctx, "compensating write failed",
				"transaction_id", compID, "reason", reason, "compensation_error", err)
		}
	} else if e.log != nil {
		e.log.Warn(ctx, "transfer system fault, compensating write committed",
			"transaction_id", compID, "reason", reason)
	}

	return &Result{Outcome: OutcomeSystemFault, Fault: fault}
}

// compensate performs the §4.7 write: verify the transaction id's current
// state, then insert a FAILED row when none exists, or update a row that is
// still PENDING to FAILED. A row already in a terminal state is left as is.
func (e *TransferExecutor) compensate(ctx context.Context, transactionID uuid.UUID, in Input, reason string) error {
	tx, err := e.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("compensating tx begin failed: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	payload := domain.NewFailedPayload(transactionID, reason)
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	var currentStatus domain.TransactionStatus
	err = tx.QueryRow(ctx, `SELECT status FROM transactions WHERE transaction_id = $1`, transactionID).Scan(&currentStatus)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		if err := admit(ctx, tx, transactionID, in); err != nil {
			return fmt.Errorf("compensating insert failed: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`UPDATE transactions SET status = 'FAILED', failure_reason = $1, response_payload = $2 WHERE transaction_id = $3`,
			reason, body, transactionID,
		); err != nil {
			return fmt.Errorf("compensating mark-failed failed: %w", err)
		}
	case err != nil:
		return fmt.Errorf("compensating lookup failed: %w", err)
	case currentStatus == domain.TransactionPending:
		if _, err := tx.Exec(ctx,
			`UPDATE transactions SET status = 'FAILED', failure_reason = $1, response_payload = $2 WHERE transaction_id = $3`,
			reason, body, transactionID,
		); err != nil {
			return fmt.Errorf("compensating update failed: %w", err)
		}
	default:
		// Already terminal (a concurrent attempt resolved it first); nothing
		// to compensate.
		if err := tx.Commit(ctx); err != nil {
			return err
		}
		committed = true
		return nil
	}

	if err := insertAudit(ctx, tx, domain.ActorSystem, domain.SystemActorID, transactionID, domain.OutcomeFailed, &reason); err != nil {
		return fmt.Errorf("compensating audit insert failed: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("compensating tx commit failed: %w", err)
	}
	committed = true
	return nil
}
