package domain

import "github.com/google/uuid"

// PayloadVersion is bumped whenever ResponsePayload's wire shape changes.
// The idempotency resolver stores and replays this struct verbatim, so a
// version bump must stay backward-readable for rows written under the
// previous version.
const PayloadVersion = 1

// ResponsePayload is the transaction's stored, replayable response. Its
// field order is fixed by declaration so json.Marshal produces byte-identical
// output across calls and across process restarts, which is what makes
// idempotent replay byte-equal per spec.
type ResponsePayload struct {
	Version       int               `json:"version"`
	Success       bool              `json:"success"`
	TransactionID uuid.UUID         `json:"transactionId"`
	Status        TransactionStatus `json:"status"`
	Reason        string            `json:"reason,omitempty"`
	FromAccountID *uuid.UUID        `json:"fromAccountId,omitempty"`
	ToAccountID   *uuid.UUID        `json:"toAccountId,omitempty"`
	Amount        int64             `json:"amount,omitempty"`
}

// NewSucceededPayload builds the payload stored and returned for a SUCCEEDED
// transfer.
func NewSucceededPayload(transactionID, from, to uuid.UUID, amount int64) ResponsePayload {
	return ResponsePayload{
		Version:       PayloadVersion,
		Success:       true,
		TransactionID: transactionID,
		Status:        TransactionSucceeded,
		FromAccountID: &from,
		ToAccountID:   &to,
		Amount:        amount,
	}
}

// NewRejectedPayload builds the payload stored and returned for a REJECTED
// transfer.
func NewRejectedPayload(transactionID uuid.UUID, reason string) ResponsePayload {
	return ResponsePayload{
		Version:       PayloadVersion,
		Success:       false,
		TransactionID: transactionID,
		Status:        TransactionRejected,
		Reason:        reason,
	}
}

// NewFailedPayload builds the payload stored for a FAILED transaction's
// compensating write. It is never replayed by the idempotency resolver
// (§4.2 only replays SUCCEEDED/REJECTED) but is kept for observability
// parity with the other two terminal payloads.
func NewFailedPayload(transactionID uuid.UUID, reason string) ResponsePayload {
	return ResponsePayload{
		Version:       PayloadVersion,
		Success:       false,
		TransactionID: transactionID,
		Status:        TransactionFailed,
		Reason:        reason,
	}
}
