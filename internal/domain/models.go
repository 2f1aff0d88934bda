// Package domain defines the entities shared by the ledger's transactional
// core and its read-side store: users, accounts, transactions, ledger
// entries, and audit logs.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is one of the three literals a ledger account can hold.
type AccountStatus string

const (
	AccountActive     AccountStatus = "ACTIVE"
	AccountFrozen     AccountStatus = "FROZEN"
	AccountTerminated AccountStatus = "TERMINATED"
)

// TransactionStatus is the lifecycle state of a recorded transfer intent.
// PENDING is transient and never visible to a reader outside the executor
// on the committed path.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionSucceeded TransactionStatus = "SUCCEEDED"
	TransactionRejected  TransactionStatus = "REJECTED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// TransactionType distinguishes the three reserved transaction shapes.
// Only TRANSFER is implemented by the executor; DEPOSIT and WITHDRAWAL
// table shapes are reserved for a future core.
type TransactionType string

const (
	TransactionTransfer   TransactionType = "TRANSFER"
	TransactionDeposit    TransactionType = "DEPOSIT"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
)

// AuditActorType identifies who or what produced an audit observation.
type AuditActorType string

const (
	ActorUser    AuditActorType = "USER"
	ActorService AuditActorType = "SERVICE"
	ActorSystem  AuditActorType = "SYSTEM"
)

// AuditTargetType identifies what an audit row observes.
type AuditTargetType string

const (
	TargetAccount     AuditTargetType = "ACCOUNT"
	TargetTransaction AuditTargetType = "TRANSACTION"
	TargetSession     AuditTargetType = "SESSION"
	TargetUser        AuditTargetType = "USER"
)

// AuditOutcome is the observed result recorded by an audit row.
type AuditOutcome string

const (
	OutcomeAttempted AuditOutcome = "ATTEMPTED"
	OutcomeSucceeded AuditOutcome = "SUCCEEDED"
	OutcomeRejected  AuditOutcome = "REJECTED"
	OutcomeFailed    AuditOutcome = "FAILED"
)

// SystemActorID is the fixed actor_id used for SYSTEM-originated audit rows
// written by the failure translator.
const SystemActorID = "TRANSFER_SERVICE"

// User is an identity. The core never mutates it; it exists only as the FK
// target transactions and accounts reference.
type User struct {
	UserID       uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account is a holder of value in minor units. current_balance is a
// denormalized cache; the ledger is the source of truth.
type Account struct {
	AccountID      uuid.UUID     `json:"account_id"`
	UserID         uuid.UUID     `json:"user_id"`
	Status         AccountStatus `json:"status"`
	CurrentBalance int64         `json:"current_balance"`
	CreatedAt      time.Time     `json:"created_at"`
	FrozenAt       *time.Time    `json:"frozen_at,omitempty"`
	TerminatedAt   *time.Time    `json:"terminated_at,omitempty"`
}

// Transaction is a recorded intent to move value and its terminal outcome.
// Not to be confused with a database transaction.
type Transaction struct {
	TransactionID   uuid.UUID         `json:"transaction_id"`
	Status          TransactionStatus `json:"status"`
	Type            TransactionType   `json:"type"`
	InitiatorUserID uuid.UUID         `json:"initiator_user_id"`
	FromAccountID   *uuid.UUID        `json:"from_account_id,omitempty"`
	ToAccountID     *uuid.UUID        `json:"to_account_id,omitempty"`
	Amount          int64             `json:"amount"`
	IdempotencyKey  *string           `json:"idempotency_key,omitempty"`
	ResponsePayload []byte            `json:"-"`
	FailureReason   *string           `json:"failure_reason,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// LedgerEntry is a signed posting against an account, atomic with its
// transaction. Negative amounts are debits, positive amounts are credits.
type LedgerEntry struct {
	LedgerEntryID uuid.UUID `json:"ledger_entry_id"`
	Amount        int64     `json:"amount"`
	AccountID     uuid.UUID `json:"account_id"`
	TransactionID uuid.UUID `json:"transaction_id"`
	CreatedAt     time.Time `json:"created_at"`
}

// AuditLog is an append-only observation keyed by actor and target. Rows are
// never updated or deleted once written.
type AuditLog struct {
	AuditLogID uuid.UUID       `json:"audit_log_id"`
	ActorType  AuditActorType  `json:"actor_type"`
	ActorID    string          `json:"actor_id"`
	Action     string          `json:"action"`
	TargetType AuditTargetType `json:"target_type"`
	TargetID   *string         `json:"target_id,omitempty"`
	Outcome    AuditOutcome    `json:"outcome"`
	Reason     *string         `json:"reason,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ActionTransfer is the sole audit action this core ever records.
const ActionTransfer = "TRANSFER"
