package executor

import (
	"errors"
	"fmt"
)

// Input faults: pre-transaction, never admitted. The caller returns these
// directly without touching the database.
var (
	ErrInvalidAmount         = errors.New("INVALID_AMOUNT")
	ErrSameAccount           = errors.New("SAME_ACCOUNT")
	ErrMissingIdempotencyKey = errors.New("MISSING_IDEMPOTENCY_KEY")
)

// Domain rejection reasons, in the fixed priority order the eligibility
// checker evaluates them.
const (
	ReasonFromAccountNotFound  = "FROM_ACCOUNT_NOT_FOUND"
	ReasonFromAccountNotActive = "FROM_ACCOUNT_NOT_ACTIVE"
	ReasonToAccountNotFound    = "TO_ACCOUNT_NOT_FOUND"
	ReasonToAccountNotActive   = "TO_ACCOUNT_NOT_ACTIVE"
	ReasonInsufficientFunds    = "INSUFFICIENT_FUNDS"
)

// Idempotent replay conditions: domain responses, not faults.
const (
	ReasonInFlight              = "IN_FLIGHT"
	ReasonPreviousAttemptFailed = "PREVIOUS_ATTEMPT_FAILED"
)

// System failure reasons.
const (
	ReasonCreditFailedRollback = "CREDIT_FAILED_ROLLBACK"
	ReasonUnknownFault         = "UNKNOWN_FAULT"
)

// SystemFault wraps a system-failure reason and its underlying cause so the
// compensating writer and the caller can classify it. It satisfies error
// and unwraps to the underlying cause.
type SystemFault struct {
	Reason string
	Cause  error
}

func (f *SystemFault) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("TRANSFER_SYSTEM_FAILURE: %s: %v", f.Reason, f.Cause)
	}
	return fmt.Sprintf("TRANSFER_SYSTEM_FAILURE: %s", f.Reason)
}

func (f *SystemFault) Unwrap() error { return f.Cause }

func newFault(reason string, cause error) *SystemFault {
	return &SystemFault{Reason: reason, Cause: cause}
}
