package executor

import (
	"github.com/google/uuid"
	"github.com/punchamoorthee/ledgerops/internal/domain"
)

// Input is the normalized transfer request the executor acts on. The
// Request Normalizer (out of scope here; see the HTTP handler) is
// responsible for producing this from an authenticated, validated client
// request.
type Input struct {
	InitiatorUserID uuid.UUID
	FromAccountID   uuid.UUID
	ToAccountID     uuid.UUID
	Amount          int64
	IdempotencyKey  string
}

// Outcome enumerates the three terminal shapes Execute can return. It
// replaces the source's exception-based rollback signaling with an explicit
// value: the transactional scope commits on Succeeded and Rejected, and
// rolls back (then runs the compensating write) on SystemFault.
type Outcome int

const (
	OutcomeSucceededResult Outcome = iota
	OutcomeRejectedResult
	OutcomeSystemFault
)

// Result is the return value of Execute. Exactly one of the three shapes is
// populated, matching Outcome.
type Result struct {
	Outcome Outcome

	Succeeded *Succeeded
	Rejected  *Rejected

	// Fault is set only when Outcome == OutcomeSystemFault. It is returned as
	// an error to the caller per §4.1: SystemFailure is raised as a fault.
	Fault error
}

// Succeeded describes a committed, completed transfer. Replayed is true when
// this result was produced by the idempotency resolver finding an existing
// SUCCEEDED row rather than by this call moving money — the caller's HTTP
// adapter uses it to choose between 201 (first success) and 200 (replay).
type Succeeded struct {
	TransactionID uuid.UUID
	Amount        int64
	FromAccountID uuid.UUID
	ToAccountID   uuid.UUID
	Payload       domain.ResponsePayload
	Replayed      bool
}

// Rejected describes a rejection: a newly committed REJECTED transaction
// (no balance change, zero ledger rows, two audit rows: ATTEMPTED +
// REJECTED), a replay of an earlier REJECTED one, or an IN_FLIGHT /
// PREVIOUS_ATTEMPT_FAILED response for an existing row. The last two kinds
// write nothing.
type Rejected struct {
	TransactionID uuid.UUID
	Reason        string
	Payload       domain.ResponsePayload
}
