package banking

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionFailureReason enumerates the taxonomy of non-committal outcomes
// a consume worker can report for a single transaction.
type ExecutionFailureReason string

const (
	ReasonNone                  ExecutionFailureReason = ""
	ReasonBankUnavailable       ExecutionFailureReason = "bank_unavailable"
	ReasonBankMismatch          ExecutionFailureReason = "bank_mismatch"
	ReasonAccountInUse          ExecutionFailureReason = "account_in_use"
	ReasonBlockhashNotFound     ExecutionFailureReason = "blockhash_not_found"
	ReasonBlockhashTooOld       ExecutionFailureReason = "blockhash_too_old"
	ReasonAccountLoadedTwice    ExecutionFailureReason = "account_loaded_twice"
	ReasonInstructionError      ExecutionFailureReason = "instruction_error"
	ReasonAlreadyProcessed      ExecutionFailureReason = "already_processed"
	ReasonInsufficientFunds     ExecutionFailureReason = "insufficient_funds"
	ReasonInvalidAccountForFee  ExecutionFailureReason = "invalid_account_for_fee"
	ReasonCallChainTooDeep      ExecutionFailureReason = "call_chain_too_deep"
	ReasonTooManyAccountLocks   ExecutionFailureReason = "too_many_account_locks"
	ReasonAccountNotFound       ExecutionFailureReason = "account_not_found"
	ReasonStarvationDropped     ExecutionFailureReason = "starvation_dropped"
	ReasonAccountDataTotalDrop  ExecutionFailureReason = "account_data_total_drop"
)

// retryable reports whether a transaction failing for this reason should
// be returned to the pending set for the next bank, as opposed to being
// terminally dropped.
func (r ExecutionFailureReason) retryable() bool {
	switch r {
	case ReasonAccountInUse, ReasonBlockhashNotFound, ReasonBankUnavailable, ReasonBankMismatch:
		return true
	default:
		return false
	}
}

// OutcomeKind enumerates the three shapes a per-transaction outcome can take.
type OutcomeKind int

const (
	OutcomeCommitted OutcomeKind = iota
	OutcomeRetryable
	OutcomeDropped
)

// Outcome is the per-index result of attempting to execute one transaction
// within a ConsumeWork batch.
type Outcome struct {
	Kind OutcomeKind

	// Populated when Kind == OutcomeCommitted.
	UsedComputeUnits uint64
	LoadedSize       uint64
	Logs             []string

	// Populated when Kind is Retryable or Dropped.
	Reason ExecutionFailureReason
}

// Committed builds a committed outcome. logs is whatever program log lines
// the executor captured for the transaction; it may be nil.
func Committed(usedCU, loadedSize uint64, logs []string) Outcome {
	return Outcome{Kind: OutcomeCommitted, UsedComputeUnits: usedCU, LoadedSize: loadedSize, Logs: logs}
}

func Retryable(reason ExecutionFailureReason) Outcome {
	return Outcome{Kind: OutcomeRetryable, Reason: reason}
}

func Dropped(reason ExecutionFailureReason) Outcome {
	return Outcome{Kind: OutcomeDropped, Reason: reason}
}

// Entry pairs a transaction with its admitted cost, as carried inside a
// ConsumeWork batch.
type Entry struct {
	Packet  Packet
	Cost    TransactionCost
	Retries int
}

// ConsumeWork is a batch of admitted transactions dispatched to a single
// worker, all targeting the same bank. RequestID is an opaque per-batch
// identifier threaded through logs and traces so a batch's admission,
// execution, and commit can be correlated without relying on SequenceID
// being unique across scheduler restarts.
type ConsumeWork struct {
	SequenceID   uint64
	RequestID    uuid.UUID
	TargetBank   Identifier
	Entries      []Entry
	DispatchedAt time.Time
}

// FinishedConsumeWork is a ConsumeWork batch annotated with the outcome of
// attempting to execute it, one outcome per entry in the same order.
type FinishedConsumeWork struct {
	Work     ConsumeWork
	Outcomes []Outcome
}
