package banking

import (
	"context"
	"time"
)

// BankHandle identifies a specific bank instance, the ledger snapshot
// transactions execute against. Bank identities increase monotonically as
// the ledger rotates from one slot to the next.
type BankHandle interface {
	Identity() Identifier
	Slot() uint64
}

// LeaderBankNotifier is the external handle through which the banking
// stage learns about the currently in-progress bank, if any. Implemented
// by the proof-of-history/replay layer; the banking stage only ever reads
// from it.
type LeaderBankNotifier interface {
	// WaitForInProgress blocks up to timeout for a bank to become the
	// active, writable in-progress bank. Returns ok=false on timeout.
	WaitForInProgress(ctx context.Context, timeout time.Duration) (bank BankHandle, ok bool)
}

// PohRecorder exposes the leader-schedule queries the decision maker needs,
// isolated behind this interface so decision logic can be tested without
// a real proof-of-history clock.
type PohRecorder interface {
	// BankStart returns the currently active producing bank, if this node
	// is leader right now.
	BankStart() (bank BankHandle, ok bool)
	// WouldBeLeaderShortly reports whether this node will lead within one slot.
	WouldBeLeaderShortly() bool
	// WouldBeLeader reports whether this node will lead within HoldSlotOffset slots.
	WouldBeLeader() bool
	// LeaderPubkeyAfter returns the identity scheduled to lead n slots from now.
	LeaderPubkeyAfter(n uint64) (leader Identifier, ok bool)
	// SelfIdentity returns this node's own identity.
	SelfIdentity() Identifier
}

// CommitResults carries whatever bookkeeping the bank wants to hand back
// after committing a batch of transactions. The banking stage treats it as
// opaque: the committer discards it and passes nothing on.
type CommitResults struct {
	// CommittedCount is the number of transactions actually committed.
	CommittedCount int
}

// Bank is the external ledger state machine the committer writes into.
type Bank interface {
	BankHandle
	// CommitTransactions applies a batch of already-executed transactions
	// and their outcomes to ledger state.
	CommitTransactions(batch ConsumeWork, outcomes []Outcome) (CommitResults, error)
}

// ReplayVoteSender forwards committed vote instructions into the consensus
// replay path.
type ReplayVoteSender interface {
	Send(ctx context.Context, voteTx Transaction) error
}

// TransactionStatusSender emits a batch of transaction statuses for
// downstream consumers (RPC, indexers). Configuring one is optional; when
// absent the committer skips status emission entirely.
type TransactionStatusSender interface {
	Send(ctx context.Context, batch []TransactionStatus) error
}

// BalanceCollector supplies pre/post account balances for a committed
// transaction, used to enrich emitted statuses. Optional; when absent the
// committer emits statuses without balance information.
type BalanceCollector interface {
	Balances(bank BankHandle, tx Transaction) (pre, post []uint64, ok bool)
}

// TransactionStatus is one entry of a transaction-status batch.
type TransactionStatus struct {
	Outcome       Outcome
	Logs          []string
	ComputeUnits  uint64
	LoadedSize    uint64
	RunningIndex  uint64
	PreBalances   []uint64
	PostBalances  []uint64
}

// PrioritizationFeeCache tracks recently observed prioritization fees so
// the scheduler and RPC layer can estimate a reasonable fee for new
// transactions. Reads vastly outnumber writes.
type PrioritizationFeeCache interface {
	Update(committed []Transaction)
}
