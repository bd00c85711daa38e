package cost

import (
	"context"
	"sync"

	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module"
)

// Limits are the five ceilings a Tracker enforces, sourced from module/config.
type Limits struct {
	MaxBlockCU         uint64
	MaxVoteCU          uint64
	MaxAccountCU       uint64
	MaxAccountDataBlock uint64
	MaxAccountDataTotal uint64
}

// Tracker enforces the per-bank resource ceilings against which every
// admitted transaction is charged. All mutations are serialized behind a
// single mutex; callers must never hold it across I/O, execution, or
// deserialization — only across TryAdd or Reconcile themselves.
type Tracker struct {
	mu     sync.Mutex
	limits Limits

	blockCost        uint64
	voteCost         uint64
	accountDataBlock uint64
	accountDataTotal uint64
	accountCost      map[banking.Identifier]uint64

	// Tracer traces admission spans around TryAdd. Left nil, it defaults
	// to module.NoopTracer.
	Tracer module.Tracer
}

// NewTracker creates an empty Tracker for a freshly installed bank.
func NewTracker(limits Limits) *Tracker {
	return &Tracker{
		limits:      limits,
		accountCost: make(map[banking.Identifier]uint64),
	}
}

func (t *Tracker) tracer() module.Tracer {
	if t.Tracer == nil {
		return module.NoopTracer{}
	}
	return t.Tracer
}

// TryAdd admits a transaction's cost if and only if every ceiling would
// still hold afterward. On success it returns the new block cost and
// applies the charge atomically; on failure it applies nothing and returns
// one of the WouldExceed… sentinel errors, checked in the fixed order
// block, vote, account, account-data-block, account-data-total — so two
// calls with identical state and input always fail the same way.
func (t *Tracker) TryAdd(ctx context.Context, writableAccounts []banking.Identifier, isVote bool, c banking.TransactionCost) (uint64, error) {
	_, finish := t.tracer().StartSpan(ctx, "cost_tracker.try_add")
	defer finish()

	total := c.Sum()

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.blockCost+total > t.limits.MaxBlockCU {
		return 0, banking.ErrWouldExceedMaxBlockCostLimit
	}
	if isVote && t.voteCost+total > t.limits.MaxVoteCU {
		return 0, banking.ErrWouldExceedMaxVoteCostLimit
	}
	for _, account := range writableAccounts {
		if t.accountCost[account]+total > t.limits.MaxAccountCU {
			return 0, banking.ErrWouldExceedMaxAccountCostLimit
		}
	}
	if t.accountDataBlock+c.LoadedAccountsDataSizeCost > t.limits.MaxAccountDataBlock {
		return 0, banking.ErrWouldExceedAccountDataBlockLimit
	}
	if t.accountDataTotal+c.LoadedAccountsDataSizeCost > t.limits.MaxAccountDataTotal {
		return 0, banking.ErrWouldExceedAccountDataTotalLimit
	}

	t.blockCost += total
	if isVote {
		t.voteCost += total
	}
	for _, account := range writableAccounts {
		t.accountCost[account] += total
	}
	t.accountDataBlock += c.LoadedAccountsDataSizeCost
	t.accountDataTotal += c.LoadedAccountsDataSizeCost

	return t.blockCost, nil
}

// Reconcile adjusts the accumulators after execution, per the outcome of a
// previously admitted transaction. A committed transaction's execution
// cost is replaced by its actual consumed compute units, capped at the
// admitted estimate so reconciliation never increases block cost. Any
// other outcome removes the full admitted cost.
func (t *Tracker) Reconcile(writableAccounts []banking.Identifier, isVote bool, admitted banking.TransactionCost, outcome banking.Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch outcome.Kind {
	case banking.OutcomeCommitted:
		actual := outcome.UsedComputeUnits
		if actual > admitted.ProgramExecutionCost {
			actual = admitted.ProgramExecutionCost
		}
		refund := admitted.ProgramExecutionCost - actual
		t.release(writableAccounts, isVote, refund, 0)
	case banking.OutcomeRetryable, banking.OutcomeDropped:
		t.release(writableAccounts, isVote, admitted.Sum(), admitted.LoadedAccountsDataSizeCost)
	}
}

// release subtracts costAmount from block/vote/account accumulators and
// dataAmount from the account-data accumulators. Held under mu.
func (t *Tracker) release(writableAccounts []banking.Identifier, isVote bool, costAmount, dataAmount uint64) {
	t.blockCost = saturatingSub(t.blockCost, costAmount)
	if isVote {
		t.voteCost = saturatingSub(t.voteCost, costAmount)
	}
	for _, account := range writableAccounts {
		remaining := saturatingSub(t.accountCost[account], costAmount)
		if remaining == 0 {
			delete(t.accountCost, account)
		} else {
			t.accountCost[account] = remaining
		}
	}
	t.accountDataBlock = saturatingSub(t.accountDataBlock, dataAmount)
	t.accountDataTotal = saturatingSub(t.accountDataTotal, dataAmount)
}

// BlockCost returns the current block cost accumulator.
func (t *Tracker) BlockCost() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.blockCost
}

// AccountCount returns the number of accounts currently carrying a nonzero
// accumulated cost, for telemetry.
func (t *Tracker) AccountCount() uint {
	t.mu.Lock()
	defer t.mu.Unlock()
	return uint(len(t.accountCost))
}

func saturatingSub(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
