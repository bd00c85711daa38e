// Package committer applies executed batches to the bank, forwards
// committed votes to the replay path, and optionally emits transaction
// status batches.
package committer

import (
	"context"
	"time"

	"go.uber.org/multierr"

	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module/metrics"
)

// voteForwardTimeout bounds how long the committer will wait for the
// replay-vote sender to accept a single vote before moving on.
const voteForwardTimeout = 50 * time.Millisecond

// Committer consumes finished batches and applies their committed entries
// to the bank. StatusSender and BalanceCollector are optional: a nil
// StatusSender skips status emission entirely; a nil BalanceCollector
// emits statuses without balance information.
type Committer struct {
	Bank             banking.Bank
	ReplayVoteSender banking.ReplayVoteSender
	FeeCache         banking.PrioritizationFeeCache
	StatusSender     banking.TransactionStatusSender
	BalanceCollector banking.BalanceCollector
	Collector        metrics.Collector
}

// Commit applies work's committed entries. All four sub-steps (commit,
// vote forwarding, fee-cache update, status emission) are attempted
// independently; a failure in one does not prevent the others from
// running, and their errors are combined in the returned error.
func (c *Committer) Commit(ctx context.Context, work banking.FinishedConsumeWork) error {
	committed := committedEntries(work)
	if len(committed) == 0 {
		return nil
	}

	var errs error

	commitStart := time.Now()
	_, err := c.Bank.CommitTransactions(work.Work, work.Outcomes)
	c.Collector.CommitDuration(time.Since(commitStart))
	if err != nil {
		errs = multierr.Append(errs, err)
	}

	errs = multierr.Append(errs, c.forwardVotes(ctx, committed))

	transactions := make([]banking.Transaction, 0, len(committed))
	for _, entry := range committed {
		transactions = append(transactions, entry.index.Packet.Transaction)
	}
	c.FeeCache.Update(transactions)

	errs = multierr.Append(errs, c.emitStatuses(ctx, c.Bank, committed))

	return errs
}

type committedEntry struct {
	index   banking.Entry
	outcome banking.Outcome
}

func committedEntries(work banking.FinishedConsumeWork) []committedEntry {
	var out []committedEntry
	for i, outcome := range work.Outcomes {
		if outcome.Kind != banking.OutcomeCommitted {
			continue
		}
		out = append(out, committedEntry{index: work.Work.Entries[i], outcome: outcome})
	}
	return out
}

func (c *Committer) forwardVotes(ctx context.Context, committed []committedEntry) error {
	var errs error
	for _, entry := range committed {
		if !entry.index.Packet.Transaction.IsVote {
			continue
		}
		forwardCtx, cancel := context.WithTimeout(ctx, voteForwardTimeout)
		err := c.ReplayVoteSender.Send(forwardCtx, entry.index.Packet.Transaction)
		cancel()
		if err != nil {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

func (c *Committer) emitStatuses(ctx context.Context, bank banking.BankHandle, committed []committedEntry) error {
	if c.StatusSender == nil {
		return nil
	}

	batch := make([]banking.TransactionStatus, 0, len(committed))
	for i, entry := range committed {
		status := banking.TransactionStatus{
			Outcome:      entry.outcome,
			Logs:         entry.outcome.Logs,
			ComputeUnits: entry.outcome.UsedComputeUnits,
			LoadedSize:   entry.outcome.LoadedSize,
			RunningIndex: uint64(i),
		}
		if c.BalanceCollector != nil {
			if pre, post, ok := c.BalanceCollector.Balances(bank, entry.index.Packet.Transaction); ok {
				status.PreBalances, status.PostBalances = pre, post
			}
		}
		batch = append(batch, status)
	}

	return c.StatusSender.Send(ctx, batch)
}
