// Package voteworker runs the dedicated decision-and-execute loop for vote
// transactions: it owns its own Decision Maker, its own Vote Storage, and
// drives drained votes through a consume/commit pipeline independent of the
// non-vote Scheduler, so vote traffic is never head-of-line blocked behind
// non-vote transactions.
package voteworker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/bankstage/core/engine/banking/committer"
	"github.com/bankstage/core/engine/banking/consumer"
	"github.com/bankstage/core/engine/banking/decision"
	"github.com/bankstage/core/engine/banking/votestorage"
	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module/component"
	"github.com/bankstage/core/module/cost"
	"github.com/bankstage/core/module/irrecoverable"
	"github.com/bankstage/core/module/metrics"
	"github.com/bankstage/core/module/packetfilter"
)

// slotBoundaryCheckPeriod bounds how stale a decision can be before the
// loop re-evaluates it, independent of how much vote traffic arrives.
const slotBoundaryCheckPeriod = 10 * time.Millisecond

// drainBatchSize mirrors votestorage.UnprocessedBufferStepSize, the hard
// ceiling DrainUnprocessed's stake-weighted draw is documented against; a
// single call currently returns at most one packet, well under this.
const drainBatchSize = votestorage.UnprocessedBufferStepSize

// Sanitizer performs caller-specific validation of a drained vote before it
// is charged against the cost tracker and dispatched for execution. A nil
// Sanitizer always succeeds.
type Sanitizer func(banking.Packet) error

// CurrentBankProvider supplies the bank to cache epoch-boundary stake
// information against on a ForwardAndHold decision. This is deliberately
// separate from banking.PohRecorder: a ForwardAndHold verdict means this
// node is not currently leading, so there is no "in-progress" bank in the
// sense BufferedPacketsDecision.BankHandle carries — only a most-recent
// bank to read stake from.
type CurrentBankProvider interface {
	CurrentBank() (bank banking.BankHandle, ok bool)
}

// Worker is the vote-lane analogue of the non-vote Scheduler/Consumer/
// Committer pipeline, collapsed into a single loop because votes never
// contend with non-votes for account locks or block cost the way non-vote
// transactions do against each other.
type Worker struct {
	Channels struct {
		TpuVote    <-chan []banking.Packet
		GossipVote <-chan []banking.Packet
	}

	Storage     *votestorage.Storage
	StakeSource votestorage.StakeSource
	Decision    *decision.Maker
	BankSource  CurrentBankProvider

	Filter    *packetfilter.Filter
	Model     *cost.Model
	Tracker   *cost.Tracker
	Sanitizer Sanitizer
	Executor  consumer.Executor

	ReplayVoteSender banking.ReplayVoteSender
	FeeCache         banking.PrioritizationFeeCache
	StatusSender     banking.TransactionStatusSender
	BalanceCollector banking.BalanceCollector

	Collector metrics.Collector
	Logger    zerolog.Logger
}

// Run drives the loop until ctx is canceled or both vote channels close. On
// exit it logs how many votes remain buffered in Storage: Storage is itself
// the vote lane's owning buffer and is not cleared on shutdown, so nothing
// is discarded — the pending set simply survives in Storage for whatever
// owns the Worker's lifetime to inspect or restart against.
func (w *Worker) Run(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()
	defer func() {
		if pending := w.Storage.PendingCount(); pending > 0 {
			w.Logger.Info().Int("pending_votes", pending).Msg("vote worker shutting down with queued votes retained in storage")
		}
	}()

	ticker := time.NewTicker(slotBoundaryCheckPeriod)
	defer ticker.Stop()

	open := 2
	tpu, gossip := w.Channels.TpuVote, w.Channels.GossipVote

	for {
		select {
		case <-ctx.Done():
			return

		case batch, ok := <-tpu:
			if !ok {
				tpu = nil
				open--
				if open == 0 {
					return
				}
				continue
			}
			w.ingest(batch, banking.TpuVote)

		case batch, ok := <-gossip:
			if !ok {
				gossip = nil
				open--
				if open == 0 {
					return
				}
				continue
			}
			w.ingest(batch, banking.GossipVote)

		case <-ticker.C:
			start := time.Now()
			d := w.Decision.Decide()
			w.Collector.DecisionMade(d.Kind.String())
			w.act(ctx, d)
			w.Collector.VoteWorkerLoopDuration(time.Since(start))
		}
	}
}

// ingest stamps receipt time and forwards each packet in batch to Storage.
func (w *Worker) ingest(batch []banking.Packet, source banking.Source) {
	for _, packet := range batch {
		packet.Source = source
		packet.ReceivedAt = time.Now()
		if err := w.Storage.Receive(packet); err != nil {
			w.Collector.VoteDropped("duplicate_or_full")
			continue
		}
		w.Collector.VoteStored()
	}
}

func (w *Worker) act(ctx context.Context, d banking.BufferedPacketsDecision) {
	w.Collector.VoteQueueDepth(uint(w.Storage.PendingCount()))

	switch d.Kind {
	case banking.Consume:
		w.consume(ctx, d.BankHandle)
	case banking.Forward:
		w.Storage.ClearAll()
	case banking.ForwardAndHold:
		if w.BankSource == nil {
			return
		}
		if bank, ok := w.BankSource.CurrentBank(); ok {
			w.Storage.CacheEpochBoundaryInfo(bank, bank.Slot(), w.StakeSource)
		}
	case banking.Hold:
	}
}

// consume drains a stake-weighted vote (capped well under drainBatchSize),
// sanitizes and admits it against the cost tracker's vote lane, executes
// it, reconciles the tracker, commits, and reinserts it if retryable.
func (w *Worker) consume(ctx context.Context, bank banking.BankHandle) {
	drained := w.Storage.DrainUnprocessed(bank, w.StakeSource)
	if len(drained) == 0 {
		return
	}
	w.Collector.VoteDrained(len(drained))

	entries := make([]banking.Entry, 0, len(drained))
	var retained []banking.Packet

	for _, packet := range drained {
		if w.Sanitizer != nil {
			if err := w.Sanitizer(packet); err != nil {
				w.Collector.VoteDropped("sanitization_failed")
				continue
			}
		}
		if failure := w.Filter.Check(packet.Transaction); failure != banking.FilterFailureNone {
			w.Collector.VoteDropped(string(failure))
			continue
		}

		txCost := w.Model.Calculate(packet.Transaction)
		if _, err := w.Tracker.TryAdd(ctx, packet.Transaction.WritableAccounts, true, txCost); err != nil {
			if banking.IsPermanentDrop(err) {
				w.Collector.VoteDropped("vote_cost_exceeded")
			} else {
				retained = append(retained, packet)
			}
			continue
		}

		entries = append(entries, banking.Entry{Packet: packet, Cost: txCost})
	}

	if len(retained) > 0 {
		w.Storage.Reinsert(retained)
	}
	if len(entries) == 0 {
		return
	}

	work := banking.ConsumeWork{RequestID: uuid.New(), TargetBank: bank.Identity(), Entries: entries, DispatchedAt: time.Now()}
	outcomes := w.Executor.ProcessAndRecordAgedTransactions(ctx, bank, work)
	finished := banking.FinishedConsumeWork{Work: work, Outcomes: outcomes}

	var retryable []banking.Packet
	for i, outcome := range outcomes {
		entry := work.Entries[i]
		w.Tracker.Reconcile(entry.Packet.Transaction.WritableAccounts, true, entry.Cost, outcome)
		if outcome.Kind == banking.OutcomeRetryable {
			retryable = append(retryable, entry.Packet)
		}
	}
	if len(retryable) > 0 {
		w.Storage.Reinsert(retryable)
	}

	fullBank, ok := bank.(banking.Bank)
	if !ok {
		w.Logger.Warn().Msg("bank handle from decision maker does not implement commit, skipping commit step")
		return
	}

	c := &committer.Committer{
		Bank:             fullBank,
		ReplayVoteSender: w.ReplayVoteSender,
		FeeCache:         w.FeeCache,
		StatusSender:     w.StatusSender,
		BalanceCollector: w.BalanceCollector,
		Collector:        w.Collector,
	}
	if err := c.Commit(ctx, finished); err != nil {
		w.Logger.Warn().Err(err).Msg("vote commit reported a sub-step failure")
	}
}
