// Package consumer runs the worker loop that acquires the active bank,
// executes a batch of admitted transactions against it, and classifies
// the result for the committer or for retry.
package consumer

import (
	"context"
	"time"

	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module"
	"github.com/bankstage/core/module/component"
	"github.com/bankstage/core/module/irrecoverable"
	"github.com/bankstage/core/module/metrics"
)

// bankWaitTimeout is the hard ceiling a worker blocks waiting for an
// in-progress bank before giving up on the whole batch.
const bankWaitTimeout = 50 * time.Millisecond

// Executor is the external boundary to the ledger runtime: given a bank
// and a batch, it executes every entry and returns one outcome per entry,
// in the same order, partitioned into committed, not-committed-but-
// attempted, and not-processed.
type Executor interface {
	ProcessAndRecordAgedTransactions(ctx context.Context, bank banking.BankHandle, work banking.ConsumeWork) []banking.Outcome
}

// Worker is a single non-vote consume worker. It blocks reading from Work,
// and for each batch either executes it against the currently in-progress
// bank or returns it whole as retryable, then publishes the outcome on
// Results.
type Worker struct {
	Notifier  banking.LeaderBankNotifier
	Executor  Executor
	Work      <-chan banking.ConsumeWork
	Results   chan<- banking.FinishedConsumeWork
	Collector metrics.Collector

	// Tracer traces execution spans around each processed batch. Left nil,
	// it defaults to module.NoopTracer.
	Tracer module.Tracer
}

func (w *Worker) tracer() module.Tracer {
	if w.Tracer == nil {
		return module.NoopTracer{}
	}
	return w.Tracer
}

// Run drains Work until ctx is canceled or Work closes, reporting
// irrecoverable conditions (there are none expected in normal operation;
// every failure mode here is handled as a retryable/dropped outcome
// instead) through ctx per the component.ComponentWorker contract.
func (w *Worker) Run(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
	ready()

	for {
		select {
		case <-ctx.Done():
			return
		case work, ok := <-w.Work:
			if !ok {
				return
			}
			w.process(ctx, work)
		}
	}
}

func (w *Worker) process(ctx context.Context, work banking.ConsumeWork) {
	start := time.Now()

	bank, ok := w.Notifier.WaitForInProgress(ctx, bankWaitTimeout)
	if !ok {
		w.finish(work, uniformOutcome(len(work.Entries), banking.Retryable(banking.ReasonBankUnavailable)), start)
		return
	}
	if bank.Identity() != work.TargetBank {
		w.finish(work, uniformOutcome(len(work.Entries), banking.Retryable(banking.ReasonBankMismatch)), start)
		return
	}

	ctx, finish := w.tracer().StartSpan(ctx, "consumer.execute")
	outcomes := w.Executor.ProcessAndRecordAgedTransactions(ctx, bank, work)
	finish()
	w.finish(work, outcomes, start)
}

func (w *Worker) finish(work banking.ConsumeWork, outcomes []banking.Outcome, start time.Time) {
	committed, failed := 0, 0
	for _, o := range outcomes {
		if o.Kind == banking.OutcomeCommitted {
			committed++
		} else {
			failed++
		}
	}
	w.Collector.ConsumeWorkFinished(time.Since(start), committed, failed)
	w.Results <- banking.FinishedConsumeWork{Work: work, Outcomes: outcomes}
}

func uniformOutcome(n int, outcome banking.Outcome) []banking.Outcome {
	outcomes := make([]banking.Outcome, n)
	for i := range outcomes {
		outcomes[i] = outcome
	}
	return outcomes
}
