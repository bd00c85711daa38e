// Package stage wires every banking-stage component into a single
// component.Component: the Packet Filter, Packet Receiver, Decision Maker,
// Cost Model/Tracker, Scheduler, Consume Workers, Committer, and Vote
// Worker, all driven off one module/config.Config. This is wiring only —
// process startup, CLI flag parsing, and the concrete implementations of
// the external collaborator interfaces (bank, PoH recorder, transport) are
// supplied by the caller.
package stage

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bankstage/core/engine/banking/committer"
	"github.com/bankstage/core/engine/banking/consumer"
	"github.com/bankstage/core/engine/banking/decision"
	"github.com/bankstage/core/engine/banking/receiver"
	"github.com/bankstage/core/engine/banking/scheduler"
	"github.com/bankstage/core/engine/banking/votestorage"
	"github.com/bankstage/core/engine/banking/voteworker"
	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module"
	"github.com/bankstage/core/module/component"
	"github.com/bankstage/core/module/config"
	"github.com/bankstage/core/module/cost"
	"github.com/bankstage/core/module/irrecoverable"
	"github.com/bankstage/core/module/metrics"
	"github.com/bankstage/core/module/packetfilter"
)

// dispatchPollInterval bounds how long the scheduler dispatch loop can go
// without checking for new pending work, in case a Notify is ever missed
// (it should never be, but this keeps the loop self-healing).
const dispatchPollInterval = 25 * time.Millisecond

// schedulerBatchSize is the maximum number of non-vote transactions the
// scheduler assembles into a single ConsumeWork.
const schedulerBatchSize = 128

// maxSchedulerRetries bounds how many retries (retryable admission failures
// plus retryable execution outcomes) a non-vote transaction accumulates
// before the scheduler drops it as starved.
const maxSchedulerRetries = 8

// Channels groups every upstream packet source the stage drains from. The
// Packet Receiver consumes NonVote; the Vote Worker independently consumes
// TpuVote and GossipVote through its own dedicated loop, matching §4.9's
// framing of the vote path as wholly self-contained.
type Channels struct {
	NonVote    <-chan []banking.Packet
	TpuVote    <-chan []banking.Packet
	GossipVote <-chan []banking.Packet
}

// Collaborators groups every externally supplied interface the stage
// consumes. None of these are implemented by this module; they are the
// seams onto the ledger, PoH, and transport layers.
type Collaborators struct {
	LeaderBankNotifier banking.LeaderBankNotifier
	PohRecorder        banking.PohRecorder
	StakeSource        votestorage.StakeSource
	ReplayVoteSender   banking.ReplayVoteSender
	FeeCache           banking.PrioritizationFeeCache
	StatusSender       banking.TransactionStatusSender
	BalanceCollector   banking.BalanceCollector
	Bank               banking.Bank
	Executor           consumer.Executor
	BankSource         voteworker.CurrentBankProvider
	Sanitizer          receiver.Sanitizer
	VoteSanitizer      voteworker.Sanitizer
	Tracer             module.Tracer
}

// Stage is the assembled banking stage: a single component.Component whose
// worker routines are every role described in §2, wired together by
// channels sized off Config.
type Stage struct {
	cm *component.ComponentManager

	scheduler *scheduler.Scheduler
	tracker   *cost.Tracker
}

var _ component.Component = (*Stage)(nil)

// New assembles a Stage from cfg, channels, and collaborators. collector and
// logger may be left zero-valued; a nil collector defaults to
// metrics.NewNoopCollector().
func New(cfg config.Config, channels Channels, collab Collaborators, collector metrics.Collector, logger zerolog.Logger) (*Stage, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collector == nil {
		collector = metrics.NewNoopCollector()
	}

	model := cost.NewModel()
	tracker := cost.NewTracker(cost.Limits{
		MaxBlockCU:          cfg.MaxBlockCU,
		MaxVoteCU:           cfg.MaxVoteCU,
		MaxAccountCU:        cfg.MaxAccountCU,
		MaxAccountDataBlock: cfg.MaxAccountDataBlock,
		MaxAccountDataTotal: cfg.MaxAccountDataTotal,
	})
	tracker.Tracer = collab.Tracer

	sched := scheduler.New(cfg.SchedulerKind, model, tracker, maxSchedulerRetries, cfg.NumWorkers, collector)

	// The Packet Receiver is wired for non-vote traffic only: TpuVote and
	// GossipVote are drained directly by the Vote Worker's own dedicated
	// loop instead, per §4.9, so this Receiver's vote sink is never
	// actually exercised but is still required to satisfy its interface.
	bufferNotifier := module.NewNotifier()
	nonVoteBuf := newBoundedNonVoteBuffer(cfg.BufferCapacity, collector, bufferNotifier)
	recv := receiver.New(
		receiver.Channels{NonVote: channels.NonVote},
		packetfilter.New(&packetfilter.Counters{}),
		nonVoteBuf,
		votestorage.New(1),
		collab.Sanitizer,
		&receiver.Counters{},
	)

	decisionMaker := decision.New(collab.PohRecorder, nil)

	workChan := make(chan banking.ConsumeWork, cfg.NumWorkers)
	resultsChan := make(chan banking.FinishedConsumeWork, cfg.NumWorkers)
	dispatchNotifier := module.NewNotifier()

	var statusSender banking.TransactionStatusSender
	if cfg.StatusSenderEnabled {
		statusSender = collab.StatusSender
	}
	commit := &committer.Committer{
		Bank:             collab.Bank,
		ReplayVoteSender: collab.ReplayVoteSender,
		FeeCache:         collab.FeeCache,
		StatusSender:     statusSender,
		BalanceCollector: collab.BalanceCollector,
		Collector:        collector,
	}

	voteWorker := &voteworker.Worker{
		Storage:          votestorage.New(2),
		StakeSource:      collab.StakeSource,
		Decision:         decision.New(collab.PohRecorder, nil),
		BankSource:       collab.BankSource,
		Filter:           packetfilter.New(&packetfilter.Counters{}),
		Model:            model,
		Tracker:          tracker,
		Sanitizer:        collab.VoteSanitizer,
		Executor:         collab.Executor,
		ReplayVoteSender: collab.ReplayVoteSender,
		FeeCache:         collab.FeeCache,
		StatusSender:     statusSender,
		BalanceCollector: collab.BalanceCollector,
		Collector:        collector,
		Logger:           logger.With().Str("role", "vote_worker").Logger(),
	}
	voteWorker.Channels.TpuVote = channels.TpuVote
	voteWorker.Channels.GossipVote = channels.GossipVote

	builder := component.NewComponentManagerBuilder()

	builder.AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		ready()
		for {
			_, ok := recv.ReceiveAndBuffer(ctx)
			if !ok {
				return
			}
			dispatchNotifier.Notify()
		}
	})

	builder.AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		ready()
		for {
			for {
				packet, ok := nonVoteBuf.Pop()
				if !ok {
					break
				}
				sched.Add(packet)
				dispatchNotifier.Notify()
			}
			select {
			case <-bufferNotifier.Channel():
			case <-ctx.Done():
				return
			}
		}
	})

	builder.AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		ready()
		dispatchLoop(ctx, sched, decisionMaker, workChan, dispatchNotifier, collector)
		for _, packet := range sched.Drain() {
			if !nonVoteBuf.Add(packet) {
				logger.Warn().Msg("dropped pending non-vote transaction on shutdown: buffer full")
			}
		}
	})

	for i := 0; i < cfg.NumWorkers; i++ {
		worker := &consumer.Worker{
			Notifier:  collab.LeaderBankNotifier,
			Executor:  collab.Executor,
			Work:      workChan,
			Results:   resultsChan,
			Collector: collector,
			Tracer:    collab.Tracer,
		}
		builder.AddWorker(worker.Run)
	}

	builder.AddWorker(func(ctx irrecoverable.SignalerContext, ready component.ReadyFunc) {
		ready()
		for {
			select {
			case work, ok := <-resultsChan:
				if !ok {
					return
				}
				if err := commit.Commit(ctx, work); err != nil {
					logger.Warn().Err(err).Msg("commit reported a sub-step failure")
				}
				sched.Release(work)
			case <-ctx.Done():
				return
			}
		}
	})

	builder.AddWorker(voteWorker.Run)

	return &Stage{cm: builder.Build(), scheduler: sched, tracker: tracker}, nil
}

// dispatchLoop re-evaluates decisionMaker whenever notified of new pending
// work (or at least every dispatchPollInterval, as a self-healing fallback
// in case a notification is ever missed) and, on a Consume verdict, drains
// batches off sched against the verdict's bank until nothing more is
// eligible this tick.
func dispatchLoop(ctx context.Context, sched *scheduler.Scheduler, decisionMaker *decision.Maker, work chan<- banking.ConsumeWork, wake module.Notifier, collector metrics.Collector) {
	ticker := time.NewTicker(dispatchPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-wake.Channel():
		case <-ticker.C:
		}

		d := decisionMaker.Decide()
		collector.DecisionMade(d.Kind.String())
		collector.QueueDepth(uint(sched.PendingCount()))
		if age, ok := sched.OldestPendingAge(time.Now()); ok {
			collector.OldestPendingAge(age)
		}
		if d.Kind != banking.Consume {
			continue
		}

		for {
			batch, ok := sched.ScheduleBatch(ctx, d.BankHandle.Identity(), schedulerBatchSize)
			if !ok {
				break
			}
			select {
			case work <- batch:
			case <-ctx.Done():
				return
			}
		}
	}
}

// Start launches every worker routine.
func (s *Stage) Start(ctx irrecoverable.SignalerContext) { s.cm.Start(ctx) }

// Ready returns a channel closed once every worker has signaled ready.
func (s *Stage) Ready() <-chan struct{} { return s.cm.Ready() }

// Done returns a channel closed once every worker has exited.
func (s *Stage) Done() <-chan struct{} { return s.cm.Done() }

// PendingNonVoteCount reports how many non-vote transactions are currently
// queued in the scheduler, for health checks and metrics scraping outside
// the Prometheus registry.
func (s *Stage) PendingNonVoteCount() int { return s.scheduler.PendingCount() }

// BlockCost reports the current bank's accumulated block cost.
func (s *Stage) BlockCost() uint64 { return s.tracker.BlockCost() }
