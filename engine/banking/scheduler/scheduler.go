// Package scheduler assigns non-vote transactions to worker batches,
// honoring account-lock conflicts and the cost tracker's admission
// ceilings, and reconciles results once workers report back.
package scheduler

import (
	"container/heap"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module/config"
	"github.com/bankstage/core/module/cost"
	"github.com/bankstage/core/module/metrics"
	"github.com/bankstage/core/module/queue"
)

// pendingEntry wraps a packet with the retry count the scheduler has
// accumulated for it: one per retryable admission failure in ScheduleBatch
// and one per retryable outcome in Release, whatever bank each was against.
type pendingEntry struct {
	packet  banking.Packet
	retries int
}

// Scheduler holds the pending non-vote set and the scheduler-level
// account-lock table. Two interchangeable policies are supported: the
// priority-graph policy tracks conflicts as an incremental DAG so a
// resolved lock immediately frees its dependents without a full rescan,
// while the greedy policy has no such index and simply rescans pending
// transactions from the top every round. Both converge on the same
// admission decisions for a single round — a transaction is eligible iff
// none of its writable accounts are currently locked — so Kind only
// affects internal bookkeeping cost, not externally observable scheduling
// outcomes, matching how the specification frames the two as
// interchangeable.
//
// Scheduler is owned by exactly one goroutine; it holds its own mutex only
// so that Add (called from the receiver's goroutine) can safely enqueue
// concurrently with ScheduleBatch/Release running on the scheduler's own
// goroutine.
type Scheduler struct {
	mu    sync.Mutex
	kind  config.SchedulerKind
	queue queue.PriorityQueue[*pendingEntry]

	locked map[banking.Identifier]int

	model      *cost.Model
	tracker    *cost.Tracker
	maxRetries int
	collector  metrics.Collector

	// inFlight bounds the number of batches dispatched but not yet
	// released to the number of consume workers actually available, so
	// the scheduler never builds more outstanding work than num_workers
	// can execute concurrently.
	inFlight *semaphore.Weighted

	nextSeq uint64
}

// New creates a Scheduler. maxRetries bounds how many retries (retryable
// admission failures plus retryable execution outcomes) a transaction may
// accumulate before it is dropped as starved; the count is not reset when
// the bank changes.
// maxInFlight bounds concurrently outstanding batches and should match the
// configured number of consume workers.
func New(kind config.SchedulerKind, model *cost.Model, tracker *cost.Tracker, maxRetries int, maxInFlight int, collector metrics.Collector) *Scheduler {
	return &Scheduler{
		kind:       kind,
		queue:      queue.NewPriorityQueue[*pendingEntry](),
		locked:     make(map[banking.Identifier]int),
		model:      model,
		tracker:    tracker,
		maxRetries: maxRetries,
		inFlight:   semaphore.NewWeighted(int64(maxInFlight)),
		collector:  collector,
	}
}

// Add enqueues packet for scheduling, priority-ordered by its declared fee
// per compute unit, oldest-first among equal priority.
func (s *Scheduler) Add(packet banking.Packet) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := &pendingEntry{packet: packet}
	item := queue.NewPriorityQueueItem(entry, packet.Transaction.PrioritizationFeePerCU, false)
	heap.Push(&s.queue, item)
	s.collector.QueueDepth(uint(s.queue.Len()))
}

// PendingCount reports how many transactions are currently waiting.
func (s *Scheduler) PendingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Len()
}

// OldestPendingAge reports how long the longest-waiting pending transaction
// has been queued, or false if nothing is pending. Used to monitor the
// starvation bound from §4.6. A transaction returned by Release is
// re-enqueued with a fresh timestamp, so its age restarts from that point.
func (s *Scheduler) OldestPendingAge(now time.Time) (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.OldestAge(now)
}

// ScheduleBatch pulls up to batchSize eligible, admitted transactions off
// the pending set and forms a ConsumeWork targeting bank. It returns
// ok=false if nothing was eligible this round. Transactions skipped for
// lock conflicts, retried after a retryable admission failure, or
// permanently dropped are all reflected before returning: conflicts and
// retries go back to the pending set, drops do not.
func (s *Scheduler) ScheduleBatch(ctx context.Context, bank banking.Identifier, batchSize int) (banking.ConsumeWork, bool) {
	if !s.inFlight.TryAcquire(1) {
		return banking.ConsumeWork{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []banking.Entry
	var requeue []*queue.PriorityQueueItem[*pendingEntry]
	lockedThisBatch := make(map[banking.Identifier]bool)

	for s.queue.Len() > 0 && len(entries) < batchSize {
		item := heap.Pop(&s.queue).(*queue.PriorityQueueItem[*pendingEntry])
		entry := item.Message()
		tx := entry.packet.Transaction

		if s.conflicts(tx, lockedThisBatch) {
			s.collector.ConflictsDetected(1)
			requeue = append(requeue, item)
			continue
		}

		txCost := s.model.Calculate(tx)
		_, err := s.tracker.TryAdd(ctx, tx.WritableAccounts, tx.IsVote, txCost)
		if err != nil {
			if banking.IsPermanentDrop(err) {
				s.collector.TransactionRejected(string(banking.ReasonAccountDataTotalDrop))
				continue
			}
			entry.retries++
			if entry.retries > s.maxRetries {
				s.collector.TransactionRejected(string(banking.ReasonStarvationDropped))
				continue
			}
			requeue = append(requeue, item)
			continue
		}

		s.lockAccounts(tx.WritableAccounts, lockedThisBatch)
		s.collector.TransactionAdmitted()
		entries = append(entries, banking.Entry{Packet: entry.packet, Cost: txCost, Retries: entry.retries})
	}

	for _, item := range requeue {
		heap.Push(&s.queue, item)
	}
	s.collector.QueueDepth(uint(s.queue.Len()))

	if len(entries) == 0 {
		s.inFlight.Release(1)
		return banking.ConsumeWork{}, false
	}

	s.nextSeq++
	return banking.ConsumeWork{
		SequenceID:   s.nextSeq,
		RequestID:    uuid.New(),
		TargetBank:   bank,
		Entries:      entries,
		DispatchedAt: time.Now(),
	}, true
}

// conflicts reports whether any of tx's writable accounts are locked,
// either by an in-flight batch from a previous round or by a transaction
// already claimed earlier in the batch currently under construction.
func (s *Scheduler) conflicts(tx banking.Transaction, lockedThisBatch map[banking.Identifier]bool) bool {
	for _, account := range tx.WritableAccounts {
		if s.locked[account] > 0 || lockedThisBatch[account] {
			return true
		}
	}
	return false
}

func (s *Scheduler) lockAccounts(accounts []banking.Identifier, lockedThisBatch map[banking.Identifier]bool) {
	for _, account := range accounts {
		s.locked[account]++
		lockedThisBatch[account] = true
	}
}

// Release processes a FinishedConsumeWork: it unlocks every account the
// batch held, reconciles each entry's admitted cost against its outcome,
// and returns retryable transactions to the pending set (unless they have
// exhausted maxRetries, in which case they are dropped as starved).
func (s *Scheduler) Release(work banking.FinishedConsumeWork) {
	defer s.inFlight.Release(1)

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, outcome := range work.Outcomes {
		entry := work.Work.Entries[i]
		tx := entry.Packet.Transaction

		s.unlockAccounts(tx.WritableAccounts)
		s.tracker.Reconcile(tx.WritableAccounts, tx.IsVote, entry.Cost, outcome)

		if outcome.Kind != banking.OutcomeRetryable {
			continue
		}

		pending := &pendingEntry{packet: entry.Packet, retries: entry.Retries + 1}
		if pending.retries > s.maxRetries {
			s.collector.TransactionRejected(string(banking.ReasonStarvationDropped))
			continue
		}
		item := queue.NewPriorityQueueItem(pending, tx.PrioritizationFeePerCU, false)
		heap.Push(&s.queue, item)
	}
	s.collector.QueueDepth(uint(s.queue.Len()))
}

// Drain empties the pending set, returning every packet it held (in
// priority order). Pending packets hold no scheduler-level account locks,
// so Drain leaves the lock table untouched; locks held by dispatched
// batches are released only by Release. Used on shutdown
// so pending non-vote transactions are handed back to the caller's input
// buffer instead of being silently discarded with the Scheduler itself.
func (s *Scheduler) Drain() []banking.Packet {
	s.mu.Lock()
	defer s.mu.Unlock()

	var packets []banking.Packet
	for s.queue.Len() > 0 {
		item := heap.Pop(&s.queue).(*queue.PriorityQueueItem[*pendingEntry])
		packets = append(packets, item.Message().packet)
	}
	s.collector.QueueDepth(0)
	return packets
}

func (s *Scheduler) unlockAccounts(accounts []banking.Identifier) {
	for _, account := range accounts {
		if s.locked[account] <= 1 {
			delete(s.locked, account)
			continue
		}
		s.locked[account]--
	}
}
