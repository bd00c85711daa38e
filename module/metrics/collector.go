package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector is the telemetry surface exposed by the banking stage to its
// components. Every component is handed the full Collector; there are no
// narrower per-component interfaces, so nothing stops a component from
// recording a metric that belongs to another.
type Collector interface {
	PacketsReceived(source string, n int)
	PacketsFiltered(reason string, n int)

	DecisionMade(decision string)

	TransactionAdmitted()
	TransactionRejected(reason string)
	TrackedAccounts(n uint)

	VoteStored()
	VoteDropped(reason string)
	VoteDrained(n int)
	VoteQueueDepth(n uint)

	QueueDepth(n uint)
	OldestPendingAge(d time.Duration)
	ConflictsDetected(n int)
	NonVoteBufferDepth(n uint)

	ConsumeWorkFinished(d time.Duration, committed, failed int)
	CommitDuration(d time.Duration)
	VoteWorkerLoopDuration(d time.Duration)
}

// PromCollector is the production Collector, backed by Prometheus counters
// and histograms registered through promauto at construction time.
type PromCollector struct {
	packetsReceived *prometheus.CounterVec
	packetsFiltered *prometheus.CounterVec

	decisions *prometheus.CounterVec

	txAdmitted     prometheus.Counter
	txRejected     *prometheus.CounterVec
	trackedAccount prometheus.Gauge

	votesStored  prometheus.Counter
	votesDropped *prometheus.CounterVec
	votesDrained   prometheus.Histogram
	voteQueueDepth prometheus.Gauge

	queueDepth        prometheus.Gauge
	oldestPendingAge  prometheus.Gauge
	conflicts         prometheus.Counter
	nonVoteBufferSize prometheus.Gauge

	consumeDuration   prometheus.Histogram
	consumeCommitted  prometheus.Counter
	consumeFailed     prometheus.Counter
	commitDuration    prometheus.Histogram
	voteWorkerLoopDur prometheus.Histogram
}

// NewPromCollector creates and registers a PromCollector with the default
// Prometheus registry.
func NewPromCollector() *PromCollector {
	return &PromCollector{
		packetsReceived: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemReceiver,
			Name:      "packets_received_total",
			Help:      "packets received by source",
		}, []string{LabelSource}),

		packetsFiltered: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemFilter,
			Name:      "packets_filtered_total",
			Help:      "packets rejected by the packet filter, by reason",
		}, []string{LabelReason}),

		decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemDecision,
			Name:      "decisions_total",
			Help:      "buffered-packet decisions made, by kind",
		}, []string{LabelDecision}),

		txAdmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemCost,
			Name:      "transactions_admitted_total",
			Help:      "transactions admitted by the cost tracker",
		}),

		txRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemCost,
			Name:      "transactions_rejected_total",
			Help:      "transactions rejected by the cost tracker, by reason",
		}, []string{LabelReason}),

		trackedAccount: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemCost,
			Name:      "tracked_accounts",
			Help:      "number of accounts currently tracked by the cost tracker",
		}),

		votesStored: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemVoteStore,
			Name:      "votes_stored_total",
			Help:      "votes accepted into vote storage",
		}),

		votesDropped: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemVoteStore,
			Name:      "votes_dropped_total",
			Help:      "votes dropped from vote storage, by reason",
		}, []string{LabelReason}),

		votesDrained: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemVoteStore,
			Name:      "votes_drained",
			Help:      "number of votes drained per vote worker pass",
			Buckets:   prometheus.LinearBuckets(0, 2, 9),
		}),

		voteQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemVoteStore,
			Name:      "queue_depth",
			Help:      "number of votes currently buffered in vote storage",
		}),

		queueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemScheduler,
			Name:      "queue_depth",
			Help:      "number of transactions currently queued for scheduling",
		}),

		oldestPendingAge: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemScheduler,
			Name:      "oldest_pending_age_seconds",
			Help:      "age of the longest-waiting transaction in the scheduler's pending set",
		}),

		nonVoteBufferSize: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemReceiver,
			Name:      "non_vote_buffer_depth",
			Help:      "number of non-vote packets currently buffered ahead of the scheduler",
		}),

		conflicts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemScheduler,
			Name:      "account_lock_conflicts_total",
			Help:      "scheduling attempts deferred due to an account lock conflict",
		}),

		consumeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemConsumer,
			Name:      "work_duration_seconds",
			Help:      "wall time to execute one batch of consume work",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),

		consumeCommitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemConsumer,
			Name:      "transactions_committed_total",
			Help:      "transactions committed by the consume worker",
		}),

		consumeFailed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemConsumer,
			Name:      "transactions_failed_total",
			Help:      "transactions that failed execution in the consume worker",
		}),

		commitDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemCommitter,
			Name:      "commit_duration_seconds",
			Help:      "wall time to commit one batch of executed transactions",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),

		voteWorkerLoopDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespaceBanking,
			Subsystem: subsystemVoteWorker,
			Name:      "loop_duration_seconds",
			Help:      "wall time of one vote worker decide-and-execute pass",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 14),
		}),
	}
}

var _ Collector = (*PromCollector)(nil)

func (c *PromCollector) PacketsReceived(source string, n int) {
	c.packetsReceived.With(prometheus.Labels{LabelSource: source}).Add(float64(n))
}

func (c *PromCollector) PacketsFiltered(reason string, n int) {
	c.packetsFiltered.With(prometheus.Labels{LabelReason: reason}).Add(float64(n))
}

func (c *PromCollector) DecisionMade(decision string) {
	c.decisions.With(prometheus.Labels{LabelDecision: decision}).Inc()
}

func (c *PromCollector) TransactionAdmitted() {
	c.txAdmitted.Inc()
}

func (c *PromCollector) TransactionRejected(reason string) {
	c.txRejected.With(prometheus.Labels{LabelReason: reason}).Inc()
}

func (c *PromCollector) TrackedAccounts(n uint) {
	c.trackedAccount.Set(float64(n))
}

func (c *PromCollector) VoteStored() {
	c.votesStored.Inc()
}

func (c *PromCollector) VoteDropped(reason string) {
	c.votesDropped.With(prometheus.Labels{LabelReason: reason}).Inc()
}

func (c *PromCollector) VoteDrained(n int) {
	c.votesDrained.Observe(float64(n))
}

func (c *PromCollector) VoteQueueDepth(n uint) {
	c.voteQueueDepth.Set(float64(n))
}

func (c *PromCollector) QueueDepth(n uint) {
	c.queueDepth.Set(float64(n))
}

func (c *PromCollector) OldestPendingAge(d time.Duration) {
	c.oldestPendingAge.Set(d.Seconds())
}

func (c *PromCollector) NonVoteBufferDepth(n uint) {
	c.nonVoteBufferSize.Set(float64(n))
}

func (c *PromCollector) ConflictsDetected(n int) {
	c.conflicts.Add(float64(n))
}

func (c *PromCollector) ConsumeWorkFinished(d time.Duration, committed, failed int) {
	c.consumeDuration.Observe(d.Seconds())
	c.consumeCommitted.Add(float64(committed))
	c.consumeFailed.Add(float64(failed))
}

func (c *PromCollector) CommitDuration(d time.Duration) {
	c.commitDuration.Observe(d.Seconds())
}

func (c *PromCollector) VoteWorkerLoopDuration(d time.Duration) {
	c.voteWorkerLoopDur.Observe(d.Seconds())
}
