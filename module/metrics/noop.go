package metrics

import "time"

// NoopCollector discards every observation. Used by tests and by any caller
// that wires up the banking stage without a Prometheus registry.
type NoopCollector struct{}

var _ Collector = (*NoopCollector)(nil)

func NewNoopCollector() *NoopCollector { return &NoopCollector{} }

func (*NoopCollector) PacketsReceived(string, int)               {}
func (*NoopCollector) PacketsFiltered(string, int)                {}
func (*NoopCollector) DecisionMade(string)                        {}
func (*NoopCollector) TransactionAdmitted()                       {}
func (*NoopCollector) TransactionRejected(string)                 {}
func (*NoopCollector) TrackedAccounts(uint)                       {}
func (*NoopCollector) VoteStored()                                {}
func (*NoopCollector) VoteDropped(string)                         {}
func (*NoopCollector) VoteDrained(int)                            {}
func (*NoopCollector) VoteQueueDepth(uint)                        {}
func (*NoopCollector) QueueDepth(uint)                            {}
func (*NoopCollector) OldestPendingAge(time.Duration)              {}
func (*NoopCollector) NonVoteBufferDepth(uint)                     {}
func (*NoopCollector) ConflictsDetected(int)                      {}
func (*NoopCollector) ConsumeWorkFinished(time.Duration, int, int) {}
func (*NoopCollector) CommitDuration(time.Duration)                {}
func (*NoopCollector) VoteWorkerLoopDuration(time.Duration)        {}
