package metrics

const (
	namespaceBanking = "banking_stage"

	subsystemFilter     = "filter"
	subsystemReceiver   = "receiver"
	subsystemDecision   = "decision"
	subsystemCost       = "cost"
	subsystemVoteStore  = "vote_storage"
	subsystemScheduler  = "scheduler"
	subsystemConsumer   = "consumer"
	subsystemCommitter  = "committer"
	subsystemVoteWorker = "vote_worker"
)

const (
	LabelReason   = "reason"
	LabelDecision = "decision"
	LabelSource   = "source"
	LabelOutcome  = "outcome"
)
