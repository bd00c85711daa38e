package banking

import "time"

// Source identifies the channel a Packet arrived on, which in turn decides
// whether it is routed to vote storage or the non-vote buffer.
type Source int

const (
	NonVote Source = iota
	TpuVote
	GossipVote
)

func (s Source) String() string {
	switch s {
	case NonVote:
		return "non_vote"
	case TpuVote:
		return "tpu_vote"
	case GossipVote:
		return "gossip_vote"
	default:
		return "unknown"
	}
}

// VoteSourcePriority ranks vote sources: TpuVote outranks GossipVote, and
// NonVote ranks lowest. There is no separate rank for votes originating
// from this node itself, and votestorage's drain does not consult this
// ranking.
func (s Source) VoteSourcePriority() int {
	switch s {
	case TpuVote:
		return 2
	case GossipVote:
		return 1
	default:
		return 0
	}
}

// Transaction is the minimal deserialized projection of a transaction that
// the banking stage reasons about. The concrete representation (account
// lists, instructions, signatures) is supplied by the embedding runtime;
// this struct carries only what cost modeling, scheduling, and filtering
// need, and leaves untyped program-specific payloads to Raw.
type Transaction struct {
	// SignatureCount is the total number of Ed25519 transaction signatures.
	SignatureCount int
	// Ed25519PrecompileCount is the number of instructions invoking the
	// Ed25519 signature-verification precompile.
	Ed25519PrecompileCount int
	// Secp256k1PrecompileCount is the number of instructions invoking the
	// Secp256k1 signature-verification precompile.
	Secp256k1PrecompileCount int
	// Secp256r1PrecompileCount is the number of instructions invoking the
	// Secp256r1 signature-verification precompile.
	Secp256r1PrecompileCount int
	// WritableAccounts lists the accounts this transaction locks for write.
	WritableAccounts []Identifier
	// ReadonlyAccounts lists the accounts this transaction locks for read.
	ReadonlyAccounts []Identifier
	// FeePayer is the account charged for fees and prioritization.
	FeePayer Identifier
	// SerializedSize is the wire length of the transaction in bytes.
	SerializedSize int
	// ComputeUnitLimit is the transaction's declared ceiling on consumed CU.
	ComputeUnitLimit uint64
	// LoadedAccountsDataSizeLimit is the declared ceiling, in bytes, on the
	// total size of accounts this transaction may load.
	LoadedAccountsDataSizeLimit uint64
	// PrioritizationFeePerCU is the fee per compute unit the submitter offers.
	// It drives scheduler priority and is zero for vote transactions.
	PrioritizationFeePerCU uint64
	// BuiltinInstructionCount is the number of instructions targeting
	// builtin (non-BPF) programs, used by the cost model's execution estimate.
	BuiltinInstructionCount int
	// IsVote is true for consensus-vote transactions, which use a fixed
	// precomputed cost vector and bypass the non-vote scheduler entirely.
	IsVote bool
	// VoteSignature uniquely identifies a vote transaction for duplicate
	// suppression. Zero for non-vote transactions.
	VoteSignature Identifier
	// VoteValidator is the identity casting the vote. Zero for non-vote.
	VoteValidator Identifier
}

// Packet is the immutable unit of work handed from the receiver into the
// rest of the pipeline. Once constructed, Raw and Transaction never change;
// Discard is the only mutable field, and is only ever set true.
type Packet struct {
	Raw         []byte
	Transaction Transaction
	Discard     bool
	Source      Source
	ReceivedAt  time.Time
}

// FilterFailure enumerates the packet filter's rejection categories. Each
// is counted separately so operators can distinguish hostile traffic from
// a misconfigured compute budget.
type FilterFailure string

const (
	FilterFailureNone                     FilterFailure = ""
	FilterFailureInsufficientComputeLimit FilterFailure = "insufficient_compute_limit"
	FilterFailureExcessivePrecompile      FilterFailure = "excessive_precompile"
)
