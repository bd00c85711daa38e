// Package packetfilter rejects deserialized transactions before they ever
// reach a buffer: transactions that declare too little compute budget for
// their own builtin instructions, or that pack in more signature-precompile
// calls than a validator is willing to verify for free.
package packetfilter

import (
	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module/counters"
)

const (
	// defaultBuiltinInstructionCost is the per-instruction compute-unit cost
	// assumed for builtin programs when every protocol feature is active.
	// This mirrors the constant the cost model uses for the same estimate
	// (see module/cost), kept independent here so the filter never needs a
	// cost-model dependency to answer a yes/no admission question.
	defaultBuiltinInstructionCost = 150

	// maxPrecompileInstructions is the inclusive cap on Ed25519/Secp256k1/
	// Secp256r1 precompile instructions per transaction.
	maxPrecompileInstructions = 8
)

// Counters tracks per-category rejection counts. All fields saturate rather
// than wrap under sustained load.
type Counters struct {
	InsufficientComputeLimit counters.SaturatingCounter
	ExcessivePrecompile      counters.SaturatingCounter
}

// Filter evaluates the two packet-admission predicates.
type Filter struct {
	counters *Counters
}

// New creates a Filter that records rejections into counters.
func New(counters *Counters) *Filter {
	return &Filter{counters: counters}
}

// Check evaluates tx against both predicates and returns the first failure
// encountered, or banking.FilterFailureNone if tx passes both. The verdict
// depends only on tx: calling Check twice on the same transaction always
// yields the same verdict, though each rejecting call increments the
// matching counter.
func (f *Filter) Check(tx banking.Transaction) banking.FilterFailure {
	if precompileCount(tx) > maxPrecompileInstructions {
		f.counters.ExcessivePrecompile.Inc()
		return banking.FilterFailureExcessivePrecompile
	}
	if tx.ComputeUnitLimit < minimumComputeBudget(tx) {
		f.counters.InsufficientComputeLimit.Inc()
		return banking.FilterFailureInsufficientComputeLimit
	}
	return banking.FilterFailureNone
}

// precompileCount sums the three signature-precompile instruction counts.
func precompileCount(tx banking.Transaction) int {
	return tx.Ed25519PrecompileCount + tx.Secp256k1PrecompileCount + tx.Secp256r1PrecompileCount
}

// minimumComputeBudget is the compute-unit floor a transaction must declare
// to cover its own builtin instructions, assuming every protocol feature
// that affects builtin cost is active.
func minimumComputeBudget(tx banking.Transaction) uint64 {
	return uint64(tx.BuiltinInstructionCount) * defaultBuiltinInstructionCost
}
