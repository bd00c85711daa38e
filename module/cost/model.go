// Package cost computes and tracks the resource cost of transactions
// admitted into a bank: the model turns a transaction into a cost vector,
// and the tracker enforces the block/vote/account/data ceilings that vector
// is charged against.
package cost

import "github.com/bankstage/core/model/banking"

const (
	// signatureCost is charged per ordinary Ed25519 transaction signature.
	signatureCost uint64 = 720
	// secpPrecompileCost is charged per Secp256k1/Secp256r1 precompile
	// instruction, which is more expensive to verify than a plain signature.
	secpPrecompileCost uint64 = 1_000
	// ed25519PrecompileCost is charged per Ed25519 precompile instruction.
	ed25519PrecompileCost uint64 = 720
	// writeLockCost is charged per writable account a transaction locks.
	writeLockCost uint64 = 300
	// dataBytesDivisor converts serialized transaction length into cost:
	// one cost unit per this many bytes.
	dataBytesDivisor uint64 = 8
	// loadedAccountsDataCostPerByte is charged per byte of a transaction's
	// declared loaded-accounts-data ceiling.
	loadedAccountsDataCostPerByte uint64 = 1
	// builtinInstructionCost is the assumed per-instruction cost of a
	// builtin (non-BPF) program, with every protocol feature active.
	builtinInstructionCost uint64 = 150

	// voteSignatureCost, voteWriteLockCost and voteExecutionCost make up the
	// fixed precomputed cost vector charged to every vote transaction,
	// regardless of its actual contents.
	voteSignatureCost  uint64 = signatureCost
	voteWriteLockCost  uint64 = writeLockCost
	voteExecutionCost  uint64 = 2_100
)

// Model turns a transaction into the cost vector charged against the cost
// tracker's accumulators. It holds no state and is safe for concurrent use.
type Model struct{}

// NewModel creates a cost Model.
func NewModel() *Model { return &Model{} }

// Calculate produces tx's TransactionCost. Vote transactions always receive
// the fixed vote cost vector; non-votes are priced from their declared
// signatures, locks, size, and compute budget.
func (m *Model) Calculate(tx banking.Transaction) banking.TransactionCost {
	if tx.IsVote {
		return banking.TransactionCost{
			SignatureCost:        voteSignatureCost,
			WriteLockCost:        voteWriteLockCost,
			ProgramExecutionCost: voteExecutionCost,
		}
	}

	return banking.TransactionCost{
		SignatureCost:              m.signatureCost(tx),
		WriteLockCost:              uint64(len(tx.WritableAccounts)) * writeLockCost,
		DataBytesCost:              uint64(tx.SerializedSize) / dataBytesDivisor,
		LoadedAccountsDataSizeCost: tx.LoadedAccountsDataSizeLimit * loadedAccountsDataCostPerByte,
		ProgramExecutionCost:       m.executionCost(tx),
	}
}

func (m *Model) signatureCost(tx banking.Transaction) uint64 {
	return uint64(tx.SignatureCount)*signatureCost +
		uint64(tx.Secp256k1PrecompileCount+tx.Secp256r1PrecompileCount)*secpPrecompileCost +
		uint64(tx.Ed25519PrecompileCount)*ed25519PrecompileCost
}

// executionCost is the sum of builtin instruction costs plus the
// transaction's requested compute-unit limit, which stands in for the cost
// of whatever non-builtin (BPF) instructions it carries.
func (m *Model) executionCost(tx banking.Transaction) uint64 {
	return uint64(tx.BuiltinInstructionCount)*builtinInstructionCost + tx.ComputeUnitLimit
}
