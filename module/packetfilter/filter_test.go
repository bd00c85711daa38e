package packetfilter

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bankstage/core/model/banking"
)

func TestFilter_InsufficientComputeLimit(t *testing.T) {
	f := New(&Counters{})

	tx := banking.Transaction{BuiltinInstructionCount: 10, ComputeUnitLimit: 100}
	assert.Equal(t, banking.FilterFailureInsufficientComputeLimit, f.Check(tx))
	assert.EqualValues(t, 1, f.counters.InsufficientComputeLimit.Value())
}

func TestFilter_ExcessivePrecompile(t *testing.T) {
	f := New(&Counters{})

	tx := banking.Transaction{Ed25519PrecompileCount: 9, ComputeUnitLimit: 1_000_000}
	assert.Equal(t, banking.FilterFailureExcessivePrecompile, f.Check(tx))
	assert.EqualValues(t, 1, f.counters.ExcessivePrecompile.Value())
}

func TestFilter_Accepts(t *testing.T) {
	f := New(&Counters{})

	tx := banking.Transaction{
		BuiltinInstructionCount:  2,
		ComputeUnitLimit:         300,
		Ed25519PrecompileCount:   1,
		Secp256k1PrecompileCount: 1,
	}
	assert.Equal(t, banking.FilterFailureNone, f.Check(tx))
}

func TestFilter_Idempotent(t *testing.T) {
	f := New(&Counters{})

	tx := banking.Transaction{BuiltinInstructionCount: 10, ComputeUnitLimit: 100}
	first := f.Check(tx)
	second := f.Check(tx)
	assert.Equal(t, first, second)
}
