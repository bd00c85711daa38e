package votestorage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankstage/core/model/banking"
)

type fakeStakeSource struct {
	stake map[banking.Identifier]uint64
}

func (f fakeStakeSource) StakeDistribution(banking.BankHandle) map[banking.Identifier]uint64 {
	return f.stake
}

type fakeBank struct{ id banking.Identifier }

func (b fakeBank) Identity() banking.Identifier { return b.id }
func (b fakeBank) Slot() uint64                 { return 0 }

func votePacket(validator banking.Identifier, sig byte) banking.Packet {
	var vsig banking.Identifier
	vsig[0] = sig
	return banking.Packet{
		Source:     banking.TpuVote,
		ReceivedAt: time.Now(),
		Transaction: banking.Transaction{
			IsVote:        true,
			VoteValidator: validator,
			VoteSignature: vsig,
		},
	}
}

func TestReceive_RejectsDuplicateSignature(t *testing.T) {
	s := New(1)
	v := banking.Identifier{1}

	require.NoError(t, s.Receive(votePacket(v, 1)))
	err := s.Receive(votePacket(v, 1))
	assert.ErrorIs(t, err, ErrDuplicateVote)
	assert.Equal(t, 1, s.QueueLength(v))
}

func TestDrainUnprocessed_CapsAtStepSize(t *testing.T) {
	s := New(1)
	validators := make([]banking.Identifier, 0, 20)
	for i := byte(0); i < 20; i++ {
		v := banking.Identifier{i + 1}
		validators = append(validators, v)
		for j := byte(0); j < 3; j++ {
			require.NoError(t, s.Receive(votePacket(v, i*10+j)))
		}
	}

	stake := map[banking.Identifier]uint64{}
	for _, v := range validators {
		stake[v] = 1
	}

	drained := s.DrainUnprocessed(fakeBank{}, fakeStakeSource{stake: stake})
	assert.LessOrEqual(t, len(drained), UnprocessedBufferStepSize)
}

func TestDrainUnprocessed_StakeWeightedFairness(t *testing.T) {
	s := New(42)
	big := banking.Identifier{0x99}
	small := banking.Identifier{0x01}

	for i := byte(0); i < 16; i++ {
		require.NoError(t, s.Receive(votePacket(big, i)))
	}
	require.NoError(t, s.Receive(votePacket(small, 200)))

	stake := map[banking.Identifier]uint64{big: 99, small: 1}

	// run many independent single-vote draws and tally which validator
	// wins, approximating the expectation property over K trials.
	bigWins, smallWins := 0, 0
	for trial := 0; trial < 500; trial++ {
		trialStorage := New(int64(trial))
		require.NoError(t, trialStorage.Receive(votePacket(big, 1)))
		require.NoError(t, trialStorage.Receive(votePacket(small, 2)))

		drained := trialStorage.DrainUnprocessed(fakeBank{}, fakeStakeSource{stake: stake})
		require.Len(t, drained, 1)
		if drained[0].Transaction.VoteValidator == big {
			bigWins++
		} else {
			smallWins++
		}
	}

	// with stake 99:1 the big validator should win the overwhelming
	// majority of single-slot draws.
	assert.Greater(t, bigWins, smallWins*5)
	_ = s
}

func TestDrainUnprocessed_ExcludesZeroStake(t *testing.T) {
	s := New(1)
	v := banking.Identifier{1}
	require.NoError(t, s.Receive(votePacket(v, 1)))

	stake := map[banking.Identifier]uint64{v: 0}
	drained := s.DrainUnprocessed(fakeBank{}, fakeStakeSource{stake: stake})
	assert.Empty(t, drained)
}

func TestReinsert_PreservesReceivedAt(t *testing.T) {
	s := New(1)
	v := banking.Identifier{1}
	p := votePacket(v, 1)
	p.ReceivedAt = time.Now().Add(-time.Hour)

	s.Reinsert([]banking.Packet{p})
	assert.Equal(t, 1, s.QueueLength(v))
	front, ok := s.queues[v].Front()
	require.True(t, ok)
	assert.Equal(t, p.ReceivedAt, front.(banking.Packet).ReceivedAt)
}
