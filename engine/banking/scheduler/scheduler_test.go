package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module/config"
	"github.com/bankstage/core/module/cost"
	"github.com/bankstage/core/module/metrics"
)

func newScheduler(t *testing.T) (*Scheduler, *cost.Tracker) {
	t.Helper()
	tracker := cost.NewTracker(cost.Limits{
		MaxBlockCU:          1_000_000,
		MaxVoteCU:           1_000_000,
		MaxAccountCU:        1_000_000,
		MaxAccountDataBlock: 1_000_000,
		MaxAccountDataTotal: 1_000_000,
	})
	return New(config.SchedulerGreedy, cost.NewModel(), tracker, 3, 4, metrics.NewNoopCollector()), tracker
}

func txPacket(account banking.Identifier, fee uint64) banking.Packet {
	return banking.Packet{
		Transaction: banking.Transaction{
			WritableAccounts:       []banking.Identifier{account},
			ComputeUnitLimit:       1_000,
			PrioritizationFeePerCU: fee,
		},
	}
}

func TestScheduleBatch_ConflictingAccountsSkipSecond(t *testing.T) {
	s, _ := newScheduler(t)
	account := banking.Identifier{1}

	s.Add(txPacket(account, 10))
	s.Add(txPacket(account, 5))

	work, ok := s.ScheduleBatch(context.Background(), banking.Identifier{}, 8)
	require.True(t, ok)
	assert.Len(t, work.Entries, 1)
	assert.Equal(t, 1, s.PendingCount())

	// release the first batch's lock; the second transaction becomes
	// eligible on the very next round.
	s.Release(banking.FinishedConsumeWork{
		Work:     work,
		Outcomes: []banking.Outcome{banking.Committed(500, 0, nil)},
	})

	work2, ok := s.ScheduleBatch(context.Background(), banking.Identifier{}, 8)
	require.True(t, ok)
	assert.Len(t, work2.Entries, 1)
}

func TestScheduleBatch_PriorityOrdering(t *testing.T) {
	s, _ := newScheduler(t)
	s.Add(txPacket(banking.Identifier{1}, 1))
	s.Add(txPacket(banking.Identifier{2}, 100))

	work, ok := s.ScheduleBatch(context.Background(), banking.Identifier{}, 1)
	require.True(t, ok)
	require.Len(t, work.Entries, 1)
	assert.EqualValues(t, 100, work.Entries[0].Packet.Transaction.PrioritizationFeePerCU)
}

func TestScheduleBatch_AdmissionFailureRetainsForNextBank(t *testing.T) {
	tracker := cost.NewTracker(cost.Limits{
		MaxBlockCU:          100,
		MaxVoteCU:           100,
		MaxAccountCU:        100,
		MaxAccountDataBlock: 100,
		MaxAccountDataTotal: 100,
	})
	s := New(config.SchedulerGreedy, cost.NewModel(), tracker, 3, 4, metrics.NewNoopCollector())

	s.Add(txPacket(banking.Identifier{1}, 10))
	_, ok := s.ScheduleBatch(context.Background(), banking.Identifier{}, 8)
	assert.False(t, ok)
	assert.Equal(t, 1, s.PendingCount())
}

func TestScheduleBatch_EmptyQueueReturnsNotOK(t *testing.T) {
	s, _ := newScheduler(t)
	_, ok := s.ScheduleBatch(context.Background(), banking.Identifier{}, 8)
	assert.False(t, ok)
}

func TestScheduleBatch_BoundedByMaxInFlight(t *testing.T) {
	tracker := cost.NewTracker(cost.Limits{
		MaxBlockCU:          1_000_000,
		MaxVoteCU:           1_000_000,
		MaxAccountCU:        1_000_000,
		MaxAccountDataBlock: 1_000_000,
		MaxAccountDataTotal: 1_000_000,
	})
	s := New(config.SchedulerGreedy, cost.NewModel(), tracker, 3, 1, metrics.NewNoopCollector())

	s.Add(txPacket(banking.Identifier{1}, 10))
	s.Add(txPacket(banking.Identifier{2}, 20))

	work, ok := s.ScheduleBatch(context.Background(), banking.Identifier{}, 8)
	require.True(t, ok)
	assert.Len(t, work.Entries, 2)

	// a single in-flight slot is already held by the unreleased batch above.
	_, ok = s.ScheduleBatch(context.Background(), banking.Identifier{}, 8)
	assert.False(t, ok)

	s.Release(banking.FinishedConsumeWork{
		Work:     work,
		Outcomes: []banking.Outcome{banking.Committed(1, 0, nil), banking.Committed(1, 0, nil)},
	})

	s.Add(txPacket(banking.Identifier{3}, 30))
	_, ok = s.ScheduleBatch(context.Background(), banking.Identifier{}, 8)
	assert.True(t, ok)
}
