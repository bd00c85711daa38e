package committer

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module/metrics"
)

type fakeBank struct {
	id banking.Identifier
}

func (b fakeBank) Identity() banking.Identifier { return b.id }
func (b fakeBank) Slot() uint64                 { return 0 }
func (b fakeBank) CommitTransactions(banking.ConsumeWork, []banking.Outcome) (banking.CommitResults, error) {
	return banking.CommitResults{}, nil
}

type fakeVoteSender struct {
	sent []banking.Transaction
}

func (f *fakeVoteSender) Send(_ context.Context, tx banking.Transaction) error {
	f.sent = append(f.sent, tx)
	return nil
}

type fakeStatusSender struct {
	batches [][]banking.TransactionStatus
}

func (f *fakeStatusSender) Send(_ context.Context, batch []banking.TransactionStatus) error {
	f.batches = append(f.batches, batch)
	return nil
}

type fakeFeeCache struct {
	updated []banking.Transaction
}

func (f *fakeFeeCache) Update(txs []banking.Transaction) { f.updated = append(f.updated, txs...) }

func TestCommit_ForwardsExactlyCommittedVotesOnce(t *testing.T) {
	votes := &fakeVoteSender{}
	fees := &fakeFeeCache{}
	c := &Committer{
		Bank:             fakeBank{},
		ReplayVoteSender: votes,
		FeeCache:         fees,
		Collector:        metrics.NewNoopCollector(),
	}

	voteTx := banking.Transaction{IsVote: true}
	nonVoteTx := banking.Transaction{}
	work := banking.FinishedConsumeWork{
		Work: banking.ConsumeWork{Entries: []banking.Entry{{Packet: banking.Packet{Transaction: voteTx}}, {Packet: banking.Packet{Transaction: nonVoteTx}}}},
		Outcomes: []banking.Outcome{
			banking.Committed(10, 0, nil),
			banking.Committed(20, 0, nil),
		},
	}

	err := c.Commit(context.Background(), work)
	require.NoError(t, err)
	assert.Len(t, votes.sent, 1)
	assert.True(t, votes.sent[0].IsVote)
	assert.Len(t, fees.updated, 2)
}

func TestCommit_SkipsStatusEmissionWhenSenderMissing(t *testing.T) {
	c := &Committer{
		Bank:             fakeBank{},
		ReplayVoteSender: &fakeVoteSender{},
		FeeCache:         &fakeFeeCache{},
		Collector:        metrics.NewNoopCollector(),
	}
	work := banking.FinishedConsumeWork{
		Work:     banking.ConsumeWork{Entries: []banking.Entry{{}}},
		Outcomes: []banking.Outcome{banking.Committed(1, 1, nil)},
	}
	require.NoError(t, c.Commit(context.Background(), work))
}

func TestCommit_EmitsStatusesWhenConfigured(t *testing.T) {
	statuses := &fakeStatusSender{}
	c := &Committer{
		Bank:             fakeBank{},
		ReplayVoteSender: &fakeVoteSender{},
		FeeCache:         &fakeFeeCache{},
		StatusSender:     statuses,
		Collector:        metrics.NewNoopCollector(),
	}
	work := banking.FinishedConsumeWork{
		Work:     banking.ConsumeWork{Entries: []banking.Entry{{}}},
		Outcomes: []banking.Outcome{banking.Committed(1, 1, nil)},
	}
	require.NoError(t, c.Commit(context.Background(), work))
	require.Len(t, statuses.batches, 1)
	assert.Len(t, statuses.batches[0], 1)
}

func TestCommit_NoCommittedEntriesIsNoop(t *testing.T) {
	c := &Committer{
		Bank:             fakeBank{},
		ReplayVoteSender: &fakeVoteSender{},
		FeeCache:         &fakeFeeCache{},
		Collector:        metrics.NewNoopCollector(),
	}
	work := banking.FinishedConsumeWork{
		Work:     banking.ConsumeWork{Entries: []banking.Entry{{}}},
		Outcomes: []banking.Outcome{banking.Retryable(banking.ReasonAccountInUse)},
	}
	require.NoError(t, c.Commit(context.Background(), work))
}

type failingBank struct{ fakeBank }

func (b failingBank) CommitTransactions(banking.ConsumeWork, []banking.Outcome) (banking.CommitResults, error) {
	return banking.CommitResults{}, errors.New("commit failed")
}

func TestCommit_AggregatesSubStepErrors(t *testing.T) {
	c := &Committer{
		Bank:             failingBank{},
		ReplayVoteSender: &fakeVoteSender{},
		FeeCache:         &fakeFeeCache{},
		Collector:        metrics.NewNoopCollector(),
	}
	work := banking.FinishedConsumeWork{
		Work:     banking.ConsumeWork{Entries: []banking.Entry{{}}},
		Outcomes: []banking.Outcome{banking.Committed(1, 1, nil)},
	}
	err := c.Commit(context.Background(), work)
	assert.Error(t, err)
}
