package receiver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module/packetfilter"
)

type fakeBuffer struct {
	packets []banking.Packet
	cap     int
}

func (b *fakeBuffer) Add(p banking.Packet) bool {
	if len(b.packets) >= b.cap {
		return false
	}
	b.packets = append(b.packets, p)
	return true
}
func (b *fakeBuffer) Len() int { return len(b.packets) }

type fakeVoteSink struct {
	received []banking.Packet
}

func (s *fakeVoteSink) Receive(p banking.Packet) error {
	s.received = append(s.received, p)
	return nil
}

func goodTx() banking.Transaction {
	return banking.Transaction{ComputeUnitLimit: 100_000}
}

func TestReceiveAndBuffer_RoutesBySource(t *testing.T) {
	nonVoteCh := make(chan []banking.Packet, 1)
	voteCh := make(chan []banking.Packet, 1)
	gossipCh := make(chan []banking.Packet, 1)

	nonVoteCh <- []banking.Packet{{Source: banking.NonVote, Transaction: goodTx()}}
	voteCh <- []banking.Packet{{Source: banking.TpuVote, Transaction: func() banking.Transaction {
		tx := goodTx()
		tx.IsVote = true
		tx.VoteValidator = banking.Identifier{1}
		tx.VoteSignature = banking.Identifier{2}
		return tx
	}()}}

	buf := &fakeBuffer{cap: 10}
	votes := &fakeVoteSink{}
	filter := packetfilter.New(&packetfilter.Counters{})
	r := New(Channels{NonVote: nonVoteCh, TpuVote: voteCh, GossipVote: gossipCh}, filter, buf, votes, nil, &Counters{})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	accepted, ok := r.ReceiveAndBuffer(ctx)
	assert.True(t, ok)
	assert.Equal(t, 2, accepted)
	assert.Len(t, buf.packets, 1)
	assert.Len(t, votes.received, 1)
}

func TestReceiveAndBuffer_FiltersRejectedPackets(t *testing.T) {
	nonVoteCh := make(chan []banking.Packet, 1)
	badTx := banking.Transaction{ComputeUnitLimit: 0, BuiltinInstructionCount: 5}
	nonVoteCh <- []banking.Packet{{Source: banking.NonVote, Transaction: badTx}}

	buf := &fakeBuffer{cap: 10}
	votes := &fakeVoteSink{}
	filter := packetfilter.New(&packetfilter.Counters{})
	c := &Counters{}
	r := New(Channels{NonVote: nonVoteCh, TpuVote: make(chan []banking.Packet), GossipVote: make(chan []banking.Packet)}, filter, buf, votes, nil, c)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	accepted, _ := r.ReceiveAndBuffer(ctx)
	assert.Zero(t, accepted)
	assert.Len(t, buf.packets, 0)
	assert.EqualValues(t, 1, c.InsufficientComputeLimit.Value())
}

func TestReceiveAndBuffer_CleanShutdownOnChannelClose(t *testing.T) {
	nonVoteCh := make(chan []banking.Packet)
	tpuCh := make(chan []banking.Packet)
	gossipCh := make(chan []banking.Packet)
	close(nonVoteCh)
	close(tpuCh)
	close(gossipCh)

	buf := &fakeBuffer{cap: 10}
	votes := &fakeVoteSink{}
	filter := packetfilter.New(&packetfilter.Counters{})
	r := New(Channels{NonVote: nonVoteCh, TpuVote: tpuCh, GossipVote: gossipCh}, filter, buf, votes, nil, &Counters{})

	_, ok := r.ReceiveAndBuffer(context.Background())
	require.False(t, ok)
}
