// Package receiver pulls packet batches off the upstream channels, applies
// the packet filter, and routes survivors into vote storage or the
// non-vote buffer.
package receiver

import (
	"context"
	"time"

	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module/counters"
	"github.com/bankstage/core/module/packetfilter"
)

const (
	// emptyBufferTimeout is how long ReceiveAndBuffer blocks when the
	// non-vote buffer is empty, to avoid a tight spin while idle.
	emptyBufferTimeout = 100 * time.Millisecond
	// nonEmptyBufferTimeout is used instead once there is already
	// something pending, so a receiver with backlog never starves the
	// scheduler waiting on more input.
	nonEmptyBufferTimeout = 0
)

// Counters tracks per-category packet disposition. All fields saturate
// rather than wrap under sustained load.
type Counters struct {
	PassedSigverify           counters.SaturatingCounter
	FailedSanitization        counters.SaturatingCounter
	FailedPrioritization      counters.SaturatingCounter
	InvalidVote               counters.SaturatingCounter
	ExcessivePrecompile       counters.SaturatingCounter
	InsufficientComputeLimit  counters.SaturatingCounter
}

// NonVoteBuffer is the destination for non-vote packets. Add reports
// whether the packet was accepted; false means the buffer is at capacity.
type NonVoteBuffer interface {
	Add(packet banking.Packet) bool
	Len() int
}

// VoteSink is the destination for vote packets (§4.5's Vote Storage).
type VoteSink interface {
	Receive(packet banking.Packet) error
}

// Channels groups the three upstream sources the receiver drains.
type Channels struct {
	NonVote    <-chan []banking.Packet
	TpuVote    <-chan []banking.Packet
	GossipVote <-chan []banking.Packet
}

// Sanitizer performs whatever caller-specific validation must happen
// before a packet is considered for the filter (e.g. signature
// pre-verification bookkeeping). It is out of this package's scope to
// define what sanitization means; a nil Sanitizer always succeeds.
type Sanitizer func(banking.Packet) error

// Receiver drains upstream channels into vote storage and the non-vote
// buffer, rejecting anything the packet filter refuses.
type Receiver struct {
	channels  Channels
	filter    *packetfilter.Filter
	nonVotes  NonVoteBuffer
	votes     VoteSink
	sanitize  Sanitizer
	counters  *Counters
}

// New creates a Receiver. sanitize may be nil.
func New(channels Channels, filter *packetfilter.Filter, nonVotes NonVoteBuffer, votes VoteSink, sanitize Sanitizer, counters *Counters) *Receiver {
	return &Receiver{
		channels: channels,
		filter:   filter,
		nonVotes: nonVotes,
		votes:    votes,
		sanitize: sanitize,
		counters: counters,
	}
}

// ReceiveAndBuffer drains available batches until the adaptive timeout
// elapses, ctx is canceled, or every upstream channel reports closed. It
// returns the number of packets accepted into a buffer (vote or non-vote)
// and ok=false once every upstream channel has closed, signaling clean
// shutdown to the caller.
func (r *Receiver) ReceiveAndBuffer(ctx context.Context) (accepted int, ok bool) {
	timeout := emptyBufferTimeout
	if r.nonVotes.Len() > 0 {
		timeout = nonEmptyBufferTimeout
	}

	deadline := time.NewTimer(timeout)
	defer deadline.Stop()

	open := openChannelCount(r.channels)
	for {
		select {
		case <-ctx.Done():
			return accepted, false

		case batch, chanOK := <-r.channels.NonVote:
			if !chanOK {
				r.channels.NonVote = nil
				open--
				if open == 0 {
					return accepted, false
				}
				continue
			}
			accepted += r.ingest(batch)

		case batch, chanOK := <-r.channels.TpuVote:
			if !chanOK {
				r.channels.TpuVote = nil
				open--
				if open == 0 {
					return accepted, false
				}
				continue
			}
			accepted += r.ingest(batch)

		case batch, chanOK := <-r.channels.GossipVote:
			if !chanOK {
				r.channels.GossipVote = nil
				open--
				if open == 0 {
					return accepted, false
				}
				continue
			}
			accepted += r.ingest(batch)

		case <-deadline.C:
			return accepted, true
		}
	}
}

// openChannelCount counts how many of channels' three fields are non-nil.
// A nil channel is one the caller never intends to use (e.g. a Receiver
// wired for non-vote traffic only) and must not hold the loop open forever
// waiting for a close that will never come.
func openChannelCount(channels Channels) int {
	open := 0
	if channels.NonVote != nil {
		open++
	}
	if channels.TpuVote != nil {
		open++
	}
	if channels.GossipVote != nil {
		open++
	}
	return open
}

// ingest applies sanitization and the packet filter to every packet in
// batch, routing survivors to their destination, and returns the number
// accepted.
func (r *Receiver) ingest(batch []banking.Packet) int {
	accepted := 0
	for _, packet := range batch {
		if r.sanitize != nil {
			if err := r.sanitize(packet); err != nil {
				r.counters.FailedSanitization.Inc()
				continue
			}
		}

		if packet.Source != banking.NonVote {
			if packet.Transaction.IsVote && !isValidVoteShape(packet.Transaction) {
				r.counters.InvalidVote.Inc()
				continue
			}
		}

		if failure := r.filter.Check(packet.Transaction); failure != banking.FilterFailureNone {
			r.recordFilterFailure(failure)
			continue
		}

		r.counters.PassedSigverify.Inc()

		if packet.Source == banking.NonVote {
			if !r.nonVotes.Add(packet) {
				r.counters.FailedPrioritization.Inc()
				continue
			}
		} else {
			if err := r.votes.Receive(packet); err != nil {
				r.counters.FailedPrioritization.Inc()
				continue
			}
		}
		accepted++
	}
	return accepted
}

func (r *Receiver) recordFilterFailure(failure banking.FilterFailure) {
	switch failure {
	case banking.FilterFailureExcessivePrecompile:
		r.counters.ExcessivePrecompile.Inc()
	case banking.FilterFailureInsufficientComputeLimit:
		r.counters.InsufficientComputeLimit.Inc()
	}
}

// isValidVoteShape is a minimal shape check: a vote transaction must carry
// a validator identity and a vote signature to be admissible into vote
// storage at all.
func isValidVoteShape(tx banking.Transaction) bool {
	var zero banking.Identifier
	return tx.VoteValidator != zero && tx.VoteSignature != zero
}
