// Package votestorage holds per-validator vote queues and drains them one
// stake-weighted draw at a time: each drain returns at most one packet, so
// the expected composition of the drained sequence tracks validator stake,
// but a single drain never returns a multi-packet batch.
package votestorage

import (
	"bytes"
	"errors"
	"math/rand"
	"sort"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module/queue"
)

const (
	// MaxPerValidator bounds each validator's FIFO queue.
	MaxPerValidator = 1000
	// DuplicateSuppressionCapacity bounds the global dedup set.
	DuplicateSuppressionCapacity = 100_000
	// MaxAgeSlots is the oldest a vote may be before drain evicts it.
	MaxAgeSlots = 150
	// UnprocessedBufferStepSize caps a single drain's output.
	UnprocessedBufferStepSize = 16

	// averageSlotDuration approximates wall-clock slot time for age-based
	// eviction, since Packet carries a wall-clock receive time rather than
	// a logical slot number. This is a deliberate simplification: the
	// source's slot clock is out of scope here (see module/cost and
	// engine/banking/decision, which take ticks/slots as externally
	// supplied instead of deriving them from wall time).
	averageSlotDuration = 400 * time.Millisecond
	maxVoteAge          = MaxAgeSlots * averageSlotDuration
)

var ErrDuplicateVote = errors.New("vote signature already seen")

// StakeSource supplies the live stake distribution backing a bank's vote
// accounts, queried fresh on every drain.
type StakeSource interface {
	StakeDistribution(bank banking.BankHandle) map[banking.Identifier]uint64
}

// epochBoundaryInfo is refreshed by CacheEpochBoundaryInfo and must be
// refreshed at least once per epoch transition; a missed refresh is
// neither logged nor retried (see DESIGN.md's Open Question resolution).
type epochBoundaryInfo struct {
	epoch      uint64
	stake      map[banking.Identifier]uint64
	totalStake uint64
	cachedAt   time.Time
}

// Storage owns every validator's pending vote queue and the global
// duplicate-suppression set. It is intended to be owned exclusively by a
// single Vote Worker goroutine; nothing here is safe for concurrent
// mutation from multiple goroutines.
type Storage struct {
	queues map[banking.Identifier]*queue.FifoQueue
	dup    *lru.Cache[banking.Identifier, struct{}]
	epoch  epochBoundaryInfo
	rand   *rand.Rand
	now    func() time.Time
}

// New creates an empty Storage. seed controls the stake-weighted drain's
// randomness; pass a fixed seed in tests for determinism.
func New(seed int64) *Storage {
	dup, err := lru.New[banking.Identifier, struct{}](DuplicateSuppressionCapacity)
	if err != nil {
		// only possible if DuplicateSuppressionCapacity <= 0.
		panic(err)
	}
	return &Storage{
		queues: make(map[banking.Identifier]*queue.FifoQueue),
		dup:    dup,
		rand:   rand.New(rand.NewSource(seed)),
		now:    time.Now,
	}
}

// validatorQueue returns validator's queue, creating it on first use. Each
// validator gets its own bounded FifoQueue rather than one shared queue,
// since drain selection (DrainUnprocessed) must be able to pick a single
// validator's head independent of every other validator's backlog; a
// per-validator depth gauge is intentionally not wired here (it would be
// one time series per validator identity) — PendingCount already reports
// the aggregate every vote worker's tick needs.
func (s *Storage) validatorQueue(validator banking.Identifier) *queue.FifoQueue {
	q, ok := s.queues[validator]
	if !ok {
		q = queue.NewFifoQueue(MaxPerValidator, nil)
		s.queues[validator] = q
	}
	return q
}

// Receive enqueues packet under its validator identity, rejecting
// duplicates by vote signature. The caller is expected to have already
// stamped packet.ReceivedAt.
func (s *Storage) Receive(packet banking.Packet) error {
	sig := packet.Transaction.VoteSignature
	if _, seen := s.dup.Get(sig); seen {
		return ErrDuplicateVote
	}
	s.dup.Add(sig, struct{}{})

	validator := packet.Transaction.VoteValidator
	if !s.validatorQueue(validator).PushBack(packet) {
		return errQueueFull
	}
	return nil
}

var errQueueFull = errors.New("validator vote queue is full")

// Reinsert returns previously drained, retryable packets to their
// validators' queues, preserving each packet's original ReceivedAt so
// age-based eviction still applies. Reinserted packets are placed ahead
// of newer arrivals so they get first refusal on the next drain.
func (s *Storage) Reinsert(packets []banking.Packet) {
	for _, packet := range packets {
		validator := packet.Transaction.VoteValidator
		s.validatorQueue(validator).PushFront(packet)
	}
}

// DrainUnprocessed picks a single validator head per invocation, won by a
// stake-weighted draw across every validator still holding a fresh,
// undrained head: a validator's share of total stake is its probability of
// winning the draw, not a guarantee of inclusion, so repeated invocations
// track stake proportionally rather than draining every eligible validator
// regardless of weight. The draw result is always at most one packet
// (bounded well under UnprocessedBufferStepSize, which callers rely on as
// the hard ceiling for a single pass but need not hit every tick). Zero-
// stake validators are excluded. Stale heads (older than MaxAgeSlots) are
// evicted in place rather than selected.
func (s *Storage) DrainUnprocessed(bank banking.BankHandle, source StakeSource) []banking.Packet {
	stake := source.StakeDistribution(bank)

	type candidate struct {
		validator banking.Identifier
		weight    uint64
	}
	var candidates []candidate
	var total uint64
	for validator, weight := range stake {
		if weight == 0 {
			continue
		}
		if !s.headIsFresh(validator) {
			continue
		}
		candidates = append(candidates, candidate{validator, weight})
		total += weight
	}
	if total == 0 {
		return nil
	}

	// Sort candidates into a fixed order before drawing so that, for a
	// given seed, which validator's draw consumes which value from rand
	// does not depend on Go's randomized map iteration order.
	sort.Slice(candidates, func(i, j int) bool {
		return bytes.Compare(candidates[i].validator[:], candidates[j].validator[:]) < 0
	})

	r := s.rand.Uint64() % total
	var cumulative uint64
	winner := candidates[len(candidates)-1].validator
	for _, c := range candidates {
		cumulative += c.weight
		if r < cumulative {
			winner = c.validator
			break
		}
	}

	packet, ok := s.popFreshHead(winner)
	if !ok {
		return nil
	}
	return []banking.Packet{packet}
}

// headIsFresh evicts stale entries from the front of validator's queue and
// reports whether a usable head remains.
func (s *Storage) headIsFresh(validator banking.Identifier) bool {
	q := s.validatorQueue(validator)
	for {
		front, ok := q.Front()
		if !ok {
			return false
		}
		if s.now().Sub(front.(banking.Packet).ReceivedAt) <= maxVoteAge {
			return true
		}
		q.PopFront()
	}
}

// popFreshHead pops and returns validator's queue head, assuming
// headIsFresh was already checked.
func (s *Storage) popFreshHead(validator banking.Identifier) (banking.Packet, bool) {
	element, ok := s.validatorQueue(validator).PopFront()
	if !ok {
		return banking.Packet{}, false
	}
	return element.(banking.Packet), true
}

// CacheEpochBoundaryInfo refreshes the epoch identity and stake snapshot.
// It is invoked on a ForwardAndHold decision and must be called at least
// once per epoch transition; the specification leaves retry-on-failure
// unspecified, and this implementation treats a missed refresh as
// best-effort rather than retrying it automatically (see DESIGN.md).
func (s *Storage) CacheEpochBoundaryInfo(bank banking.BankHandle, epoch uint64, source StakeSource) {
	stake := source.StakeDistribution(bank)
	var total uint64
	for _, w := range stake {
		total += w
	}
	s.epoch = epochBoundaryInfo{
		epoch:      epoch,
		stake:      stake,
		totalStake: total,
		cachedAt:   s.now(),
	}
}

// QueueLength returns the number of pending votes for validator, for tests
// and telemetry.
func (s *Storage) QueueLength(validator banking.Identifier) int {
	q, ok := s.queues[validator]
	if !ok {
		return 0
	}
	return q.Len()
}

// PendingCount returns the total number of votes buffered across every
// validator's queue, for telemetry and shutdown logging.
func (s *Storage) PendingCount() int {
	n := 0
	for _, q := range s.queues {
		n += q.Len()
	}
	return n
}

// ClearAll discards every pending vote across every validator's queue. Used
// on a Forward decision, where buffered votes are routed upstream instead
// of being consumed locally and holding onto them serves no purpose.
func (s *Storage) ClearAll() {
	for validator := range s.queues {
		delete(s.queues, validator)
	}
}
