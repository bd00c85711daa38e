// Package decision maps the local node's leadership status to a verdict
// for what to do with buffered packets this tick, consulting a pluggable
// set of queries so the logic is testable without a real proof-of-history
// clock.
package decision

import (
	"sync"
	"time"

	"github.com/bankstage/core/model/banking"
)

const (
	// ForwardAtSlotOffset is the lower bound, in slots, of the window in
	// which a transaction is forwarded but also held locally as a hedge.
	ForwardAtSlotOffset = 2
	// HoldSlotOffset is the upper bound, in slots, of that window.
	HoldSlotOffset = 20
	// TicksPerSlot converts tick counts into slot counts where needed by
	// callers of PohRecorder; the decision maker itself only ever reasons
	// in slots.
	TicksPerSlot = 64

	// cacheTTL is how long a decision is trusted before the queries are
	// consulted again.
	cacheTTL = 5 * time.Millisecond
)

// Maker holds the decision cache and the recorder queries it consults on a
// cache miss. A Maker is owned by exactly one goroutine at a time — either
// the main pipeline tick or a dedicated Vote Worker's own instance — but
// its internal lock makes Decide safe to call from any single caller
// without that caller needing to reason about the cache itself.
type Maker struct {
	recorder banking.PohRecorder
	clock    func() time.Time

	mu       sync.Mutex
	cached   banking.BufferedPacketsDecision
	cachedAt time.Time
	hasCache bool
}

// New creates a Maker backed by recorder. Clock defaults to time.Now; tests
// may override it to control cache expiry deterministically.
func New(recorder banking.PohRecorder, clock func() time.Time) *Maker {
	if clock == nil {
		clock = time.Now
	}
	return &Maker{recorder: recorder, clock: clock}
}

// Decide returns the current BufferedPacketsDecision, serving the cache
// when it is still fresh and recomputing otherwise.
func (m *Maker) Decide() banking.BufferedPacketsDecision {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if m.hasCache && now.Sub(m.cachedAt) < cacheTTL {
		return m.cached
	}

	decision := m.evaluate()
	m.cached = decision
	m.cachedAt = now
	m.hasCache = true
	return decision
}

// evaluate runs the decision table in first-match-wins order. Held under mu.
func (m *Maker) evaluate() banking.BufferedPacketsDecision {
	if bank, ok := m.recorder.BankStart(); ok {
		return banking.BufferedPacketsDecision{Kind: banking.Consume, BankHandle: bank}
	}
	if m.recorder.WouldBeLeaderShortly() {
		return banking.BufferedPacketsDecision{Kind: banking.Hold}
	}
	if m.recorder.WouldBeLeader() {
		return banking.BufferedPacketsDecision{Kind: banking.ForwardAndHold}
	}
	if leader, ok := m.recorder.LeaderPubkeyAfter(ForwardAtSlotOffset); ok && leader != m.recorder.SelfIdentity() {
		return banking.BufferedPacketsDecision{Kind: banking.Forward}
	}
	return banking.BufferedPacketsDecision{Kind: banking.Hold}
}
