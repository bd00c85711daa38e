package decision

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bankstage/core/model/banking"
)

type fakeBank struct {
	id   banking.Identifier
	slot uint64
}

func (b fakeBank) Identity() banking.Identifier { return b.id }
func (b fakeBank) Slot() uint64                 { return b.slot }

type fakeRecorder struct {
	bank            banking.BankHandle
	hasBank         bool
	leaderShortly   bool
	leader          bool
	leaderAfter     banking.Identifier
	hasLeaderAfter  bool
	self            banking.Identifier
}

func (f *fakeRecorder) BankStart() (banking.BankHandle, bool)     { return f.bank, f.hasBank }
func (f *fakeRecorder) WouldBeLeaderShortly() bool                { return f.leaderShortly }
func (f *fakeRecorder) WouldBeLeader() bool                       { return f.leader }
func (f *fakeRecorder) LeaderPubkeyAfter(uint64) (banking.Identifier, bool) {
	return f.leaderAfter, f.hasLeaderAfter
}
func (f *fakeRecorder) SelfIdentity() banking.Identifier { return f.self }

func TestDecide_ConsumeWhenBankActive(t *testing.T) {
	rec := &fakeRecorder{hasBank: true, bank: fakeBank{id: banking.Identifier{1}}}
	m := New(rec, nil)

	d := m.Decide()
	assert.Equal(t, banking.Consume, d.Kind)
	assert.Equal(t, banking.Identifier{1}, d.BankHandle.Identity())
}

func TestDecide_HoldWhenLeaderShortly(t *testing.T) {
	rec := &fakeRecorder{leaderShortly: true}
	m := New(rec, nil)

	assert.Equal(t, banking.Hold, m.Decide().Kind)
}

func TestDecide_ForwardAndHoldWithinWindow(t *testing.T) {
	rec := &fakeRecorder{leader: true}
	m := New(rec, nil)

	assert.Equal(t, banking.ForwardAndHold, m.Decide().Kind)
}

func TestDecide_ForwardToKnownLeader(t *testing.T) {
	other := banking.Identifier{9}
	rec := &fakeRecorder{leaderAfter: other, hasLeaderAfter: true, self: banking.Identifier{1}}
	m := New(rec, nil)

	assert.Equal(t, banking.Forward, m.Decide().Kind)
}

func TestDecide_HoldAsSafeDefault(t *testing.T) {
	self := banking.Identifier{1}
	rec := &fakeRecorder{leaderAfter: self, hasLeaderAfter: true, self: self}
	m := New(rec, nil)

	assert.Equal(t, banking.Hold, m.Decide().Kind)
}

func TestDecide_CacheFreshness(t *testing.T) {
	now := time.Unix(0, 0)
	clock := func() time.Time { return now }

	rec := &fakeRecorder{hasBank: true, bank: fakeBank{id: banking.Identifier{1}}}
	m := New(rec, clock)

	first := m.Decide()
	assert.Equal(t, banking.Consume, first.Kind)

	// underlying state changes, but the cache must still serve the stale
	// verdict for up to 5ms.
	rec.hasBank = false
	rec.leaderShortly = true
	now = now.Add(4 * time.Millisecond)
	stillCached := m.Decide()
	assert.Equal(t, banking.Consume, stillCached.Kind)

	now = now.Add(2 * time.Millisecond)
	fresh := m.Decide()
	assert.Equal(t, banking.Hold, fresh.Kind)
}
