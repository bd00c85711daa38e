package stage

import (
	"github.com/bankstage/core/model/banking"
	"github.com/bankstage/core/module"
	"github.com/bankstage/core/module/metrics"
	"github.com/bankstage/core/module/queue"
)

// boundedNonVoteBuffer is a banking.Packet buffer satisfying
// receiver.NonVoteBuffer, backed by queue.FifoQueue. Its capacity is
// buffer_capacity from module/config; once full, Add refuses new packets
// rather than growing unbounded. Wake coalesces notifications for whatever
// worker drains the buffer into the scheduler, so that worker can block
// until there is something to pull instead of polling.
type boundedNonVoteBuffer struct {
	queue *queue.FifoQueue
	wake  module.Notifier
}

func newBoundedNonVoteBuffer(capacity int, collector metrics.Collector, wake module.Notifier) *boundedNonVoteBuffer {
	return &boundedNonVoteBuffer{
		queue: queue.NewFifoQueue(capacity, func(n int) { collector.NonVoteBufferDepth(uint(n)) }),
		wake:  wake,
	}
}

func (b *boundedNonVoteBuffer) Add(packet banking.Packet) bool {
	ok := b.queue.PushBack(packet)
	if ok {
		b.wake.Notify()
	}
	return ok
}

// Pop removes and returns the buffer's head packet, or ok=false if empty.
func (b *boundedNonVoteBuffer) Pop() (banking.Packet, bool) {
	element, ok := b.queue.PopFront()
	if !ok {
		return banking.Packet{}, false
	}
	return element.(banking.Packet), true
}

func (b *boundedNonVoteBuffer) Len() int {
	return b.queue.Len()
}
