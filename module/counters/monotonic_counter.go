// Package counters provides small lock-free primitives for values that must
// never regress or never wrap, such as monotonic clocks and saturating
// telemetry counters under sustained load.
package counters

import "go.uber.org/atomic"

// StrictMonotonousCounter is an atomic value that only ever increases, so
// a stale write racing a fresher one loses rather than clobbering it. No
// package in this module uses it.
type StrictMonotonousCounter struct {
	value atomic.Uint64
}

// NewMonotonousCounter creates a StrictMonotonousCounter with the given initial value.
func NewMonotonousCounter(initial uint64) StrictMonotonousCounter {
	return StrictMonotonousCounter{value: *atomic.NewUint64(initial)}
}

// Value returns the current value.
func (c *StrictMonotonousCounter) Value() uint64 {
	return c.value.Load()
}

// Set updates the counter to newValue, as long as newValue is strictly
// larger than the current value. Returns whether the update was applied.
func (c *StrictMonotonousCounter) Set(newValue uint64) bool {
	for {
		current := c.value.Load()
		if newValue <= current {
			return false
		}
		if c.value.CAS(current, newValue) {
			return true
		}
	}
}

// SaturatingCounter is a monotonic counter that clamps at math.MaxUint64
// instead of wrapping around to zero. It backs the disposition counters in
// receiver.Counters and packetfilter.Counters, where an overflowing counter
// silently reporting zero
// under sustained load would be worse than a clamped, clearly-saturated one.
type SaturatingCounter struct {
	value atomic.Uint64
}

// Add increments the counter by delta, saturating at math.MaxUint64.
func (c *SaturatingCounter) Add(delta uint64) {
	for {
		current := c.value.Load()
		next := current + delta
		if next < current {
			next = ^uint64(0) // overflowed: clamp
		}
		if c.value.CAS(current, next) {
			return
		}
	}
}

// Inc increments the counter by one, saturating at math.MaxUint64.
func (c *SaturatingCounter) Inc() {
	c.Add(1)
}

// Value returns the current value.
func (c *SaturatingCounter) Value() uint64 {
	return c.value.Load()
}
