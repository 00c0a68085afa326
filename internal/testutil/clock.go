package testutil

import "sync/atomic"

// DeterministicClock is a monotonic logical clock for catalog tests.
//
// The catalog orders builds by the sequence number its clock hands out.
// Tests swap the wall clock for this one so that build ordering does not
// depend on timing, and Reset lets one test replay the same sequence.
//
// Safe for concurrent use.
type DeterministicClock struct {
	seq atomic.Int64
}

// NewDeterministicClock creates a clock whose first Next returns 1.
func NewDeterministicClock() *DeterministicClock {
	return &DeterministicClock{}
}

// Next advances the clock and returns the new value.
func (c *DeterministicClock) Next() int64 { return c.seq.Add(1) }

// Current returns the last value handed out.
func (c *DeterministicClock) Current() int64 { return c.seq.Load() }

// Reset rewinds the clock to 0.
func (c *DeterministicClock) Reset() { c.seq.Store(0) }
