package engine

import (
	"sync/atomic"
	"time"
)

// Clock is the logical clock that numbers transitions.
//
// Sequence numbers are strictly increasing and start at 1. Ordering never
// depends on wall time; timestamps are informational.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations),
// although the Oracle is its only caller.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start; Next returns start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence number and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued sequence number without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}

// Peek returns the number Next would issue.
func (c *Clock) Peek() int64 {
	return c.seq.Load() + 1
}

// NowFunc supplies wall-clock timestamps.
type NowFunc func() time.Time

// SystemNow returns the current UTC time.
func SystemNow() time.Time {
	return time.Now().UTC()
}
