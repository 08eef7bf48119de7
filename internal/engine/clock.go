package engine

import "sync/atomic"

// Clock is a monotonic logical counter of executed steps.
//
// It is shared by all workers of a campaign and only feeds progress
// logging and span attributes. Step ordering inside a run never depends
// on it.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a new clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next value and increments the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current value without incrementing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
