package engine

import "sync/atomic"

// Clock numbers the runs of one session.
//
// Seq values are strictly increasing and never reused, including across
// Engine.Reset, so a run log keyed by (session, seq) stays append-only.
// Clock is safe for concurrent use.
type Clock struct {
	seq atomic.Int64
}

// NewClock returns a clock whose first Next is 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt returns a clock whose first Next is start+1. Used to resume a
// recorded session after its last logged seq.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the last issued seq, or the start value if none.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
