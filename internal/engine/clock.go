package engine

import "sync/atomic"

// Clock is the monotonic logical clock stamping every transition and
// guarded access. Trace ordering uses these seq numbers, never wall-clock
// timestamps, so a replayed action stream produces an identical trace.
//
// Thread-safety: atomic operations make the clock safe for concurrent
// use, though the engine's single-threaded evaluation model means only
// one goroutine normally calls Next().
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0; the first Next() returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next returns the next sequence number and advances the clock.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the current sequence number without advancing.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
