package core

import (
	"sync/atomic"
	"time"
)

// TickSource is a free-running microsecond counter.
// Ticks must never block and must be monotonically non-decreasing.
// A 64-bit microsecond counter wraps after ~584,000 years, so callers
// never handle wraparound.
type TickSource interface {
	Ticks() uint64
}

// TickFunc adapts a plain function to TickSource
type TickFunc func() uint64

// Ticks calls f
func (f TickFunc) Ticks() uint64 {
	return f()
}

// Counter is a software tick source that only moves when told to.
// Used for host simulation and tests, where the hardware timer is absent.
//
// Step is added after every read so that spin loops polling the counter
// make progress without a second goroutine driving time forward.
type Counter struct {
	now  atomic.Uint64
	step atomic.Uint64
}

// NewCounter creates a Counter starting at start that advances step ticks per read
func NewCounter(start, step uint64) *Counter {
	c := &Counter{}
	c.now.Store(start)
	c.step.Store(step)
	return c
}

// Ticks returns the current value, then advances by the step
func (c *Counter) Ticks() uint64 {
	step := c.step.Load()
	if step == 0 {
		return c.now.Load()
	}
	return c.now.Add(step) - step
}

// Peek returns the current value without stepping
func (c *Counter) Peek() uint64 {
	return c.now.Load()
}

// Set moves the counter to an absolute value
func (c *Counter) Set(ticks uint64) {
	c.now.Store(ticks)
}

// Advance moves the counter forward by delta ticks
func (c *Counter) Advance(delta uint64) {
	c.now.Add(delta)
}

// SetStep changes the per-read advance
func (c *Counter) SetStep(step uint64) {
	c.step.Store(step)
}

// HostClock reads the Go runtime's monotonic clock in microseconds.
// Zero is the moment NewHostClock was called.
type HostClock struct {
	start time.Time
}

// NewHostClock creates a HostClock anchored at the current instant
func NewHostClock() *HostClock {
	return &HostClock{start: time.Now()}
}

// Ticks returns microseconds since the clock was created
func (h *HostClock) Ticks() uint64 {
	return uint64(time.Since(h.start).Microseconds())
}

// Global tick source used by target code.
var tickSource TickSource

// SetTickSource is called by target-specific code to register the hardware counter.
func SetTickSource(s TickSource) {
	tickSource = s
}

// MustTickSource returns the configured tick source or panics if missing.
func MustTickSource() TickSource {
	if tickSource == nil {
		panic("tick source not configured")
	}
	return tickSource
}
