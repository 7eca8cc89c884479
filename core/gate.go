// Package core holds the portable timing gate and the glue the firmware
// and host tools share: tick sources, GPIO HAL, overrun stats and the blink loop.
package core

// TimingGate spins on a TickSource to produce exact delays and a constant
// period between successive Gate calls.
//
// The tick source is borrowed: it must outlive the gate. A TimingGate has a
// single owner; Gate* calls from more than one goroutine are not supported.
//
// Usage from the firmware main loop:
//
//	gate := core.NewTimingGate(timer)
//	for {
//		gate.GateMS(1000) // A, free pass on the first iteration
//		// ...
//		gate.GateMS(500) // B, runs 500ms after A
//		// ...
//	}
type TimingGate struct {
	source TickSource
	active bool   // a gating cycle has been started
	anchor uint64 // start of the current period, valid only when active
}

// NewTimingGate binds a gate to source
func NewTimingGate(source TickSource) *TimingGate {
	return &TimingGate{source: source}
}

// Time returns the current tick count of the underlying source
func (g *TimingGate) Time() uint64 {
	return g.source.Ticks()
}

// WaitUS spins until at least us microseconds have elapsed
func (g *TimingGate) WaitUS(us uint64) {
	start := g.source.Ticks()
	for g.source.Ticks()-start < us {
	}
}

// WaitMS spins for ms milliseconds
func (g *TimingGate) WaitMS(ms uint64) {
	g.WaitUS(ms * 1000)
}

// WaitSec spins for sec seconds
func (g *TimingGate) WaitSec(sec uint64) {
	g.WaitMS(sec * 1000)
}

// GateUS waits until us microseconds have passed since the previous gate
// anchor. The first call after construction or Reset only records the anchor.
//
// When the period has already been exceeded GateUS returns an *OverrunError
// without waiting and restarts the period at the current tick. Otherwise the
// next anchor is exactly anchor+us, so the cadence does not drift by however
// long the spin loop took to notice the deadline.
func (g *TimingGate) GateUS(us uint64) error {
	now := g.source.Ticks()
	if !g.active {
		g.anchor = now
		g.active = true
		return nil
	}

	elapsed := now - g.anchor
	if elapsed > us {
		g.anchor = now
		return &OverrunError{Period: us, Elapsed: elapsed}
	}

	deadline := g.anchor + us
	for now < deadline {
		now = g.source.Ticks()
	}
	g.anchor = deadline
	return nil
}

// GateMS is GateUS in milliseconds. Overrun values stay in microseconds.
func (g *TimingGate) GateMS(ms uint64) error {
	return g.GateUS(ms * 1000)
}

// GateSec is GateUS in seconds. Overrun values stay in microseconds.
func (g *TimingGate) GateSec(sec uint64) error {
	return g.GateMS(sec * 1000)
}

// Anchor returns the start of the current period and whether gating has begun
func (g *TimingGate) Anchor() (uint64, bool) {
	return g.anchor, g.active
}

// Reset ends the current gating cycle. The next Gate call is a free pass.
func (g *TimingGate) Reset() {
	g.active = false
	g.anchor = 0
}
