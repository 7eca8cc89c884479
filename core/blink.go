// Gated LED blink loop
// Toggles an output pin on a fixed cadence using TimingGate
package core

// GateResult describes one completed Blinker cycle
type GateResult struct {
	Cycle   uint32
	Clock   uint64 // Tick when the gate returned
	Period  uint64 // Requested period in microseconds
	Elapsed uint64 // Time since the previous anchor (0 on the first cycle)
	Overrun bool
}

// Blinker toggles a pin every HalfPeriod microseconds.
// Toggling right after the gate returns keeps the edges on the gate cadence
// no matter how long OnCycle takes, as long as it stays under the period.
type Blinker struct {
	Pin        GPIOPin
	HalfPeriod uint64 // microseconds between edges

	// OnCycle, if set, is called after every edge
	OnCycle func(GateResult)

	Stats  OverrunStats
	Events EventRing

	gate  *TimingGate
	gpio  GPIODriver
	cycle uint32
	on    bool
}

// NewBlinker creates a Blinker driving pin through gpio, paced by gate
func NewBlinker(gate *TimingGate, gpio GPIODriver, pin GPIOPin, halfPeriod uint64) *Blinker {
	return &Blinker{
		Pin:        pin,
		HalfPeriod: halfPeriod,
		gate:       gate,
		gpio:       gpio,
	}
}

// Start configures the pin as an output, drives it low and restarts gating
func (b *Blinker) Start() error {
	if err := b.gpio.ConfigureOutput(b.Pin); err != nil {
		return err
	}
	if err := b.gpio.SetPin(b.Pin, false); err != nil {
		return err
	}
	b.on = false
	b.cycle = 0
	if _, active := b.gate.Anchor(); active {
		b.Events.Record(GateEvent{EventType: EvtGateReset, Clock: b.gate.Time()})
	}
	b.gate.Reset()
	return nil
}

// Step waits for the next edge and toggles the pin.
// Overruns are recorded, not returned: only GPIO failures are errors.
func (b *Blinker) Step() error {
	_, wasActive := b.gate.Anchor()
	gateErr := b.gate.GateUS(b.HalfPeriod)
	anchor, _ := b.gate.Anchor()

	res := GateResult{
		Cycle:  b.cycle,
		Clock:  anchor,
		Period: b.HalfPeriod,
	}
	evt := GateEvent{
		Cycle:  b.cycle,
		Clock:  anchor,
		Period: b.HalfPeriod,
	}
	switch oe, overrun := AsOverrun(gateErr); {
	case overrun:
		res.Overrun = true
		res.Elapsed = oe.Elapsed
		evt.EventType = EvtGateOverrun
		evt.Elapsed = oe.Elapsed
		if debugEnabled {
			DebugPrintln("[GATE] " + oe.Error())
		}
	case !wasActive:
		evt.EventType = EvtGateStart
	default:
		res.Elapsed = b.HalfPeriod
		evt.EventType = EvtGateOK
	}
	b.Stats.Record(gateErr)
	b.Events.Record(evt)

	b.on = !b.on
	if err := b.gpio.SetPin(b.Pin, b.on); err != nil {
		return err
	}
	b.cycle++

	if b.OnCycle != nil {
		b.OnCycle(res)
	}
	return nil
}

// Run calls Step cycles times, or forever when cycles is 0
func (b *Blinker) Run(cycles uint32) error {
	for i := uint32(0); cycles == 0 || i < cycles; i++ {
		if err := b.Step(); err != nil {
			return err
		}
	}
	return nil
}
