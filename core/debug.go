package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// GateEvent captures one gate outcome for post-mortem analysis
type GateEvent struct {
	EventType uint8  // Event type code
	Cycle     uint32 // Gate cycle number
	Clock     uint64 // Tick at which the gate returned
	Period    uint64 // Requested period in microseconds
	Elapsed   uint64 // Microseconds since previous anchor (overruns only)
}

// Event type codes
const (
	EvtGateStart   = 1 // First gate call, anchor recorded
	EvtGateOK      = 2 // Waited out the remainder of the period
	EvtGateOverrun = 3 // Period already exceeded
	EvtGateReset   = 4 // Gating cycle ended by Reset
)

const (
	EventRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active.
	// Off by default: printing inside a gated loop eats into the period.
	debugEnabled bool = false
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// EventRing is a fixed-size history of gate outcomes. Recording never allocates.
type EventRing struct {
	events [EventRingSize]GateEvent
	head   uint8 // Next write position
}

// Record stores an event, overwriting the oldest once full
func (r *EventRing) Record(evt GateEvent) {
	r.events[r.head] = evt
	r.head = (r.head + 1) % EventRingSize
}

// Events returns recorded events from oldest to newest
func (r *EventRing) Events() []GateEvent {
	out := make([]GateEvent, 0, EventRingSize)
	for i := uint8(0); i < EventRingSize; i++ {
		evt := r.events[(r.head+i)%EventRingSize]
		if evt.EventType == 0 {
			continue // Empty slot
		}
		out = append(out, evt)
	}
	return out
}

// Clear empties the ring
func (r *EventRing) Clear() {
	for i := range r.events {
		r.events[i] = GateEvent{}
	}
	r.head = 0
}

// Dump writes the ring through the debug writer, oldest first.
// Output goes out even when debug is disabled: it is requested explicitly.
func (r *EventRing) Dump() {
	if debugPrintln == nil {
		return
	}

	debugPrintln("[GATE] === Event Ring Dump ===")
	for _, evt := range r.Events() {
		var name string
		switch evt.EventType {
		case EvtGateStart:
			name = "START"
		case EvtGateOK:
			name = "OK"
		case EvtGateOverrun:
			name = "OVERRUN!"
		case EvtGateReset:
			name = "RESET"
		default:
			name = "UNKNOWN"
		}

		line := "[GATE] " + name +
			" cycle=" + utoa64(uint64(evt.Cycle)) +
			" clock=" + utoa64(evt.Clock) +
			" period=" + FormatMicros(evt.Period)
		if evt.EventType == EvtGateOverrun {
			line += " elapsed=" + FormatMicros(evt.Elapsed)
		}
		debugPrintln(line)
	}
	debugPrintln("[GATE] === End Dump ===")
}
