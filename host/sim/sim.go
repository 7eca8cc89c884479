// Package sim runs the gated blink loop on the host against a virtual pin,
// with a configurable synthetic workload, to study overrun behaviour.
package sim

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"picogate/core"
	"picogate/protocol"
)

// LEDPin is the virtual pin toggled by the simulation (the Pico's onboard LED)
const LEDPin core.GPIOPin = 25

// Options configures a simulation run. Durations are microseconds.
type Options struct {
	Period      uint64 // gate period between edges
	Work        uint64 // busy work after every edge
	Jitter      uint64 // extra work added every JitterEvery cycles
	JitterEvery int
	Cycles      int
}

// Simulator drives a core.Blinker with synthetic work between edges
type Simulator struct {
	Pins    *VirtualPins
	Blinker *core.Blinker

	opts   Options
	gate   *core.TimingGate
	record io.Writer
	enc    protocol.ReportEncoder
	out    *protocol.ScratchOutput
	err    error
}

// New creates a Simulator on source. If record is non-nil every cycle is
// written to it as a framed report, the same stream the firmware sends.
func New(source core.TickSource, opts Options, record io.Writer, log *slog.Logger) *Simulator {
	s := &Simulator{
		Pins:   NewVirtualPins(log),
		opts:   opts,
		gate:   core.NewTimingGate(source),
		record: record,
		out:    protocol.NewScratchOutput(),
	}
	s.Blinker = core.NewBlinker(s.gate, s.Pins, LEDPin, opts.Period)
	s.Blinker.OnCycle = s.onCycle
	return s
}

func (s *Simulator) onCycle(res core.GateResult) {
	if s.record != nil && s.err == nil {
		s.out.Reset()
		s.enc.Encode(s.out, protocol.ReportFromResult(res))
		if _, err := s.record.Write(s.out.Result()); err != nil {
			s.err = fmt.Errorf("write report: %w", err)
		}
	}

	work := s.opts.Work
	if s.opts.JitterEvery > 0 && (res.Cycle+1)%uint32(s.opts.JitterEvery) == 0 {
		work += s.opts.Jitter
	}
	s.gate.WaitUS(work)
}

// Run executes the configured number of cycles. ctx is checked between
// cycles only; a cycle in progress always completes.
func (s *Simulator) Run(ctx context.Context) (core.OverrunStats, error) {
	if err := s.Blinker.Start(); err != nil {
		return core.OverrunStats{}, err
	}
	for i := 0; i < s.opts.Cycles; i++ {
		if err := ctx.Err(); err != nil {
			return s.Blinker.Stats, err
		}
		if err := s.Blinker.Step(); err != nil {
			return s.Blinker.Stats, err
		}
		if s.err != nil {
			return s.Blinker.Stats, s.err
		}
	}
	return s.Blinker.Stats, nil
}
