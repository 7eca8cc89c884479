//go:build rp2040

// Blink demo: toggles the onboard LED on an exact cadence with a TimingGate
// and streams one gate report per edge to the host over USB CDC.
package main

import (
	"picogate/core"
	"picogate/protocol"
)

func main() {
	cfg := GetDemoConfig()

	InitUSB()
	core.SetDebugWriter(func(s string) { println(s) })

	timer := HardwareTimer{}
	core.SetTickSource(timer)

	gpio := NewRPGPIODriver()
	core.SetGPIODriver(gpio)

	status := NewStatusLED(cfg.StatusLED)

	gate := core.NewTimingGate(core.MustTickSource())

	// Give the host time to enumerate the CDC port before the first report
	gate.WaitSec(2)
	blinker := core.NewBlinker(gate, core.MustGPIO(), core.GPIOPin(cfg.LEDPin), cfg.HalfPeriodUS)

	lit := false
	blinker.OnCycle = func(res core.GateResult) {
		lit = !lit
		_ = status.Show(res.Overrun, lit)

		if cfg.Telemetry {
			queueReport(protocol.ReportFromResult(res))
			writeUSB()
		}

		if cfg.DumpEvery > 0 && (res.Cycle+1)%cfg.DumpEvery == 0 {
			core.DebugPrintln(blinker.Stats.Summary())
			blinker.Events.Dump()
		}
	}

	if err := blinker.Start(); err != nil {
		println("blink start failed:", err.Error())
		return
	}

	// Run forever; only a GPIO fault ends the loop
	if err := blinker.Run(0); err != nil {
		println("blink stopped:", err.Error())
	}
}
