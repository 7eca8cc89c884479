//go:build rp2040

package main

import "machine"

// DemoConfig holds the compile-time settings of the blink demo
type DemoConfig struct {
	// LEDPin is toggled on every gate cycle
	LEDPin machine.Pin

	// HalfPeriodUS is the gate period, one LED edge per period
	HalfPeriodUS uint64

	// StatusLED drives a WS2812 that turns red after an overrun.
	// machine.NoPin disables it (the plain Pico has none).
	StatusLED machine.Pin

	// Telemetry streams a framed report per cycle over USB CDC
	Telemetry bool

	// DumpEvery prints the event ring every this many cycles, 0 disables
	DumpEvery uint32
}

// GetDemoConfig returns the settings for this build.
// Edit here to retarget: e.g. StatusLED: machine.GPIO16 on a RP2040-Zero.
func GetDemoConfig() DemoConfig {
	return DemoConfig{
		LEDPin:       machine.LED,
		HalfPeriodUS: 500000, // 1Hz blink
		StatusLED:    machine.NoPin,
		Telemetry:    true,
		DumpEvery:    0,
	}
}
