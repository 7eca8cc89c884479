//go:build rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"
)

var (
	colorOK      = color.RGBA{R: 0x00, G: 0x10, B: 0x00}
	colorOverrun = color.RGBA{R: 0x20, G: 0x00, B: 0x00}
	colorOff     = color.RGBA{}
)

// StatusLED mirrors gate health on a single WS2812 pixel.
// Green while cycles land on time, red for the cycle after an overrun.
type StatusLED struct {
	dev     ws2812.Device
	enabled bool
	buf     [1]color.RGBA
}

// NewStatusLED creates the pixel driver, or a disabled StatusLED for machine.NoPin
func NewStatusLED(pin machine.Pin) *StatusLED {
	if pin == machine.NoPin {
		return &StatusLED{}
	}
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &StatusLED{dev: ws2812.New(pin), enabled: true}
}

// Show sets the pixel for one cycle. lit follows the blink LED so both flash together.
func (s *StatusLED) Show(overrun, lit bool) error {
	if !s.enabled {
		return nil
	}
	switch {
	case !lit:
		s.buf[0] = colorOff
	case overrun:
		s.buf[0] = colorOverrun
	default:
		s.buf[0] = colorOK
	}
	return s.dev.WriteColors(s.buf[:])
}
